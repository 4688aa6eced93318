package event

// ChatPayload describes one turn of the assistant conversation.
// Metadata stays an open map: tool-call results and model annotations have
// no stable shape worth pinning here.
type ChatPayload struct {
	ConversationID int64          `json:"conversation_id"`
	Message        string         `json:"message,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func NewChatMessageSent(userID string, conversationID int64, message string, metadata map[string]any) *Event {
	return newEvent(ChatMessageSent, userID, &ChatPayload{
		ConversationID: conversationID,
		Message:        message,
		Metadata:       metadata,
	})
}

func NewChatResponseReceived(userID string, conversationID int64, message string, metadata map[string]any) *Event {
	return newEvent(ChatResponseReceived, userID, &ChatPayload{
		ConversationID: conversationID,
		Message:        message,
		Metadata:       metadata,
	})
}
