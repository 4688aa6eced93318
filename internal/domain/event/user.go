package event

// UserActivityPayload is the metadata attached to login/logout/registration
// events. The map is genuinely free-form (ip, user_agent, client version).
type UserActivityPayload struct {
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewUserLogin(userID string, metadata map[string]any) *Event {
	return newEvent(UserLogin, userID, &UserActivityPayload{Metadata: metadata})
}

func NewUserLogout(userID string, metadata map[string]any) *Event {
	return newEvent(UserLogout, userID, &UserActivityPayload{Metadata: metadata})
}

func NewUserRegistered(userID string, metadata map[string]any) *Event {
	return newEvent(UserRegistered, userID, &UserActivityPayload{Metadata: metadata})
}
