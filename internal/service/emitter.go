package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/taskora/event-delivery-service/internal/adapter/pubsub"
	"github.com/taskora/event-delivery-service/internal/domain/event"
	"golang.org/x/sync/errgroup"
)

// Emitter is the entry point for domain actions that produce events.
//
// Every emission takes two independent paths: best-effort publication to the
// external bus (for sibling services and other instances) and direct local
// broadcast (for subscribers connected to this process). The two results are
// OR-combined: both paths always run, neither short-circuits the other, and
// local real-time delivery keeps working with the broker fully down.
type Emitter struct {
	publisher pubsub.Publisher
	bridge    Bridger
	logger    *slog.Logger

	// publishTimeout detaches bus publication from the caller's deadline;
	// the domain-action response must not wait on broker I/O.
	publishTimeout time.Duration
}

func NewEmitter(publisher pubsub.Publisher, bridge Bridger, logger *slog.Logger, publishTimeout time.Duration) *Emitter {
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}
	return &Emitter{
		publisher:      publisher,
		bridge:         bridge,
		logger:         logger,
		publishTimeout: publishTimeout,
	}
}

// emit runs both publication paths concurrently and reports whether either
// succeeded.
func (e *Emitter) emit(topic string, ev *event.Event) bool {
	var busOK, directOK bool

	g := errgroup.Group{}
	g.Go(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), e.publishTimeout)
		defer cancel()
		busOK = e.publisher.Publish(ctx, topic, ev)
		return nil
	})
	g.Go(func() error {
		directOK = e.bridge.BroadcastLocal(ev) > 0
		return nil
	})
	_ = g.Wait()

	if busOK || directOK {
		e.logger.Info("emitted event",
			"event_type", ev.Type,
			"user_id", ev.UserID,
			"bus", busOK,
			"direct", directOK,
		)
	}
	return busOK || directOK
}

// Emit builds an event from raw pieces and runs it through both paths. Used
// by the direct-trigger endpoint, where the caller names the type explicitly.
func (e *Emitter) Emit(typ event.Type, userID string, payload any) (bool, error) {
	ev, err := event.New(typ, userID, payload)
	if err != nil {
		return false, err
	}
	return e.emit(pubsub.TopicFor(typ), ev), nil
}

// ------------------- TASK LIFECYCLE -------------------

func (e *Emitter) TaskCreated(userID string, taskID int64, fields map[string]any) bool {
	return e.emit(pubsub.TopicTaskEvents, event.NewTaskCreated(userID, taskID, fields))
}

func (e *Emitter) TaskUpdated(userID string, taskID int64, fields map[string]any, changes []string) bool {
	return e.emit(pubsub.TopicTaskEvents, event.NewTaskUpdated(userID, taskID, fields, changes))
}

func (e *Emitter) TaskDeleted(userID string, taskID int64) bool {
	return e.emit(pubsub.TopicTaskEvents, event.NewTaskDeleted(userID, taskID))
}

func (e *Emitter) TaskCompleted(userID string, taskID int64, completed bool) bool {
	return e.emit(pubsub.TopicTaskEvents, event.NewTaskCompleted(userID, taskID, completed))
}

func (e *Emitter) TaskRecurred(userID string, originalTaskID, newTaskID int64, nextDueDate string) bool {
	return e.emit(pubsub.TopicTaskEvents, event.NewTaskRecurred(userID, originalTaskID, newTaskID, nextDueDate))
}

func (e *Emitter) TaskReminder(userID string, taskID int64, title, dueDate string) bool {
	return e.emit(pubsub.TopicReminderEvents, event.NewTaskReminder(userID, taskID, title, dueDate))
}

// ------------------- USER ACTIVITY --------------------

func (e *Emitter) UserLogin(userID string, metadata map[string]any) bool {
	return e.emit(pubsub.TopicUserEvents, event.NewUserLogin(userID, metadata))
}

func (e *Emitter) UserLogout(userID string, metadata map[string]any) bool {
	return e.emit(pubsub.TopicUserEvents, event.NewUserLogout(userID, metadata))
}

func (e *Emitter) UserRegistered(userID string, metadata map[string]any) bool {
	return e.emit(pubsub.TopicUserEvents, event.NewUserRegistered(userID, metadata))
}

// ------------------- CHAT ASSISTANT -------------------

func (e *Emitter) ChatMessageSent(userID string, conversationID int64, message string, metadata map[string]any) bool {
	return e.emit(pubsub.TopicChatEvents, event.NewChatMessageSent(userID, conversationID, message, metadata))
}

func (e *Emitter) ChatResponseReceived(userID string, conversationID int64, message string, metadata map[string]any) bool {
	return e.emit(pubsub.TopicChatEvents, event.NewChatResponseReceived(userID, conversationID, message, metadata))
}
