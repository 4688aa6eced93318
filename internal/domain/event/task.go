package event

// TaskPayload carries the open task snapshot attached to created/updated
// events. Column-level fields (title, priority, due_date, tags) stay
// free-form: the delivery core never interprets them.
type TaskPayload struct {
	TaskID int64          `json:"task_id"`
	Fields map[string]any `json:"fields,omitempty"`
	// Changes lists the modified columns on update events.
	Changes []string `json:"changes,omitempty"`
}

// TaskDeletedPayload identifies a removed task.
type TaskDeletedPayload struct {
	TaskID int64 `json:"task_id"`
}

// TaskCompletedPayload records a completion-status flip.
type TaskCompletedPayload struct {
	TaskID       int64  `json:"task_id"`
	Completed    bool   `json:"completed"`
	StatusChange string `json:"status_change"` // "completed" | "reopened"
}

// TaskRecurredPayload links a finished recurring task to its next instance.
type TaskRecurredPayload struct {
	OriginalTaskID int64  `json:"original_task_id"`
	NewTaskID      int64  `json:"new_task_id"`
	NextDueDate    string `json:"next_due_date"`
}

// TaskReminderPayload carries everything the client needs to render a
// reminder notification without a follow-up fetch.
type TaskReminderPayload struct {
	TaskID       int64  `json:"task_id"`
	Title        string `json:"title"`
	DueDate      string `json:"due_date"`
	ReminderType string `json:"reminder_type"`
}

func NewTaskCreated(userID string, taskID int64, fields map[string]any) *Event {
	return newEvent(TaskCreated, userID, &TaskPayload{TaskID: taskID, Fields: fields})
}

func NewTaskUpdated(userID string, taskID int64, fields map[string]any, changes []string) *Event {
	return newEvent(TaskUpdated, userID, &TaskPayload{TaskID: taskID, Fields: fields, Changes: changes})
}

func NewTaskDeleted(userID string, taskID int64) *Event {
	return newEvent(TaskDeleted, userID, &TaskDeletedPayload{TaskID: taskID})
}

func NewTaskCompleted(userID string, taskID int64, completed bool) *Event {
	status := "reopened"
	if completed {
		status = "completed"
	}
	return newEvent(TaskCompleted, userID, &TaskCompletedPayload{
		TaskID:       taskID,
		Completed:    completed,
		StatusChange: status,
	})
}

func NewTaskRecurred(userID string, originalTaskID, newTaskID int64, nextDueDate string) *Event {
	return newEvent(TaskRecurred, userID, &TaskRecurredPayload{
		OriginalTaskID: originalTaskID,
		NewTaskID:      newTaskID,
		NextDueDate:    nextDueDate,
	})
}

func NewTaskReminder(userID string, taskID int64, title, dueDate string) *Event {
	return newEvent(TaskReminder, userID, &TaskReminderPayload{
		TaskID:       taskID,
		Title:        title,
		DueDate:      dueDate,
		ReminderType: "custom",
	})
}
