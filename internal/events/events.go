package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TypePersonalization requests the personalization of one employee's course.
const TypePersonalization = "personalization"

// ErrNoHandler is returned when an event is emitted with no handler
// registered for its type.
var ErrNoHandler = errors.New("no handler registered for event type")

// TaskRequestEvent represents a request to run a background task.
// It carries enough to locate the task's durable record; the handler loads
// everything else.
type TaskRequestEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates the task type that should be created
	Type string `json:"type"`

	// Payload contains the task-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// PersonalizationPayload identifies the generation task to run.
type PersonalizationPayload struct {
	JobID  uuid.UUID `json:"job_id"`
	TaskID uuid.UUID `json:"task_id"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *TaskRequestEvent) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskRequestEvent creates a new TaskRequestEvent with the specified type and payload.
func NewTaskRequestEvent(eventType string, payload any) (*TaskRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewPersonalizationEvent creates a request to run one generation task.
func NewPersonalizationEvent(jobID, taskID uuid.UUID) (*TaskRequestEvent, error) {
	return NewTaskRequestEvent(TypePersonalization, PersonalizationPayload{JobID: jobID, TaskID: taskID})
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventHandlerFunc adapts an ordinary function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *TaskRequestEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent delivers the event to the handlers registered for its type.
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
