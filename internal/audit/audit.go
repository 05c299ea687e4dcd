// Package audit records terminal activity onto a background queue so
// protocol processing never waits on the audit store.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Queue and task names used on the wire between server and worker.
const (
	QueueDefault          = "default"
	TaskTypeTerminalEvent = "audit:terminal_event"
)

// Event actions.
const (
	ActionLoginSuccess  = "login_success"
	ActionLoginFailure  = "login_failure"
	ActionSessionClosed = "session_closed"
)

// Event is one audit trail entry.
type Event struct {
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	RemoteAddr string    `json:"remote_addr"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewTerminalEventTask constructs the Asynq task for an event.
func NewTerminalEventTask(event Event) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTerminalEvent, data), nil
}

// DecodeTerminalEvent unpacks a task payload produced by
// NewTerminalEventTask.
func DecodeTerminalEvent(t *asynq.Task) (Event, error) {
	var event Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// Store persists events; implemented by the Postgres writer.
type Store interface {
	Insert(ctx context.Context, event Event) error
}
