package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const enqueueTimeout = 2 * time.Second

// Recorder enqueues audit events. Every method is fire-and-forget; an
// enqueue failure is logged and dropped rather than surfaced to the
// session.
type Recorder struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewRecorder builds a recorder backed by the given Redis connection.
func NewRecorder(redisOpts asynq.RedisClientOpt, logger *slog.Logger) *Recorder {
	return &Recorder{client: asynq.NewClient(redisOpts), logger: logger}
}

// Close releases the queue client.
func (r *Recorder) Close() error {
	return r.client.Close()
}

// LoginSucceeded records a successful terminal login.
func (r *Recorder) LoginSucceeded(_ context.Context, username, remoteAddr string) {
	r.enqueue(Event{
		Action:     ActionLoginSuccess,
		Actor:      username,
		RemoteAddr: remoteAddr,
		OccurredAt: time.Now().UTC(),
	})
}

// LoginFailed records a rejected terminal login. The reason is kept
// server-side only; it never reaches the client.
func (r *Recorder) LoginFailed(_ context.Context, username, remoteAddr, reason string) {
	r.enqueue(Event{
		Action:     ActionLoginFailure,
		Actor:      username,
		RemoteAddr: remoteAddr,
		Detail:     reason,
		OccurredAt: time.Now().UTC(),
	})
}

// SessionClosed records a terminal going away, on any teardown path.
func (r *Recorder) SessionClosed(_ context.Context, remoteAddr string) {
	r.enqueue(Event{
		Action:     ActionSessionClosed,
		Actor:      "terminal",
		RemoteAddr: remoteAddr,
		OccurredAt: time.Now().UTC(),
	})
}

func (r *Recorder) enqueue(event Event) {
	task, err := NewTerminalEventTask(event)
	if err != nil {
		r.logger.Warn("audit task build failed", "action", event.Action, "error", err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
		defer cancel()
		if _, err := r.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
			r.logger.Warn("audit enqueue failed", "action", event.Action, "error", err)
		}
	}()
}
