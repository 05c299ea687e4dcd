package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Writer persists audit events into audit_log. It runs inside the
// worker process, never in the terminal request path.
type Writer struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewWriter builds a Postgres-backed writer.
func NewWriter(pool *pgxpool.Pool, logger *slog.Logger) *Writer {
	return &Writer{pool: pool, logger: logger}
}

// Insert implements Store.
func (w *Writer) Insert(ctx context.Context, event Event) error {
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := w.pool.Exec(ctx,
		`INSERT INTO audit_log (at, actor, action, remote_addr, detail) VALUES ($1, $2, $3, $4, $5)`,
		at, event.Actor, event.Action, event.RemoteAddr, event.Detail,
	)
	return err
}

// HandleTerminalEventTask processes TaskTypeTerminalEvent tasks.
func (w *Writer) HandleTerminalEventTask(ctx context.Context, t *asynq.Task) error {
	event, err := DecodeTerminalEvent(t)
	if err != nil {
		w.logger.Warn("audit payload malformed", "error", err)
		return asynq.SkipRetry
	}
	if err := w.Insert(ctx, event); err != nil {
		w.logger.Error("audit insert failed", "action", event.Action, "error", err)
		return err
	}
	return nil
}
