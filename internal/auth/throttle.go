package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle counts failed login attempts per username and remote host
// in redis, with a sliding TTL window. It is a hardening layer on top
// of the protocol's generic invalid-credentials reply; a throttled
// client cannot tell throttling from a bad password.
type Throttle struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewThrottle constructs a Throttle. A nil client, non-positive limit,
// or zero window yields a disabled throttle (nil).
func NewThrottle(client *redis.Client, limit int, window time.Duration) *Throttle {
	if client == nil || limit <= 0 || window <= 0 {
		return nil
	}
	return &Throttle{client: client, limit: limit, window: window}
}

func (t *Throttle) key(username, remoteAddr string) string {
	host := remoteAddr
	if idx := strings.LastIndex(remoteAddr, ":"); idx > 0 {
		host = remoteAddr[:idx]
	}
	return fmt.Sprintf("meridian:login_fail:%s:%s", strings.ToLower(username), host)
}

// Blocked reports whether the username/host pair has exceeded the
// failure limit inside the window.
func (t *Throttle) Blocked(ctx context.Context, username, remoteAddr string) (bool, error) {
	n, err := t.client.Get(ctx, t.key(username, remoteAddr)).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return n >= t.limit, nil
}

// RecordFailure increments the failure counter and refreshes the TTL.
func (t *Throttle) RecordFailure(ctx context.Context, username, remoteAddr string) error {
	key := t.key(username, remoteAddr)
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, t.window)
	_, err := pipe.Exec(ctx)
	return err
}

// Reset clears the counter after a successful login.
func (t *Throttle) Reset(ctx context.Context, username, remoteAddr string) error {
	return t.client.Del(ctx, t.key(username, remoteAddr)).Err()
}
