package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

// GetSession returns the cached session for username, if any.
func (c *Client) GetSession(ctx context.Context, username string) (domain.Session, bool, error) {
	val, err := c.rdb.Get(ctx, sessionKey(c.prefix, username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("get failed: %w", err)
	}

	var s domain.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return domain.Session{}, false, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return s, true, nil
}

// PutSession caches s for ttl. A non-positive ttl keeps it until deleted.
func (c *Client) PutSession(ctx context.Context, username string, s domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.rdb.Set(ctx, sessionKey(c.prefix, username), data, ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// DeleteSession removes the cached session for username.
func (c *Client) DeleteSession(ctx context.Context, username string) error {
	return c.rdb.Del(ctx, sessionKey(c.prefix, username)).Err()
}
