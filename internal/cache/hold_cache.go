// Package cache mirrors live seat holds into Redis for fast
// presentation reads ("is my hold still alive?").  The mirror is not
// authoritative: every state decision consults the durable seat state
// store, and a nil or unreachable cache only costs read latency.
package cache

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
)

// HoldCache stores hold records keyed by hold id with a TTL equal to
// the hold expiry, so entries vanish on their own when holds lapse.
type HoldCache struct {
    client *redis.Client
}

// NewHoldCache wraps a Redis client.  A nil client yields a nil cache,
// and every method on a nil *HoldCache is a safe no-op.
func NewHoldCache(client *redis.Client) *HoldCache {
    if client == nil {
        return nil
    }
    return &HoldCache{client: client}
}

func holdKey(holdID string) string { return "hold:" + holdID }

// Put mirrors a hold.  The entry expires together with the hold.
func (c *HoldCache) Put(ctx context.Context, h *model.SeatHold) error {
    if c == nil {
        return nil
    }
    ttl := time.Until(h.ExpiresAt)
    if ttl <= 0 {
        return nil
    }
    payload, err := json.Marshal(h)
    if err != nil {
        return err
    }
    return c.client.Set(ctx, holdKey(h.ID), payload, ttl).Err()
}

// Get returns the mirrored hold, or (nil, nil) on a miss.
func (c *HoldCache) Get(ctx context.Context, holdID string) (*model.SeatHold, error) {
    if c == nil {
        return nil, nil
    }
    data, err := c.client.Get(ctx, holdKey(holdID)).Bytes()
    if err != nil {
        if errors.Is(err, redis.Nil) {
            return nil, nil
        }
        return nil, err
    }
    var h model.SeatHold
    if err := json.Unmarshal(data, &h); err != nil {
        return nil, err
    }
    return &h, nil
}

// Delete drops the mirror entry when a hold is released, consumed or
// reclaimed.
func (c *HoldCache) Delete(ctx context.Context, holdID string) error {
    if c == nil {
        return nil
    }
    return c.client.Del(ctx, holdKey(holdID)).Err()
}
