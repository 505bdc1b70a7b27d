// Package dedup provides webhook event deduplication using a Redis SET with
// TTL. The signing provider retries deliveries with no at-most-once
// guarantee; this filter short-circuits replays before they reach the
// database. It is a fast path only — the authoritative replay check is the
// last-applied event tuple stored in document metadata.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a seen event tuple is remembered. Provider
	// retry windows are hours, not days, so 72h is comfortably past them.
	DefaultTTL = 72 * time.Hour

	// keyPrefix namespaces dedup keys in Redis.
	keyPrefix = "esign:evt:"
)

// Filter tracks which webhook event tuples have already been processed.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a dedup filter backed by Redis.
func NewFilter(rdb *redis.Client) *Filter {
	return &Filter{rdb: rdb, ttl: DefaultTTL}
}

// IsNew returns true if the (requestID, eventType, eventTime) tuple has NOT
// been seen before. If true, the tuple is marked as seen atomically (SETNX).
func (f *Filter) IsNew(ctx context.Context, requestID, eventType string, eventTime time.Time) (bool, error) {
	key := fmt.Sprintf("%s%s:%s:%d", keyPrefix, requestID, eventType, eventTime.Unix())

	set, err := f.rdb.SetNX(ctx, key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}
