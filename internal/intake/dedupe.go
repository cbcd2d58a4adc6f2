package intake

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "intake:msg:"

// Deduper suppresses provider redeliveries. Message IDs are claimed with
// SETNX so exactly one concurrent delivery wins.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDeduper builds Deduper. ttl bounds how long a message ID stays
// claimed; redeliveries arrive within minutes, so an hour is plenty.
func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Deduper{rdb: rdb, ttl: ttl}
}

// Claim attempts to claim messageID. It returns true when this delivery
// is the first one seen.
func (d *Deduper) Claim(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		// No provider ID means no way to dedupe; process it.
		return true, nil
	}
	return d.rdb.SetNX(ctx, dedupeKeyPrefix+messageID, 1, d.ttl).Result()
}
