package store

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const (
	mirrorKey = "recent:webhook_events"
	mirrorCap = 200
)

// EventMirror keeps a bounded list of the most recent event ids in redis
// for cheap operator inspection. The postgres table stays authoritative;
// the mirror is best-effort and may lose entries on restart.
type EventMirror struct {
	rdb *redis.Client
}

func NewEventMirror(rdb *redis.Client) *EventMirror {
	return &EventMirror{rdb: rdb}
}

func (m *EventMirror) Push(ctx context.Context, eventID string) error {
	pipe := m.rdb.TxPipeline()
	pipe.LPush(ctx, mirrorKey, eventID)
	pipe.LTrim(ctx, mirrorKey, 0, mirrorCap-1)
	_, err := pipe.Exec(ctx)
	return err
}

func (m *EventMirror) Recent(ctx context.Context, n int64) ([]string, error) {
	if n <= 0 || n > mirrorCap {
		n = mirrorCap
	}
	return m.rdb.LRange(ctx, mirrorKey, 0, n-1).Result()
}
