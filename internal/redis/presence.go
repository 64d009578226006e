package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// PresenceKey is the hash of online user id -> connection id
const PresenceKey = "presence:online"

const (
	defaultQueue = 256
	opTimeout    = 2 * time.Second
)

// HashStore is the subset of redis.Cmdable the mirror writes with
type HashStore interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type presenceOp struct {
	online bool
	userID string
	connID string
}

// PresenceMirror copies registry changes into a Redis hash for external
// dashboards. It is write-only: the hub never reads it back, so a restart
// starts from an empty registry and the hash is cleared to match.
type PresenceMirror struct {
	store HashStore
	ops   chan presenceOp
}

func NewPresenceMirror(store HashStore, queue int) *PresenceMirror {
	if queue <= 0 {
		queue = defaultQueue
	}
	return &PresenceMirror{
		store: store,
		ops:   make(chan presenceOp, queue),
	}
}

func (m *PresenceMirror) Online(userID, connID string) {
	m.enqueue(presenceOp{online: true, userID: userID, connID: connID})
}

func (m *PresenceMirror) Offline(userID string) {
	m.enqueue(presenceOp{userID: userID})
}

// enqueue never blocks the caller; a full queue drops the update
func (m *PresenceMirror) enqueue(op presenceOp) {
	select {
	case m.ops <- op:
	default:
		log.Warn().Str("module", "presence").Str("user_id", op.userID).
			Bool("online", op.online).Msg("presence queue full, update dropped")
	}
}

// Run clears stale presence and applies queued updates until ctx is done
func (m *PresenceMirror) Run(ctx context.Context) error {
	if err := m.do(ctx, func(c context.Context) error {
		return m.store.Del(c, PresenceKey).Err()
	}); err != nil {
		log.Warn().Err(err).Str("module", "presence").Msg("failed to clear stale presence")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case op := <-m.ops:
			m.apply(ctx, op)
		}
	}
}

func (m *PresenceMirror) apply(ctx context.Context, op presenceOp) {
	err := m.do(ctx, func(c context.Context) error {
		if op.online {
			return m.store.HSet(c, PresenceKey, op.userID, op.connID).Err()
		}
		return m.store.HDel(c, PresenceKey, op.userID).Err()
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "presence").Str("user_id", op.userID).
			Bool("online", op.online).Msg("presence write failed")
	}
}

func (m *PresenceMirror) do(ctx context.Context, fn func(context.Context) error) error {
	c, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return fn(c)
}
