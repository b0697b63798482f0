package redis

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"ham-exam-bot/internal/app"
	"ham-exam-bot/internal/infra/memory"
)

// SessionRegistry is a Redis-aware implementation of app.SessionRegistry.
// Sessions live in a local striped map, which stays the authority for
// admission. Redis only carries a liveness marker per scope,
// quiz:session:{scopeKey} = session id, so operators and other instances can
// see which scopes are busy. The marker expires after ttl unless the running
// session touches it again.
type SessionRegistry struct {
	local  *memory.SessionRegistry
	client *redis.Client
	ttl    time.Duration
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		local:  memory.NewSessionRegistry(),
		client: client,
		ttl:    ttl,
	}
}

func (r *SessionRegistry) TryStart(scopeKey string, factory func() *app.Session) (*app.Session, bool) {
	session, ok := r.local.TryStart(scopeKey, factory)
	if !ok {
		return nil, false
	}
	// best-effort liveness marker
	if err := r.client.Set(context.Background(), r.key(scopeKey), session.ID(), r.ttl).Err(); err != nil {
		log.Printf("registry %s: set liveness marker: %v", scopeKey, err)
	}
	return session, true
}

func (r *SessionRegistry) Lookup(scopeKey string) (*app.Session, bool) {
	return r.local.Lookup(scopeKey)
}

func (r *SessionRegistry) Remove(scopeKey string) {
	r.local.Remove(scopeKey)
	if err := r.client.Del(context.Background(), r.key(scopeKey)).Err(); err != nil {
		log.Printf("registry %s: clear liveness marker: %v", scopeKey, err)
	}
}

// Touch rewrites the marker of a running session with a fresh TTL, so an exam
// longer than the TTL stays visible. Sessions no longer registered are ignored.
func (r *SessionRegistry) Touch(scopeKey string, session *app.Session) {
	if current, ok := r.local.Lookup(scopeKey); !ok || current != session {
		return
	}
	if err := r.client.Set(context.Background(), r.key(scopeKey), session.ID(), r.ttl).Err(); err != nil {
		log.Printf("registry %s: refresh liveness marker: %v", scopeKey, err)
	}
}

func (r *SessionRegistry) Release(scopeKey string, session *app.Session) bool {
	if !r.local.Release(scopeKey, session) {
		return false
	}
	r.clearMarker(scopeKey, session.ID())
	return true
}

func (r *SessionRegistry) Range(fn func(scopeKey string, session *app.Session) bool) {
	r.local.Range(fn)
}

// Busy reports whether any instance marked scopeKey as running a session.
func (r *SessionRegistry) Busy(ctx context.Context, scopeKey string) (string, bool, error) {
	id, err := r.client.Get(ctx, r.key(scopeKey)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// clearMarker deletes the marker only while it still names sessionID.
func (r *SessionRegistry) clearMarker(scopeKey, sessionID string) {
	ctx := context.Background()
	key := r.key(scopeKey)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		if current != sessionID {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if err != nil {
		log.Printf("registry %s: clear liveness marker: %v", scopeKey, err)
	}
}

func (r *SessionRegistry) key(scopeKey string) string {
	return "quiz:session:" + scopeKey
}
