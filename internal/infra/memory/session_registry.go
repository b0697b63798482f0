package memory

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"ham-exam-bot/internal/app"
)

const registryShards = 32

// SessionRegistry is an in-memory implementation of app.SessionRegistry.
// Keys are spread over lock-striped shards so admissions for unrelated scopes
// do not contend; within a shard, check-and-insert is one critical section.
type SessionRegistry struct {
	shards [registryShards]registryShard
}

type registryShard struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionRegistry() *SessionRegistry {
	r := &SessionRegistry{}
	for i := range r.shards {
		r.shards[i].sessions = make(map[string]*app.Session)
	}
	return r
}

func (r *SessionRegistry) shard(scopeKey string) *registryShard {
	return &r.shards[xxhash.Sum64String(scopeKey)%registryShards]
}

func (r *SessionRegistry) TryStart(scopeKey string, factory func() *app.Session) (*app.Session, bool) {
	sh := r.shard(scopeKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[scopeKey]; ok {
		return nil, false
	}
	session := factory()
	sh.sessions[scopeKey] = session
	return session, true
}

func (r *SessionRegistry) Lookup(scopeKey string) (*app.Session, bool) {
	sh := r.shard(scopeKey)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	session, ok := sh.sessions[scopeKey]
	return session, ok
}

func (r *SessionRegistry) Remove(scopeKey string) {
	sh := r.shard(scopeKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.sessions, scopeKey)
}

func (r *SessionRegistry) Release(scopeKey string, session *app.Session) bool {
	sh := r.shard(scopeKey)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if current, ok := sh.sessions[scopeKey]; ok && current == session {
		delete(sh.sessions, scopeKey)
		return true
	}
	return false
}

func (r *SessionRegistry) Range(fn func(scopeKey string, session *app.Session) bool) {
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		snapshot := make(map[string]*app.Session, len(sh.sessions))
		for k, v := range sh.sessions {
			snapshot[k] = v
		}
		sh.mu.RUnlock()
		for k, v := range snapshot {
			if !fn(k, v) {
				return
			}
		}
	}
}

// Len counts registered sessions.
func (r *SessionRegistry) Len() int {
	n := 0
	for i := range r.shards {
		r.shards[i].mu.RLock()
		n += len(r.shards[i].sessions)
		r.shards[i].mu.RUnlock()
	}
	return n
}
