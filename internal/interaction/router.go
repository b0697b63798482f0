package interaction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ham-exam-bot/internal/domain"
)

// Event is one interaction delivered by the transport.
type Event struct {
	CustomID   string
	UserID     string
	UserName   string
	QuestionID string
}

// HandlerFunc handles an event whose id carries the handler's prefix.
type HandlerFunc func(ctx context.Context, ev Event) error

// Router dispatches events to handlers by id prefix.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn for prefix. A prefix is refused when "prefix:" and an
// already registered "other:" would both match the same id.
func (r *Router) Handle(prefix string, fn HandlerFunc) error {
	if prefix == "" || strings.Contains(prefix, sep) {
		return fmt.Errorf("invalid interaction prefix %q", prefix)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := prefix + sep
	for other := range r.handlers {
		otherKey := other + sep
		if strings.HasPrefix(key, otherKey) || strings.HasPrefix(otherKey, key) {
			return fmt.Errorf("interaction prefix %q is ambiguous with %q", prefix, other)
		}
	}
	r.handlers[prefix] = fn
	return nil
}

// Dispatch runs the handler registered for the prefix of ev.CustomID.
func (r *Router) Dispatch(ctx context.Context, ev Event) error {
	prefix, _, ok := strings.Cut(ev.CustomID, sep)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrMalformedInteraction, ev.CustomID)
	}
	r.mu.RLock()
	fn, ok := r.handlers[prefix]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: no handler for %q", domain.ErrMalformedInteraction, prefix)
	}
	return fn(ctx, ev)
}
