package app

import (
	"sort"
	"sync"

	"ham-exam-bot/internal/domain"
)

// roundCancel is the per-round cancellation handle. Triggering it ends the
// answer window early; once disabled it ignores further triggers.
type roundCancel struct {
	mu       sync.Mutex
	ch       chan struct{}
	fired    bool
	disabled bool
}

func newRoundCancel() *roundCancel {
	return &roundCancel{ch: make(chan struct{})}
}

// Trigger fires the handle and reports whether this call fired it.
func (c *roundCancel) Trigger() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fired || c.disabled {
		return false
	}
	c.fired = true
	close(c.ch)
	return true
}

// Disable makes later triggers no-ops.
func (c *roundCancel) Disable() {
	c.mu.Lock()
	c.disabled = true
	c.mu.Unlock()
}

func (c *roundCancel) Done() <-chan struct{} {
	return c.ch
}

// roundEnd records how the answer window closed.
type roundEnd int

const (
	endTimeout roundEnd = iota
	endEarly
	endStopped
)

func (e roundEnd) String() string {
	switch e {
	case endTimeout:
		return "timeout"
	case endEarly:
		return "answered"
	default:
		return "stopped"
	}
}

// round is one open question. Fields other than cancel are guarded by the
// session's answer lock.
type round struct {
	number   int
	question domain.Question
	letters  letterMapping
	cancel   *roundCancel
	open     bool
	disabled map[string]bool
}

func newRound(number int, q domain.Question, letters letterMapping) *round {
	return &round{
		number:   number,
		question: q,
		letters:  letters,
		cancel:   newRoundCancel(),
		open:     true,
		disabled: make(map[string]bool),
	}
}

func (r *round) disabledLetters() []string {
	out := make([]string, 0, len(r.disabled))
	for l := range r.disabled {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
