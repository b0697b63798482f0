package app

import (
	"math/rand"
	"time"
)

const (
	// MinDelay and MaxDelay bound the per-question answer window.
	MinDelay = 15 * time.Second
	MaxDelay = 120 * time.Second

	defaultDelay              = 30 * time.Second
	defaultRoundPause         = 3 * time.Second
	defaultSendFailureBackoff = 5 * time.Second
)

// Policy holds the tunable session timings and behavior switches.
type Policy struct {
	// DefaultDelay is used when a start request carries no delay.
	DefaultDelay time.Duration
	// RoundPause is the fixed pause between grading and the next question.
	RoundPause time.Duration
	// SendFailureBackoff is waited after a question could not be broadcast.
	SendFailureBackoff time.Duration
	// RetryFailedRound returns a question whose broadcast failed to the
	// remaining pool. When false the question is skipped.
	RetryFailedRound bool
	// WaitFullDelayInMulti keeps multi-participant rounds open for the whole
	// delay instead of closing them on the first accepted answer.
	WaitFullDelayInMulti bool
}

// DefaultPolicy returns the production timings: skip failed rounds and close a
// round on its first accepted answer in every mode.
func DefaultPolicy() Policy {
	return Policy{
		DefaultDelay:       defaultDelay,
		RoundPause:         defaultRoundPause,
		SendFailureBackoff: defaultSendFailureBackoff,
	}
}

// ClampDelay bounds a requested per-question delay to [MinDelay, MaxDelay].
func ClampDelay(d time.Duration) time.Duration {
	if d < MinDelay {
		return MinDelay
	}
	if d > MaxDelay {
		return MaxDelay
	}
	return d
}

// ClampRounds returns how many rounds a session runs: the request, bounded by
// the pool's exam size (when set) and the available questions. A non-positive
// request means "a full exam".
func ClampRounds(requested, maxRounds, available int) int {
	rounds := requested
	if rounds <= 0 {
		rounds = maxRounds
		if rounds <= 0 {
			rounds = available
		}
	}
	if maxRounds > 0 && rounds > maxRounds {
		rounds = maxRounds
	}
	if rounds > available {
		rounds = available
	}
	if rounds < 0 {
		return 0
	}
	return rounds
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithPolicy overrides the default session policy.
func WithPolicy(p Policy) Option {
	return func(s *QuizService) { s.policy = p }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithTimer replaces the answer window timer.
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(s *QuizService) { s.after = after }
}

// WithRand fixes the random source, mainly for tests.
func WithRand(seed int64) Option {
	return func(s *QuizService) { s.newRand = func() *rand.Rand { return rand.New(rand.NewSource(seed)) } }
}

// WithIDGenerator replaces the session record id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *QuizService) { s.newID = gen }
}
