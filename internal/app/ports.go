package app

import (
	"context"
	"time"

	"ham-exam-bot/internal/domain"
)

// QuestionPool is the read-only accessor over exam pools.
type QuestionPool interface {
	Pool(ctx context.Context, examID string) (domain.ExamPool, error)
	// Questions returns the non-archived questions of a pool with their options.
	Questions(ctx context.Context, examID string) ([]domain.Question, error)
}

// ResultStore records sessions and answers. Implementations must be safe for
// concurrent use by many sessions.
type ResultStore interface {
	CreateSession(ctx context.Context, rec domain.QuizSessionRecord) error
	// FinishSession sets the record inactive and stamps its end time.
	FinishSession(ctx context.Context, sessionID string, endedAt time.Time) error
	// ActiveSession looks up the active record of a scope, if any.
	ActiveSession(ctx context.Context, scopeKey string) (domain.QuizSessionRecord, bool, error)
	// DeactivateAll forces every active record inactive and returns how many changed.
	DeactivateAll(ctx context.Context, endedAt time.Time) (int, error)

	HasAnswered(ctx context.Context, sessionID, questionID, userID string) (bool, error)
	// RecordAnswer inserts a submission; a second insert for the same
	// (session, question, user) fails with domain.ErrDuplicateSubmission.
	RecordAnswer(ctx context.Context, answer domain.UserAnswer) error
	// Answers lists a session's submissions in insertion order.
	Answers(ctx context.Context, sessionID string) ([]domain.UserAnswer, error)
}

// Presenter delivers session output to the chat transport.
type Presenter interface {
	PresentQuestion(ctx context.Context, view domain.QuestionView) error
	RevealAnswer(ctx context.Context, reveal domain.AnswerReveal) error
	ExpireQuestion(ctx context.Context, expired domain.QuestionExpired) error
	PresentRoundResult(ctx context.Context, result domain.RoundResult) error
	PresentFinal(ctx context.Context, final domain.FinalStandings) error
}

// SessionRegistry maps scope keys to running sessions, at most one per key.
type SessionRegistry interface {
	// TryStart runs factory and stores its session only if scopeKey is free.
	TryStart(scopeKey string, factory func() *Session) (*Session, bool)
	Lookup(scopeKey string) (*Session, bool)
	// Remove unregisters scopeKey; removing an absent key is a no-op.
	Remove(scopeKey string)
	// Release unregisters scopeKey only while it still maps to session.
	Release(scopeKey string, session *Session) bool
	// Range calls fn for each registered session until fn returns false.
	Range(fn func(scopeKey string, session *Session) bool)
}

// SessionToucher is implemented by registries that mirror running sessions
// with an expiring marker. Touch is called each time a round opens.
type SessionToucher interface {
	Touch(scopeKey string, session *Session)
}
