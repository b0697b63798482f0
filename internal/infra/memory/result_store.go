package memory

import (
	"context"
	"sync"
	"time"

	"ham-exam-bot/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultStore.
type ResultStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.QuizSessionRecord
	answers  []domain.UserAnswer
	answered map[answerKey]struct{}
}

type answerKey struct {
	sessionID  string
	questionID string
	userID     string
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		sessions: make(map[string]domain.QuizSessionRecord),
		answered: make(map[answerKey]struct{}),
	}
}

func (s *ResultStore) CreateSession(_ context.Context, rec domain.QuizSessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = rec
	return nil
}

func (s *ResultStore) FinishSession(_ context.Context, sessionID string, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	rec.Active = false
	rec.EndedAt = &endedAt
	s.sessions[sessionID] = rec
	return nil
}

func (s *ResultStore) ActiveSession(_ context.Context, scopeKey string) (domain.QuizSessionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.sessions {
		if rec.ScopeKey == scopeKey && rec.Active {
			return rec, true, nil
		}
	}
	return domain.QuizSessionRecord{}, false, nil
}

func (s *ResultStore) DeactivateAll(_ context.Context, endedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.sessions {
		if !rec.Active {
			continue
		}
		ended := endedAt
		rec.Active = false
		rec.EndedAt = &ended
		s.sessions[id] = rec
		n++
	}
	return n, nil
}

// Session returns a stored record.
func (s *ResultStore) Session(sessionID string) (domain.QuizSessionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	return rec, ok
}

func (s *ResultStore) HasAnswered(_ context.Context, sessionID, questionID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.answered[answerKey{sessionID, questionID, userID}]
	return ok, nil
}

func (s *ResultStore) RecordAnswer(_ context.Context, answer domain.UserAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey{answer.SessionID, answer.QuestionID, answer.UserID}
	if _, ok := s.answered[key]; ok {
		return domain.ErrDuplicateSubmission
	}
	s.answered[key] = struct{}{}
	s.answers = append(s.answers, answer)
	return nil
}

func (s *ResultStore) Answers(_ context.Context, sessionID string) ([]domain.UserAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.UserAnswer
	for _, a := range s.answers {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}
