package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"ham-exam-bot/internal/domain"
)

// StartRequest carries what an initiator asked for. Delay and Rounds are
// clamped, never rejected.
type StartRequest struct {
	ScopeKey      string
	ExamID        string
	InitiatorID   string
	InitiatorName string
	Mode          domain.Mode
	Rounds        int
	Delay         time.Duration
}

// QuizService contains the quiz use cases: admission, answer routing, stop
// requests and the startup recovery sweep.
type QuizService struct {
	sessions  SessionRegistry
	pool      QuestionPool
	store     ResultStore
	presenter Presenter

	policy  Policy
	now     func() time.Time
	after   func(time.Duration) <-chan time.Time // nil outside tests
	newRand func() *rand.Rand
	newID   func() string
}

func NewQuizService(sessions SessionRegistry, pool QuestionPool, store ResultStore, presenter Presenter, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:  sessions,
		pool:      pool,
		store:     store,
		presenter: presenter,
		policy:    DefaultPolicy(),
		now:       time.Now,
		newRand:   newSeededRand,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSession builds a session for record that is never run. Registry tests
// use it as a placeholder value.
func NewSession(record domain.QuizSessionRecord) *Session {
	return newSession(sessionParams{record: record, participant: record.InitiatorID})
}

// StartExam admits a new session for req.ScopeKey and starts its round loop.
// A scope that already runs a session is rejected with ErrAdmissionConflict.
func (s *QuizService) StartExam(ctx context.Context, req StartRequest) (*Session, error) {
	if _, ok := s.sessions.Lookup(req.ScopeKey); ok {
		return nil, domain.ErrAdmissionConflict
	}

	pool, err := s.pool.Pool(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}
	questions, err := s.pool.Questions(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}
	eligible := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.Archived {
			continue
		}
		if _, ok := q.CorrectOption(); !ok {
			// still asked; every answer to it grades as incorrect
			log.Printf("exam %s: question %s has no single correct option", req.ExamID, q.ID)
		}
		eligible = append(eligible, q)
	}

	mode := req.Mode
	if mode == "" {
		mode = domain.ModeSingle
	}
	record := domain.QuizSessionRecord{
		ID:            s.newID(),
		ScopeKey:      req.ScopeKey,
		ExamID:        pool.ID,
		Mode:          mode,
		Active:        true,
		StartedAt:     s.now(),
		InitiatorID:   req.InitiatorID,
		InitiatorName: req.InitiatorName,
	}
	rounds := ClampRounds(req.Rounds, pool.MaxRounds, len(eligible))
	delay := req.Delay
	if delay <= 0 && s.policy.DefaultDelay > 0 {
		delay = s.policy.DefaultDelay
	}

	session, ok := s.sessions.TryStart(req.ScopeKey, func() *Session {
		return newSession(sessionParams{
			record:      record,
			participant: req.InitiatorID,
			candidates:  eligible,
			rounds:      rounds,
			delay:       delay,
			store:       s.store,
			presenter:   s.presenter,
			policy:      s.policy,
			now:         s.now,
			after:       s.after,
			rnd:         s.newRand(),
			onRound:     s.touch,
			onDone:      s.release,
		})
	})
	if !ok {
		return nil, domain.ErrAdmissionConflict
	}

	s.closeStaleRecord(ctx, req.ScopeKey)
	if err := s.store.CreateSession(ctx, record); err != nil {
		s.sessions.Release(req.ScopeKey, session)
		return nil, fmt.Errorf("create session record: %w", err)
	}

	log.Printf("quiz %s: session %s started by %s (exam=%s mode=%s rounds=%d delay=%s)",
		req.ScopeKey, record.ID, req.InitiatorID, pool.ID, mode, rounds, session.Delay())
	go session.Run(context.Background())
	return session, nil
}

// closeStaleRecord deactivates a persisted active record the registry does not
// know about; the registry is the authority.
func (s *QuizService) closeStaleRecord(ctx context.Context, scopeKey string) {
	stale, found, err := s.store.ActiveSession(ctx, scopeKey)
	if err != nil {
		log.Printf("quiz %s: active record lookup failed: %v", scopeKey, err)
		return
	}
	if !found {
		return
	}
	log.Printf("quiz %s: closing stale active record %s", scopeKey, stale.ID)
	if err := s.store.FinishSession(ctx, stale.ID, s.now()); err != nil {
		log.Printf("quiz %s: close stale record %s failed: %v", scopeKey, stale.ID, err)
	}
}

func (s *QuizService) release(session *Session) {
	s.sessions.Release(session.ScopeKey(), session)
}

// touch refreshes registries that mirror running sessions elsewhere. It runs
// whenever a round opens.
func (s *QuizService) touch(session *Session) {
	if t, ok := s.sessions.(SessionToucher); ok {
		t.Touch(session.ScopeKey(), session)
	}
}

// Submit routes an answer to the session running for scopeKey. An empty
// questionID targets whatever question is open.
func (s *QuizService) Submit(ctx context.Context, scopeKey, questionID, userID, letter string) (domain.AnswerReveal, error) {
	session, ok := s.sessions.Lookup(scopeKey)
	if !ok {
		return domain.AnswerReveal{}, domain.ErrSessionNotFound
	}
	return session.Submit(ctx, questionID, userID, letter)
}

// StopExam stops the session of scopeKey on behalf of requesterID and waits
// for its record to be finalized. Stopping a scope with no session is a no-op.
func (s *QuizService) StopExam(ctx context.Context, scopeKey, requesterID string) (bool, error) {
	session, ok := s.sessions.Lookup(scopeKey)
	if !ok {
		return false, nil
	}
	if requesterID != session.Record().InitiatorID {
		return false, domain.ErrNotAuthorized
	}
	initiated := session.Stop()
	if err := session.Wait(ctx); err != nil {
		return initiated, err
	}
	return initiated, nil
}

// Evict stops the session of scopeKey without an ownership check. The session
// leaves the registry once finalized.
func (s *QuizService) Evict(ctx context.Context, scopeKey string) error {
	session, ok := s.sessions.Lookup(scopeKey)
	if !ok {
		return nil
	}
	session.Stop()
	return session.Wait(ctx)
}

// Status returns a snapshot of the session running for scopeKey.
func (s *QuizService) Status(scopeKey string) (Snapshot, bool) {
	session, ok := s.sessions.Lookup(scopeKey)
	if !ok {
		return Snapshot{}, false
	}
	return session.Snapshot(), true
}

// Standings grades every respondent of a session against totalRounds.
func (s *QuizService) Standings(ctx context.Context, sessionID string, totalRounds int) ([]domain.Standing, error) {
	answers, err := s.store.Answers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	return Standings(answers, totalRounds), nil
}

// ActiveRecord returns the persisted active record of a scope.
func (s *QuizService) ActiveRecord(ctx context.Context, scopeKey string) (domain.QuizSessionRecord, bool, error) {
	return s.store.ActiveSession(ctx, scopeKey)
}

// Recover forces every persisted active record inactive. It runs at process
// start, before any session can be admitted. Answer history is kept.
func (s *QuizService) Recover(ctx context.Context) (int, error) {
	n, err := s.store.DeactivateAll(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("recovery sweep: %w", err)
	}
	if n > 0 {
		log.Printf("recovery: closed %d quiz sessions left active", n)
	}
	return n, nil
}

// Shutdown stops every running session and waits for them to finalize.
func (s *QuizService) Shutdown(ctx context.Context) error {
	var running []*Session
	s.sessions.Range(func(_ string, session *Session) bool {
		running = append(running, session)
		return true
	})
	for _, session := range running {
		session.Stop()
	}
	for _, session := range running {
		if err := session.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
