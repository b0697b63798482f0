package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ham-exam-bot/internal/app"
	"ham-exam-bot/internal/domain"
	"ham-exam-bot/internal/infra/memory"
)

func TestConcurrentAdmissionSingleWinner(t *testing.T) {
	env := newTestEnv(t, 3, neverFires)

	const attempts = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := env.service.StartExam(context.Background(), app.StartRequest{
				ScopeKey:    "guild-1",
				ExamID:      "tech",
				InitiatorID: fmt.Sprintf("u%d", i),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrAdmissionConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if wins != 1 || conflicts != attempts-1 {
		t.Fatalf("expected 1 admission and %d conflicts, got %d and %d", attempts-1, wins, conflicts)
	}
}

func TestPoolSmallerThanRequestedRounds(t *testing.T) {
	env := newTestEnv(t, 5, firesAtOnce)

	session := env.start(t, app.StartRequest{ScopeKey: "guild-1", ExamID: "tech", InitiatorID: "u1", Rounds: 10})
	waitDone(t, session)

	if session.Rounds() != 5 {
		t.Fatalf("expected 5 rounds, got %d", session.Rounds())
	}
	if session.State() != app.StateCompleted {
		t.Fatalf("expected completed, got %s", session.State())
	}
	if snap := session.Snapshot(); snap.Remaining != 0 {
		t.Fatalf("expected empty remaining pool, got %d", snap.Remaining)
	}

	asked := session.Asked()
	seen := map[string]bool{}
	for _, id := range asked {
		if seen[id] {
			t.Fatalf("question %s asked twice", id)
		}
		seen[id] = true
	}
	if len(asked) != 5 {
		t.Fatalf("expected 5 asked questions, got %v", asked)
	}
	if got := len(env.presenter.expiredEvents()); got != 5 {
		t.Fatalf("expected every round to expire, got %d", got)
	}

	rec, _ := env.store.Session(session.ID())
	if rec.Active || rec.EndedAt == nil {
		t.Fatalf("expected finalized record, got %+v", rec)
	}
	if _, ok := env.service.Status("guild-1"); ok {
		t.Fatalf("expected registry slot released")
	}
}

func TestDelayIsClamped(t *testing.T) {
	env := newTestEnv(t, 2, neverFires, app.WithPolicy(app.Policy{DefaultDelay: 30 * time.Second}))

	short := env.start(t, app.StartRequest{ScopeKey: "g-short", ExamID: "tech", InitiatorID: "u1", Delay: 5 * time.Second})
	long := env.start(t, app.StartRequest{ScopeKey: "g-long", ExamID: "tech", InitiatorID: "u1", Delay: 999 * time.Second})
	if short.Delay() != 15*time.Second {
		t.Fatalf("expected 15s, got %s", short.Delay())
	}
	if long.Delay() != 120*time.Second {
		t.Fatalf("expected 120s, got %s", long.Delay())
	}
	if app.ClampDelay(45*time.Second) != 45*time.Second {
		t.Fatalf("expected in-range delay kept")
	}

	unset := env.start(t, app.StartRequest{ScopeKey: "g-unset", ExamID: "tech", InitiatorID: "u1"})
	if unset.Delay() != 30*time.Second {
		t.Fatalf("expected default 30s, got %s", unset.Delay())
	}
}

func TestSingleParticipantEarlyAdvance(t *testing.T) {
	env := newTestEnv(t, 2, neverFires)
	session := env.start(t, app.StartRequest{ScopeKey: "user-1", ExamID: "tech", InitiatorID: "u1", Delay: 60 * time.Second})

	first := env.presenter.nextQuestion(t)
	reveal, err := env.service.Submit(context.Background(), "user-1", first.QuestionID, "u1", correctLetter(t, first))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !reveal.Correct || len(reveal.DisabledLetters) != 1 {
		t.Fatalf("unexpected reveal %+v", reveal)
	}

	// the second question arrives although the 60s window never elapsed
	second := env.presenter.nextQuestion(t)
	if second.QuestionID == first.QuestionID || second.Round != 2 {
		t.Fatalf("expected round 2 with a new question, got %+v", second)
	}
	if len(env.presenter.expiredEvents()) != 0 {
		t.Fatalf("an early closed round must not expire")
	}

	if _, err := env.service.Submit(context.Background(), "user-1", first.QuestionID, "u1", "A"); !errors.Is(err, domain.ErrRoundNotActive) {
		t.Fatalf("expected stale question to be refused, got %v", err)
	}
	if _, err := env.service.Submit(context.Background(), "user-1", "", "u2", "A"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected other user refused, got %v", err)
	}

	_, _ = env.service.Submit(context.Background(), "user-1", "", "u1", wrongLetter(t, second))
	waitDone(t, session)
	final := env.presenter.final(t)
	if len(final.Entries) != 1 || final.Entries[0].Correct != 1 || final.Entries[0].Percent != 50 || final.Entries[0].Passed {
		t.Fatalf("unexpected standings %+v", final.Entries)
	}
}

func TestStopDuringWait(t *testing.T) {
	env := newTestEnv(t, 3, neverFires)
	session := env.start(t, app.StartRequest{ScopeKey: "guild-1", ExamID: "tech", InitiatorID: "u1"})
	env.presenter.nextQuestion(t)

	if _, err := env.service.StopExam(context.Background(), "guild-1", "u2"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected non-initiator refused, got %v", err)
	}

	stopped, err := env.service.StopExam(context.Background(), "guild-1", "u1")
	if err != nil || !stopped {
		t.Fatalf("expected stop, got stopped=%v err=%v", stopped, err)
	}
	rec, _ := env.store.Session(session.ID())
	if rec.Active || rec.EndedAt == nil {
		t.Fatalf("expected record inactive with end time, got %+v", rec)
	}
	if session.State() != app.StateCompleted {
		t.Fatalf("expected completed, got %s", session.State())
	}
	final := env.presenter.final(t)
	if !final.Stopped || final.Asked != 1 {
		t.Fatalf("unexpected final %+v", final)
	}

	select {
	case <-session.Done():
	default:
		t.Fatalf("expected done closed once the stop returned")
	}

	// second stop is a no-op
	if session.Stop() {
		t.Fatalf("expected second stop to be a no-op")
	}
	stopped, err = env.service.StopExam(context.Background(), "guild-1", "u1")
	if err != nil || stopped {
		t.Fatalf("expected no-op stop, got stopped=%v err=%v", stopped, err)
	}
	if n := env.presenter.finalCount(); n != 1 {
		t.Fatalf("expected one final standings, got %d", n)
	}
}

func TestDuplicateSubmissionRejected(t *testing.T) {
	env := newTestEnv(t, 2, neverFires, app.WithPolicy(app.Policy{WaitFullDelayInMulti: true}))
	env.start(t, app.StartRequest{ScopeKey: "guild-1", ExamID: "tech", InitiatorID: "u1", Mode: domain.ModeMulti})
	q := env.presenter.nextQuestion(t)

	if _, err := env.service.Submit(context.Background(), "guild-1", q.QuestionID, "u2", correctLetter(t, q)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.service.Submit(context.Background(), "guild-1", q.QuestionID, "u2", wrongLetter(t, q)); !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if _, err := env.service.Submit(context.Background(), "guild-1", q.QuestionID, "u3", "Z"); !errors.Is(err, domain.ErrUnknownChoice) {
		t.Fatalf("expected unknown choice, got %v", err)
	}
	if _, err := env.service.Submit(context.Background(), "guild-9", q.QuestionID, "u3", "A"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}

	answers, _ := env.store.Answers(context.Background(), env.sessionID(t, "guild-1"))
	if len(answers) != 1 || !answers[0].Correct || answers[0].Answer != "right" {
		t.Fatalf("expected the first answer only, got %+v", answers)
	}
}

func TestMultiModeRoundResults(t *testing.T) {
	timer := newManualTimer()
	env := newTestEnv(t, 1, timer.after, app.WithPolicy(app.Policy{WaitFullDelayInMulti: true}))
	session := env.start(t, app.StartRequest{ScopeKey: "guild-1", ExamID: "tech", InitiatorID: "u1", Mode: domain.ModeMulti})
	q := env.presenter.nextQuestion(t)

	_, _ = env.service.Submit(context.Background(), "guild-1", q.QuestionID, "u2", correctLetter(t, q))
	_, _ = env.service.Submit(context.Background(), "guild-1", q.QuestionID, "u3", wrongLetter(t, q))
	timer.fire(t)
	waitDone(t, session)

	results := env.presenter.roundResults()
	if len(results) != 1 {
		t.Fatalf("expected one round result, got %d", len(results))
	}
	r := results[0]
	if len(r.Correct) != 1 || r.Correct[0] != "u2" || len(r.Incorrect) != 1 || r.Incorrect[0] != "u3" {
		t.Fatalf("unexpected partition %+v", r)
	}
	if len(env.presenter.expiredEvents()) != 1 {
		t.Fatalf("expected the timed out round to expire")
	}
	final := env.presenter.final(t)
	if len(final.Entries) != 2 || final.Entries[0].UserID != "u2" || final.Entries[1].Correct != 0 {
		t.Fatalf("unexpected standings %+v", final.Entries)
	}
}

func TestMultiModeFirstAnswerClosesRound(t *testing.T) {
	env := newTestEnv(t, 2, neverFires)
	env.start(t, app.StartRequest{ScopeKey: "guild-1", ExamID: "tech", InitiatorID: "u1", Mode: domain.ModeMulti})
	q := env.presenter.nextQuestion(t)

	if _, err := env.service.Submit(context.Background(), "guild-1", q.QuestionID, "u2", wrongLetter(t, q)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	next := env.presenter.nextQuestion(t)
	if next.Round != 2 {
		t.Fatalf("expected the first answer to close round 1, got round %d", next.Round)
	}
	if _, err := env.service.Submit(context.Background(), "guild-1", q.QuestionID, "u3", correctLetter(t, q)); !errors.Is(err, domain.ErrRoundNotActive) {
		t.Fatalf("expected late answer refused, got %v", err)
	}
}

func TestSkipOnSendFailure(t *testing.T) {
	env := newTestEnv(t, 3, firesAtOnce)
	env.presenter.failQuestions = 1

	session := env.start(t, app.StartRequest{ScopeKey: "guild-1", ExamID: "tech", InitiatorID: "u1", Rounds: 3})
	waitDone(t, session)

	if got := len(session.Asked()); got != 3 {
		t.Fatalf("expected the skipped question to count as drawn, got %d", got)
	}
	if got := env.presenter.presentedCount(); got != 2 {
		t.Fatalf("expected 2 questions presented, got %d", got)
	}
}

func TestRetryFailedRound(t *testing.T) {
	env := newTestEnv(t, 3, firesAtOnce, app.WithPolicy(app.Policy{RetryFailedRound: true}))
	env.presenter.failQuestions = 1

	session := env.start(t, app.StartRequest{ScopeKey: "guild-1", ExamID: "tech", InitiatorID: "u1", Rounds: 3})
	waitDone(t, session)

	if got := env.presenter.presentedCount(); got != 3 {
		t.Fatalf("expected the failed question to be retried, got %d presented", got)
	}
}

func TestAnswerDuringFailedBroadcastRefused(t *testing.T) {
	env := newTestEnv(t, 2, firesAtOnce)
	env.presenter.failQuestions = 1
	submitted := make(chan error, 1)
	env.presenter.onQuestion = func(view domain.QuestionView) {
		letter := ""
		for _, c := range view.Choices {
			if c.Text == "right" {
				letter = c.Letter
			}
		}
		// a player answering while the broadcast is still in flight
		go func() {
			_, err := env.service.Submit(context.Background(), "guild-1", "", "u1", letter)
			submitted <- err
		}()
		time.Sleep(20 * time.Millisecond)
	}

	session := env.start(t, app.StartRequest{ScopeKey: "guild-1", ExamID: "tech", InitiatorID: "u1", Rounds: 1})
	waitDone(t, session)

	var submitErr error
	select {
	case submitErr = <-submitted:
	case <-time.After(2 * time.Second):
		t.Fatalf("submission never returned")
	}
	if !errors.Is(submitErr, domain.ErrRoundNotActive) {
		t.Fatalf("expected answer before the question is out to be refused, got %v", submitErr)
	}
	answers, _ := env.store.Answers(context.Background(), session.ID())
	if len(answers) != 0 {
		t.Fatalf("expected no recorded answers, got %+v", answers)
	}
	final := env.presenter.final(t)
	if len(final.Entries) != 1 || final.Entries[0].Correct != 0 || final.Entries[0].Passed {
		t.Fatalf("expected a skipped question to score nothing, got %+v", final.Entries)
	}
}

func TestOpenedRoundsTouchRegistry(t *testing.T) {
	registry := &touchingRegistry{SessionRegistry: memory.NewSessionRegistry()}
	env := newTestEnvWithRegistry(t, registry, 3, firesAtOnce)
	env.presenter.failQuestions = 1

	session := env.start(t, app.StartRequest{ScopeKey: "guild-1", ExamID: "tech", InitiatorID: "u1", Rounds: 3})
	waitDone(t, session)

	if got := registry.count(); got != 2 {
		t.Fatalf("expected a touch per presented round, got %d", got)
	}
}

func TestDefaultTimerAdvancesOnEarlyAnswer(t *testing.T) {
	env := newTestEnv(t, 2, nil)
	session := env.start(t, app.StartRequest{ScopeKey: "user-1", ExamID: "tech", InitiatorID: "u1", Delay: 120 * time.Second})

	for i := 0; i < 2; i++ {
		q := env.presenter.nextQuestion(t)
		if _, err := env.service.Submit(context.Background(), "user-1", q.QuestionID, "u1", correctLetter(t, q)); err != nil {
			t.Fatalf("submit round %d: %v", i+1, err)
		}
	}
	waitDone(t, session)
	if final := env.presenter.final(t); final.Entries[0].Percent != 100 {
		t.Fatalf("unexpected standings %+v", final.Entries)
	}
}

func TestEmptyPoolCompletesImmediately(t *testing.T) {
	env := newTestEnv(t, 0, neverFires)
	session := env.start(t, app.StartRequest{ScopeKey: "guild-1", ExamID: "tech", InitiatorID: "u1"})
	waitDone(t, session)

	if session.Rounds() != 0 || session.State() != app.StateCompleted {
		t.Fatalf("expected completed with 0 rounds, got %d %s", session.Rounds(), session.State())
	}
	if env.presenter.presentedCount() != 0 {
		t.Fatalf("expected nothing presented")
	}
}

func TestUnknownExam(t *testing.T) {
	env := newTestEnv(t, 1, neverFires)
	_, err := env.service.StartExam(context.Background(), app.StartRequest{ScopeKey: "g", ExamID: "extra", InitiatorID: "u1"})
	if !errors.Is(err, domain.ErrPoolNotFound) {
		t.Fatalf("expected pool not found, got %v", err)
	}
	if stopped, err := env.service.StopExam(context.Background(), "g", "u1"); stopped || err != nil {
		t.Fatalf("expected stop of unknown scope to be a no-op, got %v %v", stopped, err)
	}
}

func TestRecoverKeepsAnswers(t *testing.T) {
	now := time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC)
	env := newTestEnv(t, 1, neverFires, app.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	_ = env.store.CreateSession(ctx, domain.QuizSessionRecord{ID: "old", ScopeKey: "guild-1", Active: true})
	_ = env.store.RecordAnswer(ctx, domain.UserAnswer{SessionID: "old", QuestionID: "Q1", UserID: "u1", Correct: true})

	n, err := env.service.Recover(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one record closed, got %d err=%v", n, err)
	}
	if _, found, _ := env.service.ActiveRecord(ctx, "guild-1"); found {
		t.Fatalf("expected no active record after recovery")
	}
	if rec, _ := env.store.Session("old"); rec.EndedAt == nil || !rec.EndedAt.Equal(now) {
		t.Fatalf("expected end time %s, got %+v", now, rec.EndedAt)
	}
	answers, _ := env.store.Answers(ctx, "old")
	if len(answers) != 1 {
		t.Fatalf("expected answer history kept, got %d", len(answers))
	}
}

func TestStaleActiveRecordClosedOnStart(t *testing.T) {
	env := newTestEnv(t, 1, neverFires, app.WithIDGenerator(func() string { return "fresh" }))
	ctx := context.Background()
	_ = env.store.CreateSession(ctx, domain.QuizSessionRecord{ID: "stale", ScopeKey: "guild-1", Active: true})

	session := env.start(t, app.StartRequest{ScopeKey: "guild-1", ExamID: "tech", InitiatorID: "u1"})
	rec, found, _ := env.service.ActiveRecord(ctx, "guild-1")
	if !found || rec.ID != "fresh" || session.ID() != "fresh" {
		t.Fatalf("expected only the new record active, got %+v", rec)
	}
	if stale, _ := env.store.Session("stale"); stale.Active {
		t.Fatalf("expected stale record closed")
	}
}

type testEnv struct {
	service   *app.QuizService
	store     *memory.ResultStore
	presenter *recordingPresenter
}

func newTestEnv(t *testing.T, questionCount int, after func(time.Duration) <-chan time.Time, opts ...app.Option) *testEnv {
	t.Helper()
	return newTestEnvWithRegistry(t, memory.NewSessionRegistry(), questionCount, after, opts...)
}

func newTestEnvWithRegistry(t *testing.T, registry app.SessionRegistry, questionCount int, after func(time.Duration) <-chan time.Time, opts ...app.Option) *testEnv {
	t.Helper()
	questions := make([]domain.Question, 0, questionCount)
	for i := 1; i <= questionCount; i++ {
		questions = append(questions, domain.Question{
			ID:     fmt.Sprintf("T0A%02d", i),
			PoolID: "tech",
			Text:   fmt.Sprintf("Question %d", i),
			Options: []domain.AnswerOption{
				{ID: "a", Text: "wrong 1"},
				{ID: "b", Text: "right", Correct: true},
				{ID: "c", Text: "wrong 2"},
				{ID: "d", Text: "wrong 3"},
			},
		})
	}
	loader := memory.NewStaticPoolLoader([]domain.ExamPool{{ID: "tech", Name: "Technician", MaxRounds: 35}}, questions)
	store := memory.NewResultStore()
	presenter := newRecordingPresenter()
	base := []app.Option{
		app.WithPolicy(app.Policy{}),
		app.WithTimer(after),
		app.WithRand(42),
	}
	service := app.NewQuizService(registry, memory.NewPoolCache(loader, time.Minute), store, presenter, append(base, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = service.Shutdown(ctx)
	})
	return &testEnv{service: service, store: store, presenter: presenter}
}

func (e *testEnv) start(t *testing.T, req app.StartRequest) *app.Session {
	t.Helper()
	session, err := e.service.StartExam(context.Background(), req)
	if err != nil {
		t.Fatalf("start exam: %v", err)
	}
	return session
}

func (e *testEnv) sessionID(t *testing.T, scope string) string {
	t.Helper()
	snap, ok := e.service.Status(scope)
	if !ok {
		t.Fatalf("no session for %s", scope)
	}
	return snap.SessionID
}

func neverFires(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}

func firesAtOnce(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

// manualTimer hands out answer windows that only close when fired.
type manualTimer struct {
	created chan chan time.Time
}

func newManualTimer() *manualTimer {
	return &manualTimer{created: make(chan chan time.Time, 16)}
}

func (m *manualTimer) after(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	m.created <- ch
	return ch
}

func (m *manualTimer) fire(t *testing.T) {
	t.Helper()
	select {
	case ch := <-m.created:
		ch <- time.Now()
	case <-time.After(2 * time.Second):
		t.Fatalf("no answer window open")
	}
}

func waitDone(t *testing.T, session *app.Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Wait(ctx); err != nil {
		t.Fatalf("session did not finish: %v", err)
	}
}

func correctLetter(t *testing.T, q domain.QuestionView) string {
	t.Helper()
	for _, c := range q.Choices {
		if c.Text == "right" {
			return c.Letter
		}
	}
	t.Fatalf("no correct choice in %+v", q.Choices)
	return ""
}

func wrongLetter(t *testing.T, q domain.QuestionView) string {
	t.Helper()
	for _, c := range q.Choices {
		if c.Text != "right" {
			return c.Letter
		}
	}
	t.Fatalf("no wrong choice in %+v", q.Choices)
	return ""
}

// touchingRegistry counts refreshes of running sessions.
type touchingRegistry struct {
	app.SessionRegistry
	mu      sync.Mutex
	touches int
}

func (r *touchingRegistry) Touch(string, *app.Session) {
	r.mu.Lock()
	r.touches++
	r.mu.Unlock()
}

func (r *touchingRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touches
}

type recordingPresenter struct {
	mu            sync.Mutex
	onQuestion    func(domain.QuestionView) // runs before the broadcast outcome
	failQuestions int
	presented     int
	questions     chan domain.QuestionView
	reveals       []domain.AnswerReveal
	expired       []domain.QuestionExpired
	results       []domain.RoundResult
	finals        chan domain.FinalStandings
	finalsSeen    int
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{
		questions: make(chan domain.QuestionView, 64),
		finals:    make(chan domain.FinalStandings, 8),
	}
}

func (p *recordingPresenter) PresentQuestion(_ context.Context, view domain.QuestionView) error {
	if p.onQuestion != nil {
		p.onQuestion(view)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failQuestions > 0 {
		p.failQuestions--
		return domain.ErrNoListeners
	}
	p.presented++
	p.questions <- view
	return nil
}

func (p *recordingPresenter) RevealAnswer(_ context.Context, reveal domain.AnswerReveal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reveals = append(p.reveals, reveal)
	return nil
}

func (p *recordingPresenter) ExpireQuestion(_ context.Context, expired domain.QuestionExpired) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, expired)
	return nil
}

func (p *recordingPresenter) PresentRoundResult(_ context.Context, result domain.RoundResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, result)
	return nil
}

func (p *recordingPresenter) PresentFinal(_ context.Context, final domain.FinalStandings) error {
	p.mu.Lock()
	p.finalsSeen++
	p.mu.Unlock()
	p.finals <- final
	return nil
}

func (p *recordingPresenter) nextQuestion(t *testing.T) domain.QuestionView {
	t.Helper()
	select {
	case q := <-p.questions:
		return q
	case <-time.After(2 * time.Second):
		t.Fatalf("no question presented")
		return domain.QuestionView{}
	}
}

func (p *recordingPresenter) final(t *testing.T) domain.FinalStandings {
	t.Helper()
	select {
	case f := <-p.finals:
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("no final standings presented")
		return domain.FinalStandings{}
	}
}

func (p *recordingPresenter) presentedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.presented
}

func (p *recordingPresenter) finalCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finalsSeen
}

func (p *recordingPresenter) expiredEvents() []domain.QuestionExpired {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.QuestionExpired(nil), p.expired...)
}

func (p *recordingPresenter) roundResults() []domain.RoundResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.RoundResult(nil), p.results...)
}
