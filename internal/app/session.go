package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"ham-exam-bot/internal/domain"
)

const finalizeTimeout = 10 * time.Second

// State is the lifecycle position of a Session.
type State int

const (
	StateInitializing State = iota
	StateAskingQuestion
	StateAwaitingResponses
	StateGrading
	StateStopping
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAskingQuestion:
		return "asking"
	case StateAwaitingResponses:
		return "awaiting"
	case StateGrading:
		return "grading"
	case StateStopping:
		return "stopping"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of a running session.
type Snapshot struct {
	SessionID   string        `json:"sessionId"`
	ScopeKey    string        `json:"scopeKey"`
	ExamID      string        `json:"examId"`
	Mode        domain.Mode   `json:"mode"`
	State       string        `json:"state"`
	Round       int           `json:"round"`
	TotalRounds int           `json:"totalRounds"`
	Remaining   int           `json:"remaining"`
	Delay       time.Duration `json:"delay"`
	InitiatorID string        `json:"initiatorId"`
	StartedAt   time.Time     `json:"startedAt"`
}

// Session runs one exam for one scope key: a sequence of timed rounds, each
// presenting a question and collecting answers until the delay elapses or an
// accepted answer closes it early.
type Session struct {
	record      domain.QuizSessionRecord
	participant string
	rounds      int
	delay       time.Duration

	store     ResultStore
	presenter Presenter
	policy    Policy
	now       func() time.Time

	// after overrides the answer window timer; nil uses a stoppable timer.
	after func(time.Duration) <-chan time.Time
	rnd   *rand.Rand // owned by the round loop after construction

	// answerMu serializes every submission of this session and guards current.
	answerMu sync.Mutex
	current  *round

	mu            sync.RWMutex
	state         State
	remaining     []domain.Question
	asked         []domain.Question
	roundNo       int
	stopRequested bool

	onRound  func()
	onDone   func()
	runOnce  sync.Once
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type sessionParams struct {
	record      domain.QuizSessionRecord
	participant string
	candidates  []domain.Question
	rounds      int
	delay       time.Duration
	store       ResultStore
	presenter   Presenter
	policy      Policy
	now         func() time.Time
	after       func(time.Duration) <-chan time.Time
	rnd         *rand.Rand
	onRound     func(*Session)
	onDone      func(*Session)
}

// newSession performs the Initializing step: shuffle the candidate list and
// keep the first rounds questions as the remaining pool.
func newSession(p sessionParams) *Session {
	if p.now == nil {
		p.now = time.Now
	}
	if p.rnd == nil {
		p.rnd = newSeededRand()
	}
	shuffled := shuffleQuestions(p.rnd, p.candidates)
	rounds := p.rounds
	if rounds > len(shuffled) {
		rounds = len(shuffled)
	}
	if rounds < 0 {
		rounds = 0
	}
	s := &Session{
		record:      p.record,
		participant: p.participant,
		rounds:      rounds,
		delay:       ClampDelay(p.delay),
		store:       p.store,
		presenter:   p.presenter,
		policy:      p.policy,
		now:         p.now,
		after:       p.after,
		rnd:         p.rnd,
		state:       StateInitializing,
		remaining:   shuffled[:rounds],
		asked:       make([]domain.Question, 0, rounds),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	if p.onRound != nil {
		s.onRound = func() { p.onRound(s) }
	}
	if p.onDone != nil {
		s.onDone = func() { p.onDone(s) }
	}
	return s
}

// ID returns the persisted session record id.
func (s *Session) ID() string { return s.record.ID }

// ScopeKey returns the scope the session is bound to.
func (s *Session) ScopeKey() string { return s.record.ScopeKey }

// Record returns the record as created at start.
func (s *Session) Record() domain.QuizSessionRecord { return s.record }

// Rounds is the number of rounds the session was set up to run.
func (s *Session) Rounds() int { return s.rounds }

// Delay is the effective per-question answer window.
func (s *Session) Delay() time.Duration { return s.delay }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Asked returns the ids of the questions drawn so far, in draw order.
func (s *Session) Asked() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.asked))
	for i, q := range s.asked {
		ids[i] = q.ID
	}
	return ids
}

// Snapshot describes the session for status lookups.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		SessionID:   s.record.ID,
		ScopeKey:    s.record.ScopeKey,
		ExamID:      s.record.ExamID,
		Mode:        s.record.Mode,
		State:       s.state.String(),
		Round:       s.roundNo,
		TotalRounds: s.rounds,
		Remaining:   len(s.remaining),
		Delay:       s.delay,
		InitiatorID: s.record.InitiatorID,
		StartedAt:   s.record.StartedAt,
	}
}

// Done is closed once the session has finalized its record.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session finished or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop asks the session to end. It prevents further rounds and interrupts a
// waiting round. It reports whether this call initiated the stop; later calls
// are no-ops.
func (s *Session) Stop() bool {
	initiated := false
	s.stopOnce.Do(func() {
		s.mu.Lock()
		if s.state != StateCompleted {
			s.stopRequested = true
			s.state = StateStopping
			initiated = true
		}
		s.mu.Unlock()
		close(s.stop)
	})
	return initiated
}

// Run drives the round loop until the pool is exhausted or a stop arrives,
// then finalizes the record. Only the first call does anything. Done is
// closed after the registry slot was released.
func (s *Session) Run(ctx context.Context) {
	s.runOnce.Do(func() {
		defer close(s.done)
		s.loop(ctx)
		s.finalize(ctx)
		if s.onDone != nil {
			s.onDone()
		}
	})
}

func (s *Session) loop(ctx context.Context) {
	for {
		if s.stopping(ctx) {
			return
		}
		s.setState(StateAskingQuestion)
		q, number, ok := s.nextQuestion()
		if !ok {
			return
		}

		r := newRound(number, q, assignLetters(s.rnd, q.Options))
		if err := s.open(ctx, r); err != nil {
			log.Printf("quiz %s: broadcast question %s failed: %v", s.record.ScopeKey, q.ID, err)
			if s.policy.RetryFailedRound {
				s.requeue(q)
			}
			if !s.sleep(ctx, s.policy.SendFailureBackoff) {
				return
			}
			continue
		}
		if s.onRound != nil {
			s.onRound()
		}

		s.setState(StateAwaitingResponses)
		end := s.await(ctx, r)
		s.closeRound(r)
		if end == endStopped {
			return
		}

		s.setState(StateGrading)
		s.grade(ctx, r, end)
		if !s.sleep(ctx, s.policy.RoundPause) {
			return
		}
	}
}

func (s *Session) stopping(ctx context.Context) bool {
	select {
	case <-s.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// nextQuestion pops a random question off the remaining pool.
func (s *Session) nextQuestion() (domain.Question, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.remaining) == 0 {
		return domain.Question{}, 0, false
	}
	var q domain.Question
	q, s.remaining = drawQuestion(s.rnd, s.remaining)
	s.asked = append(s.asked, q)
	s.roundNo = len(s.asked)
	return q, s.roundNo, true
}

func (s *Session) requeue(q domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.asked) - 1; i >= 0; i-- {
		if s.asked[i].ID == q.ID {
			s.asked = append(s.asked[:i], s.asked[i+1:]...)
			break
		}
	}
	s.remaining = append(s.remaining, q)
	s.roundNo = len(s.asked)
}

func (s *Session) questionView(r *round) domain.QuestionView {
	topic := r.question.TopicCode
	if r.question.TopicDescription != "" {
		topic = strings.TrimSpace(topic + " " + r.question.TopicDescription)
	}
	return domain.QuestionView{
		SessionID:   s.record.ID,
		ScopeKey:    s.record.ScopeKey,
		Mode:        s.record.Mode,
		Round:       r.number,
		TotalRounds: s.rounds,
		QuestionID:  r.question.ID,
		Text:        r.question.Text,
		Section:     r.question.Section,
		Topic:       topic,
		FigureRef:   r.question.FigureRef,
		Choices:     r.letters.choices(),
		Delay:       s.delay,
		Deadline:    s.now().Add(s.delay),
	}
}

// open broadcasts r and makes it the current round once the broadcast
// succeeded. Submissions arriving meanwhile wait on the answer lock, so a
// question that was never shown cannot collect answers.
func (s *Session) open(ctx context.Context, r *round) error {
	s.answerMu.Lock()
	defer s.answerMu.Unlock()
	if err := s.presenter.PresentQuestion(ctx, s.questionView(r)); err != nil {
		r.open = false
		return err
	}
	s.current = r
	return nil
}

// await suspends until the delay elapses, the round is closed early, or the
// session stops.
func (s *Session) await(ctx context.Context, r *round) roundEnd {
	var timer <-chan time.Time
	if s.after != nil {
		timer = s.after(s.delay)
	} else {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-timer:
		return endTimeout
	case <-r.cancel.Done():
		return endEarly
	case <-s.stop:
		return endStopped
	case <-ctx.Done():
		return endStopped
	}
}

// closeRound stops accepting answers for r.
func (s *Session) closeRound(r *round) {
	s.answerMu.Lock()
	r.open = false
	r.cancel.Disable()
	if s.current == r {
		s.current = nil
	}
	s.answerMu.Unlock()
}

func (s *Session) grade(ctx context.Context, r *round, end roundEnd) {
	correctLetter, correctOpt, _ := r.letters.correctLetter()
	if end == endTimeout {
		err := s.presenter.ExpireQuestion(ctx, domain.QuestionExpired{
			ScopeKey:      s.record.ScopeKey,
			QuestionID:    r.question.ID,
			CorrectLetter: correctLetter,
			CorrectText:   correctOpt.Text,
		})
		if err != nil {
			log.Printf("quiz %s: expire question %s failed: %v", s.record.ScopeKey, r.question.ID, err)
		}
	}
	if s.record.Mode != domain.ModeMulti {
		return
	}
	answers, err := s.store.Answers(ctx, s.record.ID)
	if err != nil {
		log.Printf("quiz %s: load answers for round %d failed: %v", s.record.ScopeKey, r.number, err)
		return
	}
	correct, incorrect := PartitionRound(answers, r.question.ID)
	err = s.presenter.PresentRoundResult(ctx, domain.RoundResult{
		ScopeKey:      s.record.ScopeKey,
		Round:         r.number,
		QuestionID:    r.question.ID,
		CorrectLetter: correctLetter,
		Correct:       correct,
		Incorrect:     incorrect,
	})
	if err != nil {
		log.Printf("quiz %s: round %d results failed: %v", s.record.ScopeKey, r.number, err)
	}
}

// sleep waits d unless the session stops first; it reports whether the loop
// may continue.
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return !s.stopping(ctx)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

// finalize closes the record and emits the final standings. It runs exactly
// once, at the end of Run.
func (s *Session) finalize(ctx context.Context) {
	s.mu.Lock()
	stopped := s.stopRequested
	if stopped || ctx.Err() != nil {
		s.state = StateStopping
	}
	asked := len(s.asked)
	s.mu.Unlock()

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if err := s.store.FinishSession(fctx, s.record.ID, s.now()); err != nil {
		log.Printf("quiz %s: finish session %s failed: %v", s.record.ScopeKey, s.record.ID, err)
	}

	answers, err := s.store.Answers(fctx, s.record.ID)
	if err != nil {
		log.Printf("quiz %s: load final answers failed: %v", s.record.ScopeKey, err)
	}
	var ensure []string
	if s.record.Mode == domain.ModeSingle {
		ensure = append(ensure, s.participant)
	}
	final := domain.FinalStandings{
		ScopeKey:    s.record.ScopeKey,
		SessionID:   s.record.ID,
		Mode:        s.record.Mode,
		TotalRounds: s.rounds,
		Asked:       asked,
		Stopped:     stopped,
		Entries:     Standings(answers, s.rounds, ensure...),
	}
	if err := s.presenter.PresentFinal(fctx, final); err != nil {
		log.Printf("quiz %s: final standings failed: %v", s.record.ScopeKey, err)
	}

	s.setState(StateCompleted)
	log.Printf("quiz %s: session %s completed after %d/%d rounds (stopped=%v)", s.record.ScopeKey, s.record.ID, asked, s.rounds, stopped)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopRequested && state != StateCompleted {
		return
	}
	s.state = state
}

// Submit is the synchronized answer path. The duplicate check, the insert and
// the live presentation update happen under the session's answer lock; the
// round's cancellation handle is triggered after the lock is released.
func (s *Session) Submit(ctx context.Context, questionID, userID, letter string) (domain.AnswerReveal, error) {
	s.answerMu.Lock()
	reveal, r, err := s.submitLocked(ctx, questionID, userID, letter)
	s.answerMu.Unlock()
	if err != nil {
		return domain.AnswerReveal{}, err
	}
	if s.record.Mode == domain.ModeSingle || !s.policy.WaitFullDelayInMulti {
		r.cancel.Trigger()
	}
	return reveal, nil
}

func (s *Session) submitLocked(ctx context.Context, questionID, userID, letter string) (domain.AnswerReveal, *round, error) {
	r := s.current
	if r == nil || !r.open {
		return domain.AnswerReveal{}, nil, domain.ErrRoundNotActive
	}
	if questionID != "" && questionID != r.question.ID {
		return domain.AnswerReveal{}, nil, domain.ErrRoundNotActive
	}
	if s.record.Mode == domain.ModeSingle && userID != s.participant {
		return domain.AnswerReveal{}, nil, domain.ErrNotAuthorized
	}
	letter = strings.ToUpper(strings.TrimSpace(letter))
	opt, ok := r.letters.options[letter]
	if !ok {
		return domain.AnswerReveal{}, nil, domain.ErrUnknownChoice
	}

	answered, err := s.store.HasAnswered(ctx, s.record.ID, r.question.ID, userID)
	if err != nil {
		return domain.AnswerReveal{}, nil, fmt.Errorf("check previous answer: %w", err)
	}
	if answered {
		return domain.AnswerReveal{}, nil, domain.ErrDuplicateSubmission
	}

	correctLetter, _, valid := r.letters.correctLetter()
	correct := valid && letter == correctLetter
	err = s.store.RecordAnswer(ctx, domain.UserAnswer{
		SessionID:  s.record.ID,
		QuestionID: r.question.ID,
		UserID:     userID,
		Answer:     opt.Text,
		Correct:    correct,
		AnsweredAt: s.now(),
	})
	if err != nil {
		return domain.AnswerReveal{}, nil, err
	}

	r.disabled[letter] = true
	if correctLetter != "" {
		r.disabled[correctLetter] = true
	}
	reveal := domain.AnswerReveal{
		ScopeKey:        s.record.ScopeKey,
		QuestionID:      r.question.ID,
		UserID:          userID,
		Letter:          letter,
		Correct:         correct,
		CorrectLetter:   correctLetter,
		DisabledLetters: r.disabledLetters(),
	}
	if err := s.presenter.RevealAnswer(ctx, reveal); err != nil {
		log.Printf("quiz %s: reveal answer of %s failed: %v", s.record.ScopeKey, userID, err)
	}
	return reveal, r, nil
}
