package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"ham-exam-bot/internal/domain"
)

type sessionModel struct {
	bun.BaseModel `bun:"table:quiz_sessions"`

	ID            string     `bun:"id,pk"`
	ScopeKey      string     `bun:"scope_key"`
	ExamID        string     `bun:"exam_id"`
	Mode          string     `bun:"mode"`
	Active        bool       `bun:"active"`
	StartedAt     time.Time  `bun:"started_at"`
	EndedAt       *time.Time `bun:"ended_at"`
	InitiatorID   string     `bun:"initiator_id"`
	InitiatorName string     `bun:"initiator_name"`
}

type answerModel struct {
	bun.BaseModel `bun:"table:user_answers"`

	ID         int64     `bun:"id,pk,autoincrement"`
	SessionID  string    `bun:"session_id"`
	QuestionID string    `bun:"question_id"`
	UserID     string    `bun:"user_id"`
	Answer     string    `bun:"answer"`
	Correct    bool      `bun:"correct"`
	AnsweredAt time.Time `bun:"answered_at"`
}

// ResultStore persists session records and answers through bun.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) CreateSession(ctx context.Context, rec domain.QuizSessionRecord) error {
	m := toSessionModel(rec)
	if _, err := s.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *ResultStore) FinishSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*sessionModel)(nil)).
		Set("active = FALSE").
		Set("ended_at = ?", endedAt).
		Where("id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *ResultStore) ActiveSession(ctx context.Context, scopeKey string) (domain.QuizSessionRecord, bool, error) {
	var m sessionModel
	err := s.db.NewSelect().
		Model(&m).
		Where("scope_key = ?", scopeKey).
		Where("active").
		OrderExpr("started_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizSessionRecord{}, false, nil
	}
	if err != nil {
		return domain.QuizSessionRecord{}, false, fmt.Errorf("active session: %w", err)
	}
	return m.toDomain(), true, nil
}

// DeactivateAll closes every active record. Answers are left untouched.
func (s *ResultStore) DeactivateAll(ctx context.Context, endedAt time.Time) (int, error) {
	res, err := s.db.NewUpdate().
		Model((*sessionModel)(nil)).
		Set("active = FALSE").
		Set("ended_at = COALESCE(ended_at, ?)", endedAt).
		Where("active").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("deactivate sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *ResultStore) HasAnswered(ctx context.Context, sessionID, questionID, userID string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*answerModel)(nil)).
		Where("session_id = ?", sessionID).
		Where("question_id = ?", questionID).
		Where("user_id = ?", userID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check answer: %w", err)
	}
	return exists, nil
}

// RecordAnswer relies on the (session, question, user) unique constraint; a
// conflicting insert affects no rows and reports a duplicate.
func (s *ResultStore) RecordAnswer(ctx context.Context, answer domain.UserAnswer) error {
	m := answerModel{
		SessionID:  answer.SessionID,
		QuestionID: answer.QuestionID,
		UserID:     answer.UserID,
		Answer:     answer.Answer,
		Correct:    answer.Correct,
		AnsweredAt: answer.AnsweredAt,
	}
	res, err := s.db.NewInsert().Model(&m).On("CONFLICT (session_id, question_id, user_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDuplicateSubmission
	}
	return nil
}

func (s *ResultStore) Answers(ctx context.Context, sessionID string) ([]domain.UserAnswer, error) {
	var rows []answerModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	out := make([]domain.UserAnswer, 0, len(rows))
	for _, m := range rows {
		out = append(out, domain.UserAnswer{
			SessionID:  m.SessionID,
			QuestionID: m.QuestionID,
			UserID:     m.UserID,
			Answer:     m.Answer,
			Correct:    m.Correct,
			AnsweredAt: m.AnsweredAt,
		})
	}
	return out, nil
}

func toSessionModel(rec domain.QuizSessionRecord) sessionModel {
	return sessionModel{
		ID:            rec.ID,
		ScopeKey:      rec.ScopeKey,
		ExamID:        rec.ExamID,
		Mode:          string(rec.Mode),
		Active:        rec.Active,
		StartedAt:     rec.StartedAt,
		EndedAt:       rec.EndedAt,
		InitiatorID:   rec.InitiatorID,
		InitiatorName: rec.InitiatorName,
	}
}

func (m sessionModel) toDomain() domain.QuizSessionRecord {
	return domain.QuizSessionRecord{
		ID:            m.ID,
		ScopeKey:      m.ScopeKey,
		ExamID:        m.ExamID,
		Mode:          domain.Mode(m.Mode),
		Active:        m.Active,
		StartedAt:     m.StartedAt,
		EndedAt:       m.EndedAt,
		InitiatorID:   m.InitiatorID,
		InitiatorName: m.InitiatorName,
	}
}
