package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"ham-exam-bot/internal/domain"
)

// QuestionPool loads exam pools and their non-archived questions from Postgres.
type QuestionPool struct {
	pool *pgxpool.Pool
}

func NewQuestionPool(pool *pgxpool.Pool) *QuestionPool {
	return &QuestionPool{pool: pool}
}

func (p *QuestionPool) Pool(ctx context.Context, examID string) (domain.ExamPool, error) {
	var (
		pool      domain.ExamPool
		validFrom *time.Time
		validTo   *time.Time
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, description, valid_from, valid_to, max_rounds FROM exam_pools WHERE id=$1`,
		examID,
	).Scan(&pool.ID, &pool.Name, &pool.Description, &validFrom, &validTo, &pool.MaxRounds)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ExamPool{}, domain.ErrPoolNotFound
	}
	if err != nil {
		return domain.ExamPool{}, fmt.Errorf("load pool: %w", err)
	}
	if validFrom != nil {
		pool.ValidFrom = *validFrom
	}
	if validTo != nil {
		pool.ValidTo = *validTo
	}
	return pool, nil
}

// Questions returns the pool's questions with their options, archived ones
// excluded. Options keep their stored position order.
func (p *QuestionPool) Questions(ctx context.Context, examID string) ([]domain.Question, error) {
	if _, err := p.Pool(ctx, examID); err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, `
		SELECT q.id, q.text, q.section, q.topic_code, q.topic_description, q.figure_ref,
		       o.id, o.text, o.correct
		FROM questions q
		JOIN answer_options o ON o.pool_id = q.pool_id AND o.question_id = q.id
		WHERE q.pool_id = $1 AND NOT q.archived
		ORDER BY q.id, o.position, o.id`, examID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var (
		questions []domain.Question
		index     = make(map[string]int)
	)
	for rows.Next() {
		var (
			q   domain.Question
			opt domain.AnswerOption
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.Section, &q.TopicCode, &q.TopicDescription, &q.FigureRef,
			&opt.ID, &opt.Text, &opt.Correct); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		i, ok := index[q.ID]
		if !ok {
			q.PoolID = examID
			i = len(questions)
			index[q.ID] = i
			questions = append(questions, q)
		}
		questions[i].Options = append(questions[i].Options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return questions, nil
}
