package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ham-exam-bot/internal/domain"
)

func TestResultStoreRejectsDuplicateAnswer(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	answer := domain.UserAnswer{SessionID: "s1", QuestionID: "q1", UserID: "u1", Answer: "FCC", Correct: true}

	if err := store.RecordAnswer(ctx, answer); err != nil {
		t.Fatalf("record: %v", err)
	}
	answer.Correct = false
	if err := store.RecordAnswer(ctx, answer); !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}

	answers, _ := store.Answers(ctx, "s1")
	if len(answers) != 1 || !answers[0].Correct {
		t.Fatalf("expected the first answer kept untouched, got %+v", answers)
	}
	if ok, _ := store.HasAnswered(ctx, "s1", "q1", "u1"); !ok {
		t.Fatalf("expected answered flag")
	}
}

func TestResultStoreSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_ = store.CreateSession(ctx, domain.QuizSessionRecord{ID: "s1", ScopeKey: "g1", Active: true, StartedAt: start})
	_ = store.CreateSession(ctx, domain.QuizSessionRecord{ID: "s2", ScopeKey: "g2", Active: true, StartedAt: start})

	rec, found, err := store.ActiveSession(ctx, "g1")
	if err != nil || !found || rec.ID != "s1" {
		t.Fatalf("expected active s1, got %+v found=%v err=%v", rec, found, err)
	}

	end := start.Add(time.Minute)
	if err := store.FinishSession(ctx, "s1", end); err != nil {
		t.Fatalf("finish: %v", err)
	}
	rec, _ = store.Session("s1")
	if rec.Active || rec.EndedAt == nil || !rec.EndedAt.Equal(end) {
		t.Fatalf("expected s1 inactive with end time, got %+v", rec)
	}

	n, err := store.DeactivateAll(ctx, end)
	if err != nil || n != 1 {
		t.Fatalf("expected one record swept, got %d err=%v", n, err)
	}
	if _, found, _ := store.ActiveSession(ctx, "g2"); found {
		t.Fatalf("expected g2 inactive after sweep")
	}
}
