package service

import (
	"context"
	"testing"
	"time"

	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/rs/zerolog"
)

func TestSweepRetiresStaleSessions(t *testing.T) {
	quiz := testQuiz(1)
	store := newFakeSessionStore()
	quizzes := newFakeQuizStore(quiz)
	sessionSvc, _ := newTestSessionService(store, quizzes)
	sweeper := NewSweeperService(store, 2*time.Minute, zerolog.Nop())
	ctx := context.Background()

	fresh := seedLiveSessions(t, store, sessionSvc, quiz.ID, "alice")[0]
	stale := seedLiveSessions(t, store, sessionSvc, quiz.ID, "bob")[0]
	store.sessions[stale.Token].LastHeartbeatAt = time.Now().Add(-10 * time.Minute)

	result, err := sweeper.Sweep(ctx, nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if result.StaleAbandoned != 1 {
		t.Errorf("stale_abandoned = %d, want 1", result.StaleAbandoned)
	}
	if got := store.sessions[stale.Token].Status; got != model.SessionStatusAbandoned {
		t.Errorf("stale session status = %s, want ABANDONED", got)
	}
	if got := store.sessions[fresh.Token].Status; got != model.SessionStatusActive {
		t.Errorf("fresh session status = %s, want ACTIVE", got)
	}
}

func TestSweepResolvesDuplicateLivePairs(t *testing.T) {
	quiz := testQuiz(1)
	store := newFakeSessionStore()
	quizzes := newFakeQuizStore(quiz)
	sessionSvc, _ := newTestSessionService(store, quizzes)
	sweeper := NewSweeperService(store, 2*time.Minute, zerolog.Nop())
	ctx := context.Background()

	first := seedLiveSessions(t, store, sessionSvc, quiz.ID, "alice")[0]

	// Force a second live session for the same pair past the store's guard,
	// simulating legacy rows created before the unique index existed.
	dup := &model.ExamSession{
		ID:              first.ID + 100,
		Token:           "legacy-duplicate",
		StudentID:       first.StudentID,
		QuizID:          quiz.ID,
		Status:          model.SessionStatusActive,
		TotalQuestions:  20,
		LastHeartbeatAt: time.Now(),
	}
	store.sessions[dup.Token] = dup

	result, err := sweeper.Sweep(ctx, nil)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if result.DuplicateAbandoned != 1 {
		t.Errorf("duplicate_abandoned = %d, want 1", result.DuplicateAbandoned)
	}
	// The latest session wins; the older one retires.
	if got := store.sessions[first.Token].Status; got != model.SessionStatusAbandoned {
		t.Errorf("older duplicate status = %s, want ABANDONED", got)
	}
	if got := store.sessions[dup.Token].Status; got != model.SessionStatusActive {
		t.Errorf("latest duplicate status = %s, want ACTIVE", got)
	}
}

func TestSweepScopedToQuiz(t *testing.T) {
	quizA := testQuiz(1)
	quizB := testQuiz(1)
	store := newFakeSessionStore()
	quizzes := newFakeQuizStore(quizA, quizB)
	sessionSvc, _ := newTestSessionService(store, quizzes)
	sweeper := NewSweeperService(store, 2*time.Minute, zerolog.Nop())
	ctx := context.Background()

	staleA := seedLiveSessions(t, store, sessionSvc, quizA.ID, "alice")[0]
	staleB := seedLiveSessions(t, store, sessionSvc, quizB.ID, "bob")[0]
	store.sessions[staleA.Token].LastHeartbeatAt = time.Now().Add(-10 * time.Minute)
	store.sessions[staleB.Token].LastHeartbeatAt = time.Now().Add(-10 * time.Minute)

	result, err := sweeper.Sweep(ctx, &quizA.ID)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if result.StaleAbandoned != 1 {
		t.Errorf("stale_abandoned = %d, want 1", result.StaleAbandoned)
	}
	if got := store.sessions[staleB.Token].Status; got != model.SessionStatusActive {
		t.Errorf("out-of-scope session status = %s, want ACTIVE", got)
	}
}
