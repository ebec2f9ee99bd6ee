package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/rs/zerolog"
)

func seedLiveSessions(t *testing.T, store *fakeSessionStore, svc *SessionService, quizID uuid.UUID, identifiers ...string) []*model.ExamSession {
	t.Helper()
	sessions := make([]*model.ExamSession, 0, len(identifiers))
	for _, id := range identifiers {
		s, err := svc.Start(context.Background(), startRequest(quizID, id))
		if err != nil {
			t.Fatalf("seed Start(%s): %v", id, err)
		}
		sessions = append(sessions, s)
	}
	return sessions
}

func TestApplyPauseAllAndResumeAll(t *testing.T) {
	quiz := testQuiz(1)
	store := newFakeSessionStore()
	quizzes := newFakeQuizStore(quiz)
	sessionSvc, _ := newTestSessionService(store, quizzes)
	control := NewControlService(store, quizzes, nil, zerolog.Nop())
	ctx := context.Background()

	seedLiveSessions(t, store, sessionSvc, quiz.ID, "alice", "bob", "carol")

	result, err := control.Apply(ctx, 1, quiz.ID, &model.ControlRequest{Action: "pause"})
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if result.AffectedCount != 3 {
		t.Errorf("pause affected = %d, want 3", result.AffectedCount)
	}
	for _, s := range store.sessions {
		if s.Status != model.SessionStatusPaused || !s.PausedByTeacher {
			t.Errorf("session %d not teacher-paused: %+v", s.ID, s)
		}
	}

	// Pausing again moves nothing.
	result, err = control.Apply(ctx, 1, quiz.ID, &model.ControlRequest{Action: "pause"})
	if err != nil {
		t.Fatalf("second pause: %v", err)
	}
	if result.AffectedCount != 0 {
		t.Errorf("second pause affected = %d, want 0", result.AffectedCount)
	}

	result, err = control.Apply(ctx, 1, quiz.ID, &model.ControlRequest{Action: "resume"})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if result.AffectedCount != 3 {
		t.Errorf("resume affected = %d, want 3", result.AffectedCount)
	}
	for _, s := range store.sessions {
		if s.Status != model.SessionStatusActive || s.PausedByTeacher {
			t.Errorf("session %d not resumed: %+v", s.ID, s)
		}
	}
}

func TestApplyPauseSkipsTerminalSessions(t *testing.T) {
	quiz := testQuiz(1)
	store := newFakeSessionStore()
	quizzes := newFakeQuizStore(quiz)
	sessionSvc, _ := newTestSessionService(store, quizzes)
	control := NewControlService(store, quizzes, nil, zerolog.Nop())
	ctx := context.Background()

	sessions := seedLiveSessions(t, store, sessionSvc, quiz.ID, "alice", "bob")
	if _, err := sessionSvc.End(ctx, sessions[0].Token); err != nil {
		t.Fatalf("End: %v", err)
	}

	result, err := control.Apply(ctx, 1, quiz.ID, &model.ControlRequest{Action: "pause"})
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if result.AffectedCount != 1 {
		t.Errorf("pause affected = %d, want 1", result.AffectedCount)
	}
	if got := store.sessions[sessions[0].Token].Status; got != model.SessionStatusCompleted {
		t.Errorf("completed session moved to %s", got)
	}
}

func TestApplyPerStudentActions(t *testing.T) {
	quiz := testQuiz(1)
	store := newFakeSessionStore()
	quizzes := newFakeQuizStore(quiz)
	sessionSvc, _ := newTestSessionService(store, quizzes)
	control := NewControlService(store, quizzes, nil, zerolog.Nop())
	ctx := context.Background()

	sessions := seedLiveSessions(t, store, sessionSvc, quiz.ID, "alice", "bob")
	target := sessions[0].ID

	result, err := control.Apply(ctx, 1, quiz.ID, &model.ControlRequest{Action: "pause_student", SessionID: &target})
	if err != nil {
		t.Fatalf("pause_student: %v", err)
	}
	if result.AffectedCount != 1 {
		t.Errorf("affected = %d, want 1", result.AffectedCount)
	}
	if got := store.sessions[sessions[1].Token].Status; got != model.SessionStatusActive {
		t.Errorf("untargeted session moved to %s", got)
	}

	// Missing session_id is a client error.
	if _, err := control.Apply(ctx, 1, quiz.ID, &model.ControlRequest{Action: "resume_student"}); !errors.Is(err, ErrSessionIDRequired) {
		t.Errorf("err = %v, want ErrSessionIDRequired", err)
	}
}

func TestApplyRejectsNonOwner(t *testing.T) {
	quiz := testQuiz(1)
	store := newFakeSessionStore()
	quizzes := newFakeQuizStore(quiz)
	control := NewControlService(store, quizzes, nil, zerolog.Nop())

	_, err := control.Apply(context.Background(), 2, quiz.ID, &model.ControlRequest{Action: "pause"})
	if !errors.Is(err, ErrNotQuizOwner) {
		t.Fatalf("err = %v, want ErrNotQuizOwner", err)
	}
}

func TestApplyRejectsUnknownAction(t *testing.T) {
	quiz := testQuiz(1)
	store := newFakeSessionStore()
	quizzes := newFakeQuizStore(quiz)
	control := NewControlService(store, quizzes, nil, zerolog.Nop())

	_, err := control.Apply(context.Background(), 1, quiz.ID, &model.ControlRequest{Action: "freeze"})
	if !errors.Is(err, model.ErrUnknownControlAction) {
		t.Fatalf("err = %v, want ErrUnknownControlAction", err)
	}
}

func TestPerStudentActionScopedToQuiz(t *testing.T) {
	quizA := testQuiz(1)
	quizB := testQuiz(1)
	store := newFakeSessionStore()
	quizzes := newFakeQuizStore(quizA, quizB)
	sessionSvc, _ := newTestSessionService(store, quizzes)
	control := NewControlService(store, quizzes, nil, zerolog.Nop())
	ctx := context.Background()

	other := seedLiveSessions(t, store, sessionSvc, quizB.ID, "dave")[0]

	// A session id from another quiz must not be reachable.
	result, err := control.Apply(ctx, 1, quizA.ID, &model.ControlRequest{Action: "pause_student", SessionID: &other.ID})
	if err != nil {
		t.Fatalf("pause_student: %v", err)
	}
	if result.AffectedCount != 0 {
		t.Errorf("cross-quiz session was affected: %d", result.AffectedCount)
	}
	if got := store.sessions[other.Token].Status; got != model.SessionStatusActive {
		t.Errorf("cross-quiz session moved to %s", got)
	}
}
