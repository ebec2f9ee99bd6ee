package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/rs/zerolog"
)

// ControlStore is the status-transition surface the control service needs.
// *repository.ExamSessionRepository satisfies it.
type ControlStore interface {
	UpdateStatusByQuiz(ctx context.Context, quizID uuid.UUID, from, to model.SessionStatus, pausedByTeacher bool) (int64, error)
	UpdateStatusByID(ctx context.Context, sessionID int64, quizID uuid.UUID, from, to model.SessionStatus, pausedByTeacher bool) (int64, error)
}

// ControlService applies teacher pause/resume commands to the session store.
type ControlService struct {
	sessions ControlStore
	quizzes  QuizStore
	notifier *MonitorNotifier
	log      zerolog.Logger
}

// NewControlService creates a new ControlService.
func NewControlService(sessions ControlStore, quizzes QuizStore, notifier *MonitorNotifier, log zerolog.Logger) *ControlService {
	return &ControlService{
		sessions: sessions,
		quizzes:  quizzes,
		notifier: notifier,
		log:      log.With().Str("component", "control_service").Logger(),
	}
}

// Apply runs a control action for a teacher against their quiz. Sessions not
// in the action's source status are untouched, so retries and stale teacher
// views resolve to "0 affected" rather than an error.
func (s *ControlService) Apply(ctx context.Context, teacherID int, quizID uuid.UUID, req *model.ControlRequest) (*model.ControlResult, error) {
	owned, err := s.quizzes.IsOwnedBy(ctx, quizID, teacherID)
	if err != nil {
		return nil, fmt.Errorf("check quiz ownership: %w", err)
	}
	if !owned {
		return nil, ErrNotQuizOwner
	}

	action, err := model.ParseControlAction(req.Action)
	if err != nil {
		return nil, err
	}

	var affected int64
	if action.PerStudent() {
		if req.SessionID == nil {
			return nil, ErrSessionIDRequired
		}
		affected, err = s.sessions.UpdateStatusByID(ctx, *req.SessionID, quizID,
			action.SourceStatus(), action.TargetStatus(), action.PausedByTeacher())
	} else {
		affected, err = s.sessions.UpdateStatusByQuiz(ctx, quizID,
			action.SourceStatus(), action.TargetStatus(), action.PausedByTeacher())
	}
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", action, err)
	}

	s.log.Info().
		Str("action", string(action)).
		Str("quiz_id", quizID.String()).
		Int64("affected", affected).
		Msg("Control action applied")

	if affected > 0 {
		s.notifier.PublishQuizEvent(ctx, quizID, "control_"+string(action), 0)
	}

	return &model.ControlResult{Action: action, AffectedCount: affected}, nil
}
