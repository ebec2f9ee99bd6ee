package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/repository"
	"github.com/rs/zerolog"
)

// SessionStore is the session persistence surface the service needs.
// *repository.ExamSessionRepository satisfies it.
type SessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	GetByToken(ctx context.Context, token string) (*model.ExamSession, error)
	GetLiveByPair(ctx context.Context, studentID int, quizID uuid.UUID) (*model.ExamSession, error)
	Heartbeat(ctx context.Context, token string, req *model.HeartbeatRequest) (model.SessionStatus, error)
	Complete(ctx context.Context, token string) (model.SessionStatus, error)
	RecordViolation(ctx context.Context, token string) (int64, uuid.UUID, bool, error)
	AbandonLivePair(ctx context.Context, studentID int, quizID uuid.UUID) (int64, error)
}

// StudentDirectory resolves per-quiz student records.
// *repository.StudentRepository satisfies it.
type StudentDirectory interface {
	GetOrCreate(ctx context.Context, quizID uuid.UUID, identifier, class string) (*model.Student, error)
}

// QuizStore is the quiz-ownership collaborator surface.
// *repository.QuizRepository satisfies it.
type QuizStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	IsOwnedBy(ctx context.Context, quizID uuid.UUID, teacherID int) (bool, error)
}

// SessionService owns the student-facing session lifecycle: start,
// heartbeat, end and violation reporting.
type SessionService struct {
	sessions       SessionStore
	students       StudentDirectory
	quizzes        QuizStore
	notifier       *MonitorNotifier
	abandonTimeout time.Duration
	log            zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessions SessionStore,
	students StudentDirectory,
	quizzes QuizStore,
	notifier *MonitorNotifier,
	abandonTimeout time.Duration,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions:       sessions,
		students:       students,
		quizzes:        quizzes,
		notifier:       notifier,
		abandonTimeout: abandonTimeout,
		log:            log.With().Str("component", "session_service").Logger(),
	}
}

// newSessionToken returns 32 bytes of crypto/rand as hex. Tokens are the
// only credential the student client holds and are never reissued.
func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Start opens an exam attempt and returns its session. Starting is
// idempotent: a fresh live session for the (student, quiz) pair is returned
// unchanged, a stale one is retired to ABANDONED before a new attempt is
// created. Losing the insert race against a concurrent start returns the
// winner's session.
func (s *SessionService) Start(ctx context.Context, req *model.StartSessionRequest) (*model.ExamSession, error) {
	if _, err := s.quizzes.GetByID(ctx, req.QuizID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	student, err := s.students.GetOrCreate(ctx, req.QuizID, req.StudentIdentifier, req.StudentClass)
	if err != nil {
		return nil, fmt.Errorf("get or create student: %w", err)
	}

	existing, err := s.sessions.GetLiveByPair(ctx, student.ID, req.QuizID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing session: %w", err)
	}
	if existing != nil {
		if time.Since(existing.LastHeartbeatAt) <= s.abandonTimeout {
			// Reload with a live session: hand back the same token.
			return existing, nil
		}
		// The previous attempt went silent; retire it and start over.
		if _, err := s.sessions.AbandonLivePair(ctx, student.ID, req.QuizID); err != nil {
			return nil, fmt.Errorf("abandon stale session: %w", err)
		}
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	session := &model.ExamSession{
		Token:                token,
		StudentID:            student.ID,
		QuizID:               req.QuizID,
		TotalQuestions:       req.TotalQuestions,
		TimeRemainingSeconds: req.TimeRemainingSeconds,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateLiveSession) {
			// A concurrent start won the race; return its session.
			winner, fetchErr := s.sessions.GetLiveByPair(ctx, student.ID, req.QuizID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, fetch winner: %w", fetchErr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.notifier.PublishQuizEvent(ctx, req.QuizID, "started", session.ID)

	return session, nil
}

// Heartbeat applies a progress ping and returns the authoritative status
// the client must adopt. Unknown tokens are ErrSessionNotFound; terminal
// sessions echo their status without mutation.
func (s *SessionService) Heartbeat(ctx context.Context, req *model.HeartbeatRequest) (model.SessionStatus, error) {
	status, err := s.sessions.Heartbeat(ctx, req.SessionToken, req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("heartbeat: %w", err)
	}
	return status, nil
}

// End records an explicit student submit. Ending an already-terminal
// session is an idempotent ack; the stored progress never changes.
func (s *SessionService) End(ctx context.Context, token string) (model.SessionStatus, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("get session: %w", err)
	}

	status, err := s.sessions.Complete(ctx, token)
	if err != nil {
		return "", fmt.Errorf("complete session: %w", err)
	}

	if status == model.SessionStatusCompleted && !session.Status.IsTerminal() {
		s.notifier.PublishQuizEvent(ctx, session.QuizID, "completed", session.ID)
	}

	return status, nil
}

// ReportViolation records an anti-cheat signal against a live session.
// Unknown or terminal tokens are a silent no-op, and internal failures are
// logged rather than surfaced — reporting must never block a real exam
// submission.
func (s *SessionService) ReportViolation(ctx context.Context, token, violationType string) {
	if violationType == "" {
		violationType = model.DefaultViolationType
	}

	sessionID, quizID, recorded, err := s.sessions.RecordViolation(ctx, token)
	if err != nil {
		s.log.Warn().Err(err).Msg("Violation record failed")
		return
	}
	if !recorded {
		return
	}

	now := time.Now()
	s.notifier.EnqueueViolation(ctx, sessionID, violationType, now)
	s.notifier.PublishQuizEvent(ctx, quizID, "violation", sessionID)
}
