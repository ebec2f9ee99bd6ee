package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/repository"
)

// MonitorStore is the read-side query surface behind the teacher dashboard.
// *repository.MonitorRepository satisfies it.
type MonitorStore interface {
	ListActiveSessions(ctx context.Context, quizID uuid.UUID, heartbeatAfter time.Time) ([]repository.MonitorRow, error)
	CompletionCounts(ctx context.Context, quizID uuid.UUID) (completed, total int64, err error)
}

// ViolationTrail reads the per-event anti-cheat history.
// *repository.ViolationRepository satisfies it.
type ViolationTrail interface {
	ListBySession(ctx context.Context, quizID uuid.UUID, sessionID int64, limit int) ([]model.ViolationEvent, error)
}

// MonitorService aggregates live session state for the teacher dashboard.
type MonitorService struct {
	monitor    MonitorStore
	quizzes    QuizStore
	violations ViolationTrail
	liveness   time.Duration
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitor MonitorStore, quizzes QuizStore, violations ViolationTrail, liveness time.Duration) *MonitorService {
	return &MonitorService{monitor: monitor, quizzes: quizzes, violations: violations, liveness: liveness}
}

// MonitorQuiz is the quiz header on the dashboard.
type MonitorQuiz struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
}

// MonitorStats holds the derived top-line numbers.
type MonitorStats struct {
	TotalActive       int     `json:"total_active"`
	AvgProgress       float64 `json:"avg_progress"`
	CompletionRate    float64 `json:"completion_rate"`
	CompletedStudents int64   `json:"completed_students"`
	TotalStudents     int64   `json:"total_students"`
}

// MonitorSessionView is one student row on the live view.
type MonitorSessionView struct {
	SessionID             int64               `json:"session_id"`
	StudentIdentifier     string              `json:"student_identifier"`
	StudentClass          string              `json:"student_class"`
	Status                model.SessionStatus `json:"status"`
	CurrentQuestionIndex  int                 `json:"current_question_index"`
	QuestionsAnswered     int                 `json:"questions_answered"`
	TotalQuestions        int                 `json:"total_questions"`
	ProgressPercent       float64             `json:"progress_percent"`
	TimeRemainingSeconds  int                 `json:"time_remaining_seconds"`
	ViolationsCount       int                 `json:"violations_count"`
	PausedByTeacher       bool                `json:"paused_by_teacher"`
	SecondsSinceHeartbeat int                 `json:"seconds_since_heartbeat"`
}

// MonitorSnapshot is the full polling payload for one quiz.
type MonitorSnapshot struct {
	Quiz     MonitorQuiz          `json:"quiz"`
	Stats    MonitorStats         `json:"stats"`
	Sessions []MonitorSessionView `json:"sessions"`
}

// Snapshot builds the dashboard payload for a teacher-owned quiz. Stale
// sessions (no heartbeat within the liveness window) fall out of the listing
// even before the sweeper retires them, which is what makes the ~1s polling
// view feel live.
func (s *MonitorService) Snapshot(ctx context.Context, teacherID int, quizID uuid.UUID) (*MonitorSnapshot, error) {
	owned, err := s.quizzes.IsOwnedBy(ctx, quizID, teacherID)
	if err != nil {
		return nil, fmt.Errorf("check quiz ownership: %w", err)
	}
	if !owned {
		return nil, ErrNotQuizOwner
	}

	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	now := time.Now()
	rows, err := s.monitor.ListActiveSessions(ctx, quizID, now.Add(-s.liveness))
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}

	completed, total, err := s.monitor.CompletionCounts(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("completion counts: %w", err)
	}

	return buildSnapshot(quiz, rows, completed, total, now), nil
}

const violationTrailLimit = 100

// Violations returns the recorded anti-cheat events for one session of a
// teacher-owned quiz, newest first.
func (s *MonitorService) Violations(ctx context.Context, teacherID int, quizID uuid.UUID, sessionID int64) ([]model.ViolationEvent, error) {
	owned, err := s.quizzes.IsOwnedBy(ctx, quizID, teacherID)
	if err != nil {
		return nil, fmt.Errorf("check quiz ownership: %w", err)
	}
	if !owned {
		return nil, ErrNotQuizOwner
	}

	events, err := s.violations.ListBySession(ctx, quizID, sessionID, violationTrailLimit)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	return events, nil
}

// buildSnapshot derives the aggregate view from raw rows. Pure so the
// percentage math is directly testable.
func buildSnapshot(quiz *model.Quiz, rows []repository.MonitorRow, completed, total int64, now time.Time) *MonitorSnapshot {
	views := make([]MonitorSessionView, 0, len(rows))
	var progressSum float64

	for _, row := range rows {
		progress := progressPercent(row.QuestionsAnswered, row.TotalQuestions)
		progressSum += progress

		views = append(views, MonitorSessionView{
			SessionID:             row.SessionID,
			StudentIdentifier:     row.StudentIdentifier,
			StudentClass:          row.StudentClass,
			Status:                row.Status,
			CurrentQuestionIndex:  row.CurrentQuestionIndex,
			QuestionsAnswered:     row.QuestionsAnswered,
			TotalQuestions:        row.TotalQuestions,
			ProgressPercent:       round1(progress),
			TimeRemainingSeconds:  row.TimeRemainingSeconds,
			ViolationsCount:       row.ViolationsCount,
			PausedByTeacher:       row.PausedByTeacher,
			SecondsSinceHeartbeat: int(now.Sub(row.LastHeartbeatAt).Seconds()),
		})
	}

	stats := MonitorStats{
		TotalActive:       len(rows),
		CompletedStudents: completed,
		TotalStudents:     total,
	}
	if len(rows) > 0 {
		stats.AvgProgress = round1(progressSum / float64(len(rows)))
	}
	if total > 0 {
		stats.CompletionRate = round1(float64(completed) / float64(total) * 100)
	}

	return &MonitorSnapshot{
		Quiz: MonitorQuiz{
			ID:              quiz.ID,
			Title:           quiz.Title,
			DurationMinutes: quiz.DurationMinutes,
		},
		Stats:    stats,
		Sessions: views,
	}
}

func progressPercent(answered, totalQuestions int) float64 {
	if totalQuestions <= 0 {
		return 0
	}
	return float64(answered) / float64(totalQuestions) * 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
