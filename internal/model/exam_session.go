package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusPaused    SessionStatus = "PAUSED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusAbandoned SessionStatus = "ABANDONED"
)

// IsTerminal reports whether the status absorbs all further transitions.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusAbandoned
}

// IsLive reports whether the session still counts against the
// one-live-session-per-(student,quiz) invariant.
func (s SessionStatus) IsLive() bool {
	return s == SessionStatusActive || s == SessionStatusPaused
}

// CanTransition reports whether moving from one status to another is legal.
// Terminal statuses never transition; a live session may reach either
// terminal status or toggle between ACTIVE and PAUSED.
func CanTransition(from, to SessionStatus) bool {
	if from.IsTerminal() {
		return false
	}
	switch to {
	case SessionStatusActive:
		return from == SessionStatusPaused || from == SessionStatusActive
	case SessionStatusPaused:
		return from == SessionStatusActive || from == SessionStatusPaused
	case SessionStatusCompleted, SessionStatusAbandoned:
		return from.IsLive()
	}
	return false
}

// ExamSession represents a student's in-progress exam attempt. The row in
// PostgreSQL is the single source of truth for session state; every mutation
// is a guarded UPDATE keyed on the current status.
type ExamSession struct {
	ID                   int64         `json:"id"`
	Token                string        `json:"token"`
	StudentID            int           `json:"student_id"`
	QuizID               uuid.UUID     `json:"quiz_id"`
	Status               SessionStatus `json:"status"`
	TotalQuestions       int           `json:"total_questions"`
	CurrentQuestionIndex int           `json:"current_question_index"`
	QuestionsAnswered    int           `json:"questions_answered"`
	TimeRemainingSeconds int           `json:"time_remaining_seconds"`
	ViolationsCount      int           `json:"violations_count"`
	LastViolationAt      *time.Time    `json:"last_violation_at,omitempty"`
	PausedByTeacher      bool          `json:"paused_by_teacher"`
	StartedAt            time.Time     `json:"started_at"`
	LastActivityAt       time.Time     `json:"last_activity_at"`
	LastHeartbeatAt      time.Time     `json:"last_heartbeat_at"`
}

// StartSessionRequest is the payload for a student starting an exam attempt.
type StartSessionRequest struct {
	StudentIdentifier    string    `json:"student_identifier" binding:"required,min=1,max=100"`
	StudentClass         string    `json:"student_class" binding:"required,min=1,max=100"`
	QuizID               uuid.UUID `json:"quiz_id" binding:"required"`
	TotalQuestions       int       `json:"total_questions" binding:"required,min=1"`
	TimeRemainingSeconds int       `json:"time_remaining_seconds" binding:"required,min=1"`
}

// HeartbeatRequest is the periodic progress ping. Progress fields are
// pointers so an absent field keeps the stored value.
type HeartbeatRequest struct {
	SessionToken         string `json:"session_token" binding:"required"`
	CurrentQuestionIndex *int   `json:"current_question_index" binding:"omitempty,min=0"`
	QuestionsAnswered    *int   `json:"questions_answered" binding:"omitempty,min=0"`
	TimeRemainingSeconds *int   `json:"time_remaining_seconds" binding:"omitempty,min=0"`
}

// EndSessionRequest is the payload for an explicit student submit.
type EndSessionRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
}

// ReportViolationRequest records an anti-cheat signal against a session.
type ReportViolationRequest struct {
	SessionToken  string `json:"session_token" binding:"required"`
	ViolationType string `json:"violation_type" binding:"omitempty,max=100"`
}
