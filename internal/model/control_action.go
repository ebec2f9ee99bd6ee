package model

import (
	"errors"
	"fmt"
)

// ErrUnknownControlAction is returned for an action string outside the
// closed set.
var ErrUnknownControlAction = errors.New("unknown control action")

// ControlAction is the closed set of teacher control commands. The bulk
// variants act on every session of a quiz in the source status; the
// per-student variants act on a single named session.
type ControlAction string

const (
	ControlPause         ControlAction = "pause"
	ControlResume        ControlAction = "resume"
	ControlPauseStudent  ControlAction = "pause_student"
	ControlResumeStudent ControlAction = "resume_student"
)

// ParseControlAction validates a wire-level action string.
func ParseControlAction(s string) (ControlAction, error) {
	switch a := ControlAction(s); a {
	case ControlPause, ControlResume, ControlPauseStudent, ControlResumeStudent:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownControlAction, s)
}

// PerStudent reports whether the action targets a single session.
func (a ControlAction) PerStudent() bool {
	return a == ControlPauseStudent || a == ControlResumeStudent
}

// SourceStatus is the status a session must currently hold for the action
// to affect it. Sessions in any other status are left untouched.
func (a ControlAction) SourceStatus() SessionStatus {
	if a == ControlPause || a == ControlPauseStudent {
		return SessionStatusActive
	}
	return SessionStatusPaused
}

// TargetStatus is the status the action moves matching sessions into.
func (a ControlAction) TargetStatus() SessionStatus {
	if a == ControlPause || a == ControlPauseStudent {
		return SessionStatusPaused
	}
	return SessionStatusActive
}

// PausedByTeacher is the flag value written alongside the transition:
// pausing marks the session teacher-paused, resuming clears it.
func (a ControlAction) PausedByTeacher() bool {
	return a.TargetStatus() == SessionStatusPaused
}

// ControlRequest is the payload for the teacher control endpoint.
type ControlRequest struct {
	Action    string `json:"action" binding:"required,oneof=pause resume pause_student resume_student"`
	SessionID *int64 `json:"session_id" binding:"omitempty,min=1"`
}

// ControlResult reports the outcome of a control action.
type ControlResult struct {
	Action        ControlAction `json:"action"`
	AffectedCount int64         `json:"affected_count"`
}
