package model

import (
	"errors"
	"testing"
)

func TestParseControlAction(t *testing.T) {
	for _, valid := range []string{"pause", "resume", "pause_student", "resume_student"} {
		a, err := ParseControlAction(valid)
		if err != nil {
			t.Errorf("ParseControlAction(%q) returned error: %v", valid, err)
		}
		if string(a) != valid {
			t.Errorf("ParseControlAction(%q) = %q", valid, a)
		}
	}

	if _, err := ParseControlAction("freeze"); !errors.Is(err, ErrUnknownControlAction) {
		t.Errorf("expected ErrUnknownControlAction, got %v", err)
	}
}

func TestControlActionSemantics(t *testing.T) {
	cases := []struct {
		action     ControlAction
		perStudent bool
		source     SessionStatus
		target     SessionStatus
		pausedFlag bool
	}{
		{ControlPause, false, SessionStatusActive, SessionStatusPaused, true},
		{ControlResume, false, SessionStatusPaused, SessionStatusActive, false},
		{ControlPauseStudent, true, SessionStatusActive, SessionStatusPaused, true},
		{ControlResumeStudent, true, SessionStatusPaused, SessionStatusActive, false},
	}

	for _, c := range cases {
		if got := c.action.PerStudent(); got != c.perStudent {
			t.Errorf("%s.PerStudent() = %v, want %v", c.action, got, c.perStudent)
		}
		if got := c.action.SourceStatus(); got != c.source {
			t.Errorf("%s.SourceStatus() = %s, want %s", c.action, got, c.source)
		}
		if got := c.action.TargetStatus(); got != c.target {
			t.Errorf("%s.TargetStatus() = %s, want %s", c.action, got, c.target)
		}
		if got := c.action.PausedByTeacher(); got != c.pausedFlag {
			t.Errorf("%s.PausedByTeacher() = %v, want %v", c.action, got, c.pausedFlag)
		}
	}
}
