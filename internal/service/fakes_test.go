package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/repository"
)

// In-memory store fakes mirroring the repository layer's guarded-update
// semantics, so service behavior is testable without PostgreSQL.

type fakeSessionStore struct {
	sessions map[string]*model.ExamSession
	nextID   int64
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*model.ExamSession)}
}

func (f *fakeSessionStore) liveByPair(studentID int, quizID uuid.UUID) *model.ExamSession {
	var latest *model.ExamSession
	for _, s := range f.sessions {
		if s.StudentID == studentID && s.QuizID == quizID && s.Status.IsLive() {
			if latest == nil || s.ID > latest.ID {
				latest = s
			}
		}
	}
	return latest
}

func (f *fakeSessionStore) Create(ctx context.Context, s *model.ExamSession) error {
	if f.liveByPair(s.StudentID, s.QuizID) != nil {
		return repository.ErrDuplicateLiveSession
	}
	f.nextID++
	s.ID = f.nextID
	s.Status = model.SessionStatusActive
	now := time.Now()
	s.StartedAt = now
	s.LastActivityAt = now
	s.LastHeartbeatAt = now
	f.sessions[s.Token] = s
	return nil
}

func (f *fakeSessionStore) GetByToken(ctx context.Context, token string) (*model.ExamSession, error) {
	s, ok := f.sessions[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionStore) GetLiveByPair(ctx context.Context, studentID int, quizID uuid.UUID) (*model.ExamSession, error) {
	s := f.liveByPair(studentID, quizID)
	if s == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionStore) Heartbeat(ctx context.Context, token string, req *model.HeartbeatRequest) (model.SessionStatus, error) {
	s, ok := f.sessions[token]
	if !ok {
		return "", pgx.ErrNoRows
	}
	now := time.Now()
	switch s.Status {
	case model.SessionStatusActive:
		if req.CurrentQuestionIndex != nil {
			s.CurrentQuestionIndex = *req.CurrentQuestionIndex
		}
		if req.QuestionsAnswered != nil {
			// Mirrors the store's LEAST(..., total_questions) clamp.
			s.QuestionsAnswered = *req.QuestionsAnswered
			if s.QuestionsAnswered > s.TotalQuestions {
				s.QuestionsAnswered = s.TotalQuestions
			}
		}
		if req.TimeRemainingSeconds != nil {
			s.TimeRemainingSeconds = *req.TimeRemainingSeconds
		}
		s.LastActivityAt = now
		s.LastHeartbeatAt = now
	case model.SessionStatusPaused:
		// Paused sessions keep liveness but freeze progress.
		s.LastHeartbeatAt = now
	}
	return s.Status, nil
}

func (f *fakeSessionStore) Complete(ctx context.Context, token string) (model.SessionStatus, error) {
	s, ok := f.sessions[token]
	if !ok {
		return "", pgx.ErrNoRows
	}
	if s.Status.IsLive() {
		s.Status = model.SessionStatusCompleted
	}
	return s.Status, nil
}

func (f *fakeSessionStore) RecordViolation(ctx context.Context, token string) (int64, uuid.UUID, bool, error) {
	s, ok := f.sessions[token]
	if !ok || !s.Status.IsLive() {
		return 0, uuid.Nil, false, nil
	}
	s.ViolationsCount++
	now := time.Now()
	s.LastViolationAt = &now
	s.LastHeartbeatAt = now
	return s.ID, s.QuizID, true, nil
}

func (f *fakeSessionStore) AbandonLivePair(ctx context.Context, studentID int, quizID uuid.UUID) (int64, error) {
	var n int64
	for _, s := range f.sessions {
		if s.StudentID == studentID && s.QuizID == quizID && s.Status.IsLive() {
			s.Status = model.SessionStatusAbandoned
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionStore) UpdateStatusByQuiz(ctx context.Context, quizID uuid.UUID, from, to model.SessionStatus, pausedByTeacher bool) (int64, error) {
	var n int64
	for _, s := range f.sessions {
		if s.QuizID == quizID && s.Status == from {
			s.Status = to
			s.PausedByTeacher = pausedByTeacher
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionStore) UpdateStatusByID(ctx context.Context, sessionID int64, quizID uuid.UUID, from, to model.SessionStatus, pausedByTeacher bool) (int64, error) {
	for _, s := range f.sessions {
		if s.ID == sessionID && s.QuizID == quizID && s.Status == from {
			s.Status = to
			s.PausedByTeacher = pausedByTeacher
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeSessionStore) AbandonStale(ctx context.Context, cutoff time.Time, quizID *uuid.UUID) (int64, error) {
	var n int64
	for _, s := range f.sessions {
		if quizID != nil && s.QuizID != *quizID {
			continue
		}
		if s.Status.IsLive() && s.LastHeartbeatAt.Before(cutoff) {
			s.Status = model.SessionStatusAbandoned
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionStore) AbandonDuplicates(ctx context.Context, quizID *uuid.UUID) (int64, error) {
	latest := make(map[string]int64)
	for _, s := range f.sessions {
		if !s.Status.IsLive() {
			continue
		}
		key := fmt.Sprintf("%d/%s", s.StudentID, s.QuizID)
		if s.ID > latest[key] {
			latest[key] = s.ID
		}
	}
	var n int64
	for _, s := range f.sessions {
		if quizID != nil && s.QuizID != *quizID {
			continue
		}
		key := fmt.Sprintf("%d/%s", s.StudentID, s.QuizID)
		if s.Status.IsLive() && s.ID != latest[key] {
			s.Status = model.SessionStatusAbandoned
			n++
		}
	}
	return n, nil
}

type fakeStudentDirectory struct {
	students map[string]*model.Student
	nextID   int
}

func newFakeStudentDirectory() *fakeStudentDirectory {
	return &fakeStudentDirectory{students: make(map[string]*model.Student)}
}

func (f *fakeStudentDirectory) GetOrCreate(ctx context.Context, quizID uuid.UUID, identifier, class string) (*model.Student, error) {
	key := quizID.String() + "/" + identifier
	if s, ok := f.students[key]; ok {
		s.Class = class
		return s, nil
	}
	f.nextID++
	s := &model.Student{ID: f.nextID, QuizID: quizID, Identifier: identifier, Class: class, CreatedAt: time.Now()}
	f.students[key] = s
	return s, nil
}

type fakeQuizStore struct {
	quizzes map[uuid.UUID]*model.Quiz
}

func newFakeQuizStore(quizzes ...*model.Quiz) *fakeQuizStore {
	f := &fakeQuizStore{quizzes: make(map[uuid.UUID]*model.Quiz)}
	for _, q := range quizzes {
		f.quizzes[q.ID] = q
	}
	return f
}

func (f *fakeQuizStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q, ok := f.quizzes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return q, nil
}

func (f *fakeQuizStore) IsOwnedBy(ctx context.Context, quizID uuid.UUID, teacherID int) (bool, error) {
	q, ok := f.quizzes[quizID]
	return ok && q.TeacherID == teacherID, nil
}

type fakeMonitorStore struct {
	rows      []repository.MonitorRow
	completed int64
	total     int64
}

func (f *fakeMonitorStore) ListActiveSessions(ctx context.Context, quizID uuid.UUID, heartbeatAfter time.Time) ([]repository.MonitorRow, error) {
	var out []repository.MonitorRow
	for _, r := range f.rows {
		if !r.LastHeartbeatAt.Before(heartbeatAfter) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeMonitorStore) CompletionCounts(ctx context.Context, quizID uuid.UUID) (int64, int64, error) {
	return f.completed, f.total, nil
}

type fakeViolationTrail struct {
	events []model.ViolationEvent
}

func (f *fakeViolationTrail) ListBySession(ctx context.Context, quizID uuid.UUID, sessionID int64, limit int) ([]model.ViolationEvent, error) {
	var out []model.ViolationEvent
	for _, e := range f.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
