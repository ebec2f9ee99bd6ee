package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/response"
	"github.com/quizdesk/quizdesk-backend/internal/service"
	"github.com/quizdesk/quizdesk-backend/internal/validator"
	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validator.Setup()
	m.Run()
}

// Minimal in-memory stores backing a real SessionService for handler tests.

type memSessionStore struct {
	sessions map[string]*model.ExamSession
	nextID   int64
}

func (f *memSessionStore) Create(ctx context.Context, s *model.ExamSession) error {
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

func (f *memSessionStore) GetByToken(ctx context.Context, token string) (*model.ExamSession, error) {
	s, ok := f.sessions[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (f *memSessionStore) GetLiveByPair(ctx context.Context, studentID int, quizID uuid.UUID) (*model.ExamSession, error) {
	for _, s := range f.sessions {
		if s.StudentID == studentID && s.QuizID == quizID && s.Status.IsLive() {
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *memSessionStore) Heartbeat(ctx context.Context, token string, req *model.HeartbeatRequest) (model.SessionStatus, error) {
	s, ok := f.sessions[token]
	if !ok {
		return "", pgx.ErrNoRows
	}
	if s.Status == model.SessionStatusActive && req.QuestionsAnswered != nil {
		s.QuestionsAnswered = *req.QuestionsAnswered
		if s.QuestionsAnswered > s.TotalQuestions {
			s.QuestionsAnswered = s.TotalQuestions
		}
	}
	s.LastHeartbeatAt = time.Now()
	return s.Status, nil
}

func (f *memSessionStore) Complete(ctx context.Context, token string) (model.SessionStatus, error) {
	s, ok := f.sessions[token]
	if !ok {
		return "", pgx.ErrNoRows
	}
	if s.Status.IsLive() {
		s.Status = model.SessionStatusCompleted
	}
	return s.Status, nil
}

func (f *memSessionStore) RecordViolation(ctx context.Context, token string) (int64, uuid.UUID, bool, error) {
	s, ok := f.sessions[token]
	if !ok || !s.Status.IsLive() {
		return 0, uuid.Nil, false, nil
	}
	s.ViolationsCount++
	return s.ID, s.QuizID, true, nil
}

func (f *memSessionStore) AbandonLivePair(ctx context.Context, studentID int, quizID uuid.UUID) (int64, error) {
	var n int64
	for _, s := range f.sessions {
		if s.StudentID == studentID && s.QuizID == quizID && s.Status.IsLive() {
			s.Status = model.SessionStatusAbandoned
			n++
		}
	}
	return n, nil
}

type memStudentDirectory struct {
	nextID int
	byKey  map[string]*model.Student
}

func (f *memStudentDirectory) GetOrCreate(ctx context.Context, quizID uuid.UUID, identifier, class string) (*model.Student, error) {
	key := quizID.String() + "/" + identifier
	if s, ok := f.byKey[key]; ok {
		return s, nil
	}
	f.nextID++
	s := &model.Student{ID: f.nextID, QuizID: quizID, Identifier: identifier, Class: class}
	f.byKey[key] = s
	return s, nil
}

type memQuizStore struct {
	quiz *model.Quiz
}

func (f *memQuizStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	if f.quiz != nil && f.quiz.ID == id {
		return f.quiz, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *memQuizStore) IsOwnedBy(ctx context.Context, quizID uuid.UUID, teacherID int) (bool, error) {
	return f.quiz != nil && f.quiz.ID == quizID && f.quiz.TeacherID == teacherID, nil
}

func newTestRouter(quiz *model.Quiz) (*gin.Engine, *memSessionStore) {
	store := &memSessionStore{sessions: make(map[string]*model.ExamSession)}
	students := &memStudentDirectory{byKey: make(map[string]*model.Student)}
	quizzes := &memQuizStore{quiz: quiz}

	svc := service.NewSessionService(store, students, quizzes, nil, 2*time.Minute, zerolog.Nop())
	h := NewSessionHandler(svc)

	r := gin.New()
	r.POST("/sessions/start", h.StartSession)
	r.POST("/sessions/heartbeat", h.Heartbeat)
	r.POST("/sessions/end", h.EndSession)
	r.POST("/sessions/violation", h.ReportViolation)
	return r, store
}

func doJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var env response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, w.Body.String())
	}
	return env
}

func TestStartSessionEndpoint(t *testing.T) {
	quiz := &model.Quiz{ID: uuid.New(), TeacherID: 1, Title: "Quiz", DurationMinutes: 30}
	r, _ := newTestRouter(quiz)

	w := doJSON(t, r, "/sessions/start", map[string]interface{}{
		"student_identifier":     "alice",
		"student_class":          "10A",
		"quiz_id":                quiz.ID,
		"total_questions":        20,
		"time_remaining_seconds": 1800,
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Error("success = false")
	}
	if env.Metadata.RequestID == "" {
		t.Error("metadata.request_id missing")
	}

	data := env.Data.(map[string]interface{})
	session := data["session"].(map[string]interface{})
	if session["token"] == "" {
		t.Error("session token missing")
	}
	if session["status"] != "ACTIVE" {
		t.Errorf("status = %v, want ACTIVE", session["status"])
	}
}

func TestStartSessionValidation(t *testing.T) {
	quiz := &model.Quiz{ID: uuid.New(), TeacherID: 1}
	r, _ := newTestRouter(quiz)

	w := doJSON(t, r, "/sessions/start", map[string]interface{}{
		"student_identifier": "alice",
		// missing class, quiz_id, totals
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Success {
		t.Error("success = true on validation failure")
	}
	if env.Error == nil || env.Error.Code != response.ErrValidation {
		t.Errorf("error = %+v, want VALIDATION_ERROR", env.Error)
	}
	if len(env.Error.Fields) == 0 {
		t.Error("validation fields missing")
	}
}

func TestStartSessionUnknownQuiz(t *testing.T) {
	quiz := &model.Quiz{ID: uuid.New(), TeacherID: 1}
	r, _ := newTestRouter(quiz)

	w := doJSON(t, r, "/sessions/start", map[string]interface{}{
		"student_identifier":     "alice",
		"student_class":          "10A",
		"quiz_id":                uuid.New(),
		"total_questions":        20,
		"time_remaining_seconds": 1800,
	})

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Error == nil || env.Error.Code != response.ErrQuizNotFound {
		t.Errorf("error = %+v, want QUIZ_NOT_FOUND", env.Error)
	}
}

func TestHeartbeatEndpoint(t *testing.T) {
	quiz := &model.Quiz{ID: uuid.New(), TeacherID: 1}
	r, store := newTestRouter(quiz)

	start := doJSON(t, r, "/sessions/start", map[string]interface{}{
		"student_identifier":     "alice",
		"student_class":          "10A",
		"quiz_id":                quiz.ID,
		"total_questions":        20,
		"time_remaining_seconds": 1800,
	})
	env := decodeEnvelope(t, start)
	token := env.Data.(map[string]interface{})["session"].(map[string]interface{})["token"].(string)

	w := doJSON(t, r, "/sessions/heartbeat", map[string]interface{}{
		"session_token":      token,
		"questions_answered": 5,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	hb := decodeEnvelope(t, w)
	if hb.Data.(map[string]interface{})["status"] != "ACTIVE" {
		t.Errorf("status = %v, want ACTIVE", hb.Data)
	}
	if got := store.sessions[token].QuestionsAnswered; got != 5 {
		t.Errorf("questions_answered = %d, want 5", got)
	}

	// Unknown token.
	w = doJSON(t, r, "/sessions/heartbeat", map[string]interface{}{
		"session_token": "deadbeef",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	nf := decodeEnvelope(t, w)
	if nf.Error == nil || nf.Error.Code != response.ErrSessionNotFound {
		t.Errorf("error = %+v, want SESSION_NOT_FOUND", nf.Error)
	}
}

func TestViolationEndpointAlwaysAccepts(t *testing.T) {
	quiz := &model.Quiz{ID: uuid.New(), TeacherID: 1}
	r, _ := newTestRouter(quiz)

	// Unknown token still gets a 202: violation reporting is fire-and-forget.
	w := doJSON(t, r, "/sessions/violation", map[string]interface{}{
		"session_token": "unknown",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Error("success = false")
	}
}

func TestEndEndpointIdempotent(t *testing.T) {
	quiz := &model.Quiz{ID: uuid.New(), TeacherID: 1}
	r, _ := newTestRouter(quiz)

	start := doJSON(t, r, "/sessions/start", map[string]interface{}{
		"student_identifier":     "alice",
		"student_class":          "10A",
		"quiz_id":                quiz.ID,
		"total_questions":        20,
		"time_remaining_seconds": 1800,
	})
	env := decodeEnvelope(t, start)
	token := env.Data.(map[string]interface{})["session"].(map[string]interface{})["token"].(string)

	for i := 0; i < 2; i++ {
		w := doJSON(t, r, "/sessions/end", map[string]interface{}{"session_token": token})
		if w.Code != http.StatusOK {
			t.Fatalf("end #%d status = %d, want 200", i+1, w.Code)
		}
		ended := decodeEnvelope(t, w)
		if ended.Data.(map[string]interface{})["status"] != "COMPLETED" {
			t.Errorf("end #%d status = %v, want COMPLETED", i+1, ended.Data)
		}
	}
}
