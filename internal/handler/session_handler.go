package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/response"
	"github.com/quizdesk/quizdesk-backend/internal/service"
	"github.com/quizdesk/quizdesk-backend/internal/validator"
)

// SessionHandler handles the student-facing session lifecycle endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// StartSession godoc
// POST /api/v1/sessions/start
// Opens an exam attempt. Re-sending the same (student, quiz) pair while a
// fresh session exists returns that session's token instead of a new one.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrQuizNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session": session,
	})
}

// Heartbeat godoc
// POST /api/v1/sessions/heartbeat
// Applies a progress ping. The returned status is authoritative: a PAUSED
// answer means the client must lock its UI until resumed.
func (h *SessionHandler) Heartbeat(c *gin.Context) {
	var req model.HeartbeatRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	status, err := h.sessionService.Heartbeat(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status": status,
	})
}

// EndSession godoc
// POST /api/v1/sessions/end
// Records an explicit submit. Ending an already-terminal session acks with
// the stored status.
func (h *SessionHandler) EndSession(c *gin.Context) {
	var req model.EndSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	status, err := h.sessionService.End(c.Request.Context(), req.SessionToken)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status": status,
	})
}

// ReportViolation godoc
// POST /api/v1/sessions/violation
// Fire-and-forget anti-cheat report. Always accepted so a flaky session
// token can never break the client's violation detector.
func (h *SessionHandler) ReportViolation(c *gin.Context) {
	var req model.ReportViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.sessionService.ReportViolation(c.Request.Context(), req.SessionToken, req.ViolationType)

	response.Success(c, http.StatusAccepted, gin.H{})
}
