package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizdesk/quizdesk-backend/internal/middleware"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/response"
	"github.com/quizdesk/quizdesk-backend/internal/service"
	"github.com/quizdesk/quizdesk-backend/internal/validator"
)

// ControlHandler handles teacher pause/resume commands.
type ControlHandler struct {
	controlService *service.ControlService
}

// NewControlHandler creates a new ControlHandler.
func NewControlHandler(controlService *service.ControlService) *ControlHandler {
	return &ControlHandler{controlService: controlService}
}

// ApplyControl godoc
// POST /api/v1/teacher/quizzes/:quiz_id/control
// Applies a pause/resume action to the quiz's sessions. Responds with the
// number of sessions the action actually moved; retries report 0.
func (h *ControlHandler) ApplyControl(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ControlRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.controlService.Apply(c.Request.Context(), claims.TeacherID, quizID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotQuizOwner):
			response.Fail(c, http.StatusForbidden, response.ErrNotQuizOwner)
		case errors.Is(err, service.ErrSessionIDRequired), errors.Is(err, model.ErrUnknownControlAction):
			response.Fail(c, http.StatusBadRequest, response.ErrBadRequest)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"action":         result.Action,
		"affected_count": result.AffectedCount,
	})
}
