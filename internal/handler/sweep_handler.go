package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizdesk/quizdesk-backend/internal/config"
	"github.com/quizdesk/quizdesk-backend/internal/response"
	"github.com/quizdesk/quizdesk-backend/internal/service"
)

// SweepHandler exposes the cleanup pass to internal callers (cron, ops).
// The background worker runs the same service on a ticker; this endpoint
// exists to force a pass without waiting for it.
type SweepHandler struct {
	cfg            *config.Config
	sweeperService *service.SweeperService
}

// NewSweepHandler creates a new SweepHandler.
func NewSweepHandler(cfg *config.Config, sweeperService *service.SweeperService) *SweepHandler {
	return &SweepHandler{cfg: cfg, sweeperService: sweeperService}
}

// RunSweep godoc
// POST /api/v1/internal/sweep
// Requires the X-Internal-Key header. An optional ?quiz_id=... narrows the
// pass to one quiz.
func (h *SweepHandler) RunSweep(c *gin.Context) {
	key := c.GetHeader("X-Internal-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.cfg.InternalAPIKey)) != 1 {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	var quizID *uuid.UUID
	if raw := c.Query("quiz_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		quizID = &id
	}

	result, err := h.sweeperService.Sweep(c.Request.Context(), quizID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, result)
}
