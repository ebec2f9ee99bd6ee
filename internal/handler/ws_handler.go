package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/quizdesk/quizdesk-backend/internal/model"
	"github.com/quizdesk/quizdesk-backend/internal/service"
	ws "github.com/quizdesk/quizdesk-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler multiplexes the student session lifecycle over one WebSocket,
// for clients that prefer a stream to the REST endpoints.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionWebSocketStream godoc
// WS /ws/v1/sessions/stream?token=<session_token>
// The session token in the query identifies the attempt; every message on
// the socket acts on that session.
func (h *WSHandler) SessionWebSocketStream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session token required"})
		return
	}

	// Reject unknown tokens before upgrading.
	if _, err := h.sessionService.Heartbeat(c.Request.Context(), &model.HeartbeatRequest{SessionToken: token}); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session matches this token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_token", token[:8]).Logger()
	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.RequestPayload
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionHeartbeat:
			h.handleHeartbeat(conn, wsLog, token, &msg)
		case ws.ActionViolation:
			h.handleViolation(conn, token, &msg)
		case ws.ActionEnd:
			h.handleEnd(conn, wsLog, token)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleHeartbeat applies a progress ping and echoes the authoritative status.
func (h *WSHandler) handleHeartbeat(conn *websocket.Conn, wsLog zerolog.Logger, token string, msg *ws.RequestPayload) {
	ctx := context.Background()

	req := &model.HeartbeatRequest{
		SessionToken:         token,
		CurrentQuestionIndex: msg.CurrentQuestionIndex,
		QuestionsAnswered:    msg.QuestionsAnswered,
		TimeRemainingSeconds: msg.TimeRemainingSeconds,
	}

	status, err := h.sessionService.Heartbeat(ctx, req)
	if err != nil {
		wsLog.Warn().Err(err).Msg("Heartbeat failed")
		ws.WriteError(conn, "heartbeat failed")
		return
	}

	ws.WriteTyped(conn, ws.StatusResponse{Event: ws.EventStatus, Status: string(status)})
}

// handleViolation records an anti-cheat signal. Fire-and-forget: the client
// gets the current status back but never an error.
func (h *WSHandler) handleViolation(conn *websocket.Conn, token string, msg *ws.RequestPayload) {
	ctx := context.Background()

	h.sessionService.ReportViolation(ctx, token, msg.ViolationType)

	status, err := h.sessionService.Heartbeat(ctx, &model.HeartbeatRequest{SessionToken: token})
	if err != nil {
		return
	}
	ws.WriteTyped(conn, ws.StatusResponse{Event: ws.EventStatus, Status: string(status)})
}

// handleEnd submits the exam and reports the terminal status.
func (h *WSHandler) handleEnd(conn *websocket.Conn, wsLog zerolog.Logger, token string) {
	ctx := context.Background()

	status, err := h.sessionService.End(ctx, token)
	if err != nil {
		wsLog.Warn().Err(err).Msg("End failed")
		ws.WriteError(conn, "end failed")
		return
	}

	wsLog.Info().Str("status", string(status)).Msg("Exam submitted over WebSocket")
	ws.WriteTyped(conn, ws.EndedResponse{Event: ws.EventEnded, Status: string(status)})
}
