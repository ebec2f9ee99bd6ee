package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/quizdesk/quizdesk-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// MonitorNotifier fans session events out to Redis: the violation persist
// queue drained by the worker, and the per-quiz pub/sub channel consumed by
// the SSE monitor stream. Everything here is best-effort — a Redis outage
// must never fail a student's exam flow.
type MonitorNotifier struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewMonitorNotifier creates a new MonitorNotifier.
func NewMonitorNotifier(rdb *redis.Client, log zerolog.Logger) *MonitorNotifier {
	return &MonitorNotifier{
		rdb: rdb,
		log: log.With().Str("component", "monitor_notifier").Logger(),
	}
}

// ViolationPayload is the queue entry consumed by the violation worker.
type ViolationPayload struct {
	SessionID     int64  `json:"session_id"`
	ViolationType string `json:"violation_type"`
	Timestamp     int64  `json:"timestamp"`
}

// EnqueueViolation pushes an event onto the persist queue.
func (n *MonitorNotifier) EnqueueViolation(ctx context.Context, sessionID int64, violationType string, at time.Time) {
	if n == nil || n.rdb == nil {
		return
	}
	data, _ := json.Marshal(ViolationPayload{
		SessionID:     sessionID,
		ViolationType: violationType,
		Timestamp:     at.Unix(),
	})
	if err := n.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data).Err(); err != nil {
		n.log.Warn().Err(err).Int64("session_id", sessionID).Msg("Failed to enqueue violation event")
	}
}

// PublishQuizEvent publishes a compact event to the quiz monitor channel so
// attached SSE streams refresh ahead of their ticker.
func (n *MonitorNotifier) PublishQuizEvent(ctx context.Context, quizID uuid.UUID, eventType string, sessionID int64) {
	if n == nil || n.rdb == nil {
		return
	}
	data, _ := json.Marshal(map[string]interface{}{
		"type":       eventType,
		"session_id": sessionID,
	})
	channel := config.CacheKey.QuizMonitorChannel(quizID.String())
	if err := n.rdb.Publish(ctx, channel, data).Err(); err != nil {
		n.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Failed to publish monitor event")
	}
}
