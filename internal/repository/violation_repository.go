package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizdesk/quizdesk-backend/internal/model"
)

// ViolationRepository persists the per-event anti-cheat trail. The running
// counter lives on the session row; this table is fed off the request path
// by the violation worker.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// BulkInsert writes a batch of events via COPY.
func (r *ViolationRepository) BulkInsert(ctx context.Context, events []*model.ViolationEvent) error {
	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, []interface{}{e.SessionID, e.ViolationType, e.RecordedAt})
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"violation_events"},
		[]string{"session_id", "violation_type", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert writes a single event. Fallback path when a bulk COPY fails.
func (r *ViolationRepository) Insert(ctx context.Context, e *model.ViolationEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO violation_events (session_id, violation_type, recorded_at)
		 VALUES ($1, $2, $3)`,
		e.SessionID, e.ViolationType, e.RecordedAt)
	return err
}

// ListBySession returns the recorded events for a session, newest first.
// The quiz_id join guards against reading another quiz's trail with a
// guessed session ID.
func (r *ViolationRepository) ListBySession(ctx context.Context, quizID uuid.UUID, sessionID int64, limit int) ([]model.ViolationEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT v.id, v.session_id, v.violation_type, v.recorded_at
		 FROM violation_events v
		 JOIN exam_sessions es ON v.session_id = es.id
		 WHERE v.session_id = $1 AND es.quiz_id = $2
		 ORDER BY v.recorded_at DESC
		 LIMIT $3`, sessionID, quizID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ViolationEvent
	for rows.Next() {
		var e model.ViolationEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ViolationType, &e.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
