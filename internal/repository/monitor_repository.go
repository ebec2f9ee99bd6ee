package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizdesk/quizdesk-backend/internal/model"
)

// MonitorRow is one student line on the teacher's live view: the latest
// session for the student joined with their identity.
type MonitorRow struct {
	SessionID            int64               `json:"session_id"`
	StudentID            int                 `json:"student_id"`
	StudentIdentifier    string              `json:"student_identifier"`
	StudentClass         string              `json:"student_class"`
	Status               model.SessionStatus `json:"status"`
	CurrentQuestionIndex int                 `json:"current_question_index"`
	QuestionsAnswered    int                 `json:"questions_answered"`
	TotalQuestions       int                 `json:"total_questions"`
	TimeRemainingSeconds int                 `json:"time_remaining_seconds"`
	ViolationsCount      int                 `json:"violations_count"`
	PausedByTeacher      bool                `json:"paused_by_teacher"`
	LastHeartbeatAt      time.Time           `json:"last_heartbeat_at"`
}

// MonitorRepository provides the read-side queries behind the teacher
// dashboard. Counts are always derived from the session rows on read; there
// is no separately-maintained counter to drift.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// ListActiveSessions returns the live, recently-heartbeating sessions of a
// quiz, one row per student. When a student has several historical sessions
// (reload after abandonment), only the MAX(id) one is joined so the teacher
// never sees duplicate or stale rows.
func (r *MonitorRepository) ListActiveSessions(ctx context.Context, quizID uuid.UUID, heartbeatAfter time.Time) ([]MonitorRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT es.id, s.id, s.identifier, s.class, es.status,
		        es.current_question_index, es.questions_answered, es.total_questions,
		        es.time_remaining_seconds, es.violations_count, es.paused_by_teacher,
		        es.last_heartbeat_at
		 FROM exam_sessions es
		 JOIN students s ON es.student_id = s.id
		 JOIN (
			SELECT student_id, MAX(id) AS latest_id
			FROM exam_sessions
			WHERE quiz_id = $1
			GROUP BY student_id
		 ) latest ON es.id = latest.latest_id
		 WHERE es.quiz_id = $1
		   AND es.status IN ('ACTIVE', 'PAUSED')
		   AND es.last_heartbeat_at >= $2
		 ORDER BY s.class ASC, s.identifier ASC`,
		quizID, heartbeatAfter,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MonitorRow
	for rows.Next() {
		var m MonitorRow
		if err := rows.Scan(
			&m.SessionID, &m.StudentID, &m.StudentIdentifier, &m.StudentClass, &m.Status,
			&m.CurrentQuestionIndex, &m.QuestionsAnswered, &m.TotalQuestions,
			&m.TimeRemainingSeconds, &m.ViolationsCount, &m.PausedByTeacher,
			&m.LastHeartbeatAt,
		); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// CompletionCounts returns the number of distinct students who completed the
// quiz and the number of distinct students who ever had a session for it.
func (r *MonitorRepository) CompletionCounts(ctx context.Context, quizID uuid.UUID) (completed, total int64, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			COUNT(DISTINCT student_id) FILTER (WHERE status = 'COMPLETED'),
			COUNT(DISTINCT student_id)
		 FROM exam_sessions
		 WHERE quiz_id = $1`, quizID,
	).Scan(&completed, &total)
	return completed, total, err
}
