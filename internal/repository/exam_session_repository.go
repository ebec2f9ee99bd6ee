package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizdesk/quizdesk-backend/internal/model"
)

// ErrDuplicateLiveSession is returned when an insert loses the race against
// the partial unique index on live (student, quiz) pairs.
var ErrDuplicateLiveSession = errors.New("a live session already exists for this student and quiz")

const sessionColumns = `id, token, student_id, quiz_id, status, total_questions,
	current_question_index, questions_answered, time_remaining_seconds,
	violations_count, last_violation_at, paused_by_teacher,
	started_at, last_activity_at, last_heartbeat_at`

// ExamSessionRepository handles exam session data access. All mutations are
// single guarded UPDATEs: the current status is compared in the WHERE clause
// so concurrent heartbeats and teacher control actions cannot interleave a
// stale read-modify-write.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(
		&s.ID, &s.Token, &s.StudentID, &s.QuizID, &s.Status, &s.TotalQuestions,
		&s.CurrentQuestionIndex, &s.QuestionsAnswered, &s.TimeRemainingSeconds,
		&s.ViolationsCount, &s.LastViolationAt, &s.PausedByTeacher,
		&s.StartedAt, &s.LastActivityAt, &s.LastHeartbeatAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new ACTIVE session. The partial unique index on live
// (student_id, quiz_id) pairs rejects concurrent duplicate starts; those
// surface as ErrDuplicateLiveSession so the caller can fetch the winner.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions
			(token, student_id, quiz_id, status, total_questions, time_remaining_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, started_at, last_activity_at, last_heartbeat_at`,
		s.Token, s.StudentID, s.QuizID, model.SessionStatusActive, s.TotalQuestions, s.TimeRemainingSeconds,
	).Scan(&s.ID, &s.StartedAt, &s.LastActivityAt, &s.LastHeartbeatAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateLiveSession
		}
		return err
	}
	s.Status = model.SessionStatusActive
	return nil
}

// GetByToken retrieves a session by its opaque token.
func (r *ExamSessionRepository) GetByToken(ctx context.Context, token string) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE token = $1`, token))
}

// GetLiveByPair retrieves the most recent live session for a (student, quiz)
// pair. The MAX(id) tie-break matters only during the brief duplicate window
// the sweeper repairs.
func (r *ExamSessionRepository) GetLiveByPair(ctx context.Context, studentID int, quizID uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE student_id = $1 AND quiz_id = $2 AND status IN ('ACTIVE', 'PAUSED')
		 ORDER BY id DESC
		 LIMIT 1`, studentID, quizID))
}

// Heartbeat applies a progress ping and returns the authoritative status.
//
// ACTIVE sessions absorb the supplied progress fields (absent fields keep
// their stored value via COALESCE, questions_answered is clamped to
// total_questions) and refresh both timestamps. PAUSED
// sessions refresh the liveness timestamp only, so progress stays frozen
// while the client polls for resume. Terminal sessions are read, never
// mutated. Each step is one guarded UPDATE, so a teacher pause landing
// between steps is observed rather than overwritten.
func (r *ExamSessionRepository) Heartbeat(ctx context.Context, token string, req *model.HeartbeatRequest) (model.SessionStatus, error) {
	var status model.SessionStatus

	err := r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET current_question_index = COALESCE($2, current_question_index),
		     questions_answered = LEAST(COALESCE($3, questions_answered), total_questions),
		     time_remaining_seconds = COALESCE($4, time_remaining_seconds),
		     last_activity_at = NOW(),
		     last_heartbeat_at = NOW()
		 WHERE token = $1 AND status = 'ACTIVE'
		 RETURNING status`,
		token, req.CurrentQuestionIndex, req.QuestionsAnswered, req.TimeRemainingSeconds,
	).Scan(&status)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	err = r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET last_heartbeat_at = NOW()
		 WHERE token = $1 AND status = 'PAUSED'
		 RETURNING status`, token,
	).Scan(&status)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	// Terminal or unknown. pgx.ErrNoRows here means the token never existed.
	err = r.pool.QueryRow(ctx,
		`SELECT status FROM exam_sessions WHERE token = $1`, token,
	).Scan(&status)
	if err != nil {
		return "", err
	}
	return status, nil
}

// Complete moves a live session to COMPLETED and returns the resulting
// status. An already-terminal session is returned unchanged so a repeated
// submit stays an idempotent ack.
func (r *ExamSessionRepository) Complete(ctx context.Context, token string) (model.SessionStatus, error) {
	var status model.SessionStatus

	err := r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET status = 'COMPLETED', last_activity_at = NOW(), last_heartbeat_at = NOW()
		 WHERE token = $1 AND status IN ('ACTIVE', 'PAUSED')
		 RETURNING status`, token,
	).Scan(&status)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	err = r.pool.QueryRow(ctx,
		`SELECT status FROM exam_sessions WHERE token = $1`, token,
	).Scan(&status)
	if err != nil {
		return "", err
	}
	return status, nil
}

// UpdateStatusByQuiz moves every session of a quiz from one status to
// another, reporting the count affected. Sessions not in the source status
// are untouched, which makes bulk pause/resume safe to retry.
func (r *ExamSessionRepository) UpdateStatusByQuiz(ctx context.Context, quizID uuid.UUID, from, to model.SessionStatus, pausedByTeacher bool) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $3, paused_by_teacher = $4
		 WHERE quiz_id = $1 AND status = $2`,
		quizID, from, to, pausedByTeacher)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpdateStatusByID moves a single session of a quiz from one status to
// another. The quiz_id guard keeps a teacher from touching sessions of
// quizzes they do not own even with a guessed session ID.
func (r *ExamSessionRepository) UpdateStatusByID(ctx context.Context, sessionID int64, quizID uuid.UUID, from, to model.SessionStatus, pausedByTeacher bool) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $4, paused_by_teacher = $5
		 WHERE id = $1 AND quiz_id = $2 AND status = $3`,
		sessionID, quizID, from, to, pausedByTeacher)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RecordViolation bumps the violation counter on a live session and
// refreshes liveness without touching status. Returns false when the token
// is unknown or terminal — callers treat that as a silent no-op.
func (r *ExamSessionRepository) RecordViolation(ctx context.Context, token string) (int64, uuid.UUID, bool, error) {
	var (
		sessionID int64
		quizID    uuid.UUID
	)
	err := r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET violations_count = violations_count + 1,
		     last_violation_at = NOW(),
		     last_heartbeat_at = NOW()
		 WHERE token = $1 AND status IN ('ACTIVE', 'PAUSED')
		 RETURNING id, quiz_id`, token,
	).Scan(&sessionID, &quizID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, uuid.Nil, false, nil
	}
	if err != nil {
		return 0, uuid.Nil, false, err
	}
	return sessionID, quizID, true, nil
}

// AbandonStale retires live sessions whose last heartbeat is older than the
// cutoff. A nil quizID sweeps every quiz.
func (r *ExamSessionRepository) AbandonStale(ctx context.Context, cutoff time.Time, quizID *uuid.UUID) (int64, error) {
	query := `UPDATE exam_sessions
		 SET status = 'ABANDONED'
		 WHERE status IN ('ACTIVE', 'PAUSED') AND last_heartbeat_at < $1`
	args := []any{cutoff}
	if quizID != nil {
		query += ` AND quiz_id = $2`
		args = append(args, *quizID)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AbandonDuplicates retires all but the newest live session per
// (student, quiz) pair. This repairs the brief window where two racing
// starts both slipped past the uniqueness check.
func (r *ExamSessionRepository) AbandonDuplicates(ctx context.Context, quizID *uuid.UUID) (int64, error) {
	query := `UPDATE exam_sessions
		 SET status = 'ABANDONED'
		 WHERE status IN ('ACTIVE', 'PAUSED')
		   AND id NOT IN (
			SELECT MAX(id) FROM exam_sessions
			WHERE status IN ('ACTIVE', 'PAUSED')
			GROUP BY student_id, quiz_id
		   )`
	var args []any
	if quizID != nil {
		query += ` AND quiz_id = $1`
		args = append(args, *quizID)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AbandonLivePair retires every live session for a (student, quiz) pair.
// Used when a fresh start supersedes a stale session.
func (r *ExamSessionRepository) AbandonLivePair(ctx context.Context, studentID int, quizID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = 'ABANDONED'
		 WHERE student_id = $1 AND quiz_id = $2 AND status IN ('ACTIVE', 'PAUSED')`,
		studentID, quizID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
