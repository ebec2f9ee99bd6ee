package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizdesk/quizdesk-backend/internal/model"
)

// QuizRepository exposes the small quiz surface this service needs:
// existence, ownership and display metadata. Authoring lives elsewhere.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// GetByID retrieves a quiz by ID.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, teacher_id, title, duration_minutes, created_at, updated_at
		 FROM quizzes WHERE id = $1`, id,
	).Scan(&q.ID, &q.TeacherID, &q.Title, &q.DurationMinutes, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// IsOwnedBy reports whether the quiz belongs to the given teacher.
func (r *QuizRepository) IsOwnedBy(ctx context.Context, quizID uuid.UUID, teacherID int) (bool, error) {
	var owned bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quizzes WHERE id = $1 AND teacher_id = $2)`,
		quizID, teacherID,
	).Scan(&owned)
	return owned, err
}

// Create inserts a quiz. Used by seed tooling and tests; the authoring
// service owns the full lifecycle.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO quizzes (id, teacher_id, title, duration_minutes)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		q.ID, q.TeacherID, q.Title, q.DurationMinutes,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
}
