package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizdesk/quizdesk-backend/internal/model"
)

// StudentRepository handles the lightweight per-quiz student records.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetOrCreate returns the student identified by (quizID, identifier),
// creating the record on first contact. The upsert keeps concurrent first
// starts from racing to duplicate rows; class is refreshed on conflict so a
// corrected class name on reload wins.
func (r *StudentRepository) GetOrCreate(ctx context.Context, quizID uuid.UUID, identifier, class string) (*model.Student, error) {
	s := &model.Student{QuizID: quizID, Identifier: identifier, Class: class}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (quiz_id, identifier, class)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (quiz_id, identifier) DO UPDATE SET class = EXCLUDED.class
		 RETURNING id, created_at`,
		quizID, identifier, class,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, quiz_id, identifier, class, created_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.QuizID, &s.Identifier, &s.Class, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
