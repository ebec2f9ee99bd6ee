package model

import (
	"time"

	"github.com/google/uuid"
)

// Student is the lightweight per-quiz student record. It is created on first
// session start if missing; grading and score fields are owned elsewhere.
type Student struct {
	ID         int       `json:"id"`
	QuizID     uuid.UUID `json:"quiz_id"`
	Identifier string    `json:"identifier"`
	Class      string    `json:"class"`
	CreatedAt  time.Time `json:"created_at"`
}
