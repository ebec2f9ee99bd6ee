package model

import (
	"time"

	"github.com/google/uuid"
)

// Quiz is the minimal quiz surface this service needs: identity, ownership
// and display metadata. Authoring and question storage live elsewhere.
type Quiz struct {
	ID              uuid.UUID `json:"id"`
	TeacherID       int       `json:"teacher_id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
