package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SweeperStore is the cleanup surface the sweeper needs.
// *repository.ExamSessionRepository satisfies it.
type SweeperStore interface {
	AbandonStale(ctx context.Context, cutoff time.Time, quizID *uuid.UUID) (int64, error)
	AbandonDuplicates(ctx context.Context, quizID *uuid.UUID) (int64, error)
}

// SweepResult reports how many sessions each pass retired.
type SweepResult struct {
	StaleAbandoned     int64 `json:"stale_abandoned"`
	DuplicateAbandoned int64 `json:"duplicate_abandoned"`
}

// SweeperService retires sessions that went silent past the abandon timeout
// and resolves any duplicate live sessions the unique index let through
// historically. Runs on a background ticker and on demand via the internal
// sweep endpoint.
type SweeperService struct {
	sessions       SweeperStore
	abandonTimeout time.Duration
	log            zerolog.Logger
}

// NewSweeperService creates a new SweeperService.
func NewSweeperService(sessions SweeperStore, abandonTimeout time.Duration, log zerolog.Logger) *SweeperService {
	return &SweeperService{
		sessions:       sessions,
		abandonTimeout: abandonTimeout,
		log:            log.With().Str("component", "sweeper_service").Logger(),
	}
}

// Sweep runs both cleanup passes. A nil quizID sweeps every quiz.
func (s *SweeperService) Sweep(ctx context.Context, quizID *uuid.UUID) (*SweepResult, error) {
	cutoff := time.Now().Add(-s.abandonTimeout)

	stale, err := s.sessions.AbandonStale(ctx, cutoff, quizID)
	if err != nil {
		return nil, fmt.Errorf("abandon stale sessions: %w", err)
	}

	dupes, err := s.sessions.AbandonDuplicates(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("abandon duplicate sessions: %w", err)
	}

	if stale > 0 || dupes > 0 {
		s.log.Info().
			Int64("stale", stale).
			Int64("duplicates", dupes).
			Msg("Sweep retired sessions")
	}

	return &SweepResult{StaleAbandoned: stale, DuplicateAbandoned: dupes}, nil
}
