package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/quizdesk/quizdesk-backend/internal/service"
)

// SweeperWorker runs the abandonment sweep on a fixed interval across all
// quizzes. Clients that close the tab never send an end request, so this is
// what eventually retires their sessions.
type SweeperWorker struct {
	sweeperService *service.SweeperService
	interval       time.Duration
	log            zerolog.Logger
}

func NewSweeperWorker(sweeperService *service.SweeperService, interval time.Duration, log zerolog.Logger) *SweeperWorker {
	return &SweeperWorker{
		sweeperService: sweeperService,
		interval:       interval,
		log:            log.With().Str("component", "sweeper_worker").Logger(),
	}
}

func (w *SweeperWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("SweeperWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("SweeperWorker stopping")
			return
		case <-ticker.C:
			if _, err := w.sweeperService.Sweep(ctx, nil); err != nil {
				w.log.Error().Err(err).Msg("Sweep failed")
			}
		}
	}
}
