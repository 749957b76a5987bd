package service

import (
	"context"
	"time"

	"paynow-terminal-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// ExpirySweeper periodically expires pending intents whose deadline passed.
// It only ever narrows state: an intent the operator resolved between the
// scan and the expiry attempt is left alone.
type ExpirySweeper struct {
	store      ports.IntentStore
	dispatcher ports.Dispatcher
	interval   time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// NewExpirySweeper creates a sweeper. interval <= 0 selects 30 seconds.
func NewExpirySweeper(store ports.IntentStore, dispatcher ports.Dispatcher, interval time.Duration, log zerolog.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExpirySweeper{
		store:      store,
		dispatcher: dispatcher,
		interval:   interval,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run ticks until ctx is canceled. Intended as a dedicated goroutine.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep expires every overdue pending intent once. Races lost to operator
// resolutions are no-ops inside Expire, so sweeping is idempotent.
func (s *ExpirySweeper) Sweep(ctx context.Context) {
	ids, err := s.store.PendingExpiredBefore(ctx, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("expiry scan failed")
		return
	}

	for _, id := range ids {
		if err := s.dispatcher.Expire(ctx, id); err != nil {
			s.log.Error().Err(err).
				Str("intent_id", id.String()).
				Msg("expiring intent failed")
			continue
		}
		s.log.Info().
			Str("intent_id", id.String()).
			Msg("payment intent expired")
	}
}
