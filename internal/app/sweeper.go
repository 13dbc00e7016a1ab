package app

import (
	"context"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultSweepInterval = time.Hour

// Sweeper periodically evicts stale meeting metadata.
type Sweeper struct {
	Meetings *MeetingStore
	Rooms    RoomGuard
	Interval time.Duration
	Now      func() time.Time
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Str("module", "app.sweeper").Dur("interval", interval).Dur("ttl", s.Meetings.TTL()).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("sweeper stopped")
			return nil
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

func (s *Sweeper) SweepOnce() []domain.RoomCode {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	evicted := s.Meetings.EvictStale(now, s.Rooms)
	log.Debug().Str("module", "app.sweeper").Int("evicted", len(evicted)).Int("remaining", s.Meetings.Len()).Msg("sweep done")
	return evicted
}
