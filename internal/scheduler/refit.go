// Package scheduler runs the periodic refit sweep that keeps cached
// performance models warm instead of paying fit latency on lookups.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/league-sim/internal/modelcache"
	"github.com/stitts-dev/league-sim/internal/types"
)

// HistorySource loads the score history a refit needs.
type HistorySource interface {
	LoadHistory(ctx context.Context, playerID string, season int) (types.ScoreHistory, error)
}

// RefitScheduler re-fits stale cache entries on a cron schedule.
type RefitScheduler struct {
	cron   *cron.Cron
	cache  *modelcache.Cache
	source HistorySource
	ttl    time.Duration
	season int
	log    *logrus.Entry
	ctx    context.Context
}

// New creates a scheduler that sweeps entries older than ttl.
func New(ctx context.Context, cache *modelcache.Cache, source HistorySource, ttl time.Duration, season int, log *logrus.Entry) *RefitScheduler {
	return &RefitScheduler{
		cron:   cron.New(),
		cache:  cache,
		source: source,
		ttl:    ttl,
		season: season,
		log:    log,
		ctx:    ctx,
	}
}

// Register adds the sweep on the given cron spec (e.g. "@hourly").
func (s *RefitScheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return fmt.Errorf("register refit sweep: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *RefitScheduler) Start() {
	s.cron.Start()
	s.log.Info("Refit scheduler started")
}

// Stop stops the cron scheduler and waits for a running sweep to finish.
func (s *RefitScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Refit scheduler stopped")
}

// Sweep re-fits every cached model whose entry has gone stale. Players whose
// history cannot be loaded keep their stale entry; the next lookup retries.
func (s *RefitScheduler) Sweep() {
	now := time.Now()
	entries := s.cache.Entries()

	refit, failed := 0, 0
	for _, entry := range entries {
		if now.Sub(entry.FitTime) < s.ttl {
			continue
		}
		history, err := s.source.LoadHistory(s.ctx, entry.PlayerID, s.season)
		if err != nil {
			failed++
			s.log.WithError(err).WithField("player_id", entry.PlayerID).Warn("Refit sweep could not load history")
			continue
		}
		if _, err := s.cache.GetOrFit(s.ctx, entry.PlayerID, history.Points(), now); err != nil {
			failed++
			s.log.WithError(err).WithField("player_id", entry.PlayerID).Warn("Refit sweep fit failed")
			continue
		}
		refit++
	}

	s.log.WithFields(logrus.Fields{
		"entries": len(entries),
		"refit":   refit,
		"failed":  failed,
	}).Info("Refit sweep completed")
}
