// Package analyzer implements the decision layers on top of the prediction
// core: trade valuation and acceptance estimation, and free-agent ranking.
// Values are point estimates derived from fitted model means, not nested
// simulations.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/league-sim/internal/lineup"
	"github.com/stitts-dev/league-sim/internal/simulator"
	"github.com/stitts-dev/league-sim/internal/types"
)

// Config carries the documented valuation defaults.
type Config struct {
	// StarterWeight and BenchWeight scale a player's expected points by
	// whether they project into the roster's best lineup.
	StarterWeight float64
	BenchWeight   float64
	// AcceptanceThreshold is the minimum acceptance probability for a trade
	// to be considered realistic.
	AcceptanceThreshold float64
	// ImbalanceLimit is the absolute delta margin beyond which acceptance is
	// capped regardless of tier.
	ImbalanceLimit float64
	// Rules are the league's lineup slot rules.
	Rules types.LineupRules
}

// DefaultConfig returns the documented defaults: starter weight 1.0, bench
// weight 0.3, 30% realism threshold, 15-point imbalance cap.
func DefaultConfig() Config {
	return Config{
		StarterWeight:       1.0,
		BenchWeight:         0.3,
		AcceptanceThreshold: 0.30,
		ImbalanceLimit:      15.0,
		Rules:               types.DefaultLineupRules(),
	}
}

// Analyzer computes trade and free-agent valuations from fitted models.
type Analyzer struct {
	models simulator.ModelProvider
	cfg    Config
	log    *logrus.Entry
}

// New creates an analyzer.
func New(models simulator.ModelProvider, cfg Config, log *logrus.Logger) *Analyzer {
	if cfg.Rules == nil {
		cfg.Rules = types.DefaultLineupRules()
	}
	return &Analyzer{
		models: models,
		cfg:    cfg,
		log:    log.WithField("component", "analyzer"),
	}
}

// playerStats is the per-player point estimate used by the decision layers.
type playerStats struct {
	mean float64
	std  float64
}

// statsFor resolves expected value and recent spread for each player.
func (a *Analyzer) statsFor(ctx context.Context, players []types.Player, now time.Time) (map[string]playerStats, error) {
	stats := make(map[string]playerStats, len(players))
	for _, p := range players {
		if _, ok := stats[p.ID]; ok {
			continue
		}
		m, err := a.models.ModelFor(ctx, p, now)
		if err != nil {
			return nil, fmt.Errorf("failed to value player %s: %w", p.Name, err)
		}
		stats[p.ID] = playerStats{mean: m.Mean(), std: m.SeasonStd}
	}
	return stats, nil
}

// rosterValue computes a roster's aggregate value: projected starters at
// StarterWeight, everyone else at BenchWeight.
func (a *Analyzer) rosterValue(players []types.Player, stats map[string]playerStats) float64 {
	valueOf := func(p types.Player) float64 { return stats[p.ID].mean }
	starters := lineup.StarterSet(players, a.cfg.Rules, valueOf)

	total := 0.0
	for _, p := range players {
		if starters[p.ID] {
			total += a.cfg.StarterWeight * stats[p.ID].mean
		} else {
			total += a.cfg.BenchWeight * stats[p.ID].mean
		}
	}
	return total
}
