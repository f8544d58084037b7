package simulator

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/league-sim/internal/types"
	"github.com/stitts-dev/league-sim/pkg/metrics"
)

// progressStep is how many trials each worker completes between progress
// callbacks and cancellation checks.
const progressStep = 512

// ProgressFunc receives completion updates during a long simulation run.
type ProgressFunc func(completed, total int)

// MatchupSimulator runs head-to-head Monte Carlo matchup simulations.
//
// Push policy: trials where both totals are exactly equal count for neither
// side and are excluded from the win-probability denominator, i.e.
// P(A) = winsA / (trials - pushes).
type MatchupSimulator struct {
	models  ModelProvider
	workers int
	seed    int64
	log     *logrus.Entry

	// OnProgress, when set, is called periodically with completed trials.
	// It must be safe for concurrent use.
	OnProgress ProgressFunc
}

// NewMatchupSimulator creates a matchup simulator with the given worker count
// and base seed.
func NewMatchupSimulator(models ModelProvider, workers int, seed int64, log *logrus.Logger) *MatchupSimulator {
	if workers < 1 {
		workers = 1
	}
	return &MatchupSimulator{
		models:  models,
		workers: workers,
		seed:    seed,
		log:     log.WithField("component", "matchup_simulator"),
	}
}

// Simulate runs trials independent matchup simulations between two rosters.
// Only starters score; bench players are excluded. An empty starting lineup
// produces a zero-score side rather than an error.
func (s *MatchupSimulator) Simulate(ctx context.Context, rosterA, rosterB types.RosterSnapshot, trials int) (*types.MatchupResult, error) {
	if trials <= 0 {
		return nil, fmt.Errorf("trial count must be positive, got %d", trials)
	}

	start := time.Now()
	now := time.Now()

	modelsA, err := resolveModels(ctx, s.models, rosterA.Starters, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve models for %s: %w", rosterA.TeamName, err)
	}
	modelsB, err := resolveModels(ctx, s.models, rosterB.Starters, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve models for %s: %w", rosterB.TeamName, err)
	}

	totalsA := make([]float64, trials)
	totalsB := make([]float64, trials)

	var completed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	chunk := (trials + s.workers - 1) / s.workers
	for w := 0; w < s.workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > trials {
			hi = trials
		}
		if lo >= hi {
			break
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if (i-lo)%progressStep == 0 {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
					if s.OnProgress != nil && i > lo {
						s.OnProgress(int(completed.Load()), trials)
					}
				}
				rng := newTrialRNG(s.seed, i)
				totalsA[i] = teamTotal(modelsA, rng)
				totalsB[i] = teamTotal(modelsB, rng)
				completed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if s.OnProgress != nil {
		s.OnProgress(trials, trials)
	}

	result := tabulateMatchup(totalsA, totalsB)
	result.ExecutionTime = time.Since(start)

	metrics.SimulationsTotal.WithLabelValues("matchup").Inc()
	metrics.SimulationDuration.WithLabelValues("matchup").Observe(result.ExecutionTime.Seconds())
	s.log.WithFields(logrus.Fields{
		"team_a":         rosterA.TeamName,
		"team_b":         rosterB.TeamName,
		"trials":         trials,
		"win_prob_a":     result.WinProbabilityA,
		"pushes":         result.Pushes,
		"execution_time": result.ExecutionTime,
	}).Info("Matchup simulation completed")

	return result, nil
}

// tabulateMatchup aggregates per-trial totals into a MatchupResult. The
// output depends only on the totals slices, never on execution order.
func tabulateMatchup(totalsA, totalsB []float64) *types.MatchupResult {
	trials := len(totalsA)
	winsA, winsB, pushes := 0, 0, 0
	for i := 0; i < trials; i++ {
		switch {
		case totalsA[i] > totalsB[i]:
			winsA++
		case totalsB[i] > totalsA[i]:
			winsB++
		default:
			pushes++
		}
	}

	result := &types.MatchupResult{
		Trials: trials,
		WinsA:  winsA,
		WinsB:  winsB,
		Pushes: pushes,
		TeamA:  summarize(totalsA),
		TeamB:  summarize(totalsB),
	}
	if decided := trials - pushes; decided > 0 {
		result.WinProbabilityA = float64(winsA) / float64(decided)
		result.WinProbabilityB = float64(winsB) / float64(decided)
	}
	return result
}

// summarize computes the mean, standard deviation and empirical 10th/90th
// percentile band of one side's trial totals.
func summarize(totals []float64) types.TeamDistribution {
	sorted := make([]float64, len(totals))
	copy(sorted, totals)
	sort.Float64s(sorted)

	return types.TeamDistribution{
		Mean:   stat.Mean(totals, nil),
		StdDev: stat.StdDev(totals, nil),
		P10:    stat.Quantile(0.10, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.90, stat.Empirical, sorted, nil),
	}
}
