package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stitts-dev/league-sim/internal/model"
	"github.com/stitts-dev/league-sim/internal/types"
	"github.com/stitts-dev/league-sim/pkg/metrics"
)

// PlayoffRule orders teams into playoff seeds from end-of-season records.
// It returns at most slots team IDs, best seed first.
type PlayoffRule func(records []types.TeamRecord, slots int) []int

// DefaultPlayoffRule seeds the top teams by wins, breaking ties on points for.
func DefaultPlayoffRule(records []types.TeamRecord, slots int) []int {
	sorted := make([]types.TeamRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Wins != sorted[j].Wins {
			return sorted[i].Wins > sorted[j].Wins
		}
		return sorted[i].PointsFor > sorted[j].PointsFor
	})
	if slots > len(sorted) {
		slots = len(sorted)
	}
	seeds := make([]int, slots)
	for i := 0; i < slots; i++ {
		seeds[i] = sorted[i].TeamID
	}
	return seeds
}

// SeasonSimulator projects final standings by repeatedly simulating every
// remaining scheduled game. Each remaining matchup gets a single drawn
// outcome per trial; the full matchup distribution is never nested inside a
// season trial.
type SeasonSimulator struct {
	models  ModelProvider
	rule    PlayoffRule
	workers int
	seed    int64
	log     *logrus.Entry
}

// NewSeasonSimulator creates a season simulator. A nil rule uses
// DefaultPlayoffRule.
func NewSeasonSimulator(models ModelProvider, rule PlayoffRule, workers int, seed int64, log *logrus.Logger) *SeasonSimulator {
	if rule == nil {
		rule = DefaultPlayoffRule
	}
	if workers < 1 {
		workers = 1
	}
	return &SeasonSimulator{
		models:  models,
		rule:    rule,
		workers: workers,
		seed:    seed,
		log:     log.WithField("component", "season_simulator"),
	}
}

// seasonTally accumulates one worker's chunk of trials. Chunks are merged in
// chunk order after all workers finish, keeping aggregation independent of
// scheduling.
type seasonTally struct {
	winSum   map[int]float64
	playoffs map[int]int
	titles   map[int]int
}

func newSeasonTally(teamIDs []int) *seasonTally {
	t := &seasonTally{
		winSum:   make(map[int]float64, len(teamIDs)),
		playoffs: make(map[int]int, len(teamIDs)),
		titles:   make(map[int]int, len(teamIDs)),
	}
	for _, id := range teamIDs {
		t.winSum[id] = 0
	}
	return t
}

// ProjectSeason runs trials full-season simulations from the current
// standings and aggregates projected wins, playoff odds and championship odds
// per team.
func (s *SeasonSimulator) ProjectSeason(ctx context.Context, league types.LeagueState, schedule types.Schedule, trials int) (map[int]*types.SeasonProjection, error) {
	if trials <= 0 {
		return nil, fmt.Errorf("trial count must be positive, got %d", trials)
	}
	if len(league.Records) == 0 {
		return nil, fmt.Errorf("league has no teams")
	}

	start := time.Now()
	now := time.Now()

	teamModels := make(map[int][]*model.PerformanceModel, len(league.Rosters))
	teamIDs := make([]int, 0, len(league.Records))
	for _, rec := range league.Records {
		teamIDs = append(teamIDs, rec.TeamID)
		roster, ok := league.Rosters[rec.TeamID]
		if !ok {
			return nil, fmt.Errorf("no roster for team %d", rec.TeamID)
		}
		models, err := resolveModels(ctx, s.models, roster.Starters, now)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve models for %s: %w", roster.TeamName, err)
		}
		teamModels[rec.TeamID] = models
	}

	chunk := (trials + s.workers - 1) / s.workers
	numChunks := (trials + chunk - 1) / chunk
	tallies := make([]*seasonTally, numChunks)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < numChunks; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > trials {
			hi = trials
		}
		w, lo, hi := w, lo, hi
		g.Go(func() error {
			tally := newSeasonTally(teamIDs)
			for trial := lo; trial < hi; trial++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				s.runTrial(league, schedule, teamModels, trial, tally)
			}
			tallies[w] = tally
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	projections := make(map[int]*types.SeasonProjection, len(league.Records))
	for _, rec := range league.Records {
		projections[rec.TeamID] = &types.SeasonProjection{
			TeamID:      rec.TeamID,
			TeamName:    rec.TeamName,
			CurrentWins: rec.Wins,
		}
	}
	for _, tally := range tallies {
		for id, sum := range tally.winSum {
			projections[id].ProjectedWins += sum
		}
		for id, n := range tally.playoffs {
			projections[id].PlayoffOdds += float64(n)
		}
		for id, n := range tally.titles {
			projections[id].ChampionshipOdds += float64(n)
		}
	}
	for _, p := range projections {
		p.ProjectedWins /= float64(trials)
		p.PlayoffOdds /= float64(trials)
		p.ChampionshipOdds /= float64(trials)
	}

	elapsed := time.Since(start)
	metrics.SimulationsTotal.WithLabelValues("season").Inc()
	metrics.SimulationDuration.WithLabelValues("season").Observe(elapsed.Seconds())
	s.log.WithFields(logrus.Fields{
		"teams":          len(league.Records),
		"games":          len(schedule),
		"trials":         trials,
		"execution_time": elapsed,
	}).Info("Season projection completed")

	return projections, nil
}

// runTrial simulates one full remaining season. Every matchup draws fresh,
// independent samples from this trial's stream; equal totals award a win to
// neither side.
func (s *SeasonSimulator) runTrial(league types.LeagueState, schedule types.Schedule, teamModels map[int][]*model.PerformanceModel, trial int, tally *seasonTally) {
	rng := newTrialRNG(s.seed, trial)

	wins := make(map[int]int, len(league.Records))
	points := make(map[int]float64, len(league.Records))
	names := make(map[int]string, len(league.Records))
	for _, rec := range league.Records {
		wins[rec.TeamID] = rec.Wins
		points[rec.TeamID] = rec.PointsFor
		names[rec.TeamID] = rec.TeamName
	}

	for _, game := range schedule {
		home := teamTotal(teamModels[game.HomeTeamID], rng)
		away := teamTotal(teamModels[game.AwayTeamID], rng)
		points[game.HomeTeamID] += home
		points[game.AwayTeamID] += away
		if home > away {
			wins[game.HomeTeamID]++
		} else if away > home {
			wins[game.AwayTeamID]++
		}
	}

	records := make([]types.TeamRecord, 0, len(wins))
	for _, rec := range league.Records {
		records = append(records, types.TeamRecord{
			TeamID:    rec.TeamID,
			TeamName:  names[rec.TeamID],
			Wins:      wins[rec.TeamID],
			PointsFor: points[rec.TeamID],
		})
	}

	seeds := s.rule(records, league.PlayoffSlots)
	for id, w := range wins {
		tally.winSum[id] += float64(w)
	}
	for _, id := range seeds {
		tally.playoffs[id]++
	}
	if len(seeds) > 0 {
		champion := simulateBracket(seeds, teamModels, rng)
		tally.titles[champion]++
	}
}

// simulateBracket plays a single-elimination bracket, best seed against worst
// seed each round. A tied game advances the better seed; an odd team count
// gives the middle seed a bye.
func simulateBracket(seeds []int, teamModels map[int][]*model.PerformanceModel, rng *rand.Rand) int {
	round := seeds
	for len(round) > 1 {
		n := len(round)
		winners := make([]int, 0, (n+1)/2)
		for i := 0; i < n/2; i++ {
			a, b := round[i], round[n-1-i]
			if teamTotal(teamModels[a], rng) >= teamTotal(teamModels[b], rng) {
				winners = append(winners, a)
			} else {
				winners = append(winners, b)
			}
		}
		if n%2 == 1 {
			winners = append(winners, round[n/2])
		}
		round = winners
	}
	return round[0]
}
