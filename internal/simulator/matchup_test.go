package simulator

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/stitts-dev/league-sim/internal/model"
	"github.com/stitts-dev/league-sim/internal/types"
)

// stubProvider serves fixed models by player ID.
type stubProvider struct {
	models map[string]*model.PerformanceModel
}

func (s stubProvider) ModelFor(_ context.Context, p types.Player, _ time.Time) (*model.PerformanceModel, error) {
	return s.models[p.ID], nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func singleStarterRoster(teamID int, name, playerID string) types.RosterSnapshot {
	return types.RosterSnapshot{
		TeamID:   teamID,
		TeamName: name,
		Starters: []types.Player{{ID: playerID, Name: playerID, Position: types.PositionQB}},
	}
}

func TestTrialSeedDerivesDistinctStreams(t *testing.T) {
	const base = int64(12345)

	seen := make(map[int64]bool)
	for trial := 0; trial < 1000; trial++ {
		seed := trialSeed(base, trial)
		assert.False(t, seen[seed], "trial %d reuses a seed", trial)
		seen[seed] = true
	}

	// the golden-ratio mix wraps rather than overflowing, so huge trial
	// indices still yield usable seeds
	assert.NotEqual(t, trialSeed(base, 1<<40), trialSeed(base, 1+1<<40))

	// adjacent trials produce diverging draws, not shifted copies
	a := newTrialRNG(base, 0).Float64()
	b := newTrialRNG(base, 1).Float64()
	assert.NotEqual(t, a, b)
}

func TestSimulateRejectsNonPositiveTrials(t *testing.T) {
	sim := NewMatchupSimulator(stubProvider{}, 4, 1, testLogger())
	_, err := sim.Simulate(context.Background(), types.RosterSnapshot{}, types.RosterSnapshot{}, 0)
	assert.Error(t, err)
}

func TestSimulateDeterministicAcrossWorkerCounts(t *testing.T) {
	provider := stubProvider{models: map[string]*model.PerformanceModel{
		"a": model.NewSingleState(110, 100, model.DefaultFitConfig()),
		"b": model.NewSingleState(100, 100, model.DefaultFitConfig()),
	}}
	rosterA := singleStarterRoster(1, "Alpha", "a")
	rosterB := singleStarterRoster(2, "Beta", "b")

	const seed = 12345
	serial := NewMatchupSimulator(provider, 1, seed, testLogger())
	parallel := NewMatchupSimulator(provider, 8, seed, testLogger())

	first, err := serial.Simulate(context.Background(), rosterA, rosterB, 5000)
	require.NoError(t, err)
	second, err := parallel.Simulate(context.Background(), rosterA, rosterB, 5000)
	require.NoError(t, err)

	assert.Equal(t, first.WinsA, second.WinsA)
	assert.Equal(t, first.WinsB, second.WinsB)
	assert.Equal(t, first.Pushes, second.Pushes)
	assert.Equal(t, first.TeamA.Mean, second.TeamA.Mean)
	assert.Equal(t, first.TeamB.P90, second.TeamB.P90)
}

func TestSimulateConvergesToClosedForm(t *testing.T) {
	// A ~ N(110, 100), B ~ N(100, 100): P(A wins) = Phi(10 / sqrt(200))
	provider := stubProvider{models: map[string]*model.PerformanceModel{
		"a": model.NewSingleState(110, 100, model.DefaultFitConfig()),
		"b": model.NewSingleState(100, 100, model.DefaultFitConfig()),
	}}
	sim := NewMatchupSimulator(provider, 4, 777, testLogger())

	result, err := sim.Simulate(context.Background(),
		singleStarterRoster(1, "Alpha", "a"),
		singleStarterRoster(2, "Beta", "b"),
		50000)
	require.NoError(t, err)

	expected := distuv.UnitNormal.CDF(10 / math.Sqrt(200))
	assert.InDelta(t, expected, result.WinProbabilityA, 0.01)
	assert.InDelta(t, 1-expected, result.WinProbabilityB, 0.01)
	assert.InDelta(t, 110.0, result.TeamA.Mean, 0.5)
	assert.InDelta(t, 100.0, result.TeamB.Mean, 0.5)
	assert.Less(t, result.TeamA.P10, result.TeamA.P90)
}

func TestSimulatePushPolicy(t *testing.T) {
	// zero variance makes every trial an exact tie
	provider := stubProvider{models: map[string]*model.PerformanceModel{
		"a": model.NewSingleState(100, 0, model.DefaultFitConfig()),
		"b": model.NewSingleState(100, 0, model.DefaultFitConfig()),
	}}
	sim := NewMatchupSimulator(provider, 2, 9, testLogger())

	result, err := sim.Simulate(context.Background(),
		singleStarterRoster(1, "Alpha", "a"),
		singleStarterRoster(2, "Beta", "b"),
		1000)
	require.NoError(t, err)

	assert.Equal(t, 1000, result.Pushes)
	assert.Zero(t, result.WinsA)
	assert.Zero(t, result.WinsB)
	// pushes leave the denominator empty, not a divide-by-zero
	assert.Zero(t, result.WinProbabilityA)
	assert.Zero(t, result.WinProbabilityB)
}

func TestSimulateEmptyLineupScoresZero(t *testing.T) {
	provider := stubProvider{models: map[string]*model.PerformanceModel{
		"a": model.NewSingleState(100, 25, model.DefaultFitConfig()),
	}}
	sim := NewMatchupSimulator(provider, 2, 5, testLogger())

	empty := types.RosterSnapshot{TeamID: 2, TeamName: "Empty"}
	result, err := sim.Simulate(context.Background(),
		singleStarterRoster(1, "Alpha", "a"), empty, 500)
	require.NoError(t, err)

	assert.Equal(t, 500, result.WinsA)
	assert.Zero(t, result.TeamB.Mean)
	assert.Zero(t, result.TeamB.StdDev)
}

func TestSimulateReportsProgress(t *testing.T) {
	provider := stubProvider{models: map[string]*model.PerformanceModel{
		"a": model.NewSingleState(100, 25, model.DefaultFitConfig()),
		"b": model.NewSingleState(90, 25, model.DefaultFitConfig()),
	}}
	sim := NewMatchupSimulator(provider, 2, 3, testLogger())

	var calls atomic.Int64
	var final atomic.Int64
	sim.OnProgress = func(completed, total int) {
		calls.Add(1)
		final.Store(int64(completed))
	}

	_, err := sim.Simulate(context.Background(),
		singleStarterRoster(1, "Alpha", "a"),
		singleStarterRoster(2, "Beta", "b"),
		3000)
	require.NoError(t, err)

	assert.Greater(t, calls.Load(), int64(0))
	assert.Equal(t, int64(3000), final.Load())
}

func TestSimulateHonorsCancellation(t *testing.T) {
	provider := stubProvider{models: map[string]*model.PerformanceModel{
		"a": model.NewSingleState(100, 25, model.DefaultFitConfig()),
		"b": model.NewSingleState(90, 25, model.DefaultFitConfig()),
	}}
	sim := NewMatchupSimulator(provider, 2, 3, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Simulate(ctx, singleStarterRoster(1, "Alpha", "a"),
		singleStarterRoster(2, "Beta", "b"), 100000)
	assert.ErrorIs(t, err, context.Canceled)
}
