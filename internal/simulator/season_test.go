package simulator

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/stitts-dev/league-sim/internal/model"
	"github.com/stitts-dev/league-sim/internal/types"
)

func twoTeamLeague() (types.LeagueState, types.Schedule, stubProvider) {
	provider := stubProvider{models: map[string]*model.PerformanceModel{
		"a": model.NewSingleState(110, 100, model.DefaultFitConfig()),
		"b": model.NewSingleState(100, 100, model.DefaultFitConfig()),
	}}
	league := types.LeagueState{
		Season:       2025,
		CurrentWeek:  13,
		PlayoffSlots: 1,
		Records: []types.TeamRecord{
			{TeamID: 1, TeamName: "Alpha", Wins: 3, Losses: 9, PointsFor: 1200},
			{TeamID: 2, TeamName: "Beta", Wins: 2, Losses: 10, PointsFor: 1150},
		},
		Rosters: map[int]types.RosterSnapshot{
			1: singleStarterRoster(1, "Alpha", "a"),
			2: singleStarterRoster(2, "Beta", "b"),
		},
	}
	schedule := types.Schedule{{Week: 13, HomeTeamID: 1, AwayTeamID: 2}}
	return league, schedule, provider
}

func TestProjectSeasonRejectsNonPositiveTrials(t *testing.T) {
	league, schedule, provider := twoTeamLeague()
	sim := NewSeasonSimulator(provider, nil, 4, 1, testLogger())
	_, err := sim.ProjectSeason(context.Background(), league, schedule, 0)
	assert.Error(t, err)
}

func TestProjectSeasonMissingRoster(t *testing.T) {
	league, schedule, provider := twoTeamLeague()
	delete(league.Rosters, 2)

	sim := NewSeasonSimulator(provider, nil, 4, 1, testLogger())
	_, err := sim.ProjectSeason(context.Background(), league, schedule, 100)
	assert.Error(t, err)
}

func TestProjectSeasonSingleGameConsistency(t *testing.T) {
	league, schedule, provider := twoTeamLeague()
	sim := NewSeasonSimulator(provider, nil, 4, 42, testLogger())

	projections, err := sim.ProjectSeason(context.Background(), league, schedule, 5000)
	require.NoError(t, err)
	require.Len(t, projections, 2)

	alpha := projections[1]
	beta := projections[2]

	// one remaining game: projected wins are current wins plus win rate
	winRate := distuv.UnitNormal.CDF(10 / math.Sqrt(200))
	assert.InDelta(t, 3+winRate, alpha.ProjectedWins, 0.03)
	assert.InDelta(t, 2+(1-winRate), beta.ProjectedWins, 0.03)

	// exactly one playoff slot per trial
	assert.InDelta(t, 1.0, alpha.PlayoffOdds+beta.PlayoffOdds, 1e-9)
	// with a single seed the playoff team is the champion
	assert.InDelta(t, alpha.PlayoffOdds, alpha.ChampionshipOdds, 1e-9)
	assert.InDelta(t, beta.PlayoffOdds, beta.ChampionshipOdds, 1e-9)

	assert.Equal(t, 3, alpha.CurrentWins)
	assert.Greater(t, alpha.PlayoffOdds, beta.PlayoffOdds)
}

func TestProjectSeasonDeterministicAcrossWorkerCounts(t *testing.T) {
	league, schedule, provider := twoTeamLeague()

	serial := NewSeasonSimulator(provider, nil, 1, 42, testLogger())
	parallel := NewSeasonSimulator(provider, nil, 8, 42, testLogger())

	first, err := serial.ProjectSeason(context.Background(), league, schedule, 2000)
	require.NoError(t, err)
	second, err := parallel.ProjectSeason(context.Background(), league, schedule, 2000)
	require.NoError(t, err)

	for id := range first {
		assert.Equal(t, first[id].ProjectedWins, second[id].ProjectedWins)
		assert.Equal(t, first[id].PlayoffOdds, second[id].PlayoffOdds)
		assert.Equal(t, first[id].ChampionshipOdds, second[id].ChampionshipOdds)
	}
}

func TestDefaultPlayoffRuleSeeding(t *testing.T) {
	records := []types.TeamRecord{
		{TeamID: 1, Wins: 8, PointsFor: 1400},
		{TeamID: 2, Wins: 10, PointsFor: 1500},
		{TeamID: 3, Wins: 8, PointsFor: 1450},
		{TeamID: 4, Wins: 4, PointsFor: 1300},
	}

	seeds := DefaultPlayoffRule(records, 3)
	// wins first, points-for breaks the 8-win tie
	assert.Equal(t, []int{2, 3, 1}, seeds)

	// slots beyond the field are clamped
	assert.Len(t, DefaultPlayoffRule(records, 10), 4)
}

func TestSimulateBracketBestVsWorstPairing(t *testing.T) {
	// team 1 vastly stronger than everyone; zero variance removes randomness
	teamModels := map[int][]*model.PerformanceModel{
		1: {model.NewSingleState(200, 0, model.DefaultFitConfig())},
		2: {model.NewSingleState(100, 0, model.DefaultFitConfig())},
		3: {model.NewSingleState(90, 0, model.DefaultFitConfig())},
		4: {model.NewSingleState(80, 0, model.DefaultFitConfig())},
	}

	champion := simulateBracket([]int{1, 2, 3, 4}, teamModels, newTrialRNG(1, 0))
	assert.Equal(t, 1, champion)

	// odd field: middle seed takes the bye and the strongest still wins out
	champion = simulateBracket([]int{1, 2, 3}, teamModels, newTrialRNG(1, 1))
	assert.Equal(t, 1, champion)
}
