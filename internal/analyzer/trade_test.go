package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/league-sim/internal/model"
	"github.com/stitts-dev/league-sim/internal/types"
)

// stubModels serves fixed single-state models by player ID.
type stubModels map[string]float64

func (s stubModels) ModelFor(_ context.Context, p types.Player, _ time.Time) (*model.PerformanceModel, error) {
	return model.NewSingleState(s[p.ID], 4, model.DefaultFitConfig()), nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func rbwrRules() types.LineupRules {
	return types.LineupRules{
		{Eligible: []types.Position{types.PositionRB}, Count: 2},
		{Eligible: []types.Position{types.PositionWR}, Count: 2},
	}
}

func player(id string, pos types.Position) types.Player {
	return types.Player{ID: id, Name: id, Position: pos}
}

func TestEvaluateAcceptanceRules(t *testing.T) {
	tests := []struct {
		name         string
		in           acceptanceInput
		expectedRule string
		expectedProb float64
	}{
		{
			name:         "margin beyond limit caps acceptance",
			in:           acceptanceInput{proposerDelta: 15, counterDelta: -20, counterLoss: 0.2, margin: 35, limit: 15},
			expectedRule: "large_imbalance",
			expectedProb: 0.10,
		},
		{
			name:         "mutual gain scales with balance",
			in:           acceptanceInput{proposerDelta: 5, counterDelta: 3, margin: 2, limit: 15},
			expectedRule: "mutual_gain",
			expectedProb: 0.70 + 0.25*(3.0/5.0),
		},
		{
			name:         "counterparty gain accepts readily",
			in:           acceptanceInput{proposerDelta: -2, counterDelta: 4, margin: 6, limit: 15},
			expectedRule: "counterparty_gain",
			expectedProb: 0.80,
		},
		{
			name:         "slight loss",
			in:           acceptanceInput{proposerDelta: 1, counterDelta: -0.2, counterLoss: 0.01, margin: 1.2, limit: 15},
			expectedRule: "slight_loss",
			expectedProb: 0.60,
		},
		{
			name:         "moderate loss",
			in:           acceptanceInput{proposerDelta: 2, counterDelta: -1, counterLoss: 0.04, margin: 3, limit: 15},
			expectedRule: "moderate_loss",
			expectedProb: 0.40,
		},
		{
			name:         "heavy loss",
			in:           acceptanceInput{proposerDelta: 3, counterDelta: -2, counterLoss: 0.09, margin: 5, limit: 15},
			expectedRule: "heavy_loss",
			expectedProb: 0.20,
		},
		{
			name:         "severe loss",
			in:           acceptanceInput{proposerDelta: 4, counterDelta: -5, counterLoss: 0.15, margin: 9, limit: 15},
			expectedRule: "severe_loss",
			expectedProb: 0.05,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prob, rule := evaluateAcceptance(tt.in)
			assert.Equal(t, tt.expectedRule, rule)
			assert.InDelta(t, tt.expectedProb, prob, 1e-9)
		})
	}
}

func TestAnalyzeTradeMutualGainAccepted(t *testing.T) {
	// both rosters improve their optimal lineup by swapping bench depth
	models := stubModels{
		"r1": 10, "r2": 9, "r3": 8, "w1": 5, "w2": 4,
		"q1": 3, "q2": 2, "v1": 9, "v2": 8, "v3": 7,
	}
	cfg := DefaultConfig()
	cfg.Rules = rbwrRules()
	a := New(models, cfg, testLogger())

	proposer := types.RosterSnapshot{
		TeamID: 1, TeamName: "Proposer",
		Starters: []types.Player{
			player("r1", types.PositionRB), player("r2", types.PositionRB),
			player("w1", types.PositionWR), player("w2", types.PositionWR),
		},
		Bench: []types.Player{player("r3", types.PositionRB)},
	}
	counterparty := types.RosterSnapshot{
		TeamID: 2, TeamName: "Counterparty",
		Starters: []types.Player{
			player("q1", types.PositionRB), player("q2", types.PositionRB),
			player("v1", types.PositionWR), player("v2", types.PositionWR),
		},
		Bench: []types.Player{player("v3", types.PositionWR)},
	}

	analysis, err := a.AnalyzeTrade(context.Background(), types.TradeProposal{
		Proposer:     proposer,
		Counterparty: counterparty,
		Give:         []types.Player{player("r3", types.PositionRB)},
		Receive:      []types.Player{player("v3", types.PositionWR)},
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.8, analysis.ProposerDelta, 1e-9)
	assert.InDelta(t, 4.5, analysis.CounterpartyDelta, 1e-9)
	assert.Equal(t, "mutual_gain", analysis.AcceptanceRule)
	assert.InDelta(t, 0.80, analysis.AcceptanceProbability, 1e-9)
	assert.True(t, analysis.Realistic)
	assert.Equal(t, types.RecommendationAccept, analysis.Recommendation)
	assert.Equal(t, types.TradeBalanced, analysis.Classification)
	assert.False(t, analysis.AsymmetricAdvantage)
}

func TestAnalyzeTradeLopsidedRejected(t *testing.T) {
	models := stubModels{"p1": 20, "p2": 8, "c1": 18, "c2": 14}
	cfg := DefaultConfig()
	cfg.Rules = types.LineupRules{
		{Eligible: []types.Position{types.PositionQB}, Count: 1},
		{Eligible: []types.Position{types.PositionRB}, Count: 1},
	}
	a := New(models, cfg, testLogger())

	proposer := types.RosterSnapshot{
		TeamID: 1, TeamName: "Proposer",
		Starters: []types.Player{player("p1", types.PositionQB), player("p2", types.PositionRB)},
	}
	counterparty := types.RosterSnapshot{
		TeamID: 2, TeamName: "Counterparty",
		Starters: []types.Player{player("c1", types.PositionQB), player("c2", types.PositionRB)},
	}

	analysis, err := a.AnalyzeTrade(context.Background(), types.TradeProposal{
		Proposer:     proposer,
		Counterparty: counterparty,
		Give:         []types.Player{player("p2", types.PositionRB)},
		Receive:      []types.Player{player("c2", types.PositionRB)},
	})
	require.NoError(t, err)

	// counterparty loses 6 of 32 points of roster value
	assert.InDelta(t, 6.0, analysis.ProposerDelta, 1e-9)
	assert.InDelta(t, -6.0, analysis.CounterpartyDelta, 1e-9)
	assert.Equal(t, "severe_loss", analysis.AcceptanceRule)
	assert.InDelta(t, 0.05, analysis.AcceptanceProbability, 1e-9)
	assert.False(t, analysis.Realistic)
	assert.Equal(t, types.RecommendationReject, analysis.Recommendation)
	assert.Equal(t, types.TradeAsymmetricUnfair, analysis.Classification)
	assert.True(t, analysis.AsymmetricAdvantage)
}

func TestAnalyzeTradeValidation(t *testing.T) {
	models := stubModels{"p1": 10, "c1": 10}
	a := New(models, DefaultConfig(), testLogger())

	proposer := types.RosterSnapshot{
		TeamID: 1, TeamName: "Proposer",
		Starters: []types.Player{player("p1", types.PositionRB)},
	}
	counterparty := types.RosterSnapshot{
		TeamID: 2, TeamName: "Counterparty",
		Starters: []types.Player{player("c1", types.PositionRB)},
	}

	t.Run("overlapping player sets", func(t *testing.T) {
		_, err := a.AnalyzeTrade(context.Background(), types.TradeProposal{
			Proposer:     proposer,
			Counterparty: counterparty,
			Give:         []types.Player{player("p1", types.PositionRB)},
			Receive:      []types.Player{player("p1", types.PositionRB)},
		})
		assert.ErrorIs(t, err, ErrOverlappingPlayers)
	})

	t.Run("player not on roster", func(t *testing.T) {
		_, err := a.AnalyzeTrade(context.Background(), types.TradeProposal{
			Proposer:     proposer,
			Counterparty: counterparty,
			Give:         []types.Player{player("ghost", types.PositionRB)},
			Receive:      []types.Player{player("c1", types.PositionRB)},
		})
		assert.ErrorIs(t, err, ErrPlayerNotOnRoster)
	})
}

func TestFindTradeTargets(t *testing.T) {
	models := stubModels{"m1": 5, "m2": 4, "t1": 12, "t2": 3}
	cfg := DefaultConfig()
	cfg.Rules = types.LineupRules{
		{Eligible: []types.Position{types.PositionRB}, Count: 2},
	}
	a := New(models, cfg, testLogger())

	mine := types.RosterSnapshot{
		TeamID: 1, TeamName: "Mine",
		Starters: []types.Player{player("m1", types.PositionRB), player("m2", types.PositionRB)},
	}
	theirs := types.RosterSnapshot{
		TeamID: 2, TeamName: "Theirs",
		Starters: []types.Player{player("t1", types.PositionRB), player("t2", types.PositionRB)},
	}

	targets, err := a.FindTradeTargets(context.Background(), mine, theirs, 1.0, 5)
	require.NoError(t, err)
	require.NotEmpty(t, targets)

	// best advantage margin first
	for i := 1; i < len(targets); i++ {
		assert.GreaterOrEqual(t,
			targets[i-1].Analysis.AdvantageMargin,
			targets[i].Analysis.AdvantageMargin)
	}
	for _, target := range targets {
		assert.Greater(t, target.Analysis.ProposerDelta, 1.0)
		assert.True(t, target.Analysis.AsymmetricAdvantage)
	}

	limited, err := a.FindTradeTargets(context.Background(), mine, theirs, 1.0, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
