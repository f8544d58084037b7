package analyzer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/league-sim/internal/types"
	"github.com/stitts-dev/league-sim/pkg/metrics"
)

var (
	// ErrOverlappingPlayers means the given and received sets intersect.
	ErrOverlappingPlayers = errors.New("analyzer: given and received player sets overlap")
	// ErrPlayerNotOnRoster means a traded player is not on the claimed roster.
	ErrPlayerNotOnRoster = errors.New("analyzer: player not on claimed roster")
)

// acceptanceInput feeds the acceptance rule table.
type acceptanceInput struct {
	proposerDelta float64
	counterDelta  float64
	// counterLoss is the counterparty's loss relative to their pre-trade
	// roster value; zero when they gain.
	counterLoss float64
	margin      float64
	limit       float64
}

// acceptanceRule is one row of the ordered acceptance heuristic. Rules are
// evaluated top to bottom; the first match wins.
type acceptanceRule struct {
	name        string
	matches     func(in acceptanceInput) bool
	probability func(in acceptanceInput) float64
}

// acceptanceRules is the documented acceptance heuristic:
//
//  1. a delta margin beyond the imbalance limit caps acceptance at 10%
//  2. mutual gain lands in the 70-95% band, higher when gains are balanced
//  3. a counterparty that gains while the proposer does not accepts readily
//  4. otherwise acceptance steps down with the counterparty's relative loss:
//     <2% -> 60%, <5% -> 40%, <10% -> 20%, >=10% -> 5%
var acceptanceRules = []acceptanceRule{
	{
		name:        "large_imbalance",
		matches:     func(in acceptanceInput) bool { return in.margin > in.limit },
		probability: func(acceptanceInput) float64 { return 0.10 },
	},
	{
		name:    "mutual_gain",
		matches: func(in acceptanceInput) bool { return in.proposerDelta > 0 && in.counterDelta > 0 },
		probability: func(in acceptanceInput) float64 {
			lo, hi := in.proposerDelta, in.counterDelta
			if lo > hi {
				lo, hi = hi, lo
			}
			return 0.70 + 0.25*(lo/hi)
		},
	},
	{
		name:        "counterparty_gain",
		matches:     func(in acceptanceInput) bool { return in.counterDelta > 0 },
		probability: func(acceptanceInput) float64 { return 0.80 },
	},
	{
		name:        "slight_loss",
		matches:     func(in acceptanceInput) bool { return in.counterLoss < 0.02 },
		probability: func(acceptanceInput) float64 { return 0.60 },
	},
	{
		name:        "moderate_loss",
		matches:     func(in acceptanceInput) bool { return in.counterLoss < 0.05 },
		probability: func(acceptanceInput) float64 { return 0.40 },
	},
	{
		name:        "heavy_loss",
		matches:     func(in acceptanceInput) bool { return in.counterLoss < 0.10 },
		probability: func(acceptanceInput) float64 { return 0.20 },
	},
	{
		name:        "severe_loss",
		matches:     func(acceptanceInput) bool { return true },
		probability: func(acceptanceInput) float64 { return 0.05 },
	},
}

// AnalyzeTrade values both sides of a proposal and estimates the probability
// the counterparty accepts. Proposals whose player sets overlap or reference
// players missing from the claimed rosters are rejected with an error.
func (a *Analyzer) AnalyzeTrade(ctx context.Context, proposal types.TradeProposal) (*types.TradeAnalysis, error) {
	if err := validateProposal(proposal); err != nil {
		return nil, err
	}

	now := time.Now()
	all := append(proposal.Proposer.Players(), proposal.Counterparty.Players()...)
	stats, err := a.statsFor(ctx, all, now)
	if err != nil {
		return nil, err
	}

	proposerBefore := a.rosterValue(proposal.Proposer.Players(), stats)
	counterBefore := a.rosterValue(proposal.Counterparty.Players(), stats)

	proposerAfter := a.rosterValue(swap(proposal.Proposer.Players(), proposal.Give, proposal.Receive), stats)
	counterAfter := a.rosterValue(swap(proposal.Counterparty.Players(), proposal.Receive, proposal.Give), stats)

	proposerDelta := proposerAfter - proposerBefore
	counterDelta := counterAfter - counterBefore

	in := acceptanceInput{
		proposerDelta: proposerDelta,
		counterDelta:  counterDelta,
		margin:        math.Abs(proposerDelta - counterDelta),
		limit:         a.cfg.ImbalanceLimit,
	}
	if counterDelta < 0 && counterBefore > 0 {
		in.counterLoss = -counterDelta / counterBefore
	} else if counterDelta < 0 {
		in.counterLoss = 1
	}

	acceptance, ruleName := evaluateAcceptance(in)
	realistic := acceptance >= a.cfg.AcceptanceThreshold
	asymmetric := proposerDelta > counterDelta

	analysis := &types.TradeAnalysis{
		ProposerDelta:         proposerDelta,
		CounterpartyDelta:     counterDelta,
		AsymmetricAdvantage:   asymmetric,
		AdvantageMargin:       proposerDelta - counterDelta,
		AcceptanceProbability: acceptance,
		AcceptanceRule:        ruleName,
		Realistic:             realistic,
		Recommendation:        types.RecommendationReject,
		Classification:        types.TradeBalanced,
	}
	if proposerDelta > 0 && realistic {
		analysis.Recommendation = types.RecommendationAccept
		if asymmetric {
			analysis.Classification = types.TradeAsymmetricRealistic
		}
	} else if proposerDelta > 0 && asymmetric {
		analysis.Classification = types.TradeAsymmetricUnfair
	}

	metrics.TradeAnalysesTotal.WithLabelValues(string(analysis.Recommendation)).Inc()
	a.log.WithFields(logrus.Fields{
		"proposer_delta":     proposerDelta,
		"counterparty_delta": counterDelta,
		"acceptance":         acceptance,
		"rule":               ruleName,
		"recommendation":     analysis.Recommendation,
	}).Debug("Trade analyzed")

	return analysis, nil
}

// TradeTarget is one suggested proposal found by scanning a counterparty's
// roster.
type TradeTarget struct {
	Give     []types.Player      `json:"give"`
	Receive  []types.Player      `json:"receive"`
	Analysis types.TradeAnalysis `json:"analysis"`
}

// FindTradeTargets scans 1-for-1 and 2-for-1 swaps against another roster and
// returns the best proposals by advantage margin, keeping only those where the
// proposer gains at least minAdvantage and holds the asymmetric edge.
func (a *Analyzer) FindTradeTargets(ctx context.Context, mine, theirs types.RosterSnapshot, minAdvantage float64, limit int) ([]TradeTarget, error) {
	var targets []TradeTarget

	consider := func(give, receive []types.Player) error {
		analysis, err := a.AnalyzeTrade(ctx, types.TradeProposal{
			Proposer:     mine,
			Counterparty: theirs,
			Give:         give,
			Receive:      receive,
		})
		if err != nil {
			return err
		}
		if analysis.ProposerDelta > minAdvantage && analysis.AsymmetricAdvantage {
			targets = append(targets, TradeTarget{Give: give, Receive: receive, Analysis: *analysis})
		}
		return nil
	}

	myPlayers := mine.Players()
	theirPlayers := theirs.Players()
	for _, mp := range myPlayers {
		for _, tp := range theirPlayers {
			if err := consider([]types.Player{mp}, []types.Player{tp}); err != nil {
				return nil, err
			}
		}
	}
	for _, tp := range theirPlayers {
		for i := 0; i < len(myPlayers); i++ {
			for j := i + 1; j < len(myPlayers); j++ {
				if err := consider([]types.Player{myPlayers[i], myPlayers[j]}, []types.Player{tp}); err != nil {
					return nil, err
				}
			}
		}
	}

	sortTargets(targets)
	if limit > 0 && len(targets) > limit {
		targets = targets[:limit]
	}
	return targets, nil
}

func evaluateAcceptance(in acceptanceInput) (float64, string) {
	for _, rule := range acceptanceRules {
		if rule.matches(in) {
			return rule.probability(in), rule.name
		}
	}
	// the final rule always matches
	return 0.05, "severe_loss"
}

func validateProposal(p types.TradeProposal) error {
	giveIDs := make(map[string]bool, len(p.Give))
	for _, pl := range p.Give {
		giveIDs[pl.ID] = true
	}
	for _, pl := range p.Receive {
		if giveIDs[pl.ID] {
			return fmt.Errorf("%w: %s", ErrOverlappingPlayers, pl.Name)
		}
	}
	if err := onRoster(p.Proposer, p.Give); err != nil {
		return err
	}
	return onRoster(p.Counterparty, p.Receive)
}

func onRoster(roster types.RosterSnapshot, players []types.Player) error {
	ids := make(map[string]bool)
	for _, p := range roster.Players() {
		ids[p.ID] = true
	}
	for _, p := range players {
		if !ids[p.ID] {
			return fmt.Errorf("%w: %s is not on %s", ErrPlayerNotOnRoster, p.Name, roster.TeamName)
		}
	}
	return nil
}

// swap returns roster minus out plus in.
func swap(roster, out, in []types.Player) []types.Player {
	outIDs := make(map[string]bool, len(out))
	for _, p := range out {
		outIDs[p.ID] = true
	}
	result := make([]types.Player, 0, len(roster)-len(out)+len(in))
	for _, p := range roster {
		if !outIDs[p.ID] {
			result = append(result, p)
		}
	}
	return append(result, in...)
}

func sortTargets(targets []TradeTarget) {
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Analysis.AdvantageMargin > targets[j].Analysis.AdvantageMargin
	})
}
