package analyzer

import (
	"context"
	"sort"
	"time"

	"github.com/stitts-dev/league-sim/internal/types"
)

// RecommendOptions control free-agent ranking.
type RecommendOptions struct {
	// TopN truncates the ranked list; <= 0 keeps everything.
	TopN int
	// Positions filters candidates to the given positions when non-empty.
	Positions []types.Position
	// ExcludeInjured drops candidates whose availability is Unavailable.
	// Unknown statuses pass the filter (fail open).
	ExcludeInjured bool
}

// newPositionDiscount scales the value of a pickup at a position the roster
// does not yet carry, since it expands the roster instead of upgrading it.
const newPositionDiscount = 0.5

// RecommendFreeAgents ranks candidate pickups by the marginal value they add
// over the weakest roster player at their position. Ties rank the steadier
// player (lower recent spread) first.
func (a *Analyzer) RecommendFreeAgents(ctx context.Context, roster types.RosterSnapshot, candidates []types.Player, opts RecommendOptions) ([]types.FreeAgentRecommendation, error) {
	now := time.Now()

	filtered := make([]types.Player, 0, len(candidates))
	for _, c := range candidates {
		if opts.ExcludeInjured && !c.Availability.Playable() {
			continue
		}
		if len(opts.Positions) > 0 && !containsPosition(opts.Positions, c.Position) {
			continue
		}
		filtered = append(filtered, c)
	}

	rosterPlayers := roster.Players()
	stats, err := a.statsFor(ctx, append(rosterPlayers, filtered...), now)
	if err != nil {
		return nil, err
	}

	recs := make([]types.FreeAgentRecommendation, 0, len(filtered))
	for _, c := range filtered {
		candStats := stats[c.ID]

		drop, found := weakestAt(rosterPlayers, c.Position, stats)
		rec := types.FreeAgentRecommendation{
			Player:       c,
			Position:     c.Position,
			CandidateAvg: candStats.mean,
		}
		if found {
			rec.DropCandidate = drop.Name
			rec.DropAvg = stats[drop.ID].mean
			rec.ValueAdded = candStats.mean - rec.DropAvg
		} else {
			rec.ValueAdded = candStats.mean * newPositionDiscount
		}
		rec.Priority = priorityFor(rec.ValueAdded)
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].ValueAdded != recs[j].ValueAdded {
			return recs[i].ValueAdded > recs[j].ValueAdded
		}
		return stats[recs[i].Player.ID].std < stats[recs[j].Player.ID].std
	})

	if opts.TopN > 0 && len(recs) > opts.TopN {
		recs = recs[:opts.TopN]
	}
	return recs, nil
}

// weakestAt finds the lowest-valued roster player at a position.
func weakestAt(roster []types.Player, pos types.Position, stats map[string]playerStats) (types.Player, bool) {
	var weakest types.Player
	found := false
	for _, p := range roster {
		if p.Position != pos {
			continue
		}
		if !found || stats[p.ID].mean < stats[weakest.ID].mean {
			weakest = p
			found = true
		}
	}
	return weakest, found
}

func priorityFor(valueAdded float64) types.Priority {
	switch {
	case valueAdded >= 3.0:
		return types.PriorityHigh
	case valueAdded >= 1.0:
		return types.PriorityMedium
	default:
		return types.PriorityLow
	}
}

func containsPosition(positions []types.Position, pos types.Position) bool {
	for _, p := range positions {
		if p == pos {
			return true
		}
	}
	return false
}
