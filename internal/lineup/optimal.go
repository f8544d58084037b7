// Package lineup projects a roster's best starting lineup under a league's
// slot rules, used wherever starter/bench classification matters.
package lineup

import (
	"sort"

	"github.com/stitts-dev/league-sim/internal/types"
)

// ValueFunc scores a player for lineup selection purposes.
type ValueFunc func(types.Player) float64

// Optimal fills the lineup slots greedily in rule order, taking the
// highest-valued eligible remaining player for each slot. Flex-style slots
// (multiple eligible positions) therefore see only players left over after
// the dedicated slots, matching how managers actually fill lineups.
func Optimal(players []types.Player, rules types.LineupRules, value ValueFunc) []types.Player {
	remaining := make([]types.Player, len(players))
	copy(remaining, players)

	// stable value ordering, best first
	sort.SliceStable(remaining, func(i, j int) bool {
		return value(remaining[i]) > value(remaining[j])
	})

	var starters []types.Player
	for _, slot := range rules {
		for n := 0; n < slot.Count; n++ {
			idx := -1
			for i, p := range remaining {
				if eligible(p.Position, slot.Eligible) {
					idx = i
					break
				}
			}
			if idx < 0 {
				break // slot cannot be filled from this roster
			}
			starters = append(starters, remaining[idx])
			remaining = append(remaining[:idx], remaining[idx+1:]...)
		}
	}
	return starters
}

// StarterSet returns the IDs of players projected into the optimal lineup.
func StarterSet(players []types.Player, rules types.LineupRules, value ValueFunc) map[string]bool {
	set := make(map[string]bool)
	for _, p := range Optimal(players, rules, value) {
		set[p.ID] = true
	}
	return set
}

func eligible(pos types.Position, eligiblePositions []types.Position) bool {
	for _, e := range eligiblePositions {
		if pos == e {
			return true
		}
	}
	return false
}
