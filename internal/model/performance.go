// Package model fits and samples per-player scoring distributions. A player's
// week-to-week scoring is modeled as a small Gaussian mixture whose components
// capture cold/normal/hot regimes; sampling is biased toward the regime the
// player is currently in.
package model

import (
	"errors"
	"math"
	"math/rand"
)

// ErrNoDefault is returned when a player has no score history and the caller
// supplied no default mean to fall back on.
var ErrNoDefault = errors.New("model: empty history and no default mean configured")

// StateLabel names a mixture component by its rank among the fitted means.
type StateLabel string

const (
	StateCold   StateLabel = "cold"
	StateNormal StateLabel = "normal"
	StateHot    StateLabel = "hot"
)

// State is one mixture component of a player's scoring distribution.
type State struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Weight   float64 `json:"weight"`
}

// FitConfig controls model fitting and sampling.
type FitConfig struct {
	// MaxStates caps the number of mixture components (nominal 3).
	MaxStates int
	// MinSamples is the observation count below which fitting degrades to a
	// single-state model.
	MinSamples int
	// VarianceFloor keeps every fitted variance strictly positive.
	VarianceFloor float64
	// RecentWindow is how many trailing scores identify the active state.
	RecentWindow int
	// ActiveBias is the probability a draw selects the active state outright;
	// the remainder is distributed across all states by fitted weight.
	ActiveBias float64
	// DefaultMean/DefaultStdDev parameterize the fallback model for players
	// with no history. DefaultMean <= 0 means no default is available.
	DefaultMean   float64
	DefaultStdDev float64
}

// DefaultFitConfig returns the documented defaults.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		MaxStates:     3,
		MinSamples:    3,
		VarianceFloor: 0.25,
		RecentWindow:  3,
		ActiveBias:    0.70,
	}
}

// PerformanceModel is a fitted per-player scoring distribution. States are
// ordered by ascending mean; Active indexes the state closest to the player's
// recent form.
type PerformanceModel struct {
	States     []State `json:"states"`
	Active     int     `json:"active"`
	SeasonAvg  float64 `json:"season_avg"`
	SeasonStd  float64 `json:"season_std"`
	ActiveBias float64 `json:"active_bias"`
	Degenerate bool    `json:"degenerate"`
}

// Fit builds a model from a player's weekly scores. It never fails on
// non-empty input: with fewer than cfg.MinSamples observations it degrades to
// a single-state Gaussian around the sample mean. Empty input uses the
// configured default mean, or returns ErrNoDefault when none is set.
func Fit(scores []float64, cfg FitConfig) (*PerformanceModel, error) {
	if cfg.MaxStates <= 0 {
		cfg = DefaultFitConfig()
	}

	if len(scores) == 0 {
		if cfg.DefaultMean <= 0 {
			return nil, ErrNoDefault
		}
		std := cfg.DefaultStdDev
		if std <= 0 {
			std = cfg.DefaultMean * 0.25
		}
		m := NewSingleState(cfg.DefaultMean, std*std, cfg)
		m.Degenerate = true
		return m, nil
	}

	avg := mean(scores)
	popVar := variance(scores, avg)

	if len(scores) < cfg.MinSamples {
		v := popVar
		if len(scores) < 2 {
			// single observation: fall back to a spread of 25% of the mean
			v = (avg * 0.25) * (avg * 0.25)
		}
		m := NewSingleState(avg, math.Max(v, cfg.VarianceFloor), cfg)
		m.Degenerate = true
		return m, nil
	}

	k := componentsFor(len(scores), cfg.MaxStates)
	var states []State
	if k == 1 {
		states = []State{{Mean: avg, Variance: math.Max(popVar, cfg.VarianceFloor), Weight: 1}}
	} else {
		states = fitMixture(scores, k, cfg.VarianceFloor)
	}

	m := &PerformanceModel{
		States:     states,
		SeasonAvg:  avg,
		SeasonStd:  math.Sqrt(popVar),
		ActiveBias: cfg.ActiveBias,
	}
	m.Active = m.closestState(mean(recent(scores, cfg.RecentWindow)))
	return m, nil
}

// NewSingleState builds a one-component model, used for degenerate fits,
// zero-history defaults, and tests that need a known distribution.
func NewSingleState(avg, variance float64, cfg FitConfig) *PerformanceModel {
	if cfg.ActiveBias <= 0 {
		cfg = DefaultFitConfig()
	}
	return &PerformanceModel{
		States:     []State{{Mean: avg, Variance: variance, Weight: 1}},
		Active:     0,
		SeasonAvg:  avg,
		SeasonStd:  math.Sqrt(variance),
		ActiveBias: cfg.ActiveBias,
	}
}

// componentsFor reduces the component count for players with limited data so
// the mixture never has more states than the data can support.
func componentsFor(n, max int) int {
	k := 1
	switch {
	case n >= 9:
		k = 3
	case n >= 5:
		k = 2
	}
	if k > max {
		k = max
	}
	return k
}

func (m *PerformanceModel) closestState(target float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, s := range m.States {
		d := math.Abs(s.Mean - target)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Mean returns the mixture expectation, ignoring the active-state bias.
func (m *PerformanceModel) Mean() float64 {
	total := 0.0
	for _, s := range m.States {
		total += s.Weight * s.Mean
	}
	return total
}

// ActiveLabel names the active state by its rank among the fitted means.
func (m *PerformanceModel) ActiveLabel() StateLabel {
	switch {
	case len(m.States) == 1:
		return StateNormal
	case m.Active == 0:
		return StateCold
	case m.Active == len(m.States)-1:
		return StateHot
	default:
		return StateNormal
	}
}

// SampleOne draws a single simulated weekly score. The active state is chosen
// with probability ActiveBias; otherwise a state is chosen by fitted weight.
// Draws are floored at zero since a scored week cannot be negative.
func (m *PerformanceModel) SampleOne(rng *rand.Rand) float64 {
	idx := m.Active
	if rng.Float64() >= m.ActiveBias {
		idx = m.pickWeighted(rng)
	}
	s := m.States[idx]
	v := rng.NormFloat64()*math.Sqrt(s.Variance) + s.Mean
	if v < 0 {
		v = 0
	}
	return v
}

// Sample draws n simulated weekly scores. n=0 yields an empty slice.
func (m *PerformanceModel) Sample(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = m.SampleOne(rng)
	}
	return out
}

func (m *PerformanceModel) pickWeighted(rng *rand.Rand) int {
	u := rng.Float64()
	cum := 0.0
	for i, s := range m.States {
		cum += s.Weight
		if u < cum {
			return i
		}
	}
	return len(m.States) - 1
}

func recent(scores []float64, n int) []float64 {
	if len(scores) <= n {
		return scores
	}
	return scores[len(scores)-n:]
}
