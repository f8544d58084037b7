package model

import (
	"math"
	"sort"
)

const (
	emMaxIterations = 200
	emTolerance     = 1e-6
)

// fitMixture runs expectation-maximization on 1-D score data for k components.
// Initialization is deterministic: the sorted data is split into k contiguous
// quantile groups, so repeated fits on the same history yield the same states.
// Returned states are ordered by ascending mean and every variance is floored.
func fitMixture(data []float64, k int, floor float64) []State {
	n := len(data)
	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)

	states := make([]State, k)
	for i := 0; i < k; i++ {
		lo := i * n / k
		hi := (i + 1) * n / k
		if hi <= lo {
			hi = lo + 1
		}
		group := sorted[lo:hi]
		m := mean(group)
		states[i] = State{
			Mean:     m,
			Variance: math.Max(variance(group, m), floor),
			Weight:   float64(hi-lo) / float64(n),
		}
	}

	resp := make([][]float64, n)
	for i := range resp {
		resp[i] = make([]float64, k)
	}

	prevLogLik := math.Inf(-1)
	for iter := 0; iter < emMaxIterations; iter++ {
		// E-step: responsibilities
		logLik := 0.0
		for i, x := range data {
			total := 0.0
			for j, s := range states {
				p := s.Weight * normalPDF(x, s.Mean, s.Variance)
				resp[i][j] = p
				total += p
			}
			if total < 1e-300 {
				// point is far from every component; assign uniformly
				for j := range resp[i] {
					resp[i][j] = 1.0 / float64(k)
				}
				total = 1
			} else {
				for j := range resp[i] {
					resp[i][j] /= total
				}
			}
			logLik += math.Log(total)
		}

		// M-step: update weights, means, variances
		for j := range states {
			sumR := 0.0
			sumRX := 0.0
			for i, x := range data {
				sumR += resp[i][j]
				sumRX += resp[i][j] * x
			}
			if sumR < 1e-9 {
				// collapsed component; reset to the overall distribution
				m := mean(data)
				states[j] = State{Mean: m, Variance: math.Max(variance(data, m), floor), Weight: 1.0 / float64(k)}
				continue
			}
			mu := sumRX / sumR
			sumRV := 0.0
			for i, x := range data {
				d := x - mu
				sumRV += resp[i][j] * d * d
			}
			states[j] = State{
				Mean:     mu,
				Variance: math.Max(sumRV/sumR, floor),
				Weight:   sumR / float64(n),
			}
		}
		normalizeWeights(states)

		if math.Abs(logLik-prevLogLik) < emTolerance {
			break
		}
		prevLogLik = logLik
	}

	sort.Slice(states, func(i, j int) bool { return states[i].Mean < states[j].Mean })
	normalizeWeights(states)
	return states
}

func normalizeWeights(states []State) {
	total := 0.0
	for _, s := range states {
		total += s.Weight
	}
	if total <= 0 {
		for i := range states {
			states[i].Weight = 1.0 / float64(len(states))
		}
		return
	}
	for i := range states {
		states[i].Weight /= total
	}
}

func normalPDF(x, mu, variance float64) float64 {
	d := x - mu
	return math.Exp(-d*d/(2*variance)) / math.Sqrt(2*math.Pi*variance)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is the population variance around m.
func variance(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}
