// Package metrics exposes Prometheus metrics for the prediction core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SimulationsTotal counts simulation runs by kind ("matchup", "season").
	SimulationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "league_sim",
		Name:      "simulations_total",
		Help:      "Number of Monte Carlo simulation runs.",
	}, []string{"kind"})

	// SimulationDuration observes wall time per simulation run.
	SimulationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "league_sim",
		Name:      "simulation_duration_seconds",
		Help:      "Wall time of Monte Carlo simulation runs.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"kind"})

	// ModelFitsTotal counts performance model fits by outcome
	// ("mixture", "degenerate", "default", "error").
	ModelFitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "league_sim",
		Name:      "model_fits_total",
		Help:      "Number of player performance model fits.",
	}, []string{"outcome"})

	// CacheLookupsTotal counts model cache lookups by result
	// ("hit", "miss", "stale", "store_hit").
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "league_sim",
		Name:      "model_cache_lookups_total",
		Help:      "Number of model cache lookups.",
	}, []string{"result"})

	// TradeAnalysesTotal counts trade analyses by recommendation.
	TradeAnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "league_sim",
		Name:      "trade_analyses_total",
		Help:      "Number of trade proposals analyzed.",
	}, []string{"recommendation"})
)
