package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitMixtureTwoClusters(t *testing.T) {
	// two well-separated clusters around 5 and 25
	data := []float64{4, 5, 6, 4.5, 5.5, 24, 25, 26, 24.5, 25.5}

	states := fitMixture(data, 2, 0.25)
	require.Len(t, states, 2)

	// states come back ordered by mean
	assert.Less(t, states[0].Mean, states[1].Mean)
	assert.InDelta(t, 5.0, states[0].Mean, 1.0)
	assert.InDelta(t, 25.0, states[1].Mean, 1.0)

	totalWeight := states[0].Weight + states[1].Weight
	assert.InDelta(t, 1.0, totalWeight, 1e-9)
}

func TestFitMixtureVarianceFloor(t *testing.T) {
	// identical observations would fit zero variance without the floor
	data := []float64{10, 10, 10, 10, 10, 10}

	states := fitMixture(data, 2, 0.25)
	for _, s := range states {
		assert.GreaterOrEqual(t, s.Variance, 0.25)
	}
}

func TestFitMixtureDeterministic(t *testing.T) {
	data := []float64{3, 8, 12, 18, 7, 22, 5, 14, 19, 11, 6, 16}

	first := fitMixture(data, 3, 0.25)
	second := fitMixture(data, 3, 0.25)
	assert.Equal(t, first, second)
}

func TestFitMixtureWeightsSumToOne(t *testing.T) {
	data := []float64{2, 9, 15, 4, 11, 21, 7, 13, 18, 5, 10, 16, 8, 12}

	for _, k := range []int{1, 2, 3} {
		states := fitMixture(data, k, 0.25)
		require.Len(t, states, k)
		total := 0.0
		for _, s := range states {
			total += s.Weight
			assert.Greater(t, s.Variance, 0.0)
		}
		assert.InDelta(t, 1.0, total, 1e-9)
	}
}
