package basket_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/evdnx/gotsgrid/basket"
	"github.com/evdnx/gotsgrid/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSliceAveragePrice(t *testing.T) {
	b := basket.New(types.Long)
	require.NoError(t, b.AddSlice(0.01, 1.1000))
	require.NoError(t, b.AddSlice(0.02, 1.0950))
	require.NoError(t, b.AddSlice(0.04, 1.0900))

	assert.Equal(t, 3, b.Len())
	assert.InDelta(t, 0.07, b.TotalVolume(), 1e-12)
	want := (0.01*1.1000 + 0.02*1.0950 + 0.04*1.0900) / 0.07
	assert.InDelta(t, want, b.AveragePrice(), 1e-12)
}

func TestAveragePriceRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		b := basket.New(types.Short)
		var sumV, sumVP float64
		for i := 0; i < 1+rng.Intn(12); i++ {
			v := float64(1+rng.Intn(500)) / 100
			p := 100 + rng.Float64()*50
			require.NoError(t, b.AddSlice(v, p))
			sumV += v
			sumVP += v * p
		}
		assert.InDelta(t, sumVP/sumV, b.AveragePrice(), 1e-9)
		assert.InDelta(t, sumV, b.TotalVolume(), 1e-9)
	}
}

func TestAddSliceRejectsInvalid(t *testing.T) {
	b := basket.New(types.Long)
	require.NoError(t, b.AddSlice(1, 100))

	for _, tc := range []struct{ v, p float64 }{
		{0, 100}, {-1, 100}, {1, 0}, {1, -5},
		{1, math.Inf(1)}, {math.Inf(1), 100}, {1, math.Inf(-1)}, {1, math.NaN()},
	} {
		err := b.AddSlice(tc.v, tc.p)
		require.Error(t, err)
		assert.True(t, errors.Is(err, basket.ErrInvalidSlice))
		var ise *basket.InvalidSliceError
		require.True(t, errors.As(err, &ise))
		if !math.IsNaN(tc.v) {
			assert.Equal(t, tc.v, ise.Volume)
		}
	}
	assert.Equal(t, 1, b.Len(), "rejected slices must not change the ledger")
	assert.Equal(t, 100.0, b.AveragePrice())
}

func TestExtremePrice(t *testing.T) {
	long := basket.New(types.Long)
	short := basket.New(types.Short)
	for _, p := range []float64{100, 98, 103, 99} {
		require.NoError(t, long.AddSlice(1, p))
		require.NoError(t, short.AddSlice(1, p))
	}
	assert.Equal(t, 98.0, long.ExtremePrice(basket.Adverse))
	assert.Equal(t, 103.0, long.ExtremePrice(basket.Favorable))
	assert.Equal(t, 103.0, short.ExtremePrice(basket.Adverse))
	assert.Equal(t, 98.0, short.ExtremePrice(basket.Favorable))
}

func TestPnL(t *testing.T) {
	long := basket.New(types.Long)
	require.NoError(t, long.AddSlice(2, 100))
	assert.InDelta(t, 10.0, long.PnL(105), 1e-12)

	short := basket.New(types.Short)
	require.NoError(t, short.AddSlice(2, 100))
	assert.InDelta(t, -10.0, short.PnL(105), 1e-12)
}

func TestLiquidateClearsEverything(t *testing.T) {
	b := basket.New(types.Long)
	require.NoError(t, b.AddSlice(1, 100))
	b.Protection.Stop = 95
	b.Protection.TrailingActive = true

	b.Liquidate()
	assert.True(t, b.Empty())
	assert.Zero(t, b.TotalVolume())
	assert.Zero(t, b.AveragePrice())
	assert.Zero(t, b.ExtremePrice(basket.Adverse))
	assert.Equal(t, basket.Protection{}, b.Protection)
}

func TestRebuildSingleSyntheticSlice(t *testing.T) {
	b := basket.New(types.Short)
	require.NoError(t, b.AddSlice(1, 100))
	require.NoError(t, b.AddSlice(1, 102))

	require.NoError(t, b.Rebuild(3, 101.5))
	assert.Equal(t, []basket.Slice{{Volume: 3, Price: 101.5}}, b.Slices())
	assert.Equal(t, 101.5, b.AveragePrice())
	assert.Error(t, b.Rebuild(0, 101.5))
	assert.ErrorIs(t, b.Rebuild(3, math.Inf(1)), basket.ErrInvalidSlice)
	assert.ErrorIs(t, b.Rebuild(math.Inf(1), 101.5), basket.ErrInvalidSlice)
	assert.Equal(t, 101.5, b.AveragePrice(), "rejected rebuild must keep the ledger")
}

func TestSnapshotIsCopy(t *testing.T) {
	b := basket.New(types.Long)
	require.NoError(t, b.AddSlice(1, 100))
	snap := b.Snapshot()
	require.NoError(t, b.AddSlice(1, 90))

	assert.Equal(t, 1, snap.Slices)
	assert.Equal(t, 100.0, snap.Adverse)
	assert.Equal(t, 2, b.Snapshot().Slices)
	assert.NotEmpty(t, snap.ID)
}
