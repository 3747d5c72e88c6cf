package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testF = 75.0
	testK = 75.0
	testT = 30.0 / 252.0
	testR = 0.05
	testV = 0.30
)

// Put-call parity: Call - Put = e^(-rT)(F-K) to 1e-6.
func TestPutCallParity(t *testing.T) {
	for _, k := range []float64{60, 70, 75, 80, 95} {
		call, err := Price(Call, testF, k, testT, testV, testR)
		require.NoError(t, err)
		put, err := Price(Put, testF, k, testT, testV, testR)
		require.NoError(t, err)

		want := math.Exp(-testR*testT) * (testF - k)
		assert.InDelta(t, want, call-put, 1e-6, "parity violated at K=%.2f", k)
	}
}

// Increasing implied vol must strictly increase both call and put price.
func TestMonotonicInVol(t *testing.T) {
	vols := []float64{0.10, 0.20, 0.30, 0.40, 0.50}
	var lastCall, lastPut float64
	for i, v := range vols {
		call, err := Price(Call, testF, testK, testT, v, testR)
		require.NoError(t, err)
		put, err := Price(Put, testF, testK, testT, v, testR)
		require.NoError(t, err)

		if i > 0 {
			assert.Greater(t, call, lastCall, "call price should increase with vol")
			assert.Greater(t, put, lastPut, "put price should increase with vol")
		}
		lastCall, lastPut = call, put
	}
}

func TestZeroTimeIsIntrinsic(t *testing.T) {
	call, err := Price(Call, 80, 75, 0, testV, testR)
	require.NoError(t, err)
	assert.Equal(t, 5.0, call)

	put, err := Price(Put, 70, 75, 0, testV, testR)
	require.NoError(t, err)
	assert.Equal(t, 5.0, put)
}

func TestZeroVolIsIntrinsic(t *testing.T) {
	call, err := Price(Call, 80, 75, testT, 0, testR)
	require.NoError(t, err)
	assert.Equal(t, 5.0, call)
}

func TestNegativeTimeIsError(t *testing.T) {
	_, err := Price(Call, testF, testK, -1, testV, testR)
	require.ErrorIs(t, err, ErrNegativeTime)

	_, err = ComputeGreeks(Call, testF, testK, -1, testV, testR)
	require.ErrorIs(t, err, ErrNegativeTime)
}

func TestImpliedVolRoundTrips(t *testing.T) {
	const trueVol = 0.27
	price, err := Price(Call, testF, testK, testT, trueVol, testR)
	require.NoError(t, err)

	iv, err := ImpliedVol(Call, testF, testK, testT, testR, price)
	require.NoError(t, err)
	assert.InDelta(t, trueVol, iv, 1e-4)
}

func TestGreeksDeltaSignAndBounds(t *testing.T) {
	g, err := ComputeGreeks(Call, testF, testK, testT, testV, testR)
	require.NoError(t, err)
	assert.True(t, g.Delta > 0 && g.Delta < 1)
	assert.True(t, g.Vega > 0)

	gp, err := ComputeGreeks(Put, testF, testK, testT, testV, testR)
	require.NoError(t, err)
	assert.True(t, gp.Delta < 0 && gp.Delta > -1)
}
