package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrateAgainstSyntheticProvider(t *testing.T) {
	p := NewSyntheticProvider(1, nil)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	cal, err := Calibrate(context.Background(), p, "CL", from, asOf, expiry, 0.04)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cal.RealizedVol, 0.0)
	assert.GreaterOrEqual(t, cal.VRP, 0.0)
}

func TestCalibrateRejectsExpiryBeforeAsOf(t *testing.T) {
	p := NewSyntheticProvider(1, nil)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := Calibrate(context.Background(), p, "CL", from, asOf, expiry, 0.04)
	assert.Error(t, err)
}

func TestLocalCSVProviderFallsBackToSecondaryWhenFileMissing(t *testing.T) {
	secondary := NewSyntheticProvider(2, nil)
	p := NewLocalCSVProvider(t.TempDir(), secondary)

	bars, err := p.DailyBars(context.Background(), "CL",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotEmpty(t, bars)
}
