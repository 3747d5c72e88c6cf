package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeedsDefaultsToConfigSeed(t *testing.T) {
	seeds, err := parseSeeds("", 7)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7}, seeds)
}

func TestParseSeedsRange(t *testing.T) {
	seeds, err := parseSeeds("1-5", 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, seeds)
}

func TestParseSeedsCommaList(t *testing.T) {
	seeds, err := parseSeeds("3,7,9", 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 7, 9}, seeds)
}

func TestParseSeedsRejectsInvertedRange(t *testing.T) {
	_, err := parseSeeds("10-1", 0)
	assert.Error(t, err)
}
