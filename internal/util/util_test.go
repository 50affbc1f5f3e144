package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankMatches(t *testing.T) {
	titles := []string{"Server rules", "Build contest", "Rules for builds"}
	assert.Equal(t, []int{0, 1, 2}, RankMatches("", titles, 0))
	assert.Nil(t, RankMatches("zzz", titles, 0))

	got := RankMatches("rules", titles, 0)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []int{0, 2}, got)

	assert.Len(t, RankMatches("rules", titles, 1), 1)
	assert.Len(t, ScoreCompletions("rules", titles, 5), 2)
}

func TestNormalizeTimeRange(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	s, u, err := NormalizeTimeRange("", "", now)
	require.NoError(t, err)
	assert.True(t, s.IsZero())
	assert.True(t, u.IsZero())

	s, u, err = NormalizeTimeRange("1d", "2w", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-14*24*time.Hour), s)
	assert.Equal(t, now.Add(-24*time.Hour), u)

	s, _, err = NormalizeTimeRange("2025-06-01", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), s)

	_, _, err = NormalizeTimeRange("yesterday", "", now)
	assert.Error(t, err)
}

func TestInRange(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	assert.True(t, InRange(now, time.Time{}, time.Time{}))
	assert.True(t, InRange(now, now.Add(-time.Hour), now.Add(time.Hour)))
	assert.False(t, InRange(now, now.Add(time.Minute), time.Time{}))
	assert.False(t, InRange(now, time.Time{}, now.Add(-time.Minute)))
}
