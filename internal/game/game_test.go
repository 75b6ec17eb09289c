package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelOf(t *testing.T) {
	tests := []struct {
		score int64
		want  int
	}{
		{-10, 1},
		{0, 1},
		{499, 1},
		{500, 2},
		{999, 2},
		{1000, 3},
		{29_499, 59},
		{29_500, 60},
		{1_000_000, MaxLevel},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, LevelOf(tc.score), "score %d", tc.score)
	}
}

func TestLevelOfMonotonicAndBounded(t *testing.T) {
	prev := LevelOf(0)
	for s := int64(0); s <= 40_000; s += 7 {
		l := LevelOf(s)
		require.GreaterOrEqual(t, l, prev, "level dropped at score %d", s)
		require.LessOrEqual(t, l, MaxLevel)
		prev = l
	}
}

func TestRankOf(t *testing.T) {
	assert.Equal(t, Ranks[0], RankOf(1))
	assert.Equal(t, Ranks[0], RankOf(5))
	assert.Equal(t, Ranks[1], RankOf(6))
	assert.Equal(t, Ranks[11], RankOf(MaxLevel))
	assert.Equal(t, Ranks[len(Ranks)-1], RankOf(1000))
	assert.Equal(t, Ranks[0], RankOf(0))

	level, rank := Standing(0)
	assert.Equal(t, 1, level)
	assert.Equal(t, Ranks[0], rank)

	level, _ = Standing(500)
	assert.Equal(t, 2, level)
}

func TestTryConsume(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	interval := 5 * time.Minute

	ok, remaining := TryConsume(time.Unix(0, 0).UTC(), interval, t0)
	assert.True(t, ok)
	assert.Zero(t, remaining)

	ok, remaining = TryConsume(t0, interval, t0.Add(interval-time.Second))
	assert.False(t, ok)
	assert.Equal(t, time.Second, remaining)

	ok, _ = TryConsume(t0, interval, t0.Add(interval))
	assert.True(t, ok)
}

func TestTierTable(t *testing.T) {
	all := Tiers()
	require.Len(t, all, MaxDeviceLevel)
	assert.Zero(t, all[0].UpgradeCost)
	assert.Equal(t, int64(50), all[1].UpgradeCost)
	assert.Equal(t, int64(110), all[2].UpgradeCost)

	for i := 1; i < len(all); i++ {
		assert.Equal(t, all[i-1].RatePerInterval*2, all[i].RatePerInterval)
		assert.Equal(t, all[i-1].Capacity*2, all[i].Capacity)
		if i > 1 {
			ratio := float64(all[i].UpgradeCost) / float64(all[i-1].UpgradeCost)
			assert.InDelta(t, 2.2, ratio, 0.01)
		}
	}

	_, ok := NextTier(MaxDeviceLevel)
	assert.False(t, ok)
	next, ok := NextTier(1)
	require.True(t, ok)
	assert.Equal(t, 2, next.Level)
}

func TestAccrueKeepsFractionalProgress(t *testing.T) {
	last := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	interval := 10 * time.Minute

	stored, next := Accrue(0, 1, 12, last, interval, last.Add(25*time.Minute))
	assert.Equal(t, 2.0, stored)
	assert.Equal(t, last.Add(20*time.Minute), next)

	// The five leftover minutes count toward the next interval.
	stored, next = Accrue(stored, 1, 12, next, interval, last.Add(30*time.Minute))
	assert.Equal(t, 3.0, stored)
	assert.Equal(t, last.Add(30*time.Minute), next)
}

func TestAccrueCapped(t *testing.T) {
	last := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	stored, _ := Accrue(12, 1, 12, last, time.Minute, last.Add(48*time.Hour))
	assert.Equal(t, 12.0, stored)

	stored, _ = Accrue(10, 4, 12, last, time.Minute, last.Add(time.Minute))
	assert.Equal(t, 12.0, stored)
}

func TestAccrueClockBackwards(t *testing.T) {
	last := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	stored, next := Accrue(3, 1, 12, last, time.Minute, last.Add(-time.Hour))
	assert.Equal(t, 3.0, stored)
	assert.Equal(t, last, next)
}

func TestWithdraw(t *testing.T) {
	assert.Equal(t, int64(0), Withdraw(0))
	assert.Equal(t, int64(0), Withdraw(-1))
	assert.Equal(t, int64(7), Withdraw(7.9))
}
