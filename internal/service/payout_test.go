package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakepot/arena-server-go/internal/model"
	"github.com/stakepot/arena-server-go/internal/money"
)

func scoredAttempt(id string, score float64) model.Attempt {
	return model.Attempt{ID: id, Score: &score}
}

func mustParse(t *testing.T, s string) money.Amount {
	t.Helper()
	amount, err := money.Parse(s)
	require.NoError(t, err)
	return amount
}

func TestDistributePotLowScoreForfeitsHalfRedistributed(t *testing.T) {
	pot := mustParse(t, "100.00")
	paid := []model.Attempt{
		scoredAttempt("high", 8),
		scoredAttempt("low", 2),
	}

	dist := distributePot(paid, pot)

	// The low scorer's 20.00 share splits 10.00 to the qualifier and
	// 10.00 retained.
	assert.Equal(t, mustParse(t, "90.00"), dist.Earnings["high"])
	assert.Equal(t, money.Amount(0), dist.Earnings["low"])
	assert.Equal(t, money.Amount(0), dist.SuppressedPool)
	assert.Equal(t, mustParse(t, "10.00"), dist.LowPoolRetained)
}

func TestDistributePotMinimumPayoutBoundaryInclusive(t *testing.T) {
	pot := mustParse(t, "1.00")
	var paid []model.Attempt
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		paid = append(paid, scoredAttempt(id, 5))
	}

	dist := distributePot(paid, pot)

	// Each share is exactly the 0.10 minimum and must pay out.
	for _, a := range paid {
		assert.Equal(t, mustParse(t, "0.10"), dist.Earnings[a.ID], "attempt %s", a.ID)
	}
	assert.Equal(t, money.Amount(0), dist.Retained())
}

func TestDistributePotSuppressesSubMinimumShares(t *testing.T) {
	pot := mustParse(t, "1.00")
	paid := []model.Attempt{
		scoredAttempt("big", 9),
		scoredAttempt("tiny", 0.5),
	}

	dist := distributePot(paid, pot)

	assert.Equal(t, money.Amount(0), dist.Earnings["tiny"])
	assert.Greater(t, dist.SuppressedPool.Raw(), int64(0))
	assert.Greater(t, dist.Earnings["big"].Raw(), int64(0))

	total := dist.Earnings["big"] + dist.Earnings["tiny"] + dist.SuppressedPool + dist.LowPoolRetained
	assert.Equal(t, pot, total)
}

func TestDistributePotNoQualifyingAttemptsRetainsEverything(t *testing.T) {
	pot := mustParse(t, "10.00")
	paid := []model.Attempt{
		scoredAttempt("a", 3),
		scoredAttempt("b", 4),
	}

	dist := distributePot(paid, pot)

	assert.Equal(t, money.Amount(0), dist.Earnings["a"])
	assert.Equal(t, money.Amount(0), dist.Earnings["b"])
	assert.Equal(t, pot, dist.Retained())
}

func TestDistributePotEmptyAndZeroCases(t *testing.T) {
	t.Run("no attempts", func(t *testing.T) {
		dist := distributePot(nil, mustParse(t, "50.00"))
		assert.Empty(t, dist.Earnings)
		assert.Equal(t, money.Amount(0), dist.Retained())
	})

	t.Run("zero pot", func(t *testing.T) {
		dist := distributePot([]model.Attempt{scoredAttempt("a", 8)}, 0)
		assert.Equal(t, money.Amount(0), dist.Earnings["a"])
		assert.Equal(t, money.Amount(0), dist.Retained())
	})

	t.Run("all zero scores", func(t *testing.T) {
		pot := mustParse(t, "20.00")
		dist := distributePot([]model.Attempt{
			scoredAttempt("a", 0),
			scoredAttempt("b", 0),
		}, pot)
		assert.Equal(t, money.Amount(0), dist.Earnings["a"])
		assert.Equal(t, money.Amount(0), dist.Earnings["b"])
		assert.Equal(t, money.Amount(0), dist.Retained())
	})
}

func TestDistributePotConservesEveryUnit(t *testing.T) {
	cases := []struct {
		name   string
		pot    string
		scores []float64
	}{
		{name: "mixed tiers", pot: "123.45", scores: []float64{9.5, 7, 4, 2, 0.3}},
		{name: "awkward division", pot: "0.999999", scores: []float64{7, 7, 7}},
		{name: "single qualifier", pot: "55.55", scores: []float64{10}},
		{name: "many attempts", pot: "1000.00", scores: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 5.5, 6.7}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pot := mustParse(t, tc.pot)
			var paid []model.Attempt
			for i, s := range tc.scores {
				paid = append(paid, scoredAttempt(string(rune('a'+i)), s))
			}

			dist := distributePot(paid, pot)

			var sum money.Amount
			for _, e := range dist.Earnings {
				assert.GreaterOrEqual(t, e.Raw(), int64(0))
				sum += e
			}
			sum += dist.SuppressedPool + dist.LowPoolRetained
			assert.Equal(t, pot, sum, "earnings plus retained pools must reconstruct the pot")
			assert.GreaterOrEqual(t, dist.SuppressedPool.Raw(), int64(0))
			assert.GreaterOrEqual(t, dist.LowPoolRetained.Raw(), int64(0))
		})
	}
}

func TestDistributePotUnscoredAttemptsEarnNothing(t *testing.T) {
	pot := mustParse(t, "30.00")
	paid := []model.Attempt{
		scoredAttempt("scored", 8),
		{ID: "unscored"},
	}

	dist := distributePot(paid, pot)

	assert.Equal(t, money.Amount(0), dist.Earnings["unscored"])
	assert.Equal(t, pot, dist.Earnings["scored"]+dist.Retained())
}
