package service

import (
	"math"
	"math/big"

	"github.com/stakepot/arena-server-go/internal/model"
	"github.com/stakepot/arena-server-go/internal/money"
)

// Tiered pot distribution. A paid attempt's proportional share is
// suppressed entirely when it falls below minPayout; a share whose score
// is at or below lowScoreMax is forfeited, with half of the forfeited pool
// redistributed to the qualifying attempts score-weighted and the other
// half retained by the operator, together with all suppressed shares.
const (
	minPayout   = money.Amount(100_000) // 0.10 units
	lowScoreMax = 4.0

	redistributionNum = 1
	redistributionDen = 2

	// Scores are carried as milli-points so ratio arithmetic stays integral.
	scoreScale = 1000
)

// Distribution is the outcome of splitting a session pot across its paid
// scored attempts. Earnings carries an entry for every paid attempt,
// including the zero earnings of suppressed and low-score attempts.
// Earnings plus the two retained pools always reconstruct the pot exactly;
// LowPoolRetained absorbs the sub-unit remainders left by flooring.
type Distribution struct {
	Earnings        map[string]money.Amount
	SuppressedPool  money.Amount
	LowPoolRetained money.Amount
}

// Retained is the total the operator keeps.
func (d *Distribution) Retained() money.Amount {
	return d.SuppressedPool + d.LowPoolRetained
}

// distributePot runs the tiered algorithm over the paid scored attempts of
// a session. Intermediate arithmetic uses big integers on exact rationals
// (share_i = pot*score_i/totalScore); flooring happens once, at the final
// per-attempt assignment, so rounding error never accumulates across
// attempts.
func distributePot(paid []model.Attempt, pot money.Amount) *Distribution {
	dist := &Distribution{Earnings: make(map[string]money.Amount, len(paid))}
	if len(paid) == 0 {
		return dist
	}

	scores := make(map[string]int64, len(paid))
	var totalScore int64
	for _, a := range paid {
		dist.Earnings[a.ID] = 0
		if a.Score == nil {
			continue
		}
		s := int64(math.Round(*a.Score * scoreScale))
		scores[a.ID] = s
		totalScore += s
	}
	if totalScore == 0 || pot == 0 {
		// Nothing to divide; the pot stays recorded on the session.
		return dist
	}

	potBig := big.NewInt(pot.Raw())
	total := big.NewInt(totalScore)
	lowMax := int64(lowScoreMax * scoreScale)
	minBound := new(big.Int).Mul(big.NewInt(minPayout.Raw()), total)

	var qualifying []model.Attempt
	var qualifyingScoreSum int64
	suppressedNum := new(big.Int) // Σ pot*score_i over suppressed, denominator totalScore
	lowPoolNum := new(big.Int)    // Σ pot*score_i over low-score, denominator totalScore

	for _, a := range paid {
		s := scores[a.ID]
		shareNum := new(big.Int).Mul(potBig, big.NewInt(s)) // share_i = shareNum/totalScore

		switch {
		case shareNum.Cmp(minBound) < 0:
			// share_i < minPayout; boundary equality passes.
			suppressedNum.Add(suppressedNum, shareNum)
		case s <= lowMax:
			lowPoolNum.Add(lowPoolNum, shareNum)
		default:
			qualifying = append(qualifying, a)
			qualifyingScoreSum += s
		}
	}

	var assigned int64
	if qualifyingScoreSum > 0 {
		// earnings_i = share_i + redistribution * score_i/qualifyingScoreSum
		//            = score_i * (den*Q*pot + num*lowPoolNum) / (den*S*Q)
		qSum := big.NewInt(qualifyingScoreSum)
		den := new(big.Int).Mul(big.NewInt(redistributionDen), new(big.Int).Mul(total, qSum))
		common := new(big.Int).Mul(big.NewInt(redistributionDen), new(big.Int).Mul(qSum, potBig))
		common.Add(common, new(big.Int).Mul(big.NewInt(redistributionNum), lowPoolNum))

		for _, a := range qualifying {
			num := new(big.Int).Mul(big.NewInt(scores[a.ID]), common)
			earnings := new(big.Int).Quo(num, den).Int64()
			dist.Earnings[a.ID] = money.Amount(earnings)
			assigned += earnings
		}
	}
	// With no qualifying attempts the redistribution has nowhere to go and
	// the whole low pool stays with the operator.

	dist.SuppressedPool = money.Amount(new(big.Int).Quo(suppressedNum, total).Int64())
	dist.LowPoolRetained = pot - money.Amount(assigned) - dist.SuppressedPool

	return dist
}
