package matcher

import (
	"fmt"
	"math"
)

// CalculateProfit returns what is left of the budget after paying the talent
// for workDays. It is never negative.
func CalculateProfit(jobBudget, talentRate int64, workDays int) int64 {
	profit := jobBudget - talentRate*int64(workDays)
	if profit < 0 {
		return 0
	}
	return profit
}

// CalculateEachProfit splits totalProfit evenly between the two introducing
// sides, rounded to the nearest unit.
func CalculateEachProfit(totalProfit int64) int64 {
	return int64(math.Round(float64(totalProfit) / 2))
}

// DefaultShareRatio reproduces CalculateEachProfit.
const DefaultShareRatio = 0.5

// SplitPolicy decides each side's share of the total profit.
type SplitPolicy struct {
	ShareRatio float64
}

// DefaultSplitPolicy returns the even split.
func DefaultSplitPolicy() SplitPolicy {
	return SplitPolicy{ShareRatio: DefaultShareRatio}
}

// Validate rejects ratios outside (0,1].
func (p SplitPolicy) Validate() error {
	if p.ShareRatio <= 0 || p.ShareRatio > 1 {
		return fmt.Errorf("share ratio must be in (0,1], got %v", p.ShareRatio)
	}
	return nil
}

// Each returns one side's share of totalProfit.
func (p SplitPolicy) Each(totalProfit int64) int64 {
	if p.ShareRatio == DefaultShareRatio {
		return CalculateEachProfit(totalProfit)
	}
	return int64(math.Round(float64(totalProfit) * p.ShareRatio))
}
