package engine

import (
	"math"

	"github.com/fieldstone/proctor/internal/rule"
)

// scoreResults computes the weighted-linear score over the rule results.
//
// score = earnedWeight / totalWeight, in [0, 1]
// progress = round(score * 100)
//
// A rule is binary - weight controls only its share of the whole, never
// partial credit inside a single rule.
func scoreResults(rules []rule.Rule, results []rule.Result) (score float64, progress int) {
	var totalWeight, earnedWeight float64
	for i, r := range rules {
		totalWeight += r.Weight
		if results[i].Passed {
			earnedWeight += r.Weight
		}
	}
	if totalWeight > 0 {
		score = earnedWeight / totalWeight
	}
	return score, int(math.Round(score * 100))
}
