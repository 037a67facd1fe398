package service

import (
	"fmt"
	"math"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
)

const (
	// DefaultHighPriorityGapRatio is the largest gap, as a fraction of the
	// threshold, still considered an easy remediation.
	DefaultHighPriorityGapRatio = 0.1
	// strictStep is the smallest move past a strict threshold (one penny).
	strictStep = 0.01
)

var remediationCatalogue = map[string]map[string][]string{
	"debt": {
		"reduce": {
			"Pay down the smallest qualifying debt balance",
			"Ask a creditor to accept a reduced settlement",
			"Check whether any listed debt is excluded from the total",
		},
	},
	"income": {
		"reduce": {
			"Review the monthly budget for allowable expenses not yet declared",
			"Confirm whether irregular income should be averaged",
		},
		"increase": {
			"Include all regular household income sources",
		},
	},
	"assets": {
		"reduce": {
			"Check which assets are exempt from the calculation",
			"Use savings to repay a priority debt",
		},
	},
}

var genericStrategies = map[string][]string{
	"reduce":   {"Lower the declared figure through permitted adjustments"},
	"increase": {"Raise the declared figure through permitted adjustments"},
	"adjust":   {"Bring the declared figure to the required value"},
}

var alternativeRoutes = []string{
	"Review an Individual Voluntary Arrangement",
	"Review bankruptcy eligibility",
	"Speak to a debt adviser about a debt management plan",
}

func direction(op domain.Operator) string {
	switch op {
	case domain.OpLessOrEqual, domain.OpLess:
		return "reduce"
	case domain.OpGreaterOrEqual, domain.OpGreater:
		return "increase"
	}
	return "adjust"
}

// RemediationStrategies lists candidate remediations for moving a value
// toward the favorable side of op.
func RemediationStrategies(tag string, op domain.Operator) []string {
	dir := direction(op)
	if byDir, ok := remediationCatalogue[tag]; ok {
		if s, ok := byDir[dir]; ok {
			return append([]string(nil), s...)
		}
	}
	return append([]string(nil), genericStrategies[dir]...)
}

// TargetValue is the closest value that satisfies op against threshold.
func TargetValue(op domain.Operator, threshold float64) float64 {
	switch op {
	case domain.OpLess:
		return threshold - strictStep
	case domain.OpGreater:
		return threshold + strictStep
	}
	return threshold
}

type RecommendationEngine struct {
	HighPriorityGapRatio float64
}

func NewRecommendationEngine() *RecommendationEngine {
	return &RecommendationEngine{HighPriorityGapRatio: DefaultHighPriorityGapRatio}
}

// Recommend produces one recommendation per near-miss, ordered high → low
// priority while keeping input order within a priority.
func (e *RecommendationEngine) Recommend(nearMisses []domain.NearMiss) []domain.Recommendation {
	buckets := map[domain.RecommendationPriority][]domain.Recommendation{}
	for _, nm := range nearMisses {
		rec := e.recommend(nm)
		buckets[rec.Priority] = append(buckets[rec.Priority], rec)
	}

	out := make([]domain.Recommendation, 0, len(nearMisses))
	for _, p := range []domain.RecommendationPriority{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		out = append(out, buckets[p]...)
	}
	return out
}

func (e *RecommendationEngine) recommend(nm domain.NearMiss) domain.Recommendation {
	target := TargetValue(nm.Operator, nm.Threshold)
	change := roundCents(target - nm.Value)
	dir := direction(nm.Operator)

	rec := domain.Recommendation{
		Tag:         nm.Tag,
		TargetValue: target,
		Change:      change,
	}

	if nm.Threshold == 0 {
		rec.Priority = domain.PriorityLow
		rec.Action = fmt.Sprintf("Note: %s of %s sits at the %s boundary", nm.Tag, num(nm.Value), nm.ThresholdName)
		rec.Steps = []string{fmt.Sprintf("Target %s: %s", nm.Tag, num(target))}
		return rec
	}

	ratio := math.Abs(nm.Gap) / math.Abs(nm.Threshold)
	if ratio <= e.HighPriorityGapRatio {
		rec.Priority = domain.PriorityHigh
		rec.Action = fmt.Sprintf("%s %s by %s to reach %s", verb(dir), nm.Tag, num(math.Abs(change)), num(target))
		rec.Steps = append(append([]string(nil), nm.Strategies...),
			fmt.Sprintf("Confirm the updated %s figure is %s or better before re-checking", nm.Tag, num(target)))
		return rec
	}

	rec.Priority = domain.PriorityMedium
	rec.Action = fmt.Sprintf("Consider an alternative route; moving %s by %s to %s may be impractical",
		nm.Tag, num(math.Abs(change)), num(target))
	rec.Steps = append(append([]string(nil), alternativeRoutes...),
		fmt.Sprintf("Target %s: %s", nm.Tag, num(target)))
	return rec
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func verb(dir string) string {
	switch dir {
	case "reduce":
		return "Reduce"
	case "increase":
		return "Increase"
	}
	return "Adjust"
}
