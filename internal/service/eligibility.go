package service

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Harshitk-cp/reliefpath/internal/domain"
)

const (
	DefaultBaselineConfidence = 0.85
	DefaultUnknownPenalty     = 0.3
	DefaultNearMissPenalty    = 0.1
)

// EvaluatorConfig is passed into every evaluator instead of living in
// process-wide state. Zero penalties are honored; start from
// DefaultEvaluatorConfig for the standard weights.
type EvaluatorConfig struct {
	ToleranceDefaults  map[string]float64
	BaselineConfidence float64
	UnknownPenalty     float64
	NearMissPenalty    float64
}

func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		ToleranceDefaults:  map[string]float64{},
		BaselineConfidence: DefaultBaselineConfidence,
		UnknownPenalty:     DefaultUnknownPenalty,
		NearMissPenalty:    DefaultNearMissPenalty,
	}
}

// EligibilityEvaluator walks a topic's criteria against client values. It is
// a pure computation over immutable inputs and safe for concurrent use.
type EligibilityEvaluator struct {
	cfg             EvaluatorConfig
	recommendations *RecommendationEngine
}

func NewEligibilityEvaluator(cfg EvaluatorConfig, recommendations *RecommendationEngine) *EligibilityEvaluator {
	if cfg.ToleranceDefaults == nil {
		cfg.ToleranceDefaults = map[string]float64{}
	}
	if recommendations == nil {
		recommendations = NewRecommendationEngine()
	}
	return &EligibilityEvaluator{cfg: cfg, recommendations: recommendations}
}

// ValidateCriteria rejects sets that could not produce exactly one result
// per declared criterion.
func ValidateCriteria(set *domain.CriteriaSet) error {
	if set == nil || len(set.Criteria) == 0 {
		return fmt.Errorf("%w: no criteria declared", domain.ErrInvalidCriteriaDefinition)
	}

	seen := make(map[string]bool, len(set.Criteria))
	for i, c := range set.Criteria {
		if c.Tag == "" {
			return fmt.Errorf("%w: criterion %d has no tag", domain.ErrInvalidCriteriaDefinition, i)
		}
		if seen[c.Tag] {
			return fmt.Errorf("%w: duplicate tag %q", domain.ErrInvalidCriteriaDefinition, c.Tag)
		}
		seen[c.Tag] = true

		if !domain.ValidOperator(string(c.Operator)) {
			return fmt.Errorf("%w: %s: unknown operator %q", domain.ErrInvalidCriteriaDefinition, c.Tag, c.Operator)
		}
		if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
			return fmt.Errorf("%w: %s: threshold is not finite", domain.ErrInvalidCriteriaDefinition, c.Tag)
		}
		if c.Tolerance != nil && (*c.Tolerance < 0 || math.IsNaN(*c.Tolerance)) {
			return fmt.Errorf("%w: %s: tolerance must be a non-negative number", domain.ErrInvalidCriteriaDefinition, c.Tag)
		}
	}
	return nil
}

func (e *EligibilityEvaluator) Evaluate(set *domain.CriteriaSet, profile domain.ClientProfile) (*domain.EligibilityResult, error) {
	if err := ValidateCriteria(set); err != nil {
		return nil, err
	}

	result := &domain.EligibilityResult{
		Criteria:        make([]domain.CriterionResult, 0, len(set.Criteria)),
		NearMisses:      []domain.NearMiss{},
		Recommendations: []domain.Recommendation{},
		Sources:         []string{},
	}

	for _, c := range set.Criteria {
		cr := e.evaluateCriterion(c, profile)
		result.Criteria = append(result.Criteria, cr)

		if cr.Status == domain.StatusNearMiss {
			result.NearMisses = append(result.NearMisses, domain.NearMiss{
				Tag:           c.Tag,
				ThresholdName: thresholdName(c),
				Operator:      c.Operator,
				Threshold:     c.Threshold,
				Value:         *cr.Value,
				Gap:           *cr.Gap,
				Tolerance:     cr.Tolerance,
				Strategies:    RemediationStrategies(c.Tag, c.Operator),
			})
		}
	}

	result.OverallResult = OverallResult(result.Criteria)
	result.Confidence = e.confidence(result.Criteria)
	result.Recommendations = e.recommendations.Recommend(result.NearMisses)

	return result, nil
}

func (e *EligibilityEvaluator) tolerance(c domain.CriterionNode) float64 {
	if c.Tolerance != nil {
		return *c.Tolerance
	}
	return e.cfg.ToleranceDefaults[c.Tag]
}

func (e *EligibilityEvaluator) evaluateCriterion(c domain.CriterionNode, profile domain.ClientProfile) domain.CriterionResult {
	tol := e.tolerance(c)
	cr := domain.CriterionResult{
		Tag:       c.Tag,
		Operator:  c.Operator,
		Threshold: c.Threshold,
		Tolerance: tol,
	}

	value, ok := profile.Value(c.Tag)
	if !ok {
		cr.Status = domain.StatusUnknown
		cr.Explanation = fmt.Sprintf("no %s value supplied; %s cannot be evaluated", c.Tag, describe(c))
		return cr
	}

	gap := c.Operator.Gap(value, c.Threshold)
	cr.Value = &value
	cr.Gap = &gap

	switch {
	case c.Operator.Compare(value, c.Threshold):
		cr.Status = domain.StatusEligible
		cr.Explanation = fmt.Sprintf("%s %s meets %s", c.Tag, num(value), describe(c))
	case math.Abs(gap) <= tol:
		cr.Status = domain.StatusNearMiss
		cr.Explanation = fmt.Sprintf("%s %s misses %s by %s, within tolerance %s",
			c.Tag, num(value), describe(c), num(math.Abs(gap)), num(tol))
	default:
		cr.Status = domain.StatusNotEligible
		cr.Explanation = fmt.Sprintf("%s %s misses %s by %s, beyond tolerance %s",
			c.Tag, num(value), describe(c), num(math.Abs(gap)), num(tol))
	}
	return cr
}

// OverallResult applies the precedence NOT_ELIGIBLE > UNKNOWN > NEAR_MISS > ELIGIBLE.
func OverallResult(results []domain.CriterionResult) domain.OverallResult {
	var unknown, nearMiss bool
	for _, r := range results {
		switch r.Status {
		case domain.StatusNotEligible:
			return domain.OverallNotEligible
		case domain.StatusUnknown:
			unknown = true
		case domain.StatusNearMiss:
			nearMiss = true
		}
	}
	switch {
	case unknown:
		return domain.OverallIncomplete
	case nearMiss:
		return domain.OverallRequiresReview
	}
	return domain.OverallEligible
}

func (e *EligibilityEvaluator) confidence(results []domain.CriterionResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var unknown, nearMiss int
	for _, r := range results {
		switch r.Status {
		case domain.StatusUnknown:
			unknown++
		case domain.StatusNearMiss:
			nearMiss++
		}
	}
	n := float64(len(results))
	c := e.cfg.BaselineConfidence -
		e.cfg.UnknownPenalty*float64(unknown)/n -
		e.cfg.NearMissPenalty*float64(nearMiss)/n
	return math.Max(0, math.Min(1, c))
}

func thresholdName(c domain.CriterionNode) string {
	if c.ThresholdName != "" {
		return c.ThresholdName
	}
	return c.Tag + "_limit"
}

func describe(c domain.CriterionNode) string {
	return fmt.Sprintf("%s %s %s", c.Tag, c.Operator, num(c.Threshold))
}

// num formats a figure for user-facing text at currency precision.
func num(v float64) string {
	return strconv.FormatFloat(roundCents(v), 'f', -1, 64)
}
