package domain

type Operator string

const (
	OpLessOrEqual    Operator = "<="
	OpLess           Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpGreater        Operator = ">"
	OpEqual          Operator = "="
)

func ValidOperator(op string) bool {
	switch Operator(op) {
	case OpLessOrEqual, OpLess, OpGreaterOrEqual, OpGreater, OpEqual:
		return true
	}
	return false
}

// Compare reports whether value satisfies "value op threshold".
func (op Operator) Compare(value, threshold float64) bool {
	switch op {
	case OpLessOrEqual:
		return value <= threshold
	case OpLess:
		return value < threshold
	case OpGreaterOrEqual:
		return value >= threshold
	case OpGreater:
		return value > threshold
	case OpEqual:
		return value == threshold
	}
	return false
}

// Gap returns the signed distance between value and threshold where a
// positive result always means value sits on the unfavorable side.
func (op Operator) Gap(value, threshold float64) float64 {
	switch op {
	case OpLessOrEqual, OpLess:
		return value - threshold
	case OpGreaterOrEqual, OpGreater:
		return threshold - value
	case OpEqual:
		if value > threshold {
			return value - threshold
		}
		return threshold - value
	}
	return 0
}

// CriterionNode is one eligibility rule for a topic. A nil Tolerance means
// the configured default for the tag applies.
type CriterionNode struct {
	Tag           string   `json:"tag" yaml:"tag"`
	Label         string   `json:"label,omitempty" yaml:"label,omitempty"`
	Operator      Operator `json:"operator" yaml:"operator"`
	Threshold     float64  `json:"threshold" yaml:"threshold"`
	ThresholdName string   `json:"threshold_name,omitempty" yaml:"threshold_name,omitempty"`
	Tolerance     *float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Unit          string   `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// CriteriaSet groups the criteria declared for one topic.
type CriteriaSet struct {
	Topic       string          `json:"topic" yaml:"topic"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Criteria    []CriterionNode `json:"criteria" yaml:"criteria"`
}

// ClientProfile maps a semantic tag to an optional value. A nil or missing
// entry means the criterion cannot be evaluated.
type ClientProfile map[string]*float64

func (p ClientProfile) Value(tag string) (float64, bool) {
	v, ok := p[tag]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

type CriterionStatus string

const (
	StatusEligible    CriterionStatus = "ELIGIBLE"
	StatusNotEligible CriterionStatus = "NOT_ELIGIBLE"
	StatusNearMiss    CriterionStatus = "NEAR_MISS"
	StatusUnknown     CriterionStatus = "UNKNOWN"
)

type CriterionResult struct {
	Tag         string          `json:"tag"`
	Status      CriterionStatus `json:"status"`
	Value       *float64        `json:"value,omitempty"`
	Gap         *float64        `json:"gap,omitempty"`
	Operator    Operator        `json:"operator"`
	Threshold   float64         `json:"threshold"`
	Tolerance   float64         `json:"tolerance"`
	Explanation string          `json:"explanation"`
}

type OverallResult string

const (
	OverallEligible       OverallResult = "eligible"
	OverallNotEligible    OverallResult = "not_eligible"
	OverallRequiresReview OverallResult = "requires_review"
	OverallIncomplete     OverallResult = "incomplete_information"
)

type NearMiss struct {
	Tag           string   `json:"tag"`
	ThresholdName string   `json:"threshold_name"`
	Operator      Operator `json:"operator"`
	Threshold     float64  `json:"threshold"`
	Value         float64  `json:"value"`
	Gap           float64  `json:"gap"`
	Tolerance     float64  `json:"tolerance"`
	Strategies    []string `json:"strategies"`
}

type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

type Recommendation struct {
	Priority    RecommendationPriority `json:"priority"`
	Tag         string                 `json:"tag"`
	Action      string                 `json:"action"`
	Steps       []string               `json:"steps"`
	TargetValue float64                `json:"target_value"`
	Change      float64                `json:"change"`
}

// CriterionTrail is the graph path explaining one criterion, when the
// knowledge graph holds a matching chain.
type CriterionTrail struct {
	Tag  string         `json:"tag"`
	Path *ReasoningPath `json:"path,omitempty"`
}

// EligibilityResult carries exactly one CriterionResult per declared criterion.
type EligibilityResult struct {
	OverallResult   OverallResult     `json:"overall_result"`
	Confidence      float64           `json:"confidence"`
	Criteria        []CriterionResult `json:"criteria"`
	NearMisses      []NearMiss        `json:"near_misses"`
	Recommendations []Recommendation  `json:"recommendations"`
	Sources         []string          `json:"sources"`
}

type EligibilityRequest struct {
	Question     string        `json:"question"`
	ClientValues ClientProfile `json:"client_values"`
	Topic        string        `json:"topic"`
}

type EligibilityResponse struct {
	Answer string `json:"answer"`
	EligibilityResult
	AnswerConfidence ConfidenceLabel  `json:"answer_confidence"`
	ReasoningTrail   []CriterionTrail `json:"reasoning_trail,omitempty"`
}
