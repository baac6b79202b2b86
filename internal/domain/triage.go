package domain

import "time"

// Classification is the final triage verdict for a case.
type Classification string

const (
	TruePositive  Classification = "TRUE_POSITIVE"
	FalsePositive Classification = "FALSE_POSITIVE"
	NeedsReview   Classification = "NEEDS_REVIEW"
)

// DecisionFactor is one ordered entry in the triage decision's rationale.
type DecisionFactor struct {
	Factor    string `json:"factor"`
	Weight    string `json:"weight"` // Critical, High, None
	Direction string `json:"direction"`
	Evidence  string `json:"evidence"`
}

// TriageDecision is the output of the triage stage. Terminal for non
// TRUE_POSITIVE cases.
type TriageDecision struct {
	UnifiedAlertID         string           `json:"unified_alert_id"`
	Classification         Classification   `json:"classification"`
	CompositeRiskScore     float64          `json:"composite_risk_score"`
	Confidence             float64          `json:"confidence"`
	RuleMatched            string           `json:"rule_matched,omitempty"`
	BehavioralAnomalyScore float64          `json:"behavioral_anomaly_score"`
	Explanation            string           `json:"explanation"`
	RulesEvaluated         int              `json:"rules_evaluated"`
	DecisionFactors        []DecisionFactor `json:"decision_factors"`
	TriageTimestamp        time.Time        `json:"triage_timestamp"`
}

// TypologyMatch is one qualifying typology with its confidence and the
// number of indicators that fired.
type TypologyMatch struct {
	Typology   string  `json:"typology"`
	Confidence float64 `json:"confidence"`
	Indicators int     `json:"indicators"`
}

// TypologyAssessment ranks qualifying typologies for a confirmed-suspicious
// case. Only created for TRUE_POSITIVE classifications.
type TypologyAssessment struct {
	PrimaryTypology     string          `json:"primary_typology"`
	SecondaryTypologies []string        `json:"secondary_typologies"`
	Matches             []TypologyMatch `json:"matches,omitempty"`
	TypologiesEvaluated int             `json:"typologies_evaluated"`
	AssessmentTimestamp time.Time       `json:"assessment_timestamp"`
}
