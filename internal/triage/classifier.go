package triage

import (
	"fmt"
	"math"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Composite score weights: behavioral anomaly, cross-source risk, and the
// alert's own reported risk score.
const (
	weightBehavioral  = 0.4
	weightCrossSource = 0.2
	weightAlertRisk   = 0.4
)

// Classification thresholds for the composite path.
const (
	truePositiveThreshold  = 60.0
	falsePositiveThreshold = 30.0
)

// Decide blends the rule layer result and the two scores into the final
// triage decision. A matched hard rule wins outright regardless of the
// composite score; otherwise the composite thresholds apply and anything in
// between defers to manual review.
func Decide(c *domain.CaseInput, d *domain.EnrichedDossier, match *Match, behavioralScore float64) *domain.TriageDecision {
	composite := behavioralScore*weightBehavioral +
		d.CrossSourceRiskScore*weightCrossSource +
		c.Alert.RiskScore*weightAlertRisk

	classification := domain.NeedsReview
	confidence := 0.4
	explanation := "Data inconclusive, manual review required."

	switch {
	case match != nil:
		classification = match.Classification
		if classification == domain.TruePositive {
			confidence = 0.95
		} else {
			confidence = 0.90
		}
		explanation = fmt.Sprintf("Matched hard triage rule %s.", match.RuleID)
	case composite >= truePositiveThreshold:
		classification = domain.TruePositive
		confidence = math.Min(0.5+(composite-truePositiveThreshold)*0.01, 0.95)
		explanation = fmt.Sprintf("High composite risk score (%.1f).", composite)
	case composite <= falsePositiveThreshold:
		classification = domain.FalsePositive
		confidence = math.Min(0.5+(falsePositiveThreshold-composite)*0.015, 0.90)
		explanation = fmt.Sprintf("Low composite risk score (%.1f).", composite)
	}

	decision := &domain.TriageDecision{
		UnifiedAlertID:         c.Alert.AlertID,
		Classification:         classification,
		CompositeRiskScore:     round2(composite),
		Confidence:             round2(confidence),
		BehavioralAnomalyScore: round2(behavioralScore),
		Explanation:            explanation,
		RulesEvaluated:         len(BuiltinRules()),
		TriageTimestamp:        time.Now().UTC(),
	}
	if match != nil {
		decision.RuleMatched = match.RuleID
	}

	decision.DecisionFactors = decisionFactors(decision, match)
	return decision
}

// decisionFactors builds the ordered rationale entries for the decision.
func decisionFactors(d *domain.TriageDecision, match *Match) []domain.DecisionFactor {
	factors := []domain.DecisionFactor{
		{
			Factor:    "Behavioral Anomaly Score",
			Weight:    "High",
			Direction: fmt.Sprintf("%.0f/100", d.BehavioralAnomalyScore),
			Evidence:  "Score based on volume and velocity deviations from baseline.",
		},
	}

	if match != nil {
		factors = append(factors, domain.DecisionFactor{
			Factor:    "Rule Match",
			Weight:    "Critical",
			Direction: match.RuleID,
			Evidence:  match.Reason,
		})
	} else {
		factors = append(factors, domain.DecisionFactor{
			Factor:    "Rule Match",
			Weight:    "None",
			Direction: "None",
			Evidence:  "No hard rules matched.",
		})
	}

	factors = append(factors, domain.DecisionFactor{
		Factor:    "Composite Risk Score",
		Weight:    "High",
		Direction: fmt.Sprintf("%.1f/100", d.CompositeRiskScore),
		Evidence:  "Weighted blend of behavioral, cross-source, and alert risk.",
	})
	return factors
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
