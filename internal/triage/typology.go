package triage

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Typology names.
const (
	TypologyStructuring = "Structuring with Layering"
	TypologyFunnel      = "Funnel Account (Money Mule)"
	TypologyGeneric     = "General Suspicious Activity"
)

// A typology qualifies when at least this many indicators fire.
const typologyMinIndicators = 2

// ClassifyTypology scores indicator counts against the known typology
// patterns. It runs only for TRUE_POSITIVE classifications; qualifying
// typologies are ranked by descending confidence and the top becomes
// primary. When none qualify, the primary defaults to a generic label.
func ClassifyTypology(c *domain.CaseInput, d *domain.EnrichedDossier) *domain.TypologyAssessment {
	var matches []domain.TypologyMatch

	if m, ok := structuringMatch(c, d); ok {
		matches = append(matches, m)
	}
	if m, ok := funnelMatch(c, d); ok {
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	assessment := &domain.TypologyAssessment{
		PrimaryTypology:     TypologyGeneric,
		SecondaryTypologies: []string{},
		Matches:             matches,
		TypologiesEvaluated: 2,
		AssessmentTimestamp: time.Now().UTC(),
	}
	if len(matches) > 0 {
		assessment.PrimaryTypology = matches[0].Typology
		for _, m := range matches[1:] {
			assessment.SecondaryTypologies = append(assessment.SecondaryTypologies, m.Typology)
		}
	}
	return assessment
}

// typologyConfidence maps an indicator count to a confidence in [0.5, 0.95].
func typologyConfidence(indicators int) float64 {
	return math.Min(0.5+float64(indicators)*0.12, 0.95)
}

// structuringMatch counts structuring/layering indicators: alert type,
// new-counterparty fan-out, volume deviation, and an international wire in
// the flagged subset.
func structuringMatch(c *domain.CaseInput, d *domain.EnrichedDossier) (domain.TypologyMatch, bool) {
	indicators := 0

	if strings.Contains(strings.ToLower(c.Alert.AlertType), "structuring") {
		indicators++
	}
	if d.DeviationAnalysis.NewCounterpartiesCount > 10 {
		indicators++
	}
	if d.DeviationAnalysis.VolumeDeviationFactor > 3 {
		indicators++
	}
	if hasInternationalWire(c) {
		indicators++
	}

	if indicators < typologyMinIndicators {
		return domain.TypologyMatch{}, false
	}

	name := TypologyStructuring
	if d.HasPriorSARs {
		name += " - Continuing Activity"
	}
	return domain.TypologyMatch{
		Typology:   name,
		Confidence: typologyConfidence(indicators),
		Indicators: indicators,
	}, true
}

// funnelMatch counts funnel-account indicators: alert type, young account,
// absent income or student occupation, a flagged cash withdrawal, and
// moderate new-counterparty fan-out.
func funnelMatch(c *domain.CaseInput, d *domain.EnrichedDossier) (domain.TypologyMatch, bool) {
	indicators := 0

	if strings.Contains(strings.ToLower(c.Alert.AlertType), "funnel") {
		indicators++
	}
	if age, ok := c.CustomerProfile.AccountAgeDays(c.Alert.GeneratedAt); ok && age < 180 {
		indicators++
	}
	if c.CustomerProfile.AnnualIncome == 0 ||
		strings.Contains(strings.ToLower(c.CustomerProfile.Occupation), "student") {
		indicators++
	}
	if hasFlaggedCashWithdrawal(c) {
		indicators++
	}
	if d.DeviationAnalysis.NewCounterpartiesCount > 5 {
		indicators++
	}

	if indicators < typologyMinIndicators {
		return domain.TypologyMatch{}, false
	}
	return domain.TypologyMatch{
		Typology:   TypologyFunnel,
		Confidence: typologyConfidence(indicators),
		Indicators: indicators,
	}, true
}

// hasInternationalWire reports whether any flagged transaction is a wire to
// or from a counterparty outside the case's jurisdiction.
func hasInternationalWire(c *domain.CaseInput) bool {
	flaggedSet := c.FlaggedSet()
	domestic := c.Jurisdiction()
	for _, t := range c.TransactionHistory {
		if !flaggedSet[t.ID] {
			continue
		}
		if !strings.Contains(strings.ToLower(t.Type), "wire") {
			continue
		}
		if t.CounterpartyCountry != "" && t.CounterpartyCountry != domestic {
			return true
		}
	}
	return false
}

// hasFlaggedCashWithdrawal reports whether any flagged transaction is a
// cash withdrawal.
func hasFlaggedCashWithdrawal(c *domain.CaseInput) bool {
	flaggedSet := c.FlaggedSet()
	for _, t := range c.TransactionHistory {
		if flaggedSet[t.ID] && strings.Contains(strings.ToLower(t.Type), "cash_withdrawal") {
			return true
		}
	}
	return false
}
