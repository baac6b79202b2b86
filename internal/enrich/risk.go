package enrich

import (
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// AggregateRisk combines sanctions, PEP, adverse-media, credit, KYC, and
// alert signals into a single score capped at 100, with itemized factors.
// Signals are evaluated independently and the scale is purely additive, so
// evaluation order does not affect the total.
func AggregateRisk(c *domain.CaseInput) (float64, []domain.RiskFactor) {
	var score float64
	factors := []domain.RiskFactor{}

	intel := c.Intel()

	if len(intel.SanctionsHits) > 0 {
		score += 40
		factors = append(factors, domain.RiskFactor{
			Factor: "Sanctions Hit", Source: "Risk Intel", Severity: "high",
			Detail: fmt.Sprintf("Hits: %d", len(intel.SanctionsHits)),
		})
	}

	if intel.PEPStatus {
		score += 15
		factors = append(factors, domain.RiskFactor{
			Factor: "PEP Status", Source: "Risk Intel", Severity: "high",
			Detail: "Subject is PEP",
		})
	}

	if len(intel.AdverseMediaHits) > 0 {
		score += 10
		factors = append(factors, domain.RiskFactor{
			Factor: "Adverse Media", Source: "Risk Intel", Severity: "medium",
			Detail: fmt.Sprintf("Hits: %d", len(intel.AdverseMediaHits)),
		})
	}

	if len(intel.PriorSARs) > 0 {
		score += 20
		factors = append(factors, domain.RiskFactor{
			Factor: "Prior SARs", Source: "Risk Intel", Severity: "high",
			Detail: fmt.Sprintf("Prior SAR %s", intel.PriorSARs[0].DCN),
		})
	}

	if intel.LawEnforcementRequests > 0 {
		score += 15
		factors = append(factors, domain.RiskFactor{
			Factor: "LE Request", Source: "Risk Intel", Severity: "high",
			Detail: "Law enforcement inquiry on file",
		})
	}

	if credit := c.CreditProfile; credit != nil {
		if credit.PaymentHistory != "" && credit.PaymentHistory != "current" {
			score += 5
			factors = append(factors, domain.RiskFactor{
				Factor: "Credit Deterioration", Source: "Credit Bureau", Severity: "low",
				Detail: "Status: " + credit.PaymentHistory,
			})
		}
		if credit.CreditCardUtilization > 0.80 {
			score += 3
			factors = append(factors, domain.RiskFactor{
				Factor: "High Utilization", Source: "Credit Bureau", Severity: "low",
				Detail: fmt.Sprintf("Utilization: %.0f%%", credit.CreditCardUtilization*100),
			})
		}
	}

	if len(intel.InternalReferrals) > 0 {
		score += 10
		factors = append(factors, domain.RiskFactor{
			Factor: "Internal Referral", Source: "Internal", Severity: "medium",
			Detail: "Referral on file",
		})
	}

	// The alert's own risk score contributes proportionally without an
	// itemized factor; it is uncapped before the final clamp.
	if c.Alert.RiskScore > 0 {
		score += c.Alert.RiskScore * 0.15
	}

	if c.InvestigatorNotes != "" {
		score += 5
		factors = append(factors, domain.RiskFactor{
			Factor: "Investigator Notes", Source: "Human", Severity: "medium",
			Detail: "Manual notes present",
		})
	}

	if c.CustomerProfile.RiskRating == "High" {
		score += 8
		factors = append(factors, domain.RiskFactor{
			Factor: "High Risk Customer", Source: "KYC", Severity: "medium",
			Detail: "Rated High",
		})
	}

	if score > 100 {
		score = 100
	}
	return score, factors
}
