package triage

import (
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Memo keywords that mark a payroll-type credit.
var payrollKeywords = []string{"salary", "bonus", "payroll", "compensation"}

// BuiltinRules returns the ordered hard triage rules. Sanctions always win;
// the two exception rules can only downgrade when nothing above them fired.
func BuiltinRules() []Rule {
	return []Rule{
		{
			ID:             "SANC-001",
			Priority:       1,
			Description:    "Sanctions override",
			Expression:     "has_sanctions_hits",
			Classification: domain.TruePositive,
			Reason:         "Sanctions screening hit on subject",
			Enabled:        true,
		},
		{
			ID:             "HIST-001",
			Priority:       2,
			Description:    "Prior SAR history with elevated volume",
			Expression:     "prior_sar_count > 0 && volume_deviation_factor > 2.0",
			Classification: domain.TruePositive,
			Reason:         "Prior SAR history combined with volume deviation above 2x baseline",
			Enabled:        true,
		},
		{
			ID:             "SAL-001",
			Priority:       3,
			Description:    "Salary/payroll exception",
			Expression:     "salary_exception",
			Classification: domain.FalsePositive,
			Reason:         "Single flagged payroll credit from declared employer with historical precedent",
			Enabled:        true,
		},
		{
			ID:             "SEAS-001",
			Priority:       4,
			Description:    "Seasonal-spike exception",
			Expression:     "volume_deviation_factor > 2.0 && seasonal_exception",
			Classification: domain.FalsePositive,
			Reason:         "Volume spike consistent with the prior year's seasonal pattern",
			Enabled:        true,
		},
	}
}

// Activation builds the CEL activation for the rule layer from the case and
// its dossier. The two exception indicators require scans over the raw
// transaction history that CEL cannot express, so they are precomputed here
// and exposed as booleans.
func Activation(c *domain.CaseInput, d *domain.EnrichedDossier) map[string]any {
	return map[string]any{
		"has_sanctions_hits":       d.HasSanctionsHits,
		"prior_sar_count":          int64(d.PriorSARCount),
		"volume_deviation_factor":  d.DeviationAnalysis.VolumeDeviationFactor,
		"salary_exception":         salaryException(c),
		"seasonal_exception":       seasonalException(c),
		"is_pep":                   d.IsPEP,
		"has_adverse_media":        d.HasAdverseMedia,
		"velocity_spike":           d.DeviationAnalysis.VelocitySpike,
		"new_counterparties_count": int64(d.DeviationAnalysis.NewCounterpartiesCount),
		"alert_risk_score":         c.Alert.RiskScore,
	}
}

// salaryException reports whether the case matches the salary/payroll
// false-positive pattern: exactly one flagged transaction, whose
// counterparty name contains the declared employer, whose memo carries a
// payroll keyword, and whose counterparty appears elsewhere in the unflagged
// history. A first-time "salary" payment does not qualify.
func salaryException(c *domain.CaseInput) bool {
	if len(c.Alert.FlaggedTransactionIDs) != 1 {
		return false
	}
	employer := strings.ToLower(c.CustomerProfile.Employer)
	if employer == "" {
		return false
	}

	flaggedID := c.Alert.FlaggedTransactionIDs[0]
	var flagged *domain.Transaction
	for i := range c.TransactionHistory {
		if c.TransactionHistory[i].ID == flaggedID {
			flagged = &c.TransactionHistory[i]
			break
		}
	}
	if flagged == nil {
		return false
	}

	cpName := strings.ToLower(flagged.CounterpartyName)
	if !strings.Contains(cpName, employer) {
		return false
	}

	memo := strings.ToLower(flagged.Memo)
	isPayroll := false
	for _, kw := range payrollKeywords {
		if strings.Contains(memo, kw) {
			isPayroll = true
			break
		}
	}
	if !isPayroll {
		return false
	}

	for _, t := range c.TransactionHistory {
		if t.ID != flaggedID && strings.ToLower(t.CounterpartyName) == cpName {
			return true
		}
	}
	return false
}

// seasonalException reports whether the flagged activity repeats an
// established seasonal pattern: the same calendar months one year earlier
// had more than 20 inbound transactions with positive total volume, and the
// current flagged inbound volume grew less than 1.5x over that prior-year
// volume.
func seasonalException(c *domain.CaseInput) bool {
	flaggedSet := c.FlaggedSet()

	flaggedMonths := make(map[int]bool)
	alertYear := 0
	var flaggedInboundVol float64

	for _, t := range c.TransactionHistory {
		if !flaggedSet[t.ID] || t.Date.IsZero() {
			continue
		}
		flaggedMonths[int(t.Date.Month())] = true
		if y := t.Date.Year(); y > alertYear {
			alertYear = y
		}
		if t.Inbound() {
			flaggedInboundVol += t.Amount
		}
	}
	if len(flaggedMonths) == 0 {
		return false
	}

	priorYear := alertYear - 1
	var priorVol float64
	priorCount := 0
	for _, t := range c.TransactionHistory {
		if t.Date.IsZero() || t.Date.Year() != priorYear {
			continue
		}
		if !flaggedMonths[int(t.Date.Month())] || !t.Inbound() {
			continue
		}
		priorVol += t.Amount
		priorCount++
	}

	if priorCount <= 20 || priorVol <= 0 {
		return false
	}
	return flaggedInboundVol/priorVol < 1.5
}
