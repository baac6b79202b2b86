package narrative

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// flaggedStats summarizes the flagged transaction subset for prompting and
// the template fallback.
type flaggedStats struct {
	Count     int
	Inflow    float64
	Outflow   float64
	Countries []string
	FirstDate string
	LastDate  string
}

func computeFlaggedStats(c *domain.CaseInput) flaggedStats {
	flaggedSet := c.FlaggedSet()
	var s flaggedStats
	countrySet := make(map[string]bool)

	for _, t := range c.TransactionHistory {
		if !flaggedSet[t.ID] {
			continue
		}
		s.Count++
		if t.Inbound() {
			s.Inflow += t.Amount
		} else {
			s.Outflow += t.Amount
		}
		if t.CounterpartyCountry != "" {
			countrySet[t.CounterpartyCountry] = true
		}
		if !t.Date.IsZero() {
			d := t.Date.Format("2006-01-02")
			if s.FirstDate == "" || d < s.FirstDate {
				s.FirstDate = d
			}
			if d > s.LastDate {
				s.LastDate = d
			}
		}
	}

	for country := range countrySet {
		s.Countries = append(s.Countries, country)
	}
	sort.Strings(s.Countries)
	return s
}

// BuildEvidenceSummary consolidates the investigation record into the
// formatted evidence package handed to the generator.
func BuildEvidenceSummary(c *domain.CaseInput, d *domain.EnrichedDossier, decision *domain.TriageDecision, typology *domain.TypologyAssessment) string {
	stats := computeFlaggedStats(c)

	primary := "Unknown"
	confidence := 0.0
	if typology != nil {
		primary = typology.PrimaryTypology
		if len(typology.Matches) > 0 {
			confidence = typology.Matches[0].Confidence
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ALERT DETAILS:\n")
	fmt.Fprintf(&b, "- ID: %s\n", c.Alert.AlertID)
	fmt.Fprintf(&b, "- Type: %s (Rule: %s)\n", c.Alert.AlertType, c.Alert.TriggeredRule)
	fmt.Fprintf(&b, "- Date: %s\n", c.Alert.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Risk Score: %.1f\n\n", c.Alert.RiskScore)

	fmt.Fprintf(&b, "SUBJECT:\n")
	fmt.Fprintf(&b, "- Name: %s\n", c.CustomerProfile.Name)
	fmt.Fprintf(&b, "- ID: %s\n", c.CustomerProfile.CustomerID)
	fmt.Fprintf(&b, "- Occupation: %s\n", c.CustomerProfile.Occupation)
	fmt.Fprintf(&b, "- Employer: %s\n", c.CustomerProfile.Employer)
	fmt.Fprintf(&b, "- Income: %s\n", formatUSD(c.CustomerProfile.AnnualIncome))
	fmt.Fprintf(&b, "- Account Opened: %s\n\n", c.CustomerProfile.AccountOpenedDate)

	fmt.Fprintf(&b, "KEY FINDINGS:\n")
	fmt.Fprintf(&b, "- Triage Classification: %s\n", decision.Classification)
	fmt.Fprintf(&b, "- Primary Typology: %s\n", primary)
	fmt.Fprintf(&b, "- Confidence: %.2f\n", confidence)
	fmt.Fprintf(&b, "- Risk Score (Composite): %.1f\n\n", decision.CompositeRiskScore)

	fmt.Fprintf(&b, "BEHAVIORAL ANALYSIS:\n")
	fmt.Fprintf(&b, "- Volume Deviation: %.1fx baseline\n", d.DeviationAnalysis.VolumeDeviationFactor)
	fmt.Fprintf(&b, "- New Counterparties: %d\n", d.DeviationAnalysis.NewCounterpartiesCount)
	fmt.Fprintf(&b, "- Deviation Summary: %s\n", d.DeviationAnalysis.DeviationSummary)
	fmt.Fprintf(&b, "- Baseline Avg Inflow: %s\n\n", formatUSD(d.BehavioralBaseline.AvgMonthlyInflow))

	fmt.Fprintf(&b, "TRANSACTION ACTIVITY (Flagged):\n")
	fmt.Fprintf(&b, "- Count: %d\n", stats.Count)
	fmt.Fprintf(&b, "- Total Inflow: %s\n", formatUSD(stats.Inflow))
	fmt.Fprintf(&b, "- Total Outflow: %s\n", formatUSD(stats.Outflow))
	fmt.Fprintf(&b, "- Involved Countries: %s\n\n", strings.Join(stats.Countries, ", "))

	fmt.Fprintf(&b, "PRIOR HISTORY:\n")
	fmt.Fprintf(&b, "- Prior SARs: %d\n", d.PriorSARCount)

	return b.String()
}

// formatUSD renders an amount as $1,234,567.89.
func formatUSD(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.Index(s, ".")
	intPart, frac := s[:dot], s[dot:]

	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}

	out := "$" + b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}
