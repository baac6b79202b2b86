package enrich

import (
	"fmt"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// AnalyzeDeviation compares the flagged transaction subset against the
// baseline. Flagged identifiers with no matching transaction are ignored;
// the analysis covers whatever subset is actually present.
func AnalyzeDeviation(txns []domain.Transaction, baseline domain.BehavioralBaseline, flaggedIDs []string) domain.DeviationAnalysis {
	flaggedSet := make(map[string]bool, len(flaggedIDs))
	for _, id := range flaggedIDs {
		flaggedSet[id] = true
	}

	var flagged []domain.Transaction
	for _, t := range txns {
		if flaggedSet[t.ID] {
			flagged = append(flagged, t)
		}
	}

	analysis := domain.DeviationAnalysis{
		NewGeographies:  []string{},
		NewChannels:     []string{},
		FlaggedTxnCount: len(flagged),
	}

	for _, t := range flagged {
		if t.Inbound() {
			analysis.FlaggedInflow += t.Amount
		} else {
			analysis.FlaggedOutflow += t.Amount
		}
	}
	analysis.FlaggedVolume = analysis.FlaggedInflow + analysis.FlaggedOutflow

	baselineVolume := baseline.AvgMonthlyInflow + baseline.AvgMonthlyOutflow
	switch {
	case baselineVolume > 0:
		analysis.VolumeDeviationFactor = round1(analysis.FlaggedVolume / baselineVolume)
	case analysis.FlaggedVolume > 0:
		analysis.VolumeDeviationFactor = domain.VolumeDeviationSentinel
	default:
		analysis.VolumeDeviationFactor = 0.0
	}

	usualCPs := toSet(baseline.UsualCounterparties)
	usualGeos := toSet(baseline.UsualGeographies)
	usualChans := toSet(baseline.UsualChannels)

	newCPs := make(map[string]bool)
	newGeos := make(map[string]bool)
	newChans := make(map[string]bool)

	var start, end time.Time
	for _, t := range flagged {
		if t.CounterpartyName != "" && !usualCPs[t.CounterpartyName] {
			newCPs[t.CounterpartyName] = true
		}
		if t.CounterpartyCountry != "" && !usualGeos[t.CounterpartyCountry] {
			newGeos[t.CounterpartyCountry] = true
		}
		if t.Channel != "" && !usualChans[t.Channel] {
			newChans[t.Channel] = true
		}

		d := t.Date.Time
		if start.IsZero() || d.Before(start) {
			start = d
		}
		if end.IsZero() || d.After(end) {
			end = d
		}
	}

	analysis.NewCounterpartiesCount = len(newCPs)
	analysis.NewGeographies = sortedKeys(newGeos)
	analysis.NewChannels = sortedKeys(newChans)

	// Velocity spike: compare the flagged count against the baseline rate
	// normalized to the flagged date span. Both the 3x threshold and the
	// absolute floor of 5 must hold to avoid false positives on tiny samples.
	if !start.IsZero() {
		spanDays := int(end.Sub(start).Hours()/24) + 1
		if spanDays < 1 {
			spanDays = 1
		}
		expected := float64(baseline.AvgMonthlyTxnCount) / 30.0 * float64(spanDays)
		if float64(len(flagged)) > expected*3 && len(flagged) > 5 {
			analysis.VelocitySpike = true
		}
	}

	analysis.DeviationSummary = buildSummary(&analysis)
	return analysis
}

// buildSummary concatenates only the triggered signals.
func buildSummary(a *domain.DeviationAnalysis) string {
	var parts []string
	if a.VolumeDeviationFactor > 2.0 {
		parts = append(parts, fmt.Sprintf("Volume is %.1fx baseline", a.VolumeDeviationFactor))
	}
	if a.VelocitySpike {
		parts = append(parts, "Significant velocity spike detected")
	}
	if a.NewCounterpartiesCount > 0 {
		parts = append(parts, fmt.Sprintf("%d new counterparties", a.NewCounterpartiesCount))
	}
	if len(a.NewGeographies) > 0 {
		geos := a.NewGeographies
		if len(geos) > 3 {
			geos = geos[:3]
		}
		parts = append(parts, "New geographies: "+strings.Join(geos, ", "))
	}
	if len(parts) == 0 {
		return "No significant deviation"
	}
	return strings.Join(parts, "; ")
}

func toSet(vals []string) map[string]bool {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}
