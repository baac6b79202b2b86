package triage

import (
	"github.com/opensource-finance/harrier/internal/domain"
)

// Jurisdictions treated as high-risk when they appear among the new
// geographies of the flagged subset.
var highRiskJurisdictions = map[string]bool{
	"AE": true, "KY": true, "PA": true, "BZ": true,
	"VG": true, "BS": true, "LR": true,
}

// AnomalyScore computes the independent behavioral anomaly score (0-100)
// from bucketed thresholds. Buckets within a dimension do not overlap; the
// highest applicable bucket wins and the dimensions sum.
func AnomalyScore(c *domain.CaseInput, d *domain.EnrichedDossier) float64 {
	var score float64
	dev := d.DeviationAnalysis

	// Volume deviation (0-30)
	switch {
	case dev.VolumeDeviationFactor > 8:
		score += 30
	case dev.VolumeDeviationFactor > 5:
		score += 25
	case dev.VolumeDeviationFactor > 3:
		score += 20
	case dev.VolumeDeviationFactor > 2:
		score += 15
	case dev.VolumeDeviationFactor > 1.5:
		score += 8
	}

	// New counterparties (0-20)
	switch {
	case dev.NewCounterpartiesCount > 20:
		score += 20
	case dev.NewCounterpartiesCount > 10:
		score += 15
	case dev.NewCounterpartiesCount > 5:
		score += 10
	case dev.NewCounterpartiesCount > 2:
		score += 5
	}

	// Velocity spike (0-15)
	if dev.VelocitySpike {
		score += 15
	}

	// New geographies (0-10)
	highRisk := false
	for _, g := range dev.NewGeographies {
		if highRiskJurisdictions[g] {
			highRisk = true
			break
		}
	}
	if highRisk {
		score += 10
	} else if len(dev.NewGeographies) > 0 {
		score += 5
	}

	// Account age at alert time (0-10)
	if age, ok := c.CustomerProfile.AccountAgeDays(c.Alert.GeneratedAt); ok {
		switch {
		case age < 90:
			score += 10
		case age < 180:
			score += 7
		case age < 365:
			score += 3
		}
	}

	// Income mismatch (0-15). When income is unknown, fall back to an
	// absolute threshold on the flagged volume.
	income := c.CustomerProfile.AnnualIncome
	if income > 0 {
		ratio := dev.FlaggedVolume / income
		switch {
		case ratio > 5:
			score += 15
		case ratio > 2:
			score += 10
		case ratio > 1:
			score += 5
		}
	} else if dev.FlaggedVolume > 100000 {
		score += 15
	}

	if score > 100 {
		score = 100
	}
	return score
}
