package enrich

import (
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Sources consulted by the ingest stage, recorded for the audit trail.
var sourcesConsulted = []string{"TMS", "KYC", "Credit Bureau", "Watchlist", "Internal History"}

// BuildDossier runs the full enrichment pass for a case: sanitization,
// baseline computation, deviation analysis, and cross-source risk
// aggregation. It is a pure function of the case input and cannot fail;
// data-quality problems are quarantined and counted, never raised.
func BuildDossier(c *domain.CaseInput) *domain.EnrichedDossier {
	sanitized := Sanitize(c.TransactionHistory)

	baseline := ComputeBaseline(sanitized.Transactions, c.Alert.GeneratedAt)
	deviation := AnalyzeDeviation(sanitized.Transactions, baseline, c.Alert.FlaggedTransactionIDs)
	riskScore, riskFactors := AggregateRisk(c)

	intel := c.Intel()

	raw := len(c.TransactionHistory)
	if raw == 0 {
		raw = 1
	}

	return &domain.EnrichedDossier{
		UnifiedAlertID: c.Alert.AlertID,
		CustomerID:     c.CustomerProfile.CustomerID,
		CustomerName:   c.CustomerProfile.Name,
		AccountIDs:     c.Alert.AccountIDs,
		Jurisdiction:   c.Jurisdiction(),

		BehavioralBaseline:   baseline,
		DeviationAnalysis:    deviation,
		CrossSourceRiskScore: riskScore,
		RiskFactors:          riskFactors,

		HasPriorSARs:     len(intel.PriorSARs) > 0,
		PriorSARCount:    len(intel.PriorSARs),
		IsPEP:            intel.PEPStatus,
		HasSanctionsHits: len(intel.SanctionsHits) > 0,
		HasAdverseMedia:  len(intel.AdverseMediaHits) > 0,

		EnrichmentTimestamp:     time.Now().UTC(),
		SourcesConsulted:        sourcesConsulted,
		DataQualityScore:        round2(100.0 * float64(len(sanitized.Transactions)) / float64(raw)),
		TransactionsValidated:   len(sanitized.Transactions),
		TransactionsQuarantined: sanitized.Quarantined,
		DuplicatesRemoved:       sanitized.Duplicates,
	}
}
