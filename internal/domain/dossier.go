package domain

import "time"

// BehavioralBaseline summarizes the customer's normal transacting behavior,
// computed once per case from transactions strictly before the alert month.
// Never mutated after creation.
type BehavioralBaseline struct {
	AvgMonthlyInflow    float64  `json:"avg_monthly_inflow"`
	AvgMonthlyOutflow   float64  `json:"avg_monthly_outflow"`
	AvgMonthlyTxnCount  int      `json:"avg_txn_count_per_month"`
	UsualCounterparties []string `json:"usual_counterparties"`
	UsualGeographies    []string `json:"usual_geographies"`
	UsualChannels       []string `json:"usual_channels"`
	BaselinePeriod      string   `json:"baseline_period"` // "YYYY-MM-DD to YYYY-MM-DD", or NoBaselineData
	MaxSingleTxn        float64  `json:"max_single_txn"`
}

// NoBaselineData marks a degenerate (but valid) baseline computed from an
// empty pre-alert transaction set.
const NoBaselineData = "No baseline data"

// HasData reports whether any pre-alert transactions backed the baseline.
func (b *BehavioralBaseline) HasData() bool {
	return b.BaselinePeriod != NoBaselineData
}

// VolumeDeviationSentinel is the volume-deviation factor reported when the
// baseline volume is zero but flagged volume is positive. It guards the
// divide-by-zero while still signaling anomaly.
const VolumeDeviationSentinel = 999.0

// DeviationAnalysis compares the flagged transaction subset against the
// baseline. Depends on the baseline's lifetime.
type DeviationAnalysis struct {
	VolumeDeviationFactor  float64  `json:"volume_deviation_factor"`
	VelocitySpike          bool     `json:"velocity_spike"`
	NewCounterpartiesCount int      `json:"new_counterparties_count"`
	NewGeographies         []string `json:"new_geographies"`
	NewChannels            []string `json:"new_channels"`
	DeviationSummary       string   `json:"deviation_summary"`
	FlaggedTxnCount        int      `json:"flagged_txn_count"`
	FlaggedInflow          float64  `json:"flagged_inflow"`
	FlaggedOutflow         float64  `json:"flagged_outflow"`
	FlaggedVolume          float64  `json:"flagged_volume"`
}

// RiskFactor itemizes one contribution to the cross-source risk score.
// The factor list is append-only during aggregation.
type RiskFactor struct {
	Factor   string `json:"factor"`
	Source   string `json:"source"`
	Severity string `json:"severity"` // high, medium, low
	Detail   string `json:"detail"`
}

// EnrichedDossier is the case's analytic snapshot: baseline, deviation,
// cross-source risk, and derived booleans. Produced once by the ingest
// stage; immutable thereafter.
type EnrichedDossier struct {
	UnifiedAlertID string   `json:"unified_alert_id"`
	CustomerID     string   `json:"customer_id"`
	CustomerName   string   `json:"customer_name"`
	AccountIDs     []string `json:"account_ids"`
	Jurisdiction   string   `json:"jurisdiction"`

	BehavioralBaseline   BehavioralBaseline `json:"behavioral_baseline"`
	DeviationAnalysis    DeviationAnalysis  `json:"deviation_analysis"`
	CrossSourceRiskScore float64            `json:"cross_source_risk_score"`
	RiskFactors          []RiskFactor       `json:"risk_factors"`

	HasPriorSARs     bool `json:"has_prior_sars"`
	PriorSARCount    int  `json:"prior_sar_count"`
	IsPEP            bool `json:"is_pep"`
	HasSanctionsHits bool `json:"has_sanctions_hits"`
	HasAdverseMedia  bool `json:"has_adverse_media"`

	EnrichmentTimestamp     time.Time `json:"enrichment_timestamp"`
	SourcesConsulted        []string  `json:"sources_consulted"`
	DataQualityScore        float64   `json:"data_quality_score"`
	TransactionsValidated   int       `json:"transactions_validated"`
	TransactionsQuarantined int       `json:"transactions_quarantined"`
	DuplicatesRemoved       int       `json:"duplicates_removed"`
}
