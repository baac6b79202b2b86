package domain

import "time"

// Stage identifies one state of the pipeline automaton.
type Stage int

const (
	StageIngest Stage = iota
	StageTriage
	StageGenerate
	StageValidate
	StagePackage
	StagePackageExit
	StageDone
)

// String returns the stage name for logging and tracing.
func (s Stage) String() string {
	switch s {
	case StageIngest:
		return "INGEST"
	case StageTriage:
		return "TRIAGE"
	case StageGenerate:
		return "GENERATE"
	case StageValidate:
		return "VALIDATE"
	case StagePackage:
		return "PACKAGE"
	case StagePackageExit:
		return "PACKAGE_EXIT"
	case StageDone:
		return "DONE"
	}
	return "UNKNOWN"
}

// PipelineState is the envelope threaded through the orchestrator. Each
// stage reads a subset of fields and writes its own disjoint subset; once a
// field is written by its owning stage it is never altered by a later one.
type PipelineState struct {
	RunID    string `json:"run_id"`
	TenantID string `json:"tenant_id"`

	// Written by the caller.
	Case *CaseInput `json:"case_input"`

	// Written by INGEST.
	Dossier *EnrichedDossier `json:"enriched_dossier,omitempty"`

	// Written by TRIAGE.
	Triage   *TriageDecision     `json:"triage_decision,omitempty"`
	Typology *TypologyAssessment `json:"typology_assessment,omitempty"`

	// Written by GENERATE.
	Guidance  []string        `json:"guidance_context,omitempty"`
	Narrative *DraftNarrative `json:"draft_narrative,omitempty"`

	// Written by VALIDATE.
	Validation *ValidationResult `json:"validation_result,omitempty"`

	// Written by PACKAGE / PACKAGE_EXIT.
	Audit *AuditPackage `json:"audit_package,omitempty"`
	Final *FinalOutput  `json:"final_output,omitempty"`

	// Control fields.
	RetryCount int    `json:"retry_count"`
	Err        string `json:"error,omitempty"`
}

// TraceEntry links one narrative sentence back to its supporting data.
type TraceEntry struct {
	Sentence          string `json:"sentence"`
	SourceDataSummary string `json:"source_data_summary"`
	TypologyBasis     string `json:"typology_basis"`
}

// IngestionLog records what the ingest stage consulted and produced.
type IngestionLog struct {
	SourcesConsulted        []string `json:"sources_consulted"`
	TransactionsValidated   int      `json:"transactions_validated"`
	TransactionsQuarantined int      `json:"transactions_quarantined"`
	DuplicatesRemoved       int      `json:"duplicates_removed"`
	DataQualityScore        float64  `json:"data_quality_score"`
}

// EnrichmentLog records the analytic outputs of the ingest stage.
type EnrichmentLog struct {
	BehavioralBaseline BehavioralBaseline `json:"behavioral_baseline"`
	DeviationAnalysis  DeviationAnalysis  `json:"deviation_analysis"`
	RiskFactorCount    int                `json:"risk_factor_count"`
}

// TriageLog records the triage rationale.
type TriageLog struct {
	Classification Classification `json:"classification"`
	CompositeScore float64        `json:"composite_risk_score"`
	RuleMatched    string         `json:"rule_matched,omitempty"`
	Explanation    string         `json:"explanation"`
}

// GenerationLog records narrative generation metadata.
type GenerationLog struct {
	Model          string `json:"model"`
	WordCount      int    `json:"word_count"`
	GuidanceChunks int    `json:"guidance_chunks"`
	PromptHash     string `json:"prompt_hash"`
}

// AuditLogs enumerates, per stage, the inputs consulted and outputs
// produced, to support independent reconstruction of the decision.
type AuditLogs struct {
	Ingestion  IngestionLog        `json:"ingestion"`
	Enrichment EnrichmentLog       `json:"enrichment"`
	Triage     TriageLog           `json:"triage"`
	Typology   *TypologyAssessment `json:"typology,omitempty"`
	Generation GenerationLog       `json:"generation"`
	Validation *ValidationResult   `json:"validation,omitempty"`
}

// AuditPackage is the full audit trail for a TRUE_POSITIVE case.
type AuditPackage struct {
	CaseID          string       `json:"case_id"`
	PipelineVersion string       `json:"pipeline_version"`
	GeneratedAt     time.Time    `json:"generated_at"`
	Traceability    []TraceEntry `json:"traceability"`
	Logs            AuditLogs    `json:"audit_logs"`
}

// FinalOutput is the pipeline's exit contract. Narrative, validation, and
// audit package are present only for TRUE_POSITIVE classifications.
type FinalOutput struct {
	CaseID             string            `json:"case_id"`
	Classification     Classification    `json:"classification"`
	Explanation        string            `json:"explanation"`
	CompositeRiskScore float64           `json:"composite_risk_score"`
	Typology           string            `json:"typology,omitempty"`
	Narrative          *DraftNarrative   `json:"sar_narrative,omitempty"`
	Validation         *ValidationResult `json:"validation_result,omitempty"`
	Audit              *AuditPackage     `json:"audit_package,omitempty"`
	ProcessingMs       int64             `json:"processing_ms"`
	Error              string            `json:"error,omitempty"`
}
