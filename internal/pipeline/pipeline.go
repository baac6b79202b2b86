// Package pipeline orchestrates a case through the triage automaton:
// INGEST -> TRIAGE -> (GENERATE -> VALIDATE -> PACKAGE | PACKAGE_EXIT).
// Each stage writes its own slice of the state envelope; a case that is not
// confirmed suspicious exits after triage without narrative generation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/enrich"
	"github.com/opensource-finance/harrier/internal/guidance"
	"github.com/opensource-finance/harrier/internal/narrative"
	"github.com/opensource-finance/harrier/internal/triage"
	"github.com/opensource-finance/harrier/internal/validate"
)

// Pipeline runs cases end to end. Safe for concurrent use; each run owns
// its state envelope exclusively.
type Pipeline struct {
	cfg       domain.PipelineConfig
	engine    *triage.Engine
	generator narrative.Generator
	fallback  narrative.Generator
	retriever guidance.Retriever
	tracer    trace.Tracer
	logger    *slog.Logger
}

// New creates a pipeline. The generator may be the template generator
// itself; the template fallback is always available for generation
// failures.
func New(cfg domain.PipelineConfig, engine *triage.Engine, gen narrative.Generator, retriever guidance.Retriever, logger *slog.Logger) *Pipeline {
	if gen == nil {
		gen = narrative.NewTemplateGenerator()
	}
	return &Pipeline{
		cfg:       cfg,
		engine:    engine,
		generator: gen,
		fallback:  narrative.NewTemplateGenerator(),
		retriever: retriever,
		tracer:    otel.Tracer("harrier/pipeline"),
		logger:    logger,
	}
}

// Run executes the automaton for one case. A panic in any stage is
// converted to an error output rather than taking the process down.
func (p *Pipeline) Run(ctx context.Context, tenantID string, c *domain.CaseInput) (out *domain.FinalOutput, err error) {
	start := time.Now()

	state := &domain.PipelineState{
		RunID:    uuid.New().String(),
		TenantID: tenantID,
		Case:     c,
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
			out = p.errorOutput(state, start, err)
			p.logger.Error("pipeline panicked",
				"run_id", state.RunID,
				"tenant_id", tenantID,
				"case_id", c.Alert.AlertID,
				"panic", r,
			)
		}
	}()

	p.logger.Info("pipeline started",
		"run_id", state.RunID,
		"tenant_id", tenantID,
		"case_id", c.Alert.AlertID,
		"alert_type", c.Alert.AlertType,
	)

	stage := domain.StageIngest
	for stage != domain.StageDone {
		if err := p.runStage(ctx, stage, state); err != nil {
			state.Err = err.Error()
			p.logger.Error("pipeline stage failed",
				"run_id", state.RunID,
				"stage", stage.String(),
				"case_id", c.Alert.AlertID,
				"error", err,
			)
			return p.errorOutput(state, start, err), err
		}
		stage = p.next(stage, state)
	}

	state.Final.ProcessingMs = time.Since(start).Milliseconds()

	p.logger.Info("pipeline completed",
		"run_id", state.RunID,
		"case_id", c.Alert.AlertID,
		"classification", state.Final.Classification,
		"processing_ms", state.Final.ProcessingMs,
	)
	return state.Final, nil
}

// runStage executes one stage inside its own span.
func (p *Pipeline) runStage(ctx context.Context, stage domain.Stage, state *domain.PipelineState) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+stage.String(),
		trace.WithAttributes(
			attribute.String("run.id", state.RunID),
			attribute.String("tenant.id", state.TenantID),
			attribute.String("case.id", state.Case.Alert.AlertID),
		),
	)
	defer span.End()

	switch stage {
	case domain.StageIngest:
		return p.runIngest(state)
	case domain.StageTriage:
		return p.runTriage(state)
	case domain.StageGenerate:
		return p.runGenerate(ctx, state)
	case domain.StageValidate:
		return p.runValidate(state)
	case domain.StagePackage:
		return p.runPackage(state)
	case domain.StagePackageExit:
		return p.runPackageExit(state)
	}
	return fmt.Errorf("unknown stage %d", stage)
}

// next computes the transition out of a completed stage. The only branch
// is after TRIAGE: confirmed-suspicious cases continue to generation,
// everything else exits.
func (p *Pipeline) next(stage domain.Stage, state *domain.PipelineState) domain.Stage {
	switch stage {
	case domain.StageIngest:
		return domain.StageTriage
	case domain.StageTriage:
		if state.Triage.Classification == domain.TruePositive {
			return domain.StageGenerate
		}
		return domain.StagePackageExit
	case domain.StageGenerate:
		return domain.StageValidate
	case domain.StageValidate:
		return domain.StagePackage
	}
	return domain.StageDone
}

func (p *Pipeline) runIngest(state *domain.PipelineState) error {
	dossier := enrich.BuildDossier(state.Case)
	state.Dossier = dossier

	p.logger.Debug("case ingested",
		"run_id", state.RunID,
		"validated", dossier.TransactionsValidated,
		"quarantined", dossier.TransactionsQuarantined,
		"duplicates", dossier.DuplicatesRemoved,
		"data_quality", dossier.DataQualityScore,
	)
	return nil
}

func (p *Pipeline) runTriage(state *domain.PipelineState) error {
	activation := triage.Activation(state.Case, state.Dossier)
	match := p.engine.EvaluateFirst(activation)
	behavioral := triage.AnomalyScore(state.Case, state.Dossier)

	state.Triage = triage.Decide(state.Case, state.Dossier, match, behavioral)

	if state.Triage.Classification == domain.TruePositive {
		state.Typology = triage.ClassifyTypology(state.Case, state.Dossier)
		if state.Typology != nil {
			state.Triage.Explanation += fmt.Sprintf(" Primary typology: %s.", state.Typology.PrimaryTypology)
		}
	}

	p.logger.Info("case triaged",
		"run_id", state.RunID,
		"classification", state.Triage.Classification,
		"composite_score", state.Triage.CompositeRiskScore,
		"rule_matched", state.Triage.RuleMatched,
	)
	return nil
}

func (p *Pipeline) runGenerate(ctx context.Context, state *domain.PipelineState) error {
	typology := "Suspicious Activity"
	if state.Typology != nil {
		typology = state.Typology.PrimaryTypology
	}

	chunks, err := p.retriever.Retrieve(ctx, typology, state.Case.Alert.AlertType)
	if err != nil {
		// The cached retriever already falls back internally; a hard error
		// here means no guidance at all, which generation tolerates.
		p.logger.Warn("guidance retrieval failed", "run_id", state.RunID, "error", err)
		chunks = nil
	}
	state.Guidance = chunks

	req := &narrative.Request{
		Case:            state.Case,
		Dossier:         state.Dossier,
		Decision:        state.Triage,
		Typology:        state.Typology,
		EvidenceSummary: narrative.BuildEvidenceSummary(state.Case, state.Dossier, state.Triage, state.Typology),
		Guidance:        chunks,
	}

	draft, err := p.generator.Generate(ctx, req)
	if err != nil {
		p.logger.Warn("narrative generation failed, using template fallback",
			"run_id", state.RunID,
			"error", err,
		)
		draft, err = p.fallback.Generate(ctx, req)
		if err != nil {
			return fmt.Errorf("narrative fallback failed: %w", err)
		}
	}
	state.Narrative = draft

	p.logger.Info("narrative generated",
		"run_id", state.RunID,
		"model", draft.GenerationModel,
		"word_count", draft.WordCount,
		"guidance_chunks", draft.GuidanceChunksUsed,
	)
	return nil
}

func (p *Pipeline) runValidate(state *domain.PipelineState) error {
	state.Validation = validate.Validate(state.Case, state.Dossier, state.Narrative)

	p.logger.Info("narrative validated",
		"run_id", state.RunID,
		"overall", state.Validation.OverallStatus,
		"passed", state.Validation.Passed,
		"warnings", state.Validation.Warnings,
		"failed", state.Validation.Failed,
	)
	return nil
}

// runPackage assembles the audit package and final output for a confirmed
// case.
func (p *Pipeline) runPackage(state *domain.PipelineState) error {
	state.Audit = p.buildAuditPackage(state)

	state.Final = &domain.FinalOutput{
		CaseID:             state.Case.Alert.AlertID,
		Classification:     state.Triage.Classification,
		Explanation:        state.Triage.Explanation,
		CompositeRiskScore: state.Triage.CompositeRiskScore,
		Typology:           state.Typology.PrimaryTypology,
		Narrative:          state.Narrative,
		Validation:         state.Validation,
		Audit:              state.Audit,
	}
	return nil
}

// runPackageExit builds the terse final output for cases that exit at
// triage. No narrative, validation, or audit package is produced.
func (p *Pipeline) runPackageExit(state *domain.PipelineState) error {
	state.Final = &domain.FinalOutput{
		CaseID:             state.Case.Alert.AlertID,
		Classification:     state.Triage.Classification,
		Explanation:        state.Triage.Explanation,
		CompositeRiskScore: state.Triage.CompositeRiskScore,
	}

	p.logger.Info("case exited at triage",
		"run_id", state.RunID,
		"classification", state.Triage.Classification,
	)
	return nil
}

// buildAuditPackage compiles the traceability entries and per-stage logs.
func (p *Pipeline) buildAuditPackage(state *domain.PipelineState) *domain.AuditPackage {
	typologyBasis := "None"
	if state.Typology != nil {
		typologyBasis = state.Typology.PrimaryTypology
	}

	var traces []domain.TraceEntry
	for _, sentence := range strings.Split(state.Narrative.FullNarrative, ". ") {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) > 10 {
			traces = append(traces, domain.TraceEntry{
				Sentence:          sentence,
				SourceDataSummary: "Derived from enriched dossier",
				TypologyBasis:     typologyBasis,
			})
		}
	}

	return &domain.AuditPackage{
		CaseID:          state.Case.Alert.AlertID,
		PipelineVersion: p.cfg.Version,
		GeneratedAt:     time.Now().UTC(),
		Traceability:    traces,
		Logs: domain.AuditLogs{
			Ingestion: domain.IngestionLog{
				SourcesConsulted:        state.Dossier.SourcesConsulted,
				TransactionsValidated:   state.Dossier.TransactionsValidated,
				TransactionsQuarantined: state.Dossier.TransactionsQuarantined,
				DuplicatesRemoved:       state.Dossier.DuplicatesRemoved,
				DataQualityScore:        state.Dossier.DataQualityScore,
			},
			Enrichment: domain.EnrichmentLog{
				BehavioralBaseline: state.Dossier.BehavioralBaseline,
				DeviationAnalysis:  state.Dossier.DeviationAnalysis,
				RiskFactorCount:    len(state.Dossier.RiskFactors),
			},
			Triage: domain.TriageLog{
				Classification: state.Triage.Classification,
				CompositeScore: state.Triage.CompositeRiskScore,
				RuleMatched:    state.Triage.RuleMatched,
				Explanation:    state.Triage.Explanation,
			},
			Typology: state.Typology,
			Generation: domain.GenerationLog{
				Model:          state.Narrative.GenerationModel,
				WordCount:      state.Narrative.WordCount,
				GuidanceChunks: state.Narrative.GuidanceChunksUsed,
				PromptHash:     state.Narrative.PromptHash,
			},
			Validation: state.Validation,
		},
	}
}

// errorOutput produces the exit contract for a failed run. Whatever triage
// concluded before the failure is preserved; otherwise the case defaults to
// manual review.
func (p *Pipeline) errorOutput(state *domain.PipelineState, start time.Time, err error) *domain.FinalOutput {
	out := &domain.FinalOutput{
		CaseID:         state.Case.Alert.AlertID,
		Classification: domain.NeedsReview,
		Explanation:    "Pipeline error, manual review required.",
		ProcessingMs:   time.Since(start).Milliseconds(),
		Error:          err.Error(),
	}
	if state.Triage != nil {
		out.Classification = state.Triage.Classification
		out.Explanation = state.Triage.Explanation
		out.CompositeRiskScore = state.Triage.CompositeRiskScore
	}
	return out
}
