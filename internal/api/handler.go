package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/triage"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	cache    domain.Cache
	bus      domain.EventBus
	engine   *triage.Engine
	pipeline *pipeline.Pipeline
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(cache domain.Cache, bus domain.EventBus, engine *triage.Engine, p *pipeline.Pipeline, version string) *Handler {
	return &Handler{
		cache:    cache,
		bus:      bus,
		engine:   engine,
		pipeline: p,
		version:  version,
	}
}

// EvaluateResponse is the response for POST /evaluate.
type EvaluateResponse struct {
	Result   *domain.FinalOutput `json:"result"`
	Metadata struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// Evaluate handles POST /evaluate: one case through the full pipeline,
// synchronously.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	caseInput, ok := h.decodeCase(w, r)
	if !ok {
		return
	}
	AnnotateCase(ctx, caseInput.Alert.AlertID)

	// Per-tenant throughput accounting; failures are non-fatal.
	if _, err := h.cache.IncrementCounter(ctx, tenantID, "cases", 24*time.Hour); err != nil {
		slog.Warn("case counter increment failed", "tenant_id", tenantID, "error", err)
	}

	out, err := h.pipeline.Run(ctx, tenantID, caseInput)
	if err != nil {
		slog.Error("pipeline run failed",
			"case_id", caseInput.Alert.AlertID,
			"tenant_id", tenantID,
			"error", err,
		)
		// The error output still satisfies the exit contract; return it
		// with a 500 so callers can retry.
		writeJSON(w, http.StatusInternalServerError, out)
		return
	}

	AnnotateOutcome(ctx, string(out.Classification))

	resp := EvaluateResponse{Result: out}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// SubmitResponse is the response for POST /cases.
type SubmitResponse struct {
	CaseID string `json:"caseId"`
	Status string `json:"status"`
}

// SubmitCase handles POST /cases: queue a case for async processing via
// the event bus. Results arrive on the case-completed topic.
func (h *Handler) SubmitCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	caseInput, ok := h.decodeCase(w, r)
	if !ok {
		return
	}
	AnnotateCase(ctx, caseInput.Alert.AlertID)

	payload, err := json.Marshal(caseInput)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to encode case",
		})
		return
	}

	if err := h.bus.Publish(ctx, tenantID, domain.TopicCaseReceived, payload); err != nil {
		slog.Error("failed to queue case",
			"case_id", caseInput.Alert.AlertID,
			"tenant_id", tenantID,
			"error", err,
		)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "failed to queue case",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		CaseID: caseInput.Alert.AlertID,
		Status: "queued",
	})
}

// decodeCase parses and validates the case body shared by the sync and
// async intake endpoints.
func (h *Handler) decodeCase(w http.ResponseWriter, r *http.Request) (*domain.CaseInput, bool) {
	var caseInput domain.CaseInput
	if err := json.NewDecoder(r.Body).Decode(&caseInput); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return nil, false
	}

	if caseInput.Alert.AlertID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "alert.alert_id is required",
		})
		return nil, false
	}
	if caseInput.Alert.CustomerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "alert.customer_id is required",
		})
		return nil, false
	}
	if caseInput.Alert.GeneratedAt.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "alert.generated_at is required",
		})
		return nil, false
	}

	return &caseInput, true
}

// RuleResponse is one rule in GET /rules.
type RuleResponse struct {
	ID             string                `json:"id"`
	Priority       int                   `json:"priority"`
	Description    string                `json:"description"`
	Expression     string                `json:"expression"`
	Classification domain.Classification `json:"classification"`
	Enabled        bool                  `json:"enabled"`
}

// ListRules handles GET /rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules := triage.BuiltinRules()
	resp := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		resp = append(resp, RuleResponse{
			ID:             rule.ID,
			Priority:       rule.Priority,
			Description:    rule.Description,
			Expression:     rule.Expression,
			Classification: rule.Classification,
			Enabled:        rule.Enabled,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": resp,
		"count": len(resp),
	})
}

// ReloadRules handles POST /rules/reload.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.LoadRules(triage.BuiltinRules()); err != nil {
		slog.Error("rule reload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "rule reload failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded": true,
		"count":    h.engine.RulesCount(),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
