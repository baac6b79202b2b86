// Package worker provides async case processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/pipeline"
)

// Worker consumes cases from the EventBus and runs them through the
// pipeline asynchronously.
type Worker struct {
	bus      domain.EventBus
	pipeline *pipeline.Pipeline

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = global worker)
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, p *pipeline.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		pipeline: p,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing cases for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicCaseReceived, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts a worker for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicCaseReceived, func(ctx context.Context, msg *domain.Message) error {
		return w.processCase(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicCaseReceived,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processCase(ctx, msg.TenantID, msg)
}

// processCase runs one queued case through the pipeline and publishes the
// result.
func (w *Worker) processCase(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var caseInput domain.CaseInput
	if err := json.Unmarshal(msg.Payload, &caseInput); err != nil {
		slog.Error("failed to parse case message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	slog.Debug("processing case",
		"case_id", caseInput.Alert.AlertID,
		"tenant_id", tenantID,
	)

	out, err := w.pipeline.Run(ctx, tenantID, &caseInput)
	if err != nil {
		slog.Error("pipeline run failed",
			"case_id", caseInput.Alert.AlertID,
			"tenant_id", tenantID,
			"error", err,
		)
		// The error output still carries the exit contract; fall through
		// and publish it.
	}

	resultPayload, _ := json.Marshal(out)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicCaseCompleted, resultPayload); err != nil {
		slog.Error("failed to publish case result",
			"case_id", caseInput.Alert.AlertID,
			"error", err,
		)
	}

	// Confirmed-suspicious cases also go to the alert topic for downstream
	// filing systems.
	if out.Classification == domain.TruePositive {
		if err := w.bus.Publish(ctx, tenantID, domain.TopicCaseAlert, resultPayload); err != nil {
			slog.Error("failed to publish case alert",
				"case_id", caseInput.Alert.AlertID,
				"error", err,
			)
		}
	}

	slog.Info("case processed",
		"case_id", caseInput.Alert.AlertID,
		"tenant_id", tenantID,
		"classification", out.Classification,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
