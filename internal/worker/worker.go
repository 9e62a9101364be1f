// Package worker provides async claim processing for the Pro tier.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-health/egret/internal/bus"
	"github.com/opensource-health/egret/internal/domain"
	"github.com/opensource-health/egret/internal/history"
	"github.com/opensource-health/egret/internal/pipeline"
)

// Worker consumes submitted claims from the EventBus, adjudicates them
// and publishes the decisions.
type Worker struct {
	bus      domain.EventBus
	repo     domain.Repository
	pipeline *pipeline.Pipeline
	history  *history.Service

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(b domain.EventBus, repo domain.Repository, p *pipeline.Pipeline, hist *history.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      b,
		repo:     repo,
		pipeline: p,
		history:  hist,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing claims for the given tenants.
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
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicClaimSubmitted, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts a worker for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicClaimSubmitted, func(ctx context.Context, msg *domain.Message) error {
		return w.processClaim(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicClaimSubmitted,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processClaim(ctx, msg.TenantID, msg)
}

// processClaim adjudicates one submitted claim end to end. In-flight
// claims are tracked so Stop can wait for them to finish.
func (w *Worker) processClaim(ctx context.Context, tenantID string, msg *domain.Message) error {
	w.wg.Add(1)
	defer w.wg.Done()

	start := time.Now()

	claimMsg, err := bus.DecodeSubmission(msg)
	if err != nil {
		slog.Error("failed to parse claim message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if claimMsg.TenantID != "" {
		tenantID = claimMsg.TenantID
	}

	slog.Debug("processing claim",
		"claim_id", claimMsg.ClaimID,
		"tenant_id", tenantID,
	)

	// 1. Adjudicate. The prior-claims counters were filled in at
	// intake, before the claim row existed.
	result := w.pipeline.Adjudicate(ctx, tenantID, claimMsg.ClaimID, &claimMsg.Request)
	result.ID = uuid.New().String()
	result.CreatedAt = time.Now().UTC()

	// 2. Persist the decision
	if w.repo != nil {
		if err := w.repo.SaveAdjudication(ctx, tenantID, result); err != nil {
			slog.Error("failed to save adjudication",
				"claim_id", claimMsg.ClaimID,
				"error", err,
			)
		}
		if err := w.repo.UpdateClaimStatus(ctx, tenantID, claimMsg.ClaimID, result.Decision); err != nil {
			slog.Error("failed to update claim status",
				"claim_id", claimMsg.ClaimID,
				"error", err,
			)
		}
	}
	if w.history != nil {
		w.history.RecordClaim(ctx, tenantID, claimMsg.Request.MemberID, claimMsg.Request.TreatmentDate)
	}

	// 3. Publish the decision; manual reviews are also routed onto the
	// review queue
	if err := bus.PublishDecision(ctx, w.bus, tenantID, result); err != nil {
		slog.Error("failed to publish decision",
			"claim_id", claimMsg.ClaimID,
			"error", err,
		)
	}

	slog.Info("claim processed",
		"claim_id", claimMsg.ClaimID,
		"tenant_id", tenantID,
		"decision", result.Decision,
		"approved_amount", result.ApprovedAmount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop unsubscribes all workers and waits for in-flight claims to
// finish.
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
