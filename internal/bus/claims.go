package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opensource-health/egret/internal/domain"
)

// The EventBus moves opaque bytes. The helpers here pin the JSON
// shapes the intake handler and the adjudication workers exchange, so
// neither side hand-rolls the envelope.

// ClaimSubmission is the payload carried on TopicClaimSubmitted.
type ClaimSubmission struct {
	ClaimID  string              `json:"claimId"`
	TenantID string              `json:"tenantId"`
	Request  domain.ClaimRequest `json:"request"`
}

// PublishSubmission enqueues a claim for async adjudication.
func PublishSubmission(ctx context.Context, b domain.EventBus, tenantID string, sub *ClaimSubmission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal claim submission: %w", err)
	}
	return b.Publish(ctx, tenantID, domain.TopicClaimSubmitted, payload)
}

// DecodeSubmission parses a claim submission off the bus.
func DecodeSubmission(msg *domain.Message) (*ClaimSubmission, error) {
	var sub ClaimSubmission
	if err := json.Unmarshal(msg.Payload, &sub); err != nil {
		return nil, fmt.Errorf("failed to parse claim submission: %w", err)
	}
	return &sub, nil
}

// PublishDecision announces an adjudication ruling on the decision
// topic and additionally routes manual reviews onto the review queue.
func PublishDecision(ctx context.Context, b domain.EventBus, tenantID string, result *domain.AdjudicationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}
	if err := b.Publish(ctx, tenantID, domain.TopicClaimDecision, payload); err != nil {
		return err
	}
	if result.Decision == domain.DecisionManualReview {
		return b.Publish(ctx, tenantID, domain.TopicClaimReview, payload)
	}
	return nil
}

// PublishAppeal announces a filed appeal.
func PublishAppeal(ctx context.Context, b domain.EventBus, tenantID string, appeal *domain.Appeal) error {
	payload, err := json.Marshal(appeal)
	if err != nil {
		return fmt.Errorf("failed to marshal appeal: %w", err)
	}
	return b.Publish(ctx, tenantID, domain.TopicClaimAppealed, payload)
}
