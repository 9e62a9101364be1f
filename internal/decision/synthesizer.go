// Package decision implements the Claim Adjudication Decision
// Synthesizer. It combines the four stage results into one ruling
// using a fixed priority order.
package decision

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/opensource-health/egret/internal/domain"
)

// Default stage confidences substituted when a stage did not run or
// did not report one.
const (
	defaultExtractionConfidence  = 0.85
	defaultEligibilityConfidence = 0.95
	defaultCoverageConfidence    = 0.92
	defaultLimitConfidence       = 0.98
)

// hardRejectionCodes force a REJECTED ruling regardless of the
// computed amounts.
var hardRejectionCodes = []domain.ReasonCode{
	domain.ReasonPolicyInactive,
	domain.ReasonMemberNotCovered,
	domain.ReasonWaitingPeriod,
	domain.ReasonInvalidDate,
	domain.ReasonMissingDocuments,
	domain.ReasonPreAuthMissing,
	domain.ReasonPerClaimExceeded,
}

// Synthesizer produces the final adjudication ruling. It is a pure
// function of its input: identifiers and timestamps are assigned by
// the caller so re-running on identical input is bit-identical.
type Synthesizer struct {
	policy domain.PolicyConfiguration
}

// NewSynthesizer creates a synthesizer bound to a policy.
func NewSynthesizer(policy domain.PolicyConfiguration) *Synthesizer {
	return &Synthesizer{policy: policy}
}

// Input carries the claim and the stage results into synthesis.
// Coverage, Limits and Fraud may be nil when eligibility
// short-circuited the pipeline.
type Input struct {
	ClaimID  string
	TenantID string
	Request  *domain.ClaimRequest

	Eligibility *domain.EligibilityResult
	Coverage    *domain.CoverageResult
	Limits      *domain.LimitResult
	Fraud       *domain.FraudResult
}

// Synthesize evaluates the four priority tiers in order; the first
// matching tier wins. Monetary outputs are rounded to two decimals
// here and nowhere else.
func (s *Synthesizer) Synthesize(ctx context.Context, input *Input) *domain.AdjudicationResult {
	result := &domain.AdjudicationResult{
		ClaimID:     input.ClaimID,
		TenantID:    input.TenantID,
		Eligibility: input.Eligibility,
		Coverage:    input.Coverage,
		Limits:      input.Limits,
		Fraud:       input.Fraud,
	}

	var eligReasons, covReasons, limReasons []domain.ReasonCode
	if input.Eligibility != nil {
		eligReasons = input.Eligibility.RejectionReasons
	}
	if input.Coverage != nil {
		covReasons = input.Coverage.RejectionReasons
	}
	if input.Limits != nil {
		limReasons = input.Limits.RejectionReasons
	}
	merged := domain.MergeReasons(eligReasons, covReasons, limReasons)
	result.RejectionReasons = merged

	if input.Coverage != nil {
		for _, ex := range input.Coverage.Excluded {
			result.RejectedItems = append(result.RejectedItems, ex.Item)
		}
	}
	if input.Fraud != nil {
		result.FraudFlags = input.Fraud.Flags
	}

	approved := 0.0
	if input.Limits != nil {
		approved = input.Limits.ApprovedAmount
	}
	if input.Request != nil && approved > input.Request.ClaimAmount {
		approved = input.Request.ClaimAmount
	}

	// Leniently admitted medicines keep a claim out of the fully
	// excluded tier, the same as decisively covered items.
	fullyExcluded := input.Coverage != nil &&
		domain.HasReason(merged, domain.ReasonServiceNotCovered) &&
		len(input.Coverage.CoveredItems) == 0 &&
		len(input.Coverage.LenientItems) == 0

	switch {
	case s.hardRejection(merged) || fullyExcluded:
		result.Decision = domain.DecisionRejected
		result.ApprovedAmount = 0
		result.Notes = rejectionMessage(merged, fullyExcluded, input)
		result.NextSteps = "Review the rejection reasons. You may appeal with additional documentation."

	case input.Fraud != nil && (input.Fraud.RecommendReview || input.Fraud.RiskScore >= s.policy.Review.ManualReviewThreshold):
		result.Decision = domain.DecisionManualReview
		// Nothing pays out until a human rules; the computed amount
		// stays on the Limits sub-result for the reviewer.
		result.ApprovedAmount = 0
		result.Notes = fmt.Sprintf("Claim flagged for manual review (%s).", strings.Join(result.FraudFlags, ", "))
		result.NextSteps = "Our claims team will review within 3 working days. No action needed."

	case input.Coverage != nil && len(input.Coverage.Excluded) > 0 && s.anyCovered(input.Coverage):
		result.Decision = domain.DecisionPartial
		result.ApprovedAmount = approved
		result.Notes = fmt.Sprintf("Claim partially approved. %d item(s) excluded from payment.", len(input.Coverage.Excluded))
		result.NextSteps = "The approved amount will be settled. Excluded items are listed in the decision."

	case approved > 0:
		ratio := 1.0
		if input.Request != nil && input.Request.ClaimAmount > 0 {
			ratio = approved / input.Request.ClaimAmount
		}
		if ratio >= s.policy.Review.FullApprovalRatio {
			result.Decision = domain.DecisionApproved
			result.Notes = "Claim approved."
		} else {
			result.Decision = domain.DecisionPartial
			result.Notes = "Claim partially approved after applying policy limits and co-pay."
		}
		result.ApprovedAmount = approved
		result.NextSteps = "The approved amount will be settled to your registered account."

	default:
		result.Decision = domain.DecisionRejected
		result.ApprovedAmount = 0
		result.Notes = "No payable amount remains after applying policy terms."
		result.NextSteps = "Review the rejection reasons. You may appeal with additional documentation."
	}

	if input.Limits != nil && result.ApprovedAmount > 0 {
		result.Deductions = domain.Deductions{
			Copay:           round2(input.Limits.CopayAmount),
			ExcludedItems:   round2(input.Limits.ExcludedAmount),
			NetworkDiscount: round2(input.Limits.NetworkDiscount),
		}
		result.NetworkDiscount = round2(input.Limits.NetworkDiscount)
	}
	result.ApprovedAmount = round2(result.ApprovedAmount)

	result.Confidence = s.blendConfidence(input)
	result.CashlessApproved = s.cashlessApproved(input, result)
	return result
}

// RejectMissingDocuments builds the terminal ruling for a submission
// lacking its prescription or bill. No stage runs for these.
func (s *Synthesizer) RejectMissingDocuments(claimID, tenantID string, req *domain.ClaimRequest) *domain.AdjudicationResult {
	var missing []string
	if !req.Extracted.HasPrescription {
		missing = append(missing, "prescription")
	}
	if !req.Extracted.HasBill {
		missing = append(missing, "bill")
	}

	return &domain.AdjudicationResult{
		ClaimID:          claimID,
		TenantID:         tenantID,
		Decision:         domain.DecisionRejected,
		ApprovedAmount:   0,
		RejectionReasons: []domain.ReasonCode{domain.ReasonMissingDocuments},
		Confidence:       1.0,
		Notes:            fmt.Sprintf("Required documents missing: %s.", strings.Join(missing, ", ")),
		NextSteps:        "Resubmit the claim with all required documents attached.",
	}
}

func (s *Synthesizer) hardRejection(merged []domain.ReasonCode) bool {
	for _, code := range hardRejectionCodes {
		if domain.HasReason(merged, code) {
			return true
		}
	}
	return false
}

// anyCovered reports whether the claim has decisive covered items;
// medicines admitted by the lenient default also count toward partial
// approval.
func (s *Synthesizer) anyCovered(cov *domain.CoverageResult) bool {
	return len(cov.CoveredItems) > 0 || len(cov.LenientItems) > 0
}

// rejectionMessage picks the user-facing message by fixed precedence
// among the triggering codes.
func rejectionMessage(merged []domain.ReasonCode, fullyExcluded bool, input *Input) string {
	switch {
	case domain.HasReason(merged, domain.ReasonMissingDocuments):
		return "Claim rejected: required documents are missing."
	case domain.HasReason(merged, domain.ReasonInvalidDate):
		return "Claim rejected: the submitted dates could not be parsed."
	case domain.HasReason(merged, domain.ReasonWaitingPeriod):
		msg := "Claim rejected: the applicable waiting period has not been completed."
		if input.Eligibility != nil && input.Eligibility.WaitingPeriodEnd != nil {
			msg = fmt.Sprintf("Claim rejected: waiting period in effect until %s.",
				input.Eligibility.WaitingPeriodEnd.Format("2006-01-02"))
		}
		return msg
	case domain.HasReason(merged, domain.ReasonPreAuthMissing):
		return "Claim rejected: pre-authorization was required but not obtained before treatment."
	case domain.HasReason(merged, domain.ReasonPerClaimExceeded):
		return "Claim rejected: the eligible amount exceeds the per-claim limit."
	case fullyExcluded:
		return "Claim rejected: all claimed items fall under policy exclusions."
	default:
		return "Claim rejected under policy terms."
	}
}

// blendConfidence averages the stage confidences and penalizes fraud
// risk: confidence *= 1 - risk * penalty.
func (s *Synthesizer) blendConfidence(input *Input) float64 {
	extraction := defaultExtractionConfidence
	if input.Request != nil && input.Request.Extracted.Confidence > 0 {
		extraction = input.Request.Extracted.Confidence
	}
	eligibility := defaultEligibilityConfidence
	if input.Eligibility != nil && input.Eligibility.Confidence > 0 {
		eligibility = input.Eligibility.Confidence
	}
	coverage := defaultCoverageConfidence
	if input.Coverage != nil && input.Coverage.Confidence > 0 {
		coverage = input.Coverage.Confidence
	}
	limit := defaultLimitConfidence
	if input.Limits != nil && input.Limits.Confidence > 0 {
		limit = input.Limits.Confidence
	}

	confidence := (extraction + eligibility + coverage + limit) / 4

	if input.Fraud != nil {
		confidence *= 1 - input.Fraud.RiskScore*s.policy.Review.RiskConfidencePenalty
	}
	return math.Min(math.Max(confidence, 0), 1)
}

// cashlessApproved gates instant cashless settlement: requested,
// in-network, approved or partial, and within the instant ceiling.
func (s *Synthesizer) cashlessApproved(input *Input, result *domain.AdjudicationResult) bool {
	if input.Request == nil || !input.Request.CashlessRequest {
		return false
	}
	if input.Limits == nil || !input.Limits.NetworkHospital {
		return false
	}
	if result.Decision != domain.DecisionApproved && result.Decision != domain.DecisionPartial {
		return false
	}
	return result.ApprovedAmount <= s.policy.InstantCashlessLimit
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
