// Package pipeline orchestrates claim adjudication: document gate,
// eligibility, coverage, limits, fraud, then decision synthesis.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/opensource-health/egret/internal/advisor"
	"github.com/opensource-health/egret/internal/coverage"
	"github.com/opensource-health/egret/internal/decision"
	"github.com/opensource-health/egret/internal/domain"
	"github.com/opensource-health/egret/internal/eligibility"
	"github.com/opensource-health/egret/internal/fraud"
	"github.com/opensource-health/egret/internal/limits"
)

// Pipeline runs the adjudication stages in order over immutable
// inputs. Safe for concurrent use; no stage mutates shared state.
type Pipeline struct {
	policy      domain.PolicyConfiguration
	eligibility *eligibility.Evaluator
	coverage    *coverage.Validator
	limits      *limits.Calculator
	fraud       *fraud.Detector
	synth       *decision.Synthesizer
	advisor     advisor.Advisor
	logger      *slog.Logger
}

// New creates a pipeline bound to a policy. A nil advisor disables the
// second-opinion step.
func New(policy domain.PolicyConfiguration, adv advisor.Advisor, logger *slog.Logger) (*Pipeline, error) {
	detector, err := fraud.NewDetector(policy)
	if err != nil {
		return nil, err
	}
	if adv == nil {
		adv = &advisor.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		policy:      policy,
		eligibility: eligibility.NewEvaluator(policy),
		coverage:    coverage.NewValidator(policy),
		limits:      limits.NewCalculator(policy),
		fraud:       detector,
		synth:       decision.NewSynthesizer(policy),
		advisor:     adv,
		logger:      logger,
	}, nil
}

// FraudEngine exposes the fraud rule engine for rule management and
// hot reload.
func (p *Pipeline) FraudEngine() *fraud.Engine {
	return p.fraud.Engine()
}

// Policy returns the policy terms the pipeline adjudicates under.
func (p *Pipeline) Policy() domain.PolicyConfiguration {
	return p.policy
}

// Adjudicate runs the full pipeline for one claim and always returns a
// well-formed result. Missing documents reject before any stage runs;
// an ineligible member short-circuits coverage, limits and fraud.
func (p *Pipeline) Adjudicate(ctx context.Context, tenantID, claimID string, req *domain.ClaimRequest) *domain.AdjudicationResult {
	if !req.Extracted.HasPrescription || !req.Extracted.HasBill {
		result := p.synth.RejectMissingDocuments(claimID, tenantID, req)
		p.logDecision(claimID, tenantID, result)
		return result
	}

	input := &decision.Input{
		ClaimID:  claimID,
		TenantID: tenantID,
		Request:  req,
	}

	input.Eligibility = p.eligibility.Evaluate(ctx, req)
	if !input.Eligibility.Eligible {
		result := p.synth.Synthesize(ctx, input)
		p.logDecision(claimID, tenantID, result)
		return result
	}

	input.Coverage = p.coverage.Validate(ctx, req)
	input.Limits = p.limits.Calculate(ctx, req, input.Coverage)
	input.Fraud = p.fraud.Detect(ctx, req)

	result := p.synth.Synthesize(ctx, input)
	p.consultAdvisor(ctx, req, result)
	p.logDecision(claimID, tenantID, result)
	return result
}

// consultAdvisor asks for a second opinion on ambiguous approvals.
// Consulted only for APPROVED/PARTIAL below the confidence floor; any
// failure keeps the deterministic result.
func (p *Pipeline) consultAdvisor(ctx context.Context, req *domain.ClaimRequest, result *domain.AdjudicationResult) {
	if result.Decision != domain.DecisionApproved && result.Decision != domain.DecisionPartial {
		return
	}
	if result.Confidence >= p.policy.Review.AdvisorConfidenceFloor {
		return
	}

	opinion, err := p.advisor.Review(ctx, advisor.ReviewRequest{Claim: req, Result: result})
	if err != nil {
		p.logger.Warn("advisor review failed, keeping deterministic result",
			"advisor", p.advisor.Name(), "error", err)
		return
	}

	if !opinion.Concur {
		result.Decision = domain.DecisionManualReview
		result.ApprovedAmount = 0
		result.NextSteps = "Our claims team will review within 3 working days. No action needed."
	}
	if opinion.Notes != "" {
		result.Notes = result.Notes + " Reviewer note: " + opinion.Notes
	}
}

func (p *Pipeline) logDecision(claimID, tenantID string, result *domain.AdjudicationResult) {
	p.logger.Info("claim adjudicated",
		"tenant_id", tenantID,
		"claim_id", claimID,
		"decision", result.Decision,
		"approved_amount", result.ApprovedAmount,
		"confidence", result.Confidence,
		"fraud_flags", len(result.FraudFlags),
	)
}
