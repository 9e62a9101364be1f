package fraud

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/opensource-health/egret/internal/domain"
)

// Detector scores claims for fraud risk using the indicator engine.
// The policy is read-only; one detector can serve concurrent claims.
type Detector struct {
	policy domain.PolicyConfiguration
	engine *Engine

	// now is the clock used for registration-year bounds.
	now func() time.Time
}

// NewDetector creates a fraud detector with the default indicator table
// loaded.
func NewDetector(policy domain.PolicyConfiguration) (*Detector, error) {
	engine, err := NewEngine()
	if err != nil {
		return nil, err
	}
	if err := engine.LoadRules(DefaultRules()); err != nil {
		return nil, fmt.Errorf("failed to load default fraud rules: %w", err)
	}
	return &Detector{policy: policy, engine: engine, now: time.Now}, nil
}

// NewDetectorWithEngine creates a detector around an externally managed
// engine, for callers that reload rules from the database.
func NewDetectorWithEngine(policy domain.PolicyConfiguration, engine *Engine) *Detector {
	return &Detector{policy: policy, engine: engine, now: time.Now}
}

// Engine returns the underlying rule engine.
func (d *Detector) Engine() *Engine {
	return d.engine
}

// Detect computes the additive risk score for a claim. The score is
// clamped to [0,1]; manual review is recommended at or above the policy
// threshold or when enough distinct indicators fire.
func (d *Detector) Detect(ctx context.Context, req *domain.ClaimRequest) *domain.FraudResult {
	result := &domain.FraudResult{}

	fired := d.engine.Evaluate(d.activation(req))

	var risk float64
	for _, ind := range fired {
		risk += ind.Score
		result.Flags = append(result.Flags, ind.Flag)
	}
	risk = math.Min(math.Max(risk, 0), 1)

	result.RiskScore = risk
	result.Suspicious = len(result.Flags) > 0
	result.RecommendReview = risk >= d.policy.Review.ManualReviewThreshold ||
		len(result.Flags) >= d.policy.Review.ManualReviewFlagCount

	if result.RecommendReview {
		result.Notes = fmt.Sprintf("risk score %.2f with %d indicators; manual review recommended",
			risk, len(result.Flags))
	}
	return result
}

// activation builds the CEL variable set for one claim. The same-day
// count carries prior claims only, not the claim under evaluation.
func (d *Detector) activation(req *domain.ClaimRequest) map[string]any {
	ext := req.Extracted

	utilization := 0.0
	if d.policy.AnnualLimit > 0 {
		utilization = (req.PriorApprovedYTD + req.ClaimAmount) / d.policy.AnnualLimit
	}

	roundAmounts := 0
	for _, amount := range []float64{ext.ConsultationFee, ext.PharmacyAmount, ext.DiagnosticAmount} {
		if amount > 0 && math.Mod(amount, 500) == 0 {
			roundAmounts++
		}
	}

	weekend := false
	if treatment, err := time.Parse("2006-01-02", req.TreatmentDate); err == nil {
		weekend = treatment.Weekday() == time.Saturday || treatment.Weekday() == time.Sunday
	}

	emergency := false
	diagnosis := strings.ToLower(ext.Diagnosis)
	for _, kw := range d.policy.EmergencyKeywords {
		if strings.Contains(diagnosis, strings.ToLower(kw)) {
			emergency = true
			break
		}
	}

	return map[string]any{
		"claim_amount":     req.ClaimAmount,
		"per_claim_limit":  d.policy.PerClaimLimit,
		"annual_limit":     d.policy.AnnualLimit,
		"ytd_total":        req.PriorApprovedYTD,
		"utilization":      utilization,
		"same_day_count":   int64(req.PriorSameDayClaims),
		"medicine_count":   int64(len(ext.Medicines)),
		"round_amounts":    int64(roundAmounts),
		"doctor_reg_valid": ValidRegistration(ext.DoctorRegistration, d.now()),
		"weekend":          weekend,
		"emergency":        emergency,
	}
}
