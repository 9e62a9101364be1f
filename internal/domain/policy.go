package domain

import (
	"encoding/json"
	"fmt"
	"os"
)

// SubLimit is the per-category cap with its co-pay and network
// discount percentages.
type SubLimit struct {
	Limit                  float64 `json:"limit"`
	CopayPercent           float64 `json:"copay_percentage"`
	NetworkDiscountPercent float64 `json:"network_discount"`
}

// ConditionWaitingPeriod maps diagnosis keywords to a condition-specific
// waiting period. Entries are evaluated in order; the first keyword
// match wins.
type ConditionWaitingPeriod struct {
	Condition string   `json:"condition"`
	Keywords  []string `json:"keywords"`
	Days      int      `json:"days"`
}

// WaitingPeriods holds the waiting-period table.
type WaitingPeriods struct {
	InitialDays     int                      `json:"initial"`
	PreExistingDays int                      `json:"pre_existing"`
	Conditions      []ConditionWaitingPeriod `json:"conditions"`
}

// ExclusionRule maps a keyword group to its rejection reason code.
// Rules are evaluated in order per item; the first keyword match wins.
type ExclusionRule struct {
	Group    string     `json:"group"`
	Keywords []string   `json:"keywords"`
	Reason   string     `json:"reason"`
	Code     ReasonCode `json:"code"`
}

// ReviewPolicy holds the decision-synthesis tuning parameters. These
// were fixed constants in earlier revisions; kept configurable because
// their values have no documented derivation.
type ReviewPolicy struct {
	// ManualReviewThreshold is the risk score at or above which a
	// claim is routed to manual review.
	ManualReviewThreshold float64 `json:"manual_review_threshold"`

	// ManualReviewFlagCount routes to review when this many distinct
	// fraud flags fire.
	ManualReviewFlagCount int `json:"manual_review_flag_count"`

	// RiskConfidencePenalty scales how much fraud risk reduces the
	// blended confidence: confidence *= 1 - risk*penalty.
	RiskConfidencePenalty float64 `json:"risk_confidence_penalty"`

	// AdvisorConfidenceFloor is the blended confidence below which the
	// assistive advisor may be consulted for APPROVED/PARTIAL rulings.
	AdvisorConfidenceFloor float64 `json:"advisor_confidence_floor"`

	// FullApprovalRatio is the approved/claimed ratio at or above
	// which a ruling counts as full approval rather than partial.
	FullApprovalRatio float64 `json:"full_approval_ratio"`
}

// PolicyConfiguration is the immutable reference data for one policy
// product. Loaded once and passed by value into every evaluator; the
// pipeline never mutates it.
type PolicyConfiguration struct {
	Version string `json:"version"`

	AnnualLimit        float64 `json:"annual_limit"`
	PerClaimLimit      float64 `json:"per_claim_limit"`
	MinimumClaimAmount float64 `json:"minimum_claim_amount"`

	SubLimits map[Category]SubLimit `json:"sub_limits"`

	WaitingPeriods WaitingPeriods  `json:"waiting_periods"`
	Exclusions     []ExclusionRule `json:"exclusions"`

	// Alternative-medicine items are covered by policy and bypass
	// exclusion checks entirely.
	AlternativeMedicineKeywords []string `json:"alternative_medicine_keywords"`

	// Deficiency diagnoses make vitamin/supplement medicines covered;
	// wellness diagnoses make them excluded. Anything else falls to
	// the lenient prescribed-by-a-doctor default.
	DeficiencyKeywords []string `json:"deficiency_keywords"`
	WellnessKeywords   []string `json:"wellness_keywords"`

	// EmergencyKeywords mark a diagnosis as emergency care for the
	// weekend-treatment fraud heuristic.
	EmergencyKeywords []string `json:"emergency_keywords"`

	// Dental keywords drive category inference.
	DentalKeywords []string `json:"dental_keywords"`

	// PreAuthTests require pre-authorization when the claim amount is
	// above PreAuthThreshold.
	PreAuthTests     []string `json:"pre_auth_tests"`
	PreAuthThreshold float64  `json:"pre_auth_threshold"`

	NetworkHospitals []string `json:"network_hospitals"`

	// InstantCashlessLimit is the ceiling for automatic cashless
	// approval without manual settlement.
	InstantCashlessLimit float64 `json:"instant_cashless_limit"`

	Review ReviewPolicy `json:"review"`
}

// DefaultPolicy returns the standard OPD policy terms.
func DefaultPolicy() PolicyConfiguration {
	return PolicyConfiguration{
		Version:            "2024.1",
		AnnualLimit:        50000,
		PerClaimLimit:      5000,
		MinimumClaimAmount: 500,
		SubLimits: map[Category]SubLimit{
			CategoryConsultation:        {Limit: 2000, CopayPercent: 10, NetworkDiscountPercent: 20},
			CategoryDiagnostic:          {Limit: 10000},
			CategoryPharmacy:            {Limit: 15000},
			CategoryDental:              {Limit: 10000},
			CategoryVision:              {Limit: 5000},
			CategoryAlternativeMedicine: {Limit: 8000},
		},
		WaitingPeriods: WaitingPeriods{
			InitialDays:     30,
			PreExistingDays: 365,
			Conditions: []ConditionWaitingPeriod{
				{Condition: "diabetes", Keywords: []string{"diabetes", "type 2 diabetes", "type 1 diabetes"}, Days: 90},
				{Condition: "hypertension", Keywords: []string{"hypertension", "blood pressure", "high bp"}, Days: 90},
				// Only explicit replacement surgery terms; generic
				// "joint pain" must not trigger the long wait.
				{Condition: "joint_replacement", Keywords: []string{"joint replacement", "knee replacement", "hip replacement", "arthroplasty"}, Days: 730},
			},
		},
		Exclusions: []ExclusionRule{
			{Group: "cosmetic", Keywords: []string{"cosmetic", "whitening", "aesthetic", "beauty", "bleaching"}, Reason: "Cosmetic procedures are not covered", Code: ReasonCosmeticProcedure},
			{Group: "weight_loss", Keywords: []string{"weight loss", "obesity", "bariatric", "diet plan", "slimming", "diet"}, Reason: "Weight loss treatments are not covered", Code: ReasonServiceNotCovered},
			{Group: "infertility", Keywords: []string{"infertility", "ivf", "fertility"}, Reason: "Infertility treatments are not covered", Code: ReasonExcludedCondition},
			{Group: "experimental", Keywords: []string{"experimental", "unproven", "clinical trial"}, Reason: "Experimental treatments are not covered", Code: ReasonExcludedCondition},
			{Group: "self_inflicted", Keywords: []string{"self-inflicted", "self inflicted", "suicide"}, Reason: "Self-inflicted injuries are not covered", Code: ReasonExcludedCondition},
			{Group: "adventure_sports", Keywords: []string{"adventure sports", "bungee", "skydiving", "paragliding"}, Reason: "Adventure sports injuries are not covered", Code: ReasonExcludedCondition},
			{Group: "substance_abuse", Keywords: []string{"alcoholism", "drug abuse", "addiction", "substance"}, Reason: "Substance abuse treatment is not covered", Code: ReasonExcludedCondition},
		},
		AlternativeMedicineKeywords: []string{"ayurveda", "ayurvedic", "homeopathy", "homeopathic", "unani", "panchakarma", "yoga therapy"},
		DeficiencyKeywords:          []string{"deficiency", "anemia", "scurvy", "rickets", "malnutrition"},
		WellnessKeywords:            []string{"wellness", "prevention", "supplement", "general health", "boost"},
		EmergencyKeywords:           []string{"emergency", "accident", "acute", "severe", "critical"},
		DentalKeywords:              []string{"dental", "root canal", "extraction", "filling", "tooth", "teeth"},
		PreAuthTests:                []string{"mri", "ct scan", "pet scan"},
		PreAuthThreshold:            10000,
		NetworkHospitals: []string{
			"Apollo Clinic",
			"Fortis Healthcare",
			"Max Healthcare",
			"Manipal Hospital",
			"City Care Clinic",
		},
		InstantCashlessLimit: 5000,
		Review: ReviewPolicy{
			ManualReviewThreshold:  0.35,
			ManualReviewFlagCount:  3,
			RiskConfidencePenalty:  0.5,
			AdvisorConfidenceFloor: 0.85,
			FullApprovalRatio:      0.80,
		},
	}
}

// LoadPolicyFile reads a policy terms document from a JSON file,
// layered over the defaults so partial documents are valid.
func LoadPolicyFile(path string) (PolicyConfiguration, error) {
	policy := DefaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("failed to read policy file: %w", err)
	}
	if err := json.Unmarshal(data, &policy); err != nil {
		return policy, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return policy, err
	}
	return policy, nil
}

// Validate checks the policy invariants: monetary figures non-negative,
// percentages within [0,100].
func (p PolicyConfiguration) Validate() error {
	amounts := map[string]float64{
		"annual_limit":           p.AnnualLimit,
		"per_claim_limit":        p.PerClaimLimit,
		"minimum_claim_amount":   p.MinimumClaimAmount,
		"pre_auth_threshold":     p.PreAuthThreshold,
		"instant_cashless_limit": p.InstantCashlessLimit,
	}
	for name, v := range amounts {
		if v < 0 {
			return fmt.Errorf("policy %s must be >= 0, got %v", name, v)
		}
	}

	for cat, sl := range p.SubLimits {
		if sl.Limit < 0 {
			return fmt.Errorf("sub-limit for %s must be >= 0, got %v", cat, sl.Limit)
		}
		if sl.CopayPercent < 0 || sl.CopayPercent > 100 {
			return fmt.Errorf("copay percentage for %s must be in [0,100], got %v", cat, sl.CopayPercent)
		}
		if sl.NetworkDiscountPercent < 0 || sl.NetworkDiscountPercent > 100 {
			return fmt.Errorf("network discount for %s must be in [0,100], got %v", cat, sl.NetworkDiscountPercent)
		}
	}

	if p.WaitingPeriods.InitialDays < 0 || p.WaitingPeriods.PreExistingDays < 0 {
		return fmt.Errorf("waiting periods must be >= 0")
	}
	for _, c := range p.WaitingPeriods.Conditions {
		if c.Days < 0 {
			return fmt.Errorf("waiting period for %s must be >= 0, got %d", c.Condition, c.Days)
		}
	}

	return nil
}

// SubLimitFor resolves the sub-limit entry for a category, falling back
// to the per-claim limit when the category is unknown.
func (p PolicyConfiguration) SubLimitFor(cat Category) SubLimit {
	if sl, ok := p.SubLimits[cat]; ok {
		return sl
	}
	return SubLimit{Limit: p.PerClaimLimit}
}

// FraudRule is one entry of the versioned fraud-indicator table. The
// expression is CEL over claim variables and must yield a boolean;
// when it fires, Score is added to the claim risk and Flag is recorded.
type FraudRule struct {
	ID          string  `json:"id"`
	Description string  `json:"description,omitempty"`
	Version     string  `json:"version"`
	Expression  string  `json:"expression"`
	Score       float64 `json:"score"`
	Flag        string  `json:"flag"`
	Enabled     bool    `json:"enabled"`
}
