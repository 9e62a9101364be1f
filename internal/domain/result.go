package domain

import (
	"time"
)

// Decision is the terminal ruling for a claim.
type Decision string

const (
	DecisionApproved     Decision = "APPROVED"
	DecisionPartial      Decision = "PARTIAL"
	DecisionRejected     Decision = "REJECTED"
	DecisionManualReview Decision = "MANUAL_REVIEW"
)

// ReasonCode is a rejection reason from the closed vocabulary exposed
// to downstream systems.
type ReasonCode string

const (
	// Eligibility
	ReasonPolicyInactive   ReasonCode = "POLICY_INACTIVE"
	ReasonWaitingPeriod    ReasonCode = "WAITING_PERIOD"
	ReasonMemberNotCovered ReasonCode = "MEMBER_NOT_COVERED"
	ReasonInvalidDate      ReasonCode = "INVALID_DATE"

	// Documentation
	ReasonMissingDocuments ReasonCode = "MISSING_DOCUMENTS"

	// Coverage
	ReasonServiceNotCovered ReasonCode = "SERVICE_NOT_COVERED"
	ReasonExcludedCondition ReasonCode = "EXCLUDED_CONDITION"
	ReasonPreAuthMissing    ReasonCode = "PRE_AUTH_MISSING"
	ReasonCosmeticProcedure ReasonCode = "COSMETIC_PROCEDURE"

	// Limits
	ReasonAnnualLimitExceeded ReasonCode = "ANNUAL_LIMIT_EXCEEDED"
	ReasonSubLimitExceeded    ReasonCode = "SUB_LIMIT_EXCEEDED"
	ReasonPerClaimExceeded    ReasonCode = "PER_CLAIM_EXCEEDED"
	ReasonBelowMinAmount      ReasonCode = "BELOW_MIN_AMOUNT"
)

// EligibilityResult is the output of the eligibility stage.
type EligibilityResult struct {
	Eligible         bool `json:"eligible"`
	PolicyActive     bool `json:"policyActive"`
	WaitingSatisfied bool `json:"waitingSatisfied"`
	MemberCovered    bool `json:"memberCovered"`

	RejectionReasons []ReasonCode `json:"rejectionReasons,omitempty"`

	// WaitingPeriodEnd is the date the member becomes eligible, set
	// only for WAITING_PERIOD rejections.
	WaitingPeriodEnd *time.Time `json:"waitingPeriodEnd,omitempty"`

	Notes      string  `json:"notes,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ExcludedItem pairs an excluded claim item with the exclusion reason.
type ExcludedItem struct {
	Item   string `json:"item"`
	Reason string `json:"reason"`
}

// CoverageResult is the output of the coverage stage.
//
// CoveredItems holds decisive coverage findings (diagnosis, treatments,
// procedures, tests). Medicines admitted under the lenient prescription
// default are tracked separately in LenientItems so the fully-excluded
// check is not masked by incidental entries.
type CoverageResult struct {
	Covered      bool           `json:"covered"`
	CoveredItems []string       `json:"coveredItems,omitempty"`
	LenientItems []string       `json:"lenientItems,omitempty"`
	Excluded     []ExcludedItem `json:"excludedItems,omitempty"`

	PreAuthRequired bool `json:"preAuthRequired"`
	PreAuthObtained bool `json:"preAuthObtained"`

	Category Category `json:"category"`
	SubLimit float64  `json:"subLimit"`

	RejectionReasons []ReasonCode `json:"rejectionReasons,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	Confidence       float64      `json:"confidence"`
}

// LimitResult is the output of the limit calculation stage.
// Monetary fields keep full precision; rounding happens once at the
// synthesis boundary.
type LimitResult struct {
	WithinLimits bool `json:"withinLimits"`

	ClaimAmount    float64 `json:"claimAmount"`
	EligibleAmount float64 `json:"eligibleAmount"`
	ApprovedAmount float64 `json:"approvedAmount"`

	CopayAmount     float64 `json:"copayAmount"`
	CopayPercent    float64 `json:"copayPercentage"`
	NetworkDiscount float64 `json:"networkDiscount"`
	ExcludedAmount  float64 `json:"excludedAmount"`

	PerClaimLimit   float64 `json:"perClaimLimit"`
	AnnualLimit     float64 `json:"annualLimit"`
	SubLimit        float64 `json:"subLimit"`
	RemainingAnnual float64 `json:"remainingAnnualLimit"`

	PerClaimExceeded bool `json:"perClaimExceeded"`
	AnnualExceeded   bool `json:"annualLimitExceeded"`
	SubLimitExceeded bool `json:"subLimitExceeded"`
	NetworkHospital  bool `json:"isNetworkHospital"`

	RejectionReasons []ReasonCode `json:"rejectionReasons,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	Confidence       float64      `json:"confidence"`
}

// FraudResult is the output of the fraud scoring stage.
type FraudResult struct {
	Suspicious      bool     `json:"suspicious"`
	Flags           []string `json:"fraudFlags,omitempty"`
	RiskScore       float64  `json:"riskScore"`
	RecommendReview bool     `json:"recommendManualReview"`
	Notes           string   `json:"notes,omitempty"`
}

// Deductions breaks down the amounts withheld from a claim.
type Deductions struct {
	Copay           float64 `json:"copay"`
	ExcludedItems   float64 `json:"excludedItems"`
	NetworkDiscount float64 `json:"networkDiscount"`
}

// AdjudicationResult is the terminal ruling for a claim, combining the
// four stage results into one decision. The four sub-results are kept
// for auditability.
type AdjudicationResult struct {
	ID       string `json:"id,omitempty"`
	ClaimID  string `json:"claimId"`
	TenantID string `json:"tenantId,omitempty"`

	Decision       Decision `json:"decision"`
	ApprovedAmount float64  `json:"approvedAmount"`

	Deductions       Deductions   `json:"deductions"`
	RejectedItems    []string     `json:"rejectedItems,omitempty"`
	RejectionReasons []ReasonCode `json:"rejectionReasons,omitempty"`
	FraudFlags       []string     `json:"fraudFlags,omitempty"`

	Confidence       float64 `json:"confidenceScore"`
	CashlessApproved bool    `json:"cashlessApproved"`
	NetworkDiscount  float64 `json:"networkDiscount"`

	Notes     string `json:"notes"`
	NextSteps string `json:"nextSteps"`

	Eligibility *EligibilityResult `json:"eligibilityResult,omitempty"`
	Coverage    *CoverageResult    `json:"coverageResult,omitempty"`
	Limits      *LimitResult       `json:"limitResult,omitempty"`
	Fraud       *FraudResult       `json:"fraudResult,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// MergeReasons concatenates reason-code lists preserving first-seen
// order and dropping duplicates.
func MergeReasons(lists ...[]ReasonCode) []ReasonCode {
	var merged []ReasonCode
	seen := make(map[ReasonCode]bool)
	for _, list := range lists {
		for _, r := range list {
			if !seen[r] {
				seen[r] = true
				merged = append(merged, r)
			}
		}
	}
	return merged
}

// HasReason reports whether code appears in reasons.
func HasReason(reasons []ReasonCode, code ReasonCode) bool {
	for _, r := range reasons {
		if r == code {
			return true
		}
	}
	return false
}
