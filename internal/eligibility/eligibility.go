// Package eligibility checks policy standing and waiting periods.
package eligibility

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-health/egret/internal/domain"
)

const dateLayout = "2006-01-02"

// Evaluator applies the waiting-period rules of a policy to a claim.
// The policy is read-only; one evaluator can serve concurrent claims.
type Evaluator struct {
	policy domain.PolicyConfiguration
}

// NewEvaluator creates an eligibility evaluator bound to a policy.
func NewEvaluator(policy domain.PolicyConfiguration) *Evaluator {
	return &Evaluator{policy: policy}
}

// Evaluate checks whether the member is eligible to claim for this
// treatment. Unparseable dates are a terminal input error, reported as
// INVALID_DATE with full confidence.
func (e *Evaluator) Evaluate(ctx context.Context, req *domain.ClaimRequest) *domain.EligibilityResult {
	result := &domain.EligibilityResult{
		PolicyActive:  true,
		MemberCovered: true,
	}

	treatment, err := time.Parse(dateLayout, req.TreatmentDate)
	if err != nil {
		result.Eligible = false
		result.RejectionReasons = []domain.ReasonCode{domain.ReasonInvalidDate}
		result.Notes = fmt.Sprintf("treatment date %q is not a valid date", req.TreatmentDate)
		result.Confidence = 1.0
		return result
	}

	join := domain.DefaultJoinDate(treatment)
	if req.MemberJoinDate != "" {
		join, err = time.Parse(dateLayout, req.MemberJoinDate)
		if err != nil {
			result.Eligible = false
			result.RejectionReasons = []domain.ReasonCode{domain.ReasonInvalidDate}
			result.Notes = fmt.Sprintf("member join date %q is not a valid date", req.MemberJoinDate)
			result.Confidence = 1.0
			return result
		}
	}

	daysCovered := int(treatment.Sub(join).Hours() / 24)

	// Initial waiting period applies to every claim.
	if daysCovered < e.policy.WaitingPeriods.InitialDays {
		end := join.AddDate(0, 0, e.policy.WaitingPeriods.InitialDays)
		result.Eligible = false
		result.WaitingSatisfied = false
		result.RejectionReasons = []domain.ReasonCode{domain.ReasonWaitingPeriod}
		result.WaitingPeriodEnd = &end
		result.Notes = fmt.Sprintf("initial waiting period of %d days not completed; eligible from %s",
			e.policy.WaitingPeriods.InitialDays, end.Format(dateLayout))
		result.Confidence = 0.98
		return result
	}

	// Condition-specific waiting periods, first keyword match wins.
	diagnosis := strings.ToLower(req.Extracted.Diagnosis)
	for _, cond := range e.policy.WaitingPeriods.Conditions {
		if !matchesAny(diagnosis, cond.Keywords) {
			continue
		}
		if daysCovered < cond.Days {
			end := join.AddDate(0, 0, cond.Days)
			result.Eligible = false
			result.WaitingSatisfied = false
			result.RejectionReasons = []domain.ReasonCode{domain.ReasonWaitingPeriod}
			result.WaitingPeriodEnd = &end
			result.Notes = fmt.Sprintf("%d day waiting period for %s not completed; eligible from %s",
				cond.Days, cond.Condition, end.Format(dateLayout))
			result.Confidence = 0.96
			return result
		}
		break
	}

	result.Eligible = true
	result.WaitingSatisfied = true
	result.Confidence = 0.95
	return result
}

// matchesAny reports whether text contains any of the keywords.
// Keywords are matched as substrings against lower-cased text.
func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
