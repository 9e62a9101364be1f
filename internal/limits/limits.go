// Package limits computes the approved amount under per-claim, annual,
// and category sub-limit caps, with co-pay and network discount.
package limits

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensource-health/egret/internal/domain"
)

// Calculator applies the monetary limits of a policy. The policy is
// read-only; one calculator can serve concurrent claims.
//
// Monetary fields keep full precision; rounding happens once at the
// decision-synthesis boundary.
type Calculator struct {
	policy domain.PolicyConfiguration
}

// NewCalculator creates a limit calculator bound to a policy.
func NewCalculator(policy domain.PolicyConfiguration) *Calculator {
	return &Calculator{policy: policy}
}

// Calculate determines the payable amount for a claim given the
// coverage findings. The approved amount is the minimum of the eligible
// amount and every applicable cap, floored at zero, less co-pay.
func (c *Calculator) Calculate(ctx context.Context, req *domain.ClaimRequest, cov *domain.CoverageResult) *domain.LimitResult {
	result := &domain.LimitResult{
		ClaimAmount:   req.ClaimAmount,
		PerClaimLimit: c.policy.PerClaimLimit,
		AnnualLimit:   c.policy.AnnualLimit,
		Confidence:    0.98,
	}

	if req.ClaimAmount < c.policy.MinimumClaimAmount {
		result.RejectionReasons = append(result.RejectionReasons, domain.ReasonBelowMinAmount)
		result.Notes = fmt.Sprintf("claim amount %.2f is below the minimum claimable amount %.2f",
			req.ClaimAmount, c.policy.MinimumClaimAmount)
		return result
	}

	result.ExcludedAmount = excludedAmount(req.Extracted.LineItems, cov.Excluded)
	result.EligibleAmount = req.ClaimAmount - result.ExcludedAmount
	if result.EligibleAmount < 0 {
		result.EligibleAmount = 0
	}

	sub := c.policy.SubLimitFor(cov.Category)
	result.SubLimit = sub.Limit
	if cov.SubLimit > 0 {
		result.SubLimit = cov.SubLimit
	}

	remaining := c.policy.AnnualLimit - req.PriorApprovedYTD
	if remaining < 0 {
		remaining = 0
	}
	result.RemainingAnnual = remaining

	if result.EligibleAmount > c.policy.PerClaimLimit {
		result.PerClaimExceeded = true
		result.RejectionReasons = append(result.RejectionReasons, domain.ReasonPerClaimExceeded)
	}
	if result.EligibleAmount > remaining {
		result.AnnualExceeded = true
		result.RejectionReasons = append(result.RejectionReasons, domain.ReasonAnnualLimitExceeded)
	}
	if result.EligibleAmount > result.SubLimit {
		// Sub-limit overage caps the amount but does not block approval.
		result.SubLimitExceeded = true
		result.Notes = fmt.Sprintf("eligible amount %.2f exceeds the %s sub-limit %.2f",
			result.EligibleAmount, cov.Category, result.SubLimit)
	}

	approved := min4(result.EligibleAmount, c.policy.PerClaimLimit, remaining, result.SubLimit)
	if approved < 0 {
		approved = 0
	}

	result.NetworkHospital = c.isNetworkHospital(req.Hospital)

	result.CopayPercent = sub.CopayPercent
	result.CopayAmount = approved * sub.CopayPercent / 100
	if result.NetworkHospital {
		result.NetworkDiscount = approved * sub.NetworkDiscountPercent / 100
	}

	result.ApprovedAmount = approved - result.CopayAmount
	result.WithinLimits = !result.PerClaimExceeded && !result.AnnualExceeded
	return result
}

// excludedAmount prices the excluded items from the bill line items,
// matched case-insensitively in either direction.
func excludedAmount(lineItems map[string]float64, excluded []domain.ExcludedItem) float64 {
	if len(lineItems) == 0 || len(excluded) == 0 {
		return 0
	}

	var total float64
	for desc, amount := range lineItems {
		lowerDesc := strings.ToLower(desc)
		for _, ex := range excluded {
			lowerItem := strings.ToLower(ex.Item)
			if strings.Contains(lowerDesc, lowerItem) || strings.Contains(lowerItem, lowerDesc) {
				total += amount
				break
			}
		}
	}
	return total
}

// isNetworkHospital matches the hospital name against the network list,
// case-insensitive, substring in either direction.
func (c *Calculator) isNetworkHospital(hospital string) bool {
	if hospital == "" {
		return false
	}
	lower := strings.ToLower(hospital)
	for _, nw := range c.policy.NetworkHospitals {
		lowerNW := strings.ToLower(nw)
		if strings.Contains(lower, lowerNW) || strings.Contains(lowerNW, lower) {
			return true
		}
	}
	return false
}

func min4(a, b, c, d float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	if d < m {
		m = d
	}
	return m
}
