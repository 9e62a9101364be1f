// Package coverage validates claimed items against policy exclusions
// and determines the claim category and sub-limit.
package coverage

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensource-health/egret/internal/domain"
)

// Validator applies exclusion and pre-authorization rules of a policy.
// The policy is read-only; one validator can serve concurrent claims.
type Validator struct {
	policy domain.PolicyConfiguration
}

// NewValidator creates a coverage validator bound to a policy.
func NewValidator(policy domain.PolicyConfiguration) *Validator {
	return &Validator{policy: policy}
}

// Validate checks each claimed item for coverage. Alternative-medicine
// items are covered by policy and never run through the exclusion
// tables. Coverage holds iff no rejection code accumulated.
func (v *Validator) Validate(ctx context.Context, req *domain.ClaimRequest) *domain.CoverageResult {
	result := &domain.CoverageResult{
		PreAuthObtained: req.PreAuthObtained,
	}

	ext := req.Extracted

	// Decisive items: diagnosis plus anything the doctor performed.
	items := make([]string, 0, 1+len(ext.Treatments)+len(ext.Procedures))
	if ext.Diagnosis != "" {
		items = append(items, ext.Diagnosis)
	}
	items = append(items, ext.Treatments...)
	items = append(items, ext.Procedures...)

	for _, item := range items {
		lower := strings.ToLower(item)

		if matchesAny(lower, v.policy.AlternativeMedicineKeywords) {
			result.CoveredItems = append(result.CoveredItems, item)
			continue
		}

		if rule, ok := v.matchExclusion(lower); ok {
			result.Excluded = append(result.Excluded, domain.ExcludedItem{Item: item, Reason: rule.Reason})
			if !domain.HasReason(result.RejectionReasons, rule.Code) {
				result.RejectionReasons = append(result.RejectionReasons, rule.Code)
			}
			continue
		}

		result.CoveredItems = append(result.CoveredItems, item)
	}

	v.checkMedicines(req, result)
	v.checkTests(req, result)

	result.Category = v.inferCategory(req)
	result.SubLimit = v.policy.SubLimitFor(result.Category).Limit

	result.Covered = len(result.RejectionReasons) == 0
	if result.Covered {
		result.Confidence = 0.92
	} else {
		// A clear exclusion match is more certain than the absence of one.
		result.Confidence = 0.95
	}
	return result
}

// checkMedicines applies the vitamin/supplement rule. Medicines with a
// deficiency diagnosis are decisively covered; with a wellness diagnosis
// they are excluded; otherwise the prescription itself is taken as
// clinical justification (lenient default, tracked separately so the
// fully-excluded check stays decisive).
func (v *Validator) checkMedicines(req *domain.ClaimRequest, result *domain.CoverageResult) {
	diagnosis := strings.ToLower(req.Extracted.Diagnosis)
	deficiency := matchesAny(diagnosis, v.policy.DeficiencyKeywords)
	wellness := matchesAny(diagnosis, v.policy.WellnessKeywords)

	for _, med := range req.Extracted.Medicines {
		lower := strings.ToLower(med)
		if strings.Contains(lower, "vitamin") || strings.Contains(lower, "supplement") {
			switch {
			case deficiency:
				result.CoveredItems = append(result.CoveredItems, med)
			case wellness:
				result.Excluded = append(result.Excluded, domain.ExcludedItem{
					Item:   med,
					Reason: "Vitamins and supplements without a deficiency diagnosis are not covered",
				})
				if !domain.HasReason(result.RejectionReasons, domain.ReasonServiceNotCovered) {
					result.RejectionReasons = append(result.RejectionReasons, domain.ReasonServiceNotCovered)
				}
			default:
				result.LenientItems = append(result.LenientItems, med)
			}
			continue
		}
		result.LenientItems = append(result.LenientItems, med)
	}
}

// checkTests applies the pre-authorization rule to diagnostic tests.
func (v *Validator) checkTests(req *domain.ClaimRequest, result *domain.CoverageResult) {
	for _, test := range req.Extracted.Tests {
		lower := strings.ToLower(test)

		requiresAuth := matchesAny(lower, v.policy.PreAuthTests) && req.ClaimAmount > v.policy.PreAuthThreshold
		if !requiresAuth {
			result.CoveredItems = append(result.CoveredItems, test)
			continue
		}

		result.PreAuthRequired = true
		if req.PreAuthObtained {
			result.CoveredItems = append(result.CoveredItems, test)
			continue
		}

		result.Excluded = append(result.Excluded, domain.ExcludedItem{
			Item:   test,
			Reason: fmt.Sprintf("Pre-authorization required for %s above %.0f", test, v.policy.PreAuthThreshold),
		})
		if !domain.HasReason(result.RejectionReasons, domain.ReasonPreAuthMissing) {
			result.RejectionReasons = append(result.RejectionReasons, domain.ReasonPreAuthMissing)
		}
	}
}

// matchExclusion returns the first exclusion rule any of whose keywords
// appears in the item text.
func (v *Validator) matchExclusion(item string) (domain.ExclusionRule, bool) {
	for _, rule := range v.policy.Exclusions {
		if matchesAny(item, rule.Keywords) {
			return rule, true
		}
	}
	return domain.ExclusionRule{}, false
}

// inferCategory resolves the claim category: caller-supplied category
// wins, else inference by fixed priority.
func (v *Validator) inferCategory(req *domain.ClaimRequest) domain.Category {
	if req.Category != "" {
		return req.Category
	}

	ext := req.Extracted
	all := strings.ToLower(strings.Join(append(append(append([]string{ext.Diagnosis},
		ext.Treatments...), ext.Procedures...), ext.Tests...), " "))

	switch {
	case matchesAny(all, v.policy.DentalKeywords):
		return domain.CategoryDental
	case matchesAny(all, v.policy.AlternativeMedicineKeywords):
		return domain.CategoryAlternativeMedicine
	case len(ext.Tests) > 0:
		return domain.CategoryDiagnostic
	case len(ext.Medicines) > 0:
		return domain.CategoryPharmacy
	default:
		return domain.CategoryConsultation
	}
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
