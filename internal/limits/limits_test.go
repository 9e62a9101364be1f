package limits

import (
	"context"
	"testing"

	"github.com/opensource-health/egret/internal/domain"
)

func TestCalculate(t *testing.T) {
	calc := NewCalculator(domain.DefaultPolicy())
	ctx := context.Background()

	consultation := &domain.CoverageResult{
		Category: domain.CategoryConsultation,
		SubLimit: 2000,
	}

	t.Run("BelowMinimumAmount", func(t *testing.T) {
		result := calc.Calculate(ctx, &domain.ClaimRequest{ClaimAmount: 400}, consultation)

		if !domain.HasReason(result.RejectionReasons, domain.ReasonBelowMinAmount) {
			t.Errorf("expected BELOW_MIN_AMOUNT, got %v", result.RejectionReasons)
		}
		if result.ApprovedAmount != 0 {
			t.Errorf("expected approved 0, got %v", result.ApprovedAmount)
		}
	})

	t.Run("SimpleConsultation", func(t *testing.T) {
		result := calc.Calculate(ctx, &domain.ClaimRequest{ClaimAmount: 1500}, consultation)

		if result.EligibleAmount != 1500 {
			t.Errorf("expected eligible 1500, got %v", result.EligibleAmount)
		}
		if result.CopayAmount != 150 {
			t.Errorf("expected copay 150, got %v", result.CopayAmount)
		}
		if result.ApprovedAmount != 1350 {
			t.Errorf("expected approved 1350, got %v", result.ApprovedAmount)
		}
		if !result.WithinLimits {
			t.Error("expected within limits")
		}
		if result.Confidence != 0.98 {
			t.Errorf("expected confidence 0.98, got %v", result.Confidence)
		}
	})

	t.Run("PerClaimLimitExceeded", func(t *testing.T) {
		cov := &domain.CoverageResult{Category: domain.CategoryDiagnostic, SubLimit: 10000}
		result := calc.Calculate(ctx, &domain.ClaimRequest{ClaimAmount: 7500}, cov)

		if !result.PerClaimExceeded {
			t.Error("expected per-claim exceeded")
		}
		if !domain.HasReason(result.RejectionReasons, domain.ReasonPerClaimExceeded) {
			t.Errorf("expected PER_CLAIM_EXCEEDED, got %v", result.RejectionReasons)
		}
		if result.WithinLimits {
			t.Error("expected not within limits")
		}
		// Amount still capped at the per-claim limit before co-pay
		if result.ApprovedAmount != 5000 {
			t.Errorf("expected approved capped at 5000, got %v", result.ApprovedAmount)
		}
	})

	t.Run("AnnualLimitNearlyExhausted", func(t *testing.T) {
		cov := &domain.CoverageResult{Category: domain.CategoryDiagnostic, SubLimit: 10000}
		result := calc.Calculate(ctx, &domain.ClaimRequest{
			ClaimAmount:      4000,
			PriorApprovedYTD: 48000,
		}, cov)

		if result.RemainingAnnual != 2000 {
			t.Errorf("expected remaining 2000, got %v", result.RemainingAnnual)
		}
		if !result.AnnualExceeded {
			t.Error("expected annual exceeded")
		}
		if !domain.HasReason(result.RejectionReasons, domain.ReasonAnnualLimitExceeded) {
			t.Errorf("expected ANNUAL_LIMIT_EXCEEDED, got %v", result.RejectionReasons)
		}
		if result.ApprovedAmount != 2000 {
			t.Errorf("expected approved 2000, got %v", result.ApprovedAmount)
		}
	})

	t.Run("ExcludedLineItemsPriced", func(t *testing.T) {
		cov := &domain.CoverageResult{
			Category: domain.CategoryDental,
			SubLimit: 10000,
			Excluded: []domain.ExcludedItem{{Item: "teeth whitening", Reason: "Cosmetic procedures are not covered"}},
		}
		result := calc.Calculate(ctx, &domain.ClaimRequest{
			ClaimAmount: 5000,
			Extracted: domain.ExtractedDocumentData{
				LineItems: map[string]float64{
					"Teeth Whitening": 3000,
					"Teeth Cleaning":  2000,
				},
			},
		}, cov)

		if result.ExcludedAmount != 3000 {
			t.Errorf("expected excluded 3000, got %v", result.ExcludedAmount)
		}
		if result.EligibleAmount != 2000 {
			t.Errorf("expected eligible 2000, got %v", result.EligibleAmount)
		}
		if result.ApprovedAmount != 2000 {
			t.Errorf("expected approved 2000, got %v", result.ApprovedAmount)
		}
	})

	t.Run("NetworkDiscount", func(t *testing.T) {
		t.Run("NetworkHospital", func(t *testing.T) {
			result := calc.Calculate(ctx, &domain.ClaimRequest{
				ClaimAmount: 1000,
				Hospital:    "Apollo Clinic, Andheri West",
			}, consultation)

			if !result.NetworkHospital {
				t.Error("expected network hospital match")
			}
			if result.NetworkDiscount != 200 {
				t.Errorf("expected discount 200, got %v", result.NetworkDiscount)
			}
			// Discount is informational and does not change the payout
			if result.ApprovedAmount != 900 {
				t.Errorf("expected approved 900, got %v", result.ApprovedAmount)
			}
		})

		t.Run("UnknownHospital", func(t *testing.T) {
			result := calc.Calculate(ctx, &domain.ClaimRequest{
				ClaimAmount: 1000,
				Hospital:    "Sunrise Nursing Home",
			}, consultation)

			if result.NetworkHospital {
				t.Error("expected no network match")
			}
			if result.NetworkDiscount != 0 {
				t.Errorf("expected no discount, got %v", result.NetworkDiscount)
			}
		})
	})

	t.Run("SubLimitCapsWithoutRejecting", func(t *testing.T) {
		result := calc.Calculate(ctx, &domain.ClaimRequest{ClaimAmount: 2500}, consultation)

		if !result.SubLimitExceeded {
			t.Error("expected sub-limit exceeded")
		}
		if len(result.RejectionReasons) != 0 {
			t.Errorf("expected no rejection codes, got %v", result.RejectionReasons)
		}
		// Capped at 2000, then 10% co-pay
		if result.ApprovedAmount != 1800 {
			t.Errorf("expected approved 1800, got %v", result.ApprovedAmount)
		}
		if !result.WithinLimits {
			t.Error("sub-limit overage alone must stay within limits")
		}
	})
}
