package coverage

import (
	"context"
	"testing"

	"github.com/opensource-health/egret/internal/domain"
)

func TestValidate(t *testing.T) {
	v := NewValidator(domain.DefaultPolicy())
	ctx := context.Background()

	t.Run("CleanConsultation", func(t *testing.T) {
		result := v.Validate(ctx, &domain.ClaimRequest{
			ClaimAmount: 800,
			Extracted: domain.ExtractedDocumentData{
				Diagnosis:  "viral fever",
				Treatments: []string{"consultation"},
			},
		})

		if !result.Covered {
			t.Errorf("expected covered, got reasons %v", result.RejectionReasons)
		}
		if len(result.Excluded) != 0 {
			t.Errorf("expected no exclusions, got %v", result.Excluded)
		}
		if result.Category != domain.CategoryConsultation {
			t.Errorf("expected consultation category, got %s", result.Category)
		}
		if result.Confidence != 0.92 {
			t.Errorf("expected confidence 0.92, got %v", result.Confidence)
		}
	})

	t.Run("PartialExclusionWhitening", func(t *testing.T) {
		result := v.Validate(ctx, &domain.ClaimRequest{
			ClaimAmount: 5000,
			Extracted: domain.ExtractedDocumentData{
				Diagnosis:  "dental caries",
				Treatments: []string{"teeth cleaning", "teeth whitening"},
			},
		})

		if result.Covered {
			t.Fatal("expected not fully covered")
		}
		if !domain.HasReason(result.RejectionReasons, domain.ReasonCosmeticProcedure) {
			t.Errorf("expected COSMETIC_PROCEDURE, got %v", result.RejectionReasons)
		}
		if len(result.Excluded) != 1 || result.Excluded[0].Item != "teeth whitening" {
			t.Errorf("expected only whitening excluded, got %v", result.Excluded)
		}
		if !containsItem(result.CoveredItems, "teeth cleaning") {
			t.Errorf("expected cleaning covered, got %v", result.CoveredItems)
		}
		if result.Category != domain.CategoryDental {
			t.Errorf("expected dental category, got %s", result.Category)
		}
		if result.SubLimit != 10000 {
			t.Errorf("expected dental sub-limit 10000, got %v", result.SubLimit)
		}
		if result.Confidence != 0.95 {
			t.Errorf("expected confidence 0.95, got %v", result.Confidence)
		}
	})

	t.Run("FullyExcludedObesity", func(t *testing.T) {
		result := v.Validate(ctx, &domain.ClaimRequest{
			ClaimAmount: 3000,
			Extracted: domain.ExtractedDocumentData{
				Diagnosis:  "obesity",
				Treatments: []string{"weight loss program"},
			},
		})

		if result.Covered {
			t.Fatal("expected not covered")
		}
		if !domain.HasReason(result.RejectionReasons, domain.ReasonServiceNotCovered) {
			t.Errorf("expected SERVICE_NOT_COVERED, got %v", result.RejectionReasons)
		}
		if len(result.CoveredItems) != 0 {
			t.Errorf("expected no covered items, got %v", result.CoveredItems)
		}
		// Both items match the same rule; code recorded once
		if len(result.RejectionReasons) != 1 {
			t.Errorf("expected single deduplicated reason, got %v", result.RejectionReasons)
		}
	})

	t.Run("AlternativeMedicineBypassesExclusions", func(t *testing.T) {
		result := v.Validate(ctx, &domain.ClaimRequest{
			ClaimAmount: 2000,
			Extracted: domain.ExtractedDocumentData{
				Diagnosis:  "chronic back pain",
				Treatments: []string{"panchakarma detox therapy"},
			},
		})

		if !result.Covered {
			t.Errorf("expected covered, got %v", result.RejectionReasons)
		}
		if !containsItem(result.CoveredItems, "panchakarma detox therapy") {
			t.Errorf("expected panchakarma covered, got %v", result.CoveredItems)
		}
		if result.Category != domain.CategoryAlternativeMedicine {
			t.Errorf("expected alternative medicine category, got %s", result.Category)
		}
	})

	t.Run("PreAuthorization", func(t *testing.T) {
		base := func(amount float64, obtained bool) *domain.ClaimRequest {
			return &domain.ClaimRequest{
				ClaimAmount:     amount,
				PreAuthObtained: obtained,
				Extracted: domain.ExtractedDocumentData{
					Diagnosis: "persistent headache",
					Tests:     []string{"MRI brain"},
				},
			}
		}

		t.Run("RequiredAndMissing", func(t *testing.T) {
			result := v.Validate(ctx, base(12000, false))

			if !result.PreAuthRequired {
				t.Error("expected pre-auth required")
			}
			if result.Covered {
				t.Error("expected not covered without pre-auth")
			}
			if !domain.HasReason(result.RejectionReasons, domain.ReasonPreAuthMissing) {
				t.Errorf("expected PRE_AUTH_MISSING, got %v", result.RejectionReasons)
			}
		})

		t.Run("RequiredAndObtained", func(t *testing.T) {
			result := v.Validate(ctx, base(12000, true))

			if !result.PreAuthRequired {
				t.Error("expected pre-auth required")
			}
			if !result.Covered {
				t.Errorf("expected covered with pre-auth, got %v", result.RejectionReasons)
			}
			if !containsItem(result.CoveredItems, "MRI brain") {
				t.Errorf("expected MRI covered, got %v", result.CoveredItems)
			}
		})

		t.Run("BelowThreshold", func(t *testing.T) {
			result := v.Validate(ctx, base(8000, false))

			if result.PreAuthRequired {
				t.Error("expected no pre-auth below threshold")
			}
			if !result.Covered {
				t.Errorf("expected covered, got %v", result.RejectionReasons)
			}
		})
	})

	t.Run("Medicines", func(t *testing.T) {
		t.Run("VitaminWithDeficiency", func(t *testing.T) {
			result := v.Validate(ctx, &domain.ClaimRequest{
				ClaimAmount: 1500,
				Extracted: domain.ExtractedDocumentData{
					Diagnosis: "vitamin d deficiency",
					Medicines: []string{"Vitamin D3 60K"},
				},
			})

			if !result.Covered {
				t.Errorf("expected covered, got %v", result.RejectionReasons)
			}
			if !containsItem(result.CoveredItems, "Vitamin D3 60K") {
				t.Errorf("expected vitamin covered, got %v", result.CoveredItems)
			}
		})

		t.Run("VitaminForWellness", func(t *testing.T) {
			result := v.Validate(ctx, &domain.ClaimRequest{
				ClaimAmount: 1500,
				Extracted: domain.ExtractedDocumentData{
					Diagnosis: "general health and wellness checkup",
					Medicines: []string{"Multivitamin tablets"},
				},
			})

			if result.Covered {
				t.Fatal("expected not covered")
			}
			if !domain.HasReason(result.RejectionReasons, domain.ReasonServiceNotCovered) {
				t.Errorf("expected SERVICE_NOT_COVERED, got %v", result.RejectionReasons)
			}
		})

		t.Run("VitaminWithoutClearDiagnosis", func(t *testing.T) {
			result := v.Validate(ctx, &domain.ClaimRequest{
				ClaimAmount: 1500,
				Extracted: domain.ExtractedDocumentData{
					Diagnosis: "viral fever",
					Medicines: []string{"Vitamin C chewable"},
				},
			})

			if !result.Covered {
				t.Errorf("expected covered, got %v", result.RejectionReasons)
			}
			if !containsItem(result.LenientItems, "Vitamin C chewable") {
				t.Errorf("expected vitamin in lenient items, got %v", result.LenientItems)
			}
		})

		t.Run("PrescribedMedicineIsLenient", func(t *testing.T) {
			result := v.Validate(ctx, &domain.ClaimRequest{
				ClaimAmount: 1200,
				Extracted: domain.ExtractedDocumentData{
					Diagnosis: "viral fever",
					Medicines: []string{"Paracetamol 650", "Azithromycin 500"},
				},
			})

			if !result.Covered {
				t.Errorf("expected covered, got %v", result.RejectionReasons)
			}
			if len(result.LenientItems) != 2 {
				t.Errorf("expected 2 lenient items, got %v", result.LenientItems)
			}
		})
	})

	t.Run("CategoryInference", func(t *testing.T) {
		tests := []struct {
			name     string
			req      *domain.ClaimRequest
			expected domain.Category
		}{
			{
				"ExplicitCategoryWins",
				&domain.ClaimRequest{
					Category:  domain.CategoryVision,
					Extracted: domain.ExtractedDocumentData{Diagnosis: "tooth decay"},
				},
				domain.CategoryVision,
			},
			{
				"DentalBeatsTests",
				&domain.ClaimRequest{
					Extracted: domain.ExtractedDocumentData{
						Diagnosis: "root canal infection",
						Tests:     []string{"dental x-ray"},
					},
				},
				domain.CategoryDental,
			},
			{
				"TestsImplyDiagnostic",
				&domain.ClaimRequest{
					Extracted: domain.ExtractedDocumentData{
						Diagnosis: "persistent cough",
						Tests:     []string{"chest x-ray"},
					},
				},
				domain.CategoryDiagnostic,
			},
			{
				"MedicinesImplyPharmacy",
				&domain.ClaimRequest{
					Extracted: domain.ExtractedDocumentData{
						Diagnosis: "viral fever",
						Medicines: []string{"Paracetamol 650"},
					},
				},
				domain.CategoryPharmacy,
			},
			{
				"DefaultConsultation",
				&domain.ClaimRequest{
					Extracted: domain.ExtractedDocumentData{Diagnosis: "viral fever"},
				},
				domain.CategoryConsultation,
			},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				result := v.Validate(ctx, tc.req)
				if result.Category != tc.expected {
					t.Errorf("expected category %s, got %s", tc.expected, result.Category)
				}
			})
		}
	})
}

func containsItem(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
