package eligibility

import (
	"context"
	"testing"

	"github.com/opensource-health/egret/internal/domain"
)

func claim(treatmentDate, joinDate, diagnosis string) *domain.ClaimRequest {
	return &domain.ClaimRequest{
		MemberID:       "MEM-001",
		TreatmentDate:  treatmentDate,
		MemberJoinDate: joinDate,
		ClaimAmount:    1000,
		Extracted: domain.ExtractedDocumentData{
			Diagnosis:       diagnosis,
			HasPrescription: true,
			HasBill:         true,
		},
	}
}

func TestEvaluate(t *testing.T) {
	eval := NewEvaluator(domain.DefaultPolicy())
	ctx := context.Background()

	t.Run("EligibleLongStandingMember", func(t *testing.T) {
		result := eval.Evaluate(ctx, claim("2024-06-12", "2023-01-01", "viral fever"))

		if !result.Eligible {
			t.Errorf("expected eligible, got reasons %v", result.RejectionReasons)
		}
		if !result.WaitingSatisfied {
			t.Error("expected waiting satisfied")
		}
		if result.Confidence != 0.95 {
			t.Errorf("expected confidence 0.95, got %v", result.Confidence)
		}
	})

	t.Run("DefaultJoinDateAssumed", func(t *testing.T) {
		// No join date: assume one year of membership
		result := eval.Evaluate(ctx, claim("2024-06-12", "", "type 2 diabetes"))

		if !result.Eligible {
			t.Errorf("expected eligible with assumed join date, got %v", result.RejectionReasons)
		}
	})

	t.Run("InitialWaitingPeriod", func(t *testing.T) {
		// Joined 10 days before treatment, inside the 30-day initial wait
		result := eval.Evaluate(ctx, claim("2024-06-12", "2024-06-02", "viral fever"))

		if result.Eligible {
			t.Fatal("expected ineligible inside initial waiting period")
		}
		if !domain.HasReason(result.RejectionReasons, domain.ReasonWaitingPeriod) {
			t.Errorf("expected WAITING_PERIOD, got %v", result.RejectionReasons)
		}
		if result.WaitingPeriodEnd == nil {
			t.Fatal("expected waiting period end date")
		}
		if got := result.WaitingPeriodEnd.Format("2006-01-02"); got != "2024-07-02" {
			t.Errorf("expected eligible from 2024-07-02, got %s", got)
		}
		if result.Confidence != 0.98 {
			t.Errorf("expected confidence 0.98, got %v", result.Confidence)
		}
	})

	t.Run("ConditionWaitingPeriods", func(t *testing.T) {
		tests := []struct {
			name      string
			joinDate  string
			diagnosis string
			eligible  bool
		}{
			{"DiabetesInsideWait", "2024-04-28", "type 2 diabetes", false},       // 45 days covered
			{"DiabetesAfterWait", "2024-01-01", "type 2 diabetes", true},         // 163 days covered
			{"HypertensionInsideWait", "2024-04-28", "hypertension stage 1", false},
			{"JointReplacementInsideWait", "2023-05-01", "knee replacement surgery", false}, // 730-day wait
			{"JointPainIsNotReplacement", "2024-01-01", "joint pain", true},
			{"ArthroplastyInsideWait", "2023-05-01", "total hip arthroplasty", false},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				result := eval.Evaluate(ctx, claim("2024-06-12", tc.joinDate, tc.diagnosis))

				if result.Eligible != tc.eligible {
					t.Errorf("expected eligible=%v, got %v (reasons %v)",
						tc.eligible, result.Eligible, result.RejectionReasons)
				}
				if !tc.eligible {
					if !domain.HasReason(result.RejectionReasons, domain.ReasonWaitingPeriod) {
						t.Errorf("expected WAITING_PERIOD, got %v", result.RejectionReasons)
					}
					if result.Confidence != 0.96 {
						t.Errorf("expected confidence 0.96, got %v", result.Confidence)
					}
				}
			})
		}
	})

	t.Run("InvalidTreatmentDate", func(t *testing.T) {
		result := eval.Evaluate(ctx, claim("12/06/2024", "2023-01-01", "viral fever"))

		if result.Eligible {
			t.Fatal("expected ineligible for unparseable treatment date")
		}
		if !domain.HasReason(result.RejectionReasons, domain.ReasonInvalidDate) {
			t.Errorf("expected INVALID_DATE, got %v", result.RejectionReasons)
		}
		if result.Confidence != 1.0 {
			t.Errorf("expected confidence 1.0, got %v", result.Confidence)
		}
	})

	t.Run("InvalidJoinDate", func(t *testing.T) {
		result := eval.Evaluate(ctx, claim("2024-06-12", "not-a-date", "viral fever"))

		if result.Eligible {
			t.Fatal("expected ineligible for unparseable join date")
		}
		if !domain.HasReason(result.RejectionReasons, domain.ReasonInvalidDate) {
			t.Errorf("expected INVALID_DATE, got %v", result.RejectionReasons)
		}
		if result.Confidence != 1.0 {
			t.Errorf("expected confidence 1.0, got %v", result.Confidence)
		}
	})
}
