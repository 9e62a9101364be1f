package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/opensource-health/egret/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "egret-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func testClaim(id, memberID, treatmentDate string, amount float64) *domain.Claim {
	return &domain.Claim{
		ID: id,
		Request: domain.ClaimRequest{
			MemberID:      memberID,
			MemberName:    "Test Member",
			TreatmentDate: treatmentDate,
			ClaimAmount:   amount,
			Extracted: domain.ExtractedDocumentData{
				Diagnosis:       "viral fever",
				HasPrescription: true,
				HasBill:         true,
			},
		},
		Status:    domain.StatusSubmitted,
		CreatedAt: time.Now().UTC(),
	}
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetClaim", func(t *testing.T) {
		claim := testClaim("claim-001", "MEM-001", "2024-06-12", 1500)

		if err := repo.SaveClaim(ctx, tenantID, claim); err != nil {
			t.Fatalf("SaveClaim failed: %v", err)
		}

		got, err := repo.GetClaim(ctx, tenantID, "claim-001")
		if err != nil {
			t.Fatalf("GetClaim failed: %v", err)
		}

		if got.ID != claim.ID {
			t.Errorf("expected ID %s, got %s", claim.ID, got.ID)
		}
		if got.Status != domain.StatusSubmitted {
			t.Errorf("expected status %s, got %s", domain.StatusSubmitted, got.Status)
		}
		if got.Request.MemberID != "MEM-001" {
			t.Errorf("expected member MEM-001, got %s", got.Request.MemberID)
		}
		if got.Request.ClaimAmount != 1500 {
			t.Errorf("expected claim amount 1500, got %v", got.Request.ClaimAmount)
		}
		if got.Request.Extracted.Diagnosis != "viral fever" {
			t.Errorf("expected diagnosis preserved, got %q", got.Request.Extracted.Diagnosis)
		}
	})

	t.Run("GetClaimNotFound", func(t *testing.T) {
		_, err := repo.GetClaim(ctx, tenantID, "no-such-claim")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListClaimsByMember", func(t *testing.T) {
		_ = repo.SaveClaim(ctx, tenantID, testClaim("claim-lc-1", "MEM-LIST", "2024-06-10", 800))
		_ = repo.SaveClaim(ctx, tenantID, testClaim("claim-lc-2", "MEM-LIST", "2024-06-11", 900))
		_ = repo.SaveClaim(ctx, tenantID, testClaim("claim-lc-3", "MEM-OTHER", "2024-06-11", 700))

		claims, err := repo.ListClaims(ctx, tenantID, "MEM-LIST", 10)
		if err != nil {
			t.Fatalf("ListClaims failed: %v", err)
		}
		if len(claims) != 2 {
			t.Errorf("expected 2 claims for MEM-LIST, got %d", len(claims))
		}
		for _, c := range claims {
			if c.Request.MemberID != "MEM-LIST" {
				t.Errorf("unexpected member %s in filtered list", c.Request.MemberID)
			}
		}
	})

	t.Run("UpdateClaimStatus", func(t *testing.T) {
		claim := testClaim("claim-status", "MEM-002", "2024-06-12", 1200)
		_ = repo.SaveClaim(ctx, tenantID, claim)

		if err := repo.UpdateClaimStatus(ctx, tenantID, "claim-status", domain.DecisionApproved); err != nil {
			t.Fatalf("UpdateClaimStatus failed: %v", err)
		}

		got, _ := repo.GetClaim(ctx, tenantID, "claim-status")
		if got.Status != domain.DecisionApproved {
			t.Errorf("expected status APPROVED, got %s", got.Status)
		}
	})

	t.Run("UpdateClaimStatusNotFound", func(t *testing.T) {
		err := repo.UpdateClaimStatus(ctx, tenantID, "missing-claim", domain.DecisionRejected)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveAndGetAdjudication", func(t *testing.T) {
		result := &domain.AdjudicationResult{
			ID:             "adj-001",
			ClaimID:        "claim-001",
			TenantID:       tenantID,
			Decision:       domain.DecisionApproved,
			ApprovedAmount: 1350,
			Confidence:     0.91,
			CreatedAt:      time.Now().UTC(),
		}

		if err := repo.SaveAdjudication(ctx, tenantID, result); err != nil {
			t.Fatalf("SaveAdjudication failed: %v", err)
		}

		got, err := repo.GetAdjudication(ctx, tenantID, "adj-001")
		if err != nil {
			t.Fatalf("GetAdjudication failed: %v", err)
		}
		if got.Decision != domain.DecisionApproved {
			t.Errorf("expected APPROVED, got %s", got.Decision)
		}
		if got.ApprovedAmount != 1350 {
			t.Errorf("expected approved 1350, got %v", got.ApprovedAmount)
		}

		byClaim, err := repo.GetAdjudicationByClaim(ctx, tenantID, "claim-001")
		if err != nil {
			t.Fatalf("GetAdjudicationByClaim failed: %v", err)
		}
		if byClaim.ID != "adj-001" {
			t.Errorf("expected adj-001, got %s", byClaim.ID)
		}
	})

	t.Run("GetAdjudicationByClaimNotFound", func(t *testing.T) {
		_, err := repo.GetAdjudicationByClaim(ctx, tenantID, "undecided-claim")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Appeals", func(t *testing.T) {
		appeal := &domain.Appeal{
			ID:        "appeal-001",
			ClaimID:   "claim-001",
			Reason:    "Additional documents available",
			Status:    domain.AppealPending,
			CreatedAt: time.Now().UTC(),
		}

		if err := repo.SaveAppeal(ctx, tenantID, appeal); err != nil {
			t.Fatalf("SaveAppeal failed: %v", err)
		}

		got, err := repo.GetAppeal(ctx, tenantID, "appeal-001")
		if err != nil {
			t.Fatalf("GetAppeal failed: %v", err)
		}
		if got.Status != domain.AppealPending {
			t.Errorf("expected PENDING, got %s", got.Status)
		}

		appeals, err := repo.ListAppealsByClaim(ctx, tenantID, "claim-001")
		if err != nil {
			t.Fatalf("ListAppealsByClaim failed: %v", err)
		}
		if len(appeals) != 1 {
			t.Errorf("expected 1 appeal, got %d", len(appeals))
		}
	})

	t.Run("CountClaimsOnDate", func(t *testing.T) {
		_ = repo.SaveClaim(ctx, tenantID, testClaim("claim-sd-1", "MEM-SAMEDAY", "2024-06-15", 800))
		_ = repo.SaveClaim(ctx, tenantID, testClaim("claim-sd-2", "MEM-SAMEDAY", "2024-06-15", 900))
		_ = repo.SaveClaim(ctx, tenantID, testClaim("claim-sd-3", "MEM-SAMEDAY", "2024-06-16", 700))

		count, err := repo.CountClaimsOnDate(ctx, tenantID, "MEM-SAMEDAY", "2024-06-15")
		if err != nil {
			t.Fatalf("CountClaimsOnDate failed: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 same-day claims, got %d", count)
		}
	})

	t.Run("SumApprovedSince", func(t *testing.T) {
		memberID := "MEM-YTD"
		since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		_ = repo.SaveClaim(ctx, tenantID, testClaim("claim-ytd-1", memberID, "2024-03-01", 2000))
		_ = repo.SaveClaim(ctx, tenantID, testClaim("claim-ytd-2", memberID, "2024-04-01", 3000))
		_ = repo.SaveClaim(ctx, tenantID, testClaim("claim-ytd-3", memberID, "2024-05-01", 4000))

		// Approved and partial count toward YTD; rejected does not.
		saveResult := func(id, claimID string, decision domain.Decision, amount float64) {
			_ = repo.SaveAdjudication(ctx, tenantID, &domain.AdjudicationResult{
				ID: id, ClaimID: claimID, Decision: decision,
				ApprovedAmount: amount, CreatedAt: time.Now().UTC(),
			})
		}
		saveResult("adj-ytd-1", "claim-ytd-1", domain.DecisionApproved, 1800)
		saveResult("adj-ytd-2", "claim-ytd-2", domain.DecisionPartial, 1500)
		saveResult("adj-ytd-3", "claim-ytd-3", domain.DecisionRejected, 0)

		total, err := repo.SumApprovedSince(ctx, tenantID, memberID, since)
		if err != nil {
			t.Fatalf("SumApprovedSince failed: %v", err)
		}
		if total != 3300 {
			t.Errorf("expected YTD total 3300, got %v", total)
		}
	})

	t.Run("FraudRules", func(t *testing.T) {
		rule := &domain.FraudRule{
			ID:          "test-rule",
			Description: "test",
			Version:     "1.0.0",
			Expression:  "claim_amount > 1000.0",
			Score:       0.2,
			Flag:        "TEST_FLAG",
			Enabled:     true,
		}

		if err := repo.SaveFraudRule(ctx, "*", rule); err != nil {
			t.Fatalf("SaveFraudRule failed: %v", err)
		}

		got, err := repo.GetFraudRule(ctx, "*", "test-rule")
		if err != nil {
			t.Fatalf("GetFraudRule failed: %v", err)
		}
		if got.Expression != rule.Expression {
			t.Errorf("expected expression %q, got %q", rule.Expression, got.Expression)
		}

		// Upsert replaces the same id+version
		rule.Score = 0.3
		if err := repo.SaveFraudRule(ctx, "*", rule); err != nil {
			t.Fatalf("SaveFraudRule upsert failed: %v", err)
		}
		got, _ = repo.GetFraudRule(ctx, "*", "test-rule")
		if got.Score != 0.3 {
			t.Errorf("expected upserted score 0.3, got %v", got.Score)
		}

		rules, err := repo.ListFraudRules(ctx, "*")
		if err != nil {
			t.Fatalf("ListFraudRules failed: %v", err)
		}
		if len(rules) != 1 {
			t.Errorf("expected 1 rule, got %d", len(rules))
		}
	})

	t.Run("DisabledRulesExcluded", func(t *testing.T) {
		disabled := &domain.FraudRule{
			ID:         "disabled-rule",
			Version:    "1.0.0",
			Expression: "true",
			Score:      0.1,
			Flag:       "DISABLED",
			Enabled:    false,
		}
		_ = repo.SaveFraudRule(ctx, "*", disabled)

		if _, err := repo.GetFraudRule(ctx, "*", "disabled-rule"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for disabled rule, got %v", err)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		otherTenant := "tenant-002"

		if _, err := repo.GetClaim(ctx, otherTenant, "claim-001"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound across tenants, got %v", err)
		}
		if _, err := repo.GetAdjudication(ctx, otherTenant, "adj-001"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound across tenants, got %v", err)
		}

		count, err := repo.CountClaimsOnDate(ctx, otherTenant, "MEM-SAMEDAY", "2024-06-15")
		if err != nil {
			t.Fatalf("CountClaimsOnDate failed: %v", err)
		}
		if count != 0 {
			t.Errorf("expected 0 claims for other tenant, got %d", count)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		if err := repo.SaveClaim(ctx, "", testClaim("x", "m", "2024-01-01", 500)); err == nil {
			t.Error("expected error for empty tenantID")
		}
		if _, err := repo.GetClaim(ctx, "", "claim-001"); err == nil {
			t.Error("expected error for empty tenantID")
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "oracle"})
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}
