package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/opensource-health/egret/internal/cache"
	"github.com/opensource-health/egret/internal/domain"
	"github.com/opensource-health/egret/internal/repository"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "egret-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	repo, err := repository.New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: tmpPath})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func seedClaim(t *testing.T, repo domain.Repository, tenantID, id, memberID, date string) {
	t.Helper()
	err := repo.SaveClaim(context.Background(), tenantID, &domain.Claim{
		ID: id,
		Request: domain.ClaimRequest{
			MemberID:      memberID,
			TreatmentDate: date,
			ClaimAmount:   1000,
		},
		Status:    domain.StatusSubmitted,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("SaveClaim failed: %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("CountsFromRepository", func(t *testing.T) {
		repo := newTestRepo(t)
		svc := NewService(repo, nil)

		seedClaim(t, repo, tenantID, "claim-001", "MEM-001", "2024-06-12")
		seedClaim(t, repo, tenantID, "claim-002", "MEM-001", "2024-06-12")
		seedClaim(t, repo, tenantID, "claim-003", "MEM-001", "2024-06-01")

		err := repo.SaveAdjudication(ctx, tenantID, &domain.AdjudicationResult{
			ID:             "adj-001",
			ClaimID:        "claim-003",
			TenantID:       tenantID,
			Decision:       domain.DecisionApproved,
			ApprovedAmount: 1800,
			CreatedAt:      time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("SaveAdjudication failed: %v", err)
		}

		snap, err := svc.Snapshot(ctx, tenantID, "MEM-001", "2024-06-12")
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}

		if snap.SameDayClaims != 2 {
			t.Errorf("expected 2 same-day claims, got %d", snap.SameDayClaims)
		}
		if snap.ApprovedYTD != 1800 {
			t.Errorf("expected YTD 1800, got %v", snap.ApprovedYTD)
		}
		if snap.AsOf != "2024-06-12" {
			t.Errorf("expected AsOf 2024-06-12, got %s", snap.AsOf)
		}
	})

	t.Run("CacheShortCircuits", func(t *testing.T) {
		c := cache.NewLRUCache(100)
		// No repository: only a cache hit can serve the snapshot
		svc := NewService(nil, c)

		seeded := &domain.MemberSnapshot{
			MemberID:      "MEM-001",
			SameDayClaims: 3,
			ApprovedYTD:   9000,
			AsOf:          "2024-06-12",
		}
		if err := c.SetMemberSnapshot(ctx, tenantID, "MEM-001", seeded, time.Minute); err != nil {
			t.Fatalf("SetMemberSnapshot failed: %v", err)
		}

		snap, err := svc.Snapshot(ctx, tenantID, "MEM-001", "2024-06-12")
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if snap.SameDayClaims != 3 || snap.ApprovedYTD != 9000 {
			t.Errorf("expected cached snapshot, got %+v", snap)
		}
	})

	t.Run("StaleCacheEntryIgnored", func(t *testing.T) {
		c := cache.NewLRUCache(100)
		svc := NewService(nil, c)

		stale := &domain.MemberSnapshot{MemberID: "MEM-001", SameDayClaims: 3, AsOf: "2024-06-11"}
		_ = c.SetMemberSnapshot(ctx, tenantID, "MEM-001", stale, time.Minute)

		// Different treatment date must bypass the cache; with no
		// repository behind it the lookup fails.
		if _, err := svc.Snapshot(ctx, tenantID, "MEM-001", "2024-06-12"); err == nil {
			t.Error("expected error when only a stale cache entry exists")
		}
	})

	t.Run("SnapshotPopulatesCache", func(t *testing.T) {
		repo := newTestRepo(t)
		c := cache.NewLRUCache(100)
		svc := NewService(repo, c)

		seedClaim(t, repo, tenantID, "claim-010", "MEM-002", "2024-06-12")

		if _, err := svc.Snapshot(ctx, tenantID, "MEM-002", "2024-06-12"); err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}

		cached, err := c.GetMemberSnapshot(ctx, tenantID, "MEM-002")
		if err != nil || cached == nil {
			t.Fatalf("expected cached snapshot, got %v (%v)", cached, err)
		}
		if cached.SameDayClaims != 1 {
			t.Errorf("expected 1 same-day claim cached, got %d", cached.SameDayClaims)
		}
	})

	t.Run("RequiresIdentifiers", func(t *testing.T) {
		svc := NewService(newTestRepo(t), nil)

		if _, err := svc.Snapshot(ctx, "", "MEM-001", "2024-06-12"); err == nil {
			t.Error("expected error for empty tenantID")
		}
		if _, err := svc.Snapshot(ctx, tenantID, "", "2024-06-12"); err == nil {
			t.Error("expected error for empty memberID")
		}
	})
}

func TestEnrich(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("FillsMissingCounters", func(t *testing.T) {
		repo := newTestRepo(t)
		svc := NewService(repo, nil)

		seedClaim(t, repo, tenantID, "claim-001", "MEM-001", "2024-06-12")

		req := &domain.ClaimRequest{MemberID: "MEM-001", TreatmentDate: "2024-06-12"}
		if err := svc.Enrich(ctx, tenantID, req); err != nil {
			t.Fatalf("Enrich failed: %v", err)
		}

		if req.PriorSameDayClaims != 1 {
			t.Errorf("expected 1 prior same-day claim, got %d", req.PriorSameDayClaims)
		}
	})

	t.Run("TrustsSuppliedCounters", func(t *testing.T) {
		// No data source: Enrich must not even try a lookup
		svc := NewService(nil, nil)

		req := &domain.ClaimRequest{
			MemberID:           "MEM-001",
			TreatmentDate:      "2024-06-12",
			PriorSameDayClaims: 4,
		}
		if err := svc.Enrich(ctx, tenantID, req); err != nil {
			t.Fatalf("Enrich failed: %v", err)
		}
		if req.PriorSameDayClaims != 4 {
			t.Errorf("supplied counter overwritten: %d", req.PriorSameDayClaims)
		}
	})
}

func TestRecordClaim(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-001"

	c := cache.NewLRUCache(100)
	svc := NewService(nil, c)

	snap := &domain.MemberSnapshot{MemberID: "MEM-001", SameDayClaims: 1, AsOf: "2024-06-12"}
	_ = c.SetMemberSnapshot(ctx, tenantID, "MEM-001", snap, time.Minute)

	svc.RecordClaim(ctx, tenantID, "MEM-001", "2024-06-12")

	cached, err := c.GetMemberSnapshot(ctx, tenantID, "MEM-001")
	if err != nil {
		t.Fatalf("GetMemberSnapshot failed: %v", err)
	}
	if cached != nil {
		t.Error("expected snapshot invalidated after RecordClaim")
	}

	// The same-day counter was bumped once by RecordClaim
	count, err := c.IncrementCounter(ctx, tenantID, "claims:MEM-001:2024-06-12", 24*time.Hour)
	if err != nil {
		t.Fatalf("IncrementCounter failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected counter at 2, got %d", count)
	}
}
