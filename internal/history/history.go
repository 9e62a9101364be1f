// Package history computes member claim history for the pipeline:
// same-day claim counts and year-to-date approved totals.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-health/egret/internal/domain"
)

const snapshotTTL = 5 * time.Minute

// Service derives the prior-claims counters consumed by the fraud and
// limit stages. Reads go through the cache when one is configured.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new history service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// Snapshot returns the member's claim history as of a treatment date.
// Cache hits for the same member and date short-circuit the queries.
func (s *Service) Snapshot(ctx context.Context, tenantID, memberID, treatmentDate string) (*domain.MemberSnapshot, error) {
	if tenantID == "" || memberID == "" {
		return nil, fmt.Errorf("tenantID and memberID are required")
	}

	if s.cache != nil {
		snap, err := s.cache.GetMemberSnapshot(ctx, tenantID, memberID)
		if err == nil && snap != nil && snap.AsOf == treatmentDate {
			return snap, nil
		}
	}

	if s.repo == nil {
		return nil, fmt.Errorf("no data source available")
	}

	sameDay, err := s.repo.CountClaimsOnDate(ctx, tenantID, memberID, treatmentDate)
	if err != nil {
		return nil, fmt.Errorf("failed to count same-day claims: %w", err)
	}

	ytd, err := s.repo.SumApprovedSince(ctx, tenantID, memberID, yearStart(treatmentDate))
	if err != nil {
		return nil, fmt.Errorf("failed to sum approved claims: %w", err)
	}

	snap := &domain.MemberSnapshot{
		MemberID:      memberID,
		SameDayClaims: sameDay,
		ApprovedYTD:   ytd,
		AsOf:          treatmentDate,
	}

	if s.cache != nil {
		_ = s.cache.SetMemberSnapshot(ctx, tenantID, memberID, snap, snapshotTTL)
	}
	return snap, nil
}

// Enrich fills in the prior-claims counters on a submission that did
// not supply them. Counters supplied by the caller are trusted as-is.
func (s *Service) Enrich(ctx context.Context, tenantID string, req *domain.ClaimRequest) error {
	if req.PriorSameDayClaims > 0 || req.PriorApprovedYTD > 0 {
		return nil
	}

	snap, err := s.Snapshot(ctx, tenantID, req.MemberID, req.TreatmentDate)
	if err != nil {
		return err
	}

	req.PriorSameDayClaims = snap.SameDayClaims
	req.PriorApprovedYTD = snap.ApprovedYTD
	return nil
}

// RecordClaim bumps the member's same-day counter and invalidates the
// cached snapshot after a claim is persisted.
func (s *Service) RecordClaim(ctx context.Context, tenantID, memberID, treatmentDate string) {
	if s.cache == nil {
		return
	}
	_, _ = s.cache.IncrementCounter(ctx, tenantID, "claims:"+memberID+":"+treatmentDate, 24*time.Hour)
	_ = s.cache.Delete(ctx, tenantID, "member:"+memberID)
}

// yearStart returns midnight UTC on January 1st of the treatment
// date's year, falling back to the current year on parse failure.
func yearStart(treatmentDate string) time.Time {
	t, err := time.Parse("2006-01-02", treatmentDate)
	if err != nil {
		t = time.Now().UTC()
	}
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}
