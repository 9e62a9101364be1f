// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-health/egret/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveClaim stores a claim with tenant isolation.
func (r *SQLRepository) SaveClaim(ctx context.Context, tenantID string, claim *domain.Claim) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	request, err := json.Marshal(claim.Request)
	if err != nil {
		return fmt.Errorf("failed to encode claim request: %w", err)
	}

	query := `
		INSERT INTO claims (
			id, tenant_id, member_id, member_name, treatment_date,
			claim_amount, hospital, status, request, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		claim.ID, tenantID,
		claim.Request.MemberID, claim.Request.MemberName, claim.Request.TreatmentDate,
		claim.Request.ClaimAmount, claim.Request.Hospital,
		claim.Status, string(request), claim.CreatedAt,
	)
	return err
}

// GetClaim retrieves a claim by ID with tenant isolation.
func (r *SQLRepository) GetClaim(ctx context.Context, tenantID string, claimID string) (*domain.Claim, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, status, request, created_at
		FROM claims
		WHERE tenant_id = ? AND id = ?
	`

	var claim domain.Claim
	var request string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, claimID).Scan(
		&claim.ID, &claim.TenantID, &claim.Status, &request, &claim.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(request), &claim.Request); err != nil {
		return nil, fmt.Errorf("failed to parse claim request: %w", err)
	}

	return &claim, nil
}

// ListClaims retrieves claims for a tenant, newest first, optionally
// filtered by member.
func (r *SQLRepository) ListClaims(ctx context.Context, tenantID string, memberID string, limit int) ([]*domain.Claim, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, tenant_id, status, request, created_at
		FROM claims
		WHERE tenant_id = ?
	`
	args := []any{tenantID}
	if memberID != "" {
		query += " AND member_id = ?"
		args = append(args, memberID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []*domain.Claim
	for rows.Next() {
		var claim domain.Claim
		var request string

		if err := rows.Scan(&claim.ID, &claim.TenantID, &claim.Status, &request, &claim.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(request), &claim.Request); err != nil {
			return nil, fmt.Errorf("failed to parse claim request for %s: %w", claim.ID, err)
		}
		claims = append(claims, &claim)
	}

	return claims, rows.Err()
}

// UpdateClaimStatus records the decision for a claim.
func (r *SQLRepository) UpdateClaimStatus(ctx context.Context, tenantID string, claimID string, status domain.Decision) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE claims
		SET status = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), status, tenantID, claimID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveAdjudication stores an adjudication result with tenant isolation.
func (r *SQLRepository) SaveAdjudication(ctx context.Context, tenantID string, res *domain.AdjudicationResult) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode adjudication result: %w", err)
	}

	query := `
		INSERT INTO adjudications (
			id, tenant_id, claim_id, decision, approved_amount,
			confidence, result, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		res.ID, tenantID, res.ClaimID, res.Decision,
		res.ApprovedAmount, res.Confidence, string(payload), res.CreatedAt,
	)
	return err
}

// GetAdjudication retrieves an adjudication result by ID with tenant isolation.
func (r *SQLRepository) GetAdjudication(ctx context.Context, tenantID string, resultID string) (*domain.AdjudicationResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT result
		FROM adjudications
		WHERE tenant_id = ? AND id = ?
	`

	return r.scanAdjudication(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, resultID))
}

// GetAdjudicationByClaim retrieves the latest adjudication for a claim.
func (r *SQLRepository) GetAdjudicationByClaim(ctx context.Context, tenantID string, claimID string) (*domain.AdjudicationResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT result
		FROM adjudications
		WHERE tenant_id = ? AND claim_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanAdjudication(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, claimID))
}

func (r *SQLRepository) scanAdjudication(row *sql.Row) (*domain.AdjudicationResult, error) {
	var payload string
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var res domain.AdjudicationResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, fmt.Errorf("failed to parse adjudication result: %w", err)
	}
	return &res, nil
}

// SaveAppeal stores an appeal with tenant isolation.
func (r *SQLRepository) SaveAppeal(ctx context.Context, tenantID string, appeal *domain.Appeal) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO appeals (
			id, tenant_id, claim_id, reason, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		appeal.ID, tenantID, appeal.ClaimID, appeal.Reason, appeal.Status, appeal.CreatedAt,
	)
	return err
}

// GetAppeal retrieves an appeal by ID with tenant isolation.
func (r *SQLRepository) GetAppeal(ctx context.Context, tenantID string, appealID string) (*domain.Appeal, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, claim_id, reason, status, created_at
		FROM appeals
		WHERE tenant_id = ? AND id = ?
	`

	var appeal domain.Appeal
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, appealID).Scan(
		&appeal.ID, &appeal.TenantID, &appeal.ClaimID,
		&appeal.Reason, &appeal.Status, &appeal.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &appeal, nil
}

// ListAppealsByClaim retrieves all appeals for a claim, newest first.
func (r *SQLRepository) ListAppealsByClaim(ctx context.Context, tenantID string, claimID string) ([]*domain.Appeal, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, claim_id, reason, status, created_at
		FROM appeals
		WHERE tenant_id = ? AND claim_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appeals []*domain.Appeal
	for rows.Next() {
		var appeal domain.Appeal
		if err := rows.Scan(
			&appeal.ID, &appeal.TenantID, &appeal.ClaimID,
			&appeal.Reason, &appeal.Status, &appeal.CreatedAt,
		); err != nil {
			return nil, err
		}
		appeals = append(appeals, &appeal)
	}

	return appeals, rows.Err()
}

// CountClaimsOnDate counts a member's claims on a treatment date.
// Feeds the same-day fraud indicators.
func (r *SQLRepository) CountClaimsOnDate(ctx context.Context, tenantID string, memberID string, date string) (int, error) {
	if tenantID == "" || memberID == "" {
		return 0, fmt.Errorf("%w: tenantID and memberID are required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*) FROM claims
		WHERE tenant_id = ? AND member_id = ? AND treatment_date = ?
	`

	var count int
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, memberID, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count claims: %w", err)
	}
	return count, nil
}

// SumApprovedSince totals approved amounts for a member since a cutoff.
// Feeds the annual-limit and utilization checks.
func (r *SQLRepository) SumApprovedSince(ctx context.Context, tenantID string, memberID string, since time.Time) (float64, error) {
	if tenantID == "" || memberID == "" {
		return 0, fmt.Errorf("%w: tenantID and memberID are required", ErrInvalidInput)
	}

	query := `
		SELECT COALESCE(SUM(a.approved_amount), 0)
		FROM adjudications a
		JOIN claims c ON c.id = a.claim_id AND c.tenant_id = a.tenant_id
		WHERE a.tenant_id = ?
		  AND c.member_id = ?
		  AND a.created_at >= ?
		  AND a.decision IN ('APPROVED', 'PARTIAL')
	`

	var total float64
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, memberID, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum approved amounts: %w", err)
	}
	return total, nil
}

// SaveFraudRule stores a fraud indicator rule with tenant isolation.
func (r *SQLRepository) SaveFraudRule(ctx context.Context, tenantID string, rule *domain.FraudRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO fraud_rules (
			id, tenant_id, description, version, expression, score, flag, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			description = excluded.description,
			expression = excluded.expression,
			score = excluded.score,
			flag = excluded.flag,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Description, rule.Version,
		rule.Expression, rule.Score, rule.Flag, enabled,
		now, now,
	)
	return err
}

// GetFraudRule retrieves the latest enabled version of a fraud rule.
func (r *SQLRepository) GetFraudRule(ctx context.Context, tenantID string, ruleID string) (*domain.FraudRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, description, version, expression, score, flag, enabled
		FROM fraud_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var rule domain.FraudRule
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID).Scan(
		&rule.ID, &rule.Description, &rule.Version,
		&rule.Expression, &rule.Score, &rule.Flag, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1
	return &rule, nil
}

// ListFraudRules retrieves all enabled fraud rules for a tenant in
// stable order.
func (r *SQLRepository) ListFraudRules(ctx context.Context, tenantID string) ([]*domain.FraudRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, description, version, expression, score, flag, enabled
		FROM fraud_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.FraudRule
	for rows.Next() {
		var rule domain.FraudRule
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.Description, &rule.Version,
			&rule.Expression, &rule.Score, &rule.Flag, &enabled,
		); err != nil {
			return nil, err
		}

		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
