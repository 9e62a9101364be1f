package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Claim operations
	SaveClaim(ctx context.Context, tenantID string, claim *Claim) error
	GetClaim(ctx context.Context, tenantID string, claimID string) (*Claim, error)
	ListClaims(ctx context.Context, tenantID string, memberID string, limit int) ([]*Claim, error)
	UpdateClaimStatus(ctx context.Context, tenantID string, claimID string, status Decision) error

	// Adjudication results
	SaveAdjudication(ctx context.Context, tenantID string, result *AdjudicationResult) error
	GetAdjudication(ctx context.Context, tenantID string, resultID string) (*AdjudicationResult, error)
	GetAdjudicationByClaim(ctx context.Context, tenantID string, claimID string) (*AdjudicationResult, error)

	// Appeals
	SaveAppeal(ctx context.Context, tenantID string, appeal *Appeal) error
	GetAppeal(ctx context.Context, tenantID string, appealID string) (*Appeal, error)
	ListAppealsByClaim(ctx context.Context, tenantID string, claimID string) ([]*Appeal, error)

	// Member history queries feeding the fraud and limit stages.
	CountClaimsOnDate(ctx context.Context, tenantID string, memberID string, date string) (int, error)
	SumApprovedSince(ctx context.Context, tenantID string, memberID string, since time.Time) (float64, error)

	// Fraud indicator rule operations
	SaveFraudRule(ctx context.Context, tenantID string, rule *FraudRule) error
	GetFraudRule(ctx context.Context, tenantID string, ruleID string) (*FraudRule, error)
	ListFraudRules(ctx context.Context, tenantID string) ([]*FraudRule, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
