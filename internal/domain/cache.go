package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetMemberSnapshot retrieves a cached member history snapshot.
	GetMemberSnapshot(ctx context.Context, tenantID string, memberID string) (*MemberSnapshot, error)

	// SetMemberSnapshot caches a member history snapshot for pipeline use.
	SetMemberSnapshot(ctx context.Context, tenantID string, memberID string, snap *MemberSnapshot, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns new value.
	// Used for same-day claim counts.
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MemberSnapshot holds cached member history used by the fraud and
// limit stages.
type MemberSnapshot struct {
	MemberID      string  `json:"memberId"`
	JoinDate      string  `json:"joinDate,omitempty"`
	SameDayClaims int     `json:"sameDayClaims"`
	ApprovedYTD   float64 `json:"approvedYtd"`
	AsOf          string  `json:"asOf"`
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
