// Package advisor provides the assistive second-opinion evaluator
// consulted on low-confidence approvals. The advisor is never
// authoritative: it can escalate an ambiguous approval to manual
// review and annotate the decision, nothing more, and any failure
// falls back silently to the deterministic result.
package advisor

import (
	"context"
	"fmt"

	"github.com/opensource-health/egret/internal/domain"
)

// Advisor reviews an ambiguous deterministic ruling.
type Advisor interface {
	// Name returns the advisor name.
	Name() string

	// Review examines a low-confidence APPROVED/PARTIAL ruling and
	// returns an opinion. Callers must treat errors as "no opinion".
	Review(ctx context.Context, req ReviewRequest) (*Opinion, error)
}

// ReviewRequest carries the claim and the deterministic ruling.
type ReviewRequest struct {
	Claim  *domain.ClaimRequest
	Result *domain.AdjudicationResult
}

// Opinion is the advisor's assessment of a ruling.
type Opinion struct {
	// Concur is true when the advisor agrees with the ruling. When
	// false, the caller escalates to manual review.
	Concur bool `json:"concur"`

	// Notes is a short rationale attached to the decision record.
	Notes string `json:"notes"`

	// Model identifies what produced the opinion.
	Model string `json:"model,omitempty"`
}

// New creates an advisor from configuration. Disabled or unknown
// configurations yield the noop advisor.
func New(cfg domain.AdvisorConfig) (Advisor, error) {
	if !cfg.Enabled {
		return &Noop{}, nil
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg)
	case "", "none":
		return &Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown advisor provider: %s", cfg.Provider)
	}
}

// Noop always concurs. Used when no advisor is configured.
type Noop struct{}

// Name returns the advisor name.
func (n *Noop) Name() string { return "noop" }

// Review concurs with every ruling.
func (n *Noop) Review(ctx context.Context, req ReviewRequest) (*Opinion, error) {
	return &Opinion{Concur: true}, nil
}
