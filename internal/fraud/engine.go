// Package fraud scores claims against a versioned table of CEL
// indicator rules and validates doctor registrations.
package fraud

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-health/egret/internal/domain"
)

// Engine compiles and evaluates fraud indicator rules. Rules are CEL
// boolean expressions over claim variables; a firing rule contributes
// its score and flag. Evaluation order follows load order so results
// are reproducible.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled []*compiledRule
}

type compiledRule struct {
	rule    *domain.FraudRule
	program cel.Program
}

// NewEngine creates a fraud rule engine with the claim variable set.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("claim_amount", cel.DoubleType),
		cel.Variable("per_claim_limit", cel.DoubleType),
		cel.Variable("annual_limit", cel.DoubleType),
		cel.Variable("ytd_total", cel.DoubleType),
		cel.Variable("utilization", cel.DoubleType),
		cel.Variable("same_day_count", cel.IntType),
		cel.Variable("medicine_count", cel.IntType),
		cel.Variable("round_amounts", cel.IntType),
		cel.Variable("doctor_reg_valid", cel.BoolType),
		cel.Variable("weekend", cel.BoolType),
		cel.Variable("emergency", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Engine{env: env}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *Engine) ValidateRule(rule *domain.FraudRule) error {
	if rule == nil {
		return fmt.Errorf("fraud rule is required")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compile(rule)
	return err
}

// LoadRule compiles and appends one rule.
func (e *Engine) LoadRule(rule *domain.FraudRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.compile(rule)
	if err != nil {
		return err
	}
	e.compiled = append(e.compiled, c)
	return nil
}

// LoadRules compiles and loads the enabled rules in order.
func (e *Engine) LoadRules(rules []*domain.FraudRule) error {
	for _, rule := range rules {
		if rule.Enabled {
			if err := e.LoadRule(rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules swaps the full rule table atomically. Enables hot reload
// of rules from the database without dropping in-flight evaluations.
func (e *Engine) ReloadRules(rules []*domain.FraudRule) error {
	compiled := make([]*compiledRule, 0, len(rules))
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		c, err := e.compile(rule)
		if err != nil {
			return err
		}
		compiled = append(compiled, c)
	}

	e.mu.Lock()
	e.compiled = compiled
	e.mu.Unlock()
	return nil
}

// Indicator is one fired rule.
type Indicator struct {
	RuleID string
	Flag   string
	Score  float64
}

// Evaluate runs every loaded rule against the activation variables and
// returns the fired indicators in load order. A rule that errors at
// runtime is skipped; scoring stays additive over the rules that ran.
func (e *Engine) Evaluate(activation map[string]any) []Indicator {
	e.mu.RLock()
	rules := e.compiled
	e.mu.RUnlock()

	var fired []Indicator
	for _, c := range rules {
		out, _, err := c.program.Eval(activation)
		if err != nil {
			continue
		}
		if b, ok := out.(types.Bool); ok && bool(b) {
			fired = append(fired, Indicator{
				RuleID: c.rule.ID,
				Flag:   c.rule.Flag,
				Score:  c.rule.Score,
			})
		}
	}
	return fired
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// GetLoadedRules returns the currently loaded rule table in order.
func (e *Engine) GetLoadedRules() []*domain.FraudRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.FraudRule, 0, len(e.compiled))
	for _, c := range e.compiled {
		rules = append(rules, c.rule)
	}
	return rules
}

// Close clears the loaded rules.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = nil
	return nil
}

func (e *Engine) compile(rule *domain.FraudRule) (*compiledRule, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile fraud rule %s: %w", rule.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("fraud rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for fraud rule %s: %w", rule.ID, err)
	}
	return &compiledRule{rule: rule, program: program}, nil
}
