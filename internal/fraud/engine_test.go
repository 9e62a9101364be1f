package fraud

import (
	"testing"

	"github.com/opensource-health/egret/internal/domain"
)

func TestEngine(t *testing.T) {
	t.Run("LoadDefaultRules", func(t *testing.T) {
		engine, err := NewEngine()
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		defer engine.Close()

		if err := engine.LoadRules(DefaultRules()); err != nil {
			t.Fatalf("LoadRules failed: %v", err)
		}
		if got := engine.RulesCount(); got != len(DefaultRules()) {
			t.Errorf("expected %d rules loaded, got %d", len(DefaultRules()), got)
		}
	})

	t.Run("ValidateRule", func(t *testing.T) {
		engine, err := NewEngine()
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		defer engine.Close()

		valid := &domain.FraudRule{ID: "r1", Expression: "claim_amount > 4000.0", Enabled: true}
		if err := engine.ValidateRule(valid); err != nil {
			t.Errorf("expected valid rule, got %v", err)
		}
		// Validation must not load
		if engine.RulesCount() != 0 {
			t.Error("ValidateRule must not load the rule")
		}

		nonBool := &domain.FraudRule{ID: "r2", Expression: "claim_amount + 1.0", Enabled: true}
		if err := engine.ValidateRule(nonBool); err == nil {
			t.Error("expected error for non-boolean expression")
		}

		badSyntax := &domain.FraudRule{ID: "r3", Expression: "claim_amount >", Enabled: true}
		if err := engine.ValidateRule(badSyntax); err == nil {
			t.Error("expected error for unparseable expression")
		}

		unknownVar := &domain.FraudRule{ID: "r4", Expression: "no_such_var > 1", Enabled: true}
		if err := engine.ValidateRule(unknownVar); err == nil {
			t.Error("expected error for unknown variable")
		}

		if err := engine.ValidateRule(nil); err == nil {
			t.Error("expected error for nil rule")
		}
	})

	t.Run("Evaluate", func(t *testing.T) {
		engine, err := NewEngine()
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		defer engine.Close()

		rules := []*domain.FraudRule{
			{ID: "high-amount", Expression: "claim_amount > 4000.0", Score: 0.2, Flag: "HIGH_AMOUNT", Enabled: true},
			{ID: "bad-reg", Expression: "!doctor_reg_valid", Score: 0.25, Flag: "BAD_REG", Enabled: true},
			{ID: "disabled", Expression: "true", Score: 0.9, Flag: "NEVER", Enabled: false},
		}
		if err := engine.LoadRules(rules); err != nil {
			t.Fatalf("LoadRules failed: %v", err)
		}

		fired := engine.Evaluate(map[string]any{
			"claim_amount":     4500.0,
			"doctor_reg_valid": true,
		})

		if len(fired) != 1 {
			t.Fatalf("expected 1 indicator, got %v", fired)
		}
		if fired[0].RuleID != "high-amount" || fired[0].Flag != "HIGH_AMOUNT" || fired[0].Score != 0.2 {
			t.Errorf("unexpected indicator: %+v", fired[0])
		}
	})

	t.Run("ReloadRulesSwapsTable", func(t *testing.T) {
		engine, err := NewEngine()
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		defer engine.Close()

		if err := engine.LoadRules(DefaultRules()); err != nil {
			t.Fatalf("LoadRules failed: %v", err)
		}

		replacement := []*domain.FraudRule{
			{ID: "only-rule", Expression: "weekend", Score: 0.1, Flag: "WEEKEND", Enabled: true},
		}
		if err := engine.ReloadRules(replacement); err != nil {
			t.Fatalf("ReloadRules failed: %v", err)
		}

		if got := engine.RulesCount(); got != 1 {
			t.Errorf("expected 1 rule after reload, got %d", got)
		}
		loaded := engine.GetLoadedRules()
		if len(loaded) != 1 || loaded[0].ID != "only-rule" {
			t.Errorf("unexpected loaded rules: %v", loaded)
		}
	})

	t.Run("ReloadRejectsBadRuleWithoutSwapping", func(t *testing.T) {
		engine, err := NewEngine()
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		defer engine.Close()

		if err := engine.LoadRules(DefaultRules()); err != nil {
			t.Fatalf("LoadRules failed: %v", err)
		}

		bad := []*domain.FraudRule{
			{ID: "broken", Expression: "not valid cel ((", Enabled: true},
		}
		if err := engine.ReloadRules(bad); err == nil {
			t.Fatal("expected compile error")
		}
		// Previous table must survive a failed reload
		if got := engine.RulesCount(); got != len(DefaultRules()) {
			t.Errorf("expected %d rules retained, got %d", len(DefaultRules()), got)
		}
	})
}
