package fraud

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/opensource-health/egret/internal/domain"
)

const defaultRuleVersion = "2024.1"

// LoadRulesFile reads a fraud indicator table from a JSON file.
func LoadRulesFile(path string) ([]*domain.FraudRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var rules []*domain.FraudRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return rules, nil
}

// DefaultRules returns the standard fraud indicator table. The two
// same-day rules are mutually exclusive by construction so the higher
// threshold wins.
func DefaultRules() []*domain.FraudRule {
	return []*domain.FraudRule{
		{
			ID:          "same-day-burst",
			Description: "Three or more prior claims by the member on the treatment date",
			Version:     defaultRuleVersion,
			Expression:  "same_day_count >= 3",
			Score:       0.30,
			Flag:        "MULTIPLE_SAME_DAY_CLAIMS",
			Enabled:     true,
		},
		{
			ID:          "same-day-pair",
			Description: "Exactly two prior claims by the member on the treatment date",
			Version:     defaultRuleVersion,
			Expression:  "same_day_count == 2",
			Score:       0.15,
			Flag:        "REPEAT_SAME_DAY_CLAIM",
			Enabled:     true,
		},
		{
			ID:          "annual-utilization",
			Description: "Claim pushes annual utilization above 90%",
			Version:     defaultRuleVersion,
			Expression:  "utilization > 0.9",
			Score:       0.10,
			Flag:        "HIGH_ANNUAL_UTILIZATION",
			Enabled:     true,
		},
		{
			ID:          "near-limit-claim",
			Description: "Claim amount above 95% of the per-claim limit",
			Version:     defaultRuleVersion,
			Expression:  "claim_amount > per_claim_limit * 0.95",
			Score:       0.10,
			Flag:        "NEAR_LIMIT_AMOUNT",
			Enabled:     true,
		},
		{
			ID:          "invalid-doctor-reg",
			Description: "Doctor registration does not match any council format",
			Version:     defaultRuleVersion,
			Expression:  "!doctor_reg_valid",
			Score:       0.25,
			Flag:        "INVALID_DOCTOR_REGISTRATION",
			Enabled:     true,
		},
		{
			ID:          "excessive-medicines",
			Description: "More than ten medicines on one prescription",
			Version:     defaultRuleVersion,
			Expression:  "medicine_count > 10",
			Score:       0.10,
			Flag:        "EXCESSIVE_MEDICINES",
			Enabled:     true,
		},
		{
			ID:          "round-amounts",
			Description: "Two or more billed amounts are exact multiples of 500",
			Version:     defaultRuleVersion,
			Expression:  "round_amounts >= 2",
			Score:       0.05,
			Flag:        "ROUND_NUMBER_AMOUNTS",
			Enabled:     true,
		},
		{
			ID:          "weekend-non-emergency",
			Description: "Non-emergency treatment dated on a weekend",
			Version:     defaultRuleVersion,
			Expression:  "weekend && !emergency",
			Score:       0.05,
			Flag:        "WEEKEND_NON_EMERGENCY",
			Enabled:     true,
		},
	}
}
