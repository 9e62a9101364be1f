package advisor

import (
	"context"
	"testing"

	"github.com/opensource-health/egret/internal/domain"
)

func TestNew(t *testing.T) {
	t.Run("DisabledYieldsNoop", func(t *testing.T) {
		adv, err := New(domain.AdvisorConfig{Enabled: false, Provider: "openai"})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if _, ok := adv.(*Noop); !ok {
			t.Errorf("expected Noop, got %T", adv)
		}
	})

	t.Run("NoneProviderYieldsNoop", func(t *testing.T) {
		for _, provider := range []string{"", "none"} {
			adv, err := New(domain.AdvisorConfig{Enabled: true, Provider: provider})
			if err != nil {
				t.Fatalf("New(%q) failed: %v", provider, err)
			}
			if _, ok := adv.(*Noop); !ok {
				t.Errorf("expected Noop for provider %q, got %T", provider, adv)
			}
		}
	})

	t.Run("OpenAIRequiresKey", func(t *testing.T) {
		_, err := New(domain.AdvisorConfig{Enabled: true, Provider: "openai"})
		if err == nil {
			t.Error("expected error without API key")
		}
	})

	t.Run("OpenAIWithKey", func(t *testing.T) {
		adv, err := New(domain.AdvisorConfig{Enabled: true, Provider: "openai", APIKey: "sk-test"})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if adv.Name() != "openai" {
			t.Errorf("expected openai advisor, got %s", adv.Name())
		}
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		_, err := New(domain.AdvisorConfig{Enabled: true, Provider: "oracle"})
		if err == nil {
			t.Error("expected error for unknown provider")
		}
	})
}

func TestNoopConcurs(t *testing.T) {
	adv := &Noop{}

	opinion, err := adv.Review(context.Background(), ReviewRequest{})
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if !opinion.Concur {
		t.Error("noop advisor must concur")
	}
}

func TestParseOpinion(t *testing.T) {
	tests := []struct {
		name    string
		content string
		concur  bool
		notes   string
		wantErr bool
	}{
		{
			"BareJSON",
			`{"concur": true, "notes": "ruling consistent"}`,
			true, "ruling consistent", false,
		},
		{
			"SurroundingProse",
			`Here is my assessment: {"concur": false, "notes": "amounts inconsistent"} Let me know.`,
			false, "amounts inconsistent", false,
		},
		{
			"CodeFence",
			"```json\n{\"concur\": true, \"notes\": \"\"}\n```",
			true, "", false,
		},
		{
			"NoJSONObject",
			"I agree with the ruling.",
			false, "", true,
		},
		{
			"MalformedJSON",
			`{"concur": maybe}`,
			false, "", true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opinion, err := parseOpinion(tc.content)

			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOpinion failed: %v", err)
			}
			if opinion.Concur != tc.concur {
				t.Errorf("expected concur=%v, got %v", tc.concur, opinion.Concur)
			}
			if opinion.Notes != tc.notes {
				t.Errorf("expected notes %q, got %q", tc.notes, opinion.Notes)
			}
		})
	}
}
