package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/opensource-health/egret/internal/domain"
)

const systemPrompt = "You are a claims quality reviewer for an outpatient insurance adjudication " +
	"system. You are given a claim and the deterministic ruling already made for it. You never " +
	"change amounts or overturn rejections. Respond with a JSON object " +
	`{"concur": bool, "notes": string}. Set concur=false only if the ruling looks inconsistent ` +
	"with the claim facts and deserves a human look. Keep notes to one sentence."

// OpenAI is an Advisor backed by the OpenAI Chat Completions API.
type OpenAI struct {
	client *openai.Client
	config domain.AdvisorConfig
}

// NewOpenAI creates an OpenAI-backed advisor.
func NewOpenAI(cfg domain.AdvisorConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Name returns the advisor name.
func (o *OpenAI) Name() string { return "openai" }

// Review asks the model for a second opinion on the ruling. The call
// is bounded by the configured timeout.
func (o *OpenAI) Review(ctx context.Context, req ReviewRequest) (*Opinion, error) {
	model := o.config.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	timeout := time.Duration(o.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   200,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	opinion, err := parseOpinion(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	opinion.Model = model
	return opinion, nil
}

func buildPrompt(req ReviewRequest) (string, error) {
	claim, err := json.Marshal(req.Claim)
	if err != nil {
		return "", fmt.Errorf("failed to encode claim: %w", err)
	}
	ruling, err := json.Marshal(req.Result)
	if err != nil {
		return "", fmt.Errorf("failed to encode ruling: %w", err)
	}
	return fmt.Sprintf("Claim:\n%s\n\nRuling:\n%s", claim, ruling), nil
}

// parseOpinion extracts the JSON opinion, tolerating surrounding prose
// or code fences.
func parseOpinion(content string) (*Opinion, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("advisor response contains no JSON object")
	}

	var opinion Opinion
	if err := json.Unmarshal([]byte(content[start:end+1]), &opinion); err != nil {
		return nil, fmt.Errorf("failed to parse advisor response: %w", err)
	}
	return &opinion, nil
}
