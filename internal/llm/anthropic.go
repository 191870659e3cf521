package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicModel       = "claude-3-5-haiku-20241022"
	anthropicVersion     = "2023-06-01"
	anthropicMaxTokens   = 1024
)

type AnthropicClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) complete(ctx context.Context, prompt string, temp float32) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       anthropicModel,
		MaxTokens:   anthropicMaxTokens,
		Temperature: temp,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicMessagesURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read anthropic response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal anthropic response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("anthropic API error: %s", result.Error.Message)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("anthropic API returned no content")
	}

	return strings.TrimSpace(result.Content[0].Text), nil
}

func (c *AnthropicClient) GenerateQuest(ctx context.Context, need domain.NarrativeNeed, gc domain.GenerationContext, temperature float32) (*domain.GeneratedContent, error) {
	prompt := fmt.Sprintf(questPrompt, need.Theme, need.Stage, need.TargetFocus, need.Urgency, renderContext(gc))
	raw, err := c.complete(ctx, prompt, temperature)
	if err != nil {
		return nil, fmt.Errorf("generate quest: %w", err)
	}
	return parseGenerated(raw)
}

func (c *AnthropicClient) GenerateOutcome(ctx context.Context, need domain.NarrativeNeed, gc domain.GenerationContext, temperature float32) (*domain.GeneratedContent, error) {
	prompt := fmt.Sprintf(outcomePrompt, need.Theme, need.Stage, need.TargetFocus, need.Urgency, renderContext(gc))
	raw, err := c.complete(ctx, prompt, temperature)
	if err != nil {
		return nil, fmt.Errorf("generate outcome: %w", err)
	}
	return parseGenerated(raw)
}

func (c *AnthropicClient) ReviseContent(ctx context.Context, prior *domain.Candidate, feedback []string, gc domain.GenerationContext, temperature float32) (*domain.GeneratedContent, error) {
	prompt := fmt.Sprintf(revisionPrompt, renderCandidate(prior), renderList(feedback), renderContext(gc))
	raw, err := c.complete(ctx, prompt, temperature)
	if err != nil {
		return nil, fmt.Errorf("revise content: %w", err)
	}
	return parseGenerated(raw)
}

func (c *AnthropicClient) JudgeCompliance(ctx context.Context, cand *domain.Candidate, rules []string, history []string) (*domain.ComplianceVerdict, error) {
	prompt := fmt.Sprintf(compliancePrompt, renderList(rules), renderList(history), renderCandidate(cand))
	raw, err := c.complete(ctx, prompt, 0)
	if err != nil {
		return nil, fmt.Errorf("judge compliance: %w", err)
	}
	return parseVerdict(raw)
}

func (c *AnthropicClient) Summarize(ctx context.Context, events []domain.NarrativeEvent) (string, error) {
	raw, err := c.complete(ctx, fmt.Sprintf(summarizePrompt, renderEvents(events)), 0.3)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return raw, nil
}

func (c *AnthropicClient) MergeSummary(ctx context.Context, current, episode string) (string, error) {
	if current == "" {
		current = "(no summary yet)"
	}
	raw, err := c.complete(ctx, fmt.Sprintf(mergeSummaryPrompt, current, episode), 0.3)
	if err != nil {
		return "", fmt.Errorf("merge summary: %w", err)
	}
	return raw, nil
}
