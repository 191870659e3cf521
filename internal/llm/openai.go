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
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	chatModel     = "gpt-4o-mini"
)

type OpenAIClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// chat types for OpenAI API
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, temp float32) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       chatModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temp,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIChatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("chat API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) GenerateQuest(ctx context.Context, need domain.NarrativeNeed, gc domain.GenerationContext, temperature float32) (*domain.GeneratedContent, error) {
	prompt := fmt.Sprintf(questPrompt, need.Theme, need.Stage, need.TargetFocus, need.Urgency, renderContext(gc))
	raw, err := c.complete(ctx, prompt, temperature)
	if err != nil {
		return nil, fmt.Errorf("generate quest: %w", err)
	}
	return parseGenerated(raw)
}

func (c *OpenAIClient) GenerateOutcome(ctx context.Context, need domain.NarrativeNeed, gc domain.GenerationContext, temperature float32) (*domain.GeneratedContent, error) {
	prompt := fmt.Sprintf(outcomePrompt, need.Theme, need.Stage, need.TargetFocus, need.Urgency, renderContext(gc))
	raw, err := c.complete(ctx, prompt, temperature)
	if err != nil {
		return nil, fmt.Errorf("generate outcome: %w", err)
	}
	return parseGenerated(raw)
}

func (c *OpenAIClient) ReviseContent(ctx context.Context, prior *domain.Candidate, feedback []string, gc domain.GenerationContext, temperature float32) (*domain.GeneratedContent, error) {
	prompt := fmt.Sprintf(revisionPrompt, renderCandidate(prior), renderList(feedback), renderContext(gc))
	raw, err := c.complete(ctx, prompt, temperature)
	if err != nil {
		return nil, fmt.Errorf("revise content: %w", err)
	}
	return parseGenerated(raw)
}

func (c *OpenAIClient) JudgeCompliance(ctx context.Context, cand *domain.Candidate, rules []string, history []string) (*domain.ComplianceVerdict, error) {
	prompt := fmt.Sprintf(compliancePrompt, renderList(rules), renderList(history), renderCandidate(cand))
	raw, err := c.complete(ctx, prompt, 0)
	if err != nil {
		return nil, fmt.Errorf("judge compliance: %w", err)
	}
	return parseVerdict(raw)
}

func (c *OpenAIClient) Summarize(ctx context.Context, events []domain.NarrativeEvent) (string, error) {
	raw, err := c.complete(ctx, fmt.Sprintf(summarizePrompt, renderEvents(events)), 0.3)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return raw, nil
}

func (c *OpenAIClient) MergeSummary(ctx context.Context, current, episode string) (string, error) {
	if current == "" {
		current = "(no summary yet)"
	}
	raw, err := c.complete(ctx, fmt.Sprintf(mergeSummaryPrompt, current, episode), 0.3)
	if err != nil {
		return "", fmt.Errorf("merge summary: %w", err)
	}
	return raw, nil
}
