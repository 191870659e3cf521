package llm

import (
	"context"
	"sync"

	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
)

// MockClient is a configurable generation client for testing. Set the
// response fields to control what each method returns; the *Responses queues
// are consumed in order before the single-response fields. Safe for
// concurrent use (the self-consistency checker issues parallel calls).
type MockClient struct {
	mu sync.Mutex

	QuestResponse  *domain.GeneratedContent
	QuestResponses []*domain.GeneratedContent
	QuestError     error

	OutcomeResponse *domain.GeneratedContent
	OutcomeError    error

	ReviseResponse  *domain.GeneratedContent
	ReviseResponses []*domain.GeneratedContent
	ReviseError     error

	JudgeResponse  *domain.ComplianceVerdict
	JudgeResponses []*domain.ComplianceVerdict
	JudgeError     error

	SummarizeResponse string
	SummarizeError    error

	MergeSummaryResponse string
	MergeSummaryError    error

	// Call tracking for assertions
	QuestCalls        []float32
	OutcomeCalls      []float32
	ReviseCalls       [][]string
	ReviseTemps       []float32
	JudgeCalls        []*domain.Candidate
	SummarizeCalls    [][]domain.NarrativeEvent
	MergeSummaryCalls []struct{ Current, Episode string }
}

func NewMockClient() *MockClient {
	return &MockClient{
		QuestResponse: &domain.GeneratedContent{
			Title:      "Mock Quest",
			Narrative:  "A mock challenge awaits.",
			Objectives: []string{"do the thing"},
			Theme:      "beginnings",
		},
		OutcomeResponse: &domain.GeneratedContent{
			Title:     "Mock Outcome",
			Narrative: "The mock challenge is resolved.",
			Theme:     "beginnings",
		},
		JudgeResponse:        &domain.ComplianceVerdict{Score: 95},
		SummarizeResponse:    "Mock episode summary",
		MergeSummaryResponse: "Mock rolling summary",
	}
}

func (c *MockClient) GenerateQuest(ctx context.Context, need domain.NarrativeNeed, gc domain.GenerationContext, temperature float32) (*domain.GeneratedContent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.QuestCalls = append(c.QuestCalls, temperature)
	if c.QuestError != nil {
		return nil, c.QuestError
	}
	if len(c.QuestResponses) > 0 {
		resp := c.QuestResponses[0]
		c.QuestResponses = c.QuestResponses[1:]
		return resp, nil
	}
	return c.QuestResponse, nil
}

func (c *MockClient) GenerateOutcome(ctx context.Context, need domain.NarrativeNeed, gc domain.GenerationContext, temperature float32) (*domain.GeneratedContent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OutcomeCalls = append(c.OutcomeCalls, temperature)
	if c.OutcomeError != nil {
		return nil, c.OutcomeError
	}
	return c.OutcomeResponse, nil
}

func (c *MockClient) ReviseContent(ctx context.Context, prior *domain.Candidate, feedback []string, gc domain.GenerationContext, temperature float32) (*domain.GeneratedContent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ReviseCalls = append(c.ReviseCalls, feedback)
	c.ReviseTemps = append(c.ReviseTemps, temperature)
	if c.ReviseError != nil {
		return nil, c.ReviseError
	}
	if len(c.ReviseResponses) > 0 {
		resp := c.ReviseResponses[0]
		c.ReviseResponses = c.ReviseResponses[1:]
		return resp, nil
	}
	if c.ReviseResponse != nil {
		return c.ReviseResponse, nil
	}
	return c.QuestResponse, nil
}

func (c *MockClient) JudgeCompliance(ctx context.Context, cand *domain.Candidate, rules []string, history []string) (*domain.ComplianceVerdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.JudgeCalls = append(c.JudgeCalls, cand)
	if c.JudgeError != nil {
		return nil, c.JudgeError
	}
	if len(c.JudgeResponses) > 0 {
		resp := c.JudgeResponses[0]
		c.JudgeResponses = c.JudgeResponses[1:]
		return resp, nil
	}
	return c.JudgeResponse, nil
}

func (c *MockClient) Summarize(ctx context.Context, events []domain.NarrativeEvent) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SummarizeCalls = append(c.SummarizeCalls, events)
	if c.SummarizeError != nil {
		return "", c.SummarizeError
	}
	return c.SummarizeResponse, nil
}

func (c *MockClient) MergeSummary(ctx context.Context, current, episode string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MergeSummaryCalls = append(c.MergeSummaryCalls, struct{ Current, Episode string }{current, episode})
	if c.MergeSummaryError != nil {
		return "", c.MergeSummaryError
	}
	return c.MergeSummaryResponse, nil
}
