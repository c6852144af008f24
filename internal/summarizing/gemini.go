package summarizing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultTimeout = 45 * time.Second

// Gemini implements the Summarizer interface using Google Gemini
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGemini creates a new Gemini Summarizer instance
func NewGemini(apiKey string, modelName string, timeout time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

// Summarize sends the notice text to Gemini and returns the validated
// summary. The call is bounded by the configured timeout and is made exactly
// once; a failed attempt is reported, not retried.
func (g *Gemini) Summarize(text string) (Summary, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	prompt := fmt.Sprintf(noticeSummaryPrompt, text)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: generating content: %v", ErrUpstream, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no response from gemini", ErrUpstream)
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			responseText.WriteString(string(t))
		}
	}

	summary, err := parseSummary(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing summary: %w", err)
	}

	return summary, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
