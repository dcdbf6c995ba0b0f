package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements LLMProvider using Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiProvider initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Use Gemini 2.0 Flash for low latency and cost efficiency.
	model := client.GenerativeModel("gemini-2.0-flash")

	// Force JSON response for structured parsing.
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.2)

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiProvider) Close() {
	p.client.Close()
}

// SuggestIntent maps a free-text errand description to a declared intent.
func (p *GeminiProvider) SuggestIntent(ctx context.Context, description string) (*SuggestionResult, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("empty description")
	}

	fullPrompt := fmt.Sprintf("%s\n\nUser Message: %s", systemPrompt, description)

	resp, err := p.model.GenerateContent(ctx, genai.Text(fullPrompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response candidates from Gemini")
	}

	// Extract text from the response parts.
	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}

	// Clean up potential markdown formatting (though json mode should handle this, safety first).
	cleanJSON := cleanJSONString(responseText.String())

	var result SuggestionResult
	if err := json.Unmarshal([]byte(cleanJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w. Raw: %s", err, cleanJSON)
	}
	result.Intent = strings.ToLower(strings.TrimSpace(result.Intent))

	return &result, nil
}

const systemPrompt = `Role: You are the intent classifier for "Gofer", a delivery and errand marketplace.

A customer describes an errand in free text. Map it to exactly one intent:
- "task": do a task for me (pick up, drop off, queue, deliver something I already have)
- "buy": buy something for me and bring it to me
- "coordinate": coordinate between parties (third-party recipient, multiple stops, hand-offs)
- "discover": the user is browsing or asking what is possible, not requesting work
- "rate": the user wants to rate or review a past errand
- "try": the user explicitly wants a small trial run first

Respond with JSON only:
{"intent": "...", "confidence": 0.0-1.0, "rationale": "...", "needs_purchase": true/false, "third_party": true/false}

Set "needs_purchase" when fulfilling the errand requires buying goods.
Set "third_party" when the recipient is someone other than the requester.
When unsure between task and coordinate, prefer task; the rules engine reclassifies later.`

// cleanJSONString strips markdown code fences the model may emit.
func cleanJSONString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
