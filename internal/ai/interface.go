package ai

import (
	"context"
)

// LLMProvider defines the contract for interacting with AI models.
// This interface allows for swapping different AI providers (Gemini, OpenAI, etc.) in the future.
type LLMProvider interface {
	// SuggestIntent analyzes a free-text errand description and maps it
	// to one of the declared intents. Advisory only: the rules engine
	// remains the authority over classification.
	SuggestIntent(ctx context.Context, description string) (*SuggestionResult, error)
}
