// Package assistant turns free-form conversation into proposed knowledge
// graph documents using a local language model.
package assistant

import "context"

// Provider generates text completions from a prompt.
type Provider interface {
	// Generate returns the model's full response to prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Name returns the provider and model in use.
	Name() string

	// IsAvailable returns nil if the backend is reachable.
	IsAvailable(ctx context.Context) error
}
