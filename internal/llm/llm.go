package llm

import (
	"context"
	"errors"
)

// Generator abstracts text-generation providers used for resume analysis.
type Generator interface {
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
	Model() string
}

// GenerationConfig carries sampling parameters. Zero values leave the
// provider default in place.
type GenerationConfig struct {
	Temperature     float32
	TopK            float32
	TopP            float32
	MaxOutputTokens int32
}

// ErrNotConfigured is returned by the placeholder generator.
var ErrNotConfigured = errors.New("LLM provider not configured: API key missing")

// PlaceholderGenerator is used when no provider credentials are configured.
// Its error message routes the analyzer to the configuration error path.
type PlaceholderGenerator struct{}

// Generate returns ErrNotConfigured.
func (PlaceholderGenerator) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	_ = ctx
	_ = prompt
	_ = cfg
	return "", ErrNotConfigured
}

// Model returns an empty model name.
func (PlaceholderGenerator) Model() string { return "" }
