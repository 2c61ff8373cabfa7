// Package ai wraps the Gemini API for image analysis and the city assistant.
package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Generator produces model completions. It is the seam service code and
// tests program against; GeminiClient is the production implementation.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateWithImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
}

// GeminiClient calls the Gemini API, falling back to a lighter model when the
// preferred one is rate limited or unavailable.
type GeminiClient struct {
	client *genai.Client
	models []string
}

// NewGeminiClient creates a Gemini client for the given API key. The model is
// tried first; a lite model backs it up.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, err
	}

	return &GeminiClient{
		client: client,
		models: []string{model, "gemini-2.5-flash-lite"},
	}, nil
}

var _ Generator = (*GeminiClient)(nil)

// GenerateText runs a text-only prompt.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.tryGenerateWithFallback(ctx, genai.Text(prompt))
}

// GenerateWithImage runs a prompt alongside inline image bytes.
func (g *GeminiClient) GenerateWithImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(data, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return g.tryGenerateWithFallback(ctx, contents)
}

func (g *GeminiClient) tryGenerateWithFallback(ctx context.Context, contents []*genai.Content) (string, error) {
	var lastErr error
	for _, model := range g.models {
		result, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
		if err != nil {
			if isRetryable(err) {
				lastErr = err
				continue
			}
			return "", err
		}
		if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil && len(result.Candidates[0].Content.Parts) > 0 {
			return result.Candidates[0].Content.Parts[0].Text, nil
		}
		lastErr = fmt.Errorf("model %s returned no candidates", model)
	}
	return "", fmt.Errorf("all models failed: %w", lastErr)
}

func isRetryable(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "exhausted") ||
		strings.Contains(errStr, "404") ||
		strings.Contains(errStr, "not found")
}

// CleanJSON strips markdown code fences the model sometimes wraps JSON in.
func CleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
