package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"alfredoptarigan/resumeiq/internal/models"
)

var geminiModels = fixedModels{"gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.0-flash"}

const (
	geminiEmbedModel = "text-embedding-004"
	// ~10000 tokens, the embedding input limit.
	maxEmbeddingChars = 40000
)

// Embedder turns text into a dense vector for the profile index.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// GeminiBackend is the cloud backend when CLOUD_PROVIDER=gemini. It also
// provides embeddings for the reference profile index.
type GeminiBackend struct {
	fixedModels
	client     *genai.Client
	embedModel string
}

// NewGeminiBackend returns an unconfigured backend when apiKey is empty so
// that requests fail with a ConfigurationError instead of at startup.
func NewGeminiBackend(ctx context.Context, apiKey string) (*GeminiBackend, error) {
	g := &GeminiBackend{fixedModels: geminiModels, embedModel: geminiEmbedModel}
	if apiKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *GeminiBackend) Kind() models.BackendKind { return models.BackendCloud }

func (g *GeminiBackend) Name() string { return "gemini" }

func (g *GeminiBackend) Configured() bool { return g.client != nil }

func (g *GeminiBackend) notConfigured() error {
	return &models.ConfigurationError{
		Backend: g.Name(),
		Message: "GEMINI_API_KEY is not set; add it to your environment or switch to the local backend",
	}
}

// GenerateEmbedding implements Embedder.
func (g *GeminiBackend) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if g.client == nil {
		return nil, g.notConfigured()
	}
	text = truncateUTF8(text, maxEmbeddingChars)

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, &models.BackendError{Backend: g.Name(), Message: "failed to generate embedding", Err: err}
	}
	if result == nil || len(result.Embeddings) == 0 {
		return nil, &models.BackendError{Backend: g.Name(), Message: "empty embedding result"}
	}

	return result.Embeddings[0].Values, nil
}

// Generate asks for an application/json reply.
func (g *GeminiBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if g.client == nil {
		return "", g.notConfigured()
	}

	model := req.Model
	if model == "" {
		model = g.DefaultModel()
	}
	if !g.AcceptsModel(model) {
		return "", models.NewValidationError("model", "unsupported Gemini model %q", model)
	}

	temperature := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  int32(req.MaxTokens),
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", &models.BackendError{Backend: g.Name(), Message: "failed to generate text", Err: err}
	}
	if resp == nil {
		return "", &models.BackendError{Backend: g.Name(), Message: "no response generated"}
	}

	text := resp.Text()
	if text == "" {
		// Some replies carry content only in candidate parts.
		var textParts []string
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part != nil && part.Text != "" {
					textParts = append(textParts, part.Text)
				}
			}
		}
		if len(textParts) == 0 {
			return "", &models.BackendError{Backend: g.Name(), Message: "no text content in response"}
		}
		text = strings.Join(textParts, "\n")
	}

	return text, nil
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
