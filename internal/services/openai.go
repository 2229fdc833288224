package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"alfredoptarigan/resumeiq/internal/models"
)

var openAIModels = fixedModels{"gpt-4o-mini", "gpt-4o", "gpt-4-turbo"}

// OpenAIBackend calls the /chat/completions endpoint in JSON mode.
type OpenAIBackend struct {
	fixedModels
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIBackend(baseURL, apiKey string, httpClient *http.Client) *OpenAIBackend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAIBackend{
		fixedModels: openAIModels,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		httpClient:  httpClient,
	}
}

func (p *OpenAIBackend) Kind() models.BackendKind { return models.BackendCloud }

func (p *OpenAIBackend) Name() string { return "openai" }

func (p *OpenAIBackend) Configured() bool { return p.apiKey != "" }

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends the prompt as a single user message.
func (p *OpenAIBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if p.apiKey == "" {
		return "", &models.ConfigurationError{
			Backend: p.Name(),
			Message: "OPENAI_API_KEY is not set; add it to your environment or switch to the local backend",
		}
	}

	model := req.Model
	if model == "" {
		model = p.DefaultModel()
	}
	if !p.AcceptsModel(model) {
		return "", models.NewValidationError("model", "unsupported OpenAI model %q", model)
	}

	body, err := json.Marshal(chatRequest{
		Model:          model,
		Messages:       []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", &models.BackendError{Backend: p.Name(), Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &models.BackendError{Backend: p.Name(), Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	var chatResp chatResponse
	decodeErr := json.Unmarshal(respBytes, &chatResp)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBytes))
		if decodeErr == nil && chatResp.Error != nil {
			msg = chatResp.Error.Message
		}
		return "", &models.BackendError{Backend: p.Name(), Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", &models.BackendError{Backend: p.Name(), Status: resp.StatusCode, Message: "malformed response body", Err: decodeErr}
	}
	if chatResp.Error != nil {
		return "", &models.BackendError{Backend: p.Name(), Status: resp.StatusCode, Message: chatResp.Error.Message}
	}
	if len(chatResp.Choices) == 0 {
		return "", &models.BackendError{Backend: p.Name(), Status: resp.StatusCode, Message: "response contained no choices"}
	}

	return chatResp.Choices[0].Message.Content, nil
}
