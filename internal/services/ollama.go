package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"alfredoptarigan/resumeiq/internal/models"
)

const ollamaHint = "make sure Ollama is running (ollama serve)"

// OllamaBackend talks to a locally hosted model server. Any model name is
// accepted since the installed set is only known at runtime.
type OllamaBackend struct {
	baseURL      string
	defaultModel string
	client       *api.Client
	urlErr       error
}

func NewOllamaBackend(baseURL, defaultModel string, httpClient *http.Client) *OllamaBackend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	o := &OllamaBackend{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		defaultModel: defaultModel,
	}
	base, err := url.Parse(o.baseURL)
	if err != nil {
		o.urlErr = fmt.Errorf("invalid local model url %q: %w", baseURL, err)
		return o
	}
	o.client = api.NewClient(base, httpClient)
	return o
}

func (o *OllamaBackend) Kind() models.BackendKind { return models.BackendLocal }

func (o *OllamaBackend) Name() string { return "ollama" }

func (o *OllamaBackend) Models() []string { return []string{o.defaultModel} }

func (o *OllamaBackend) DefaultModel() string { return o.defaultModel }

func (o *OllamaBackend) AcceptsModel(model string) bool { return strings.TrimSpace(model) != "" }

func (o *OllamaBackend) Configured() bool { return o.baseURL != "" && o.urlErr == nil }

func (o *OllamaBackend) URL() string { return o.baseURL }

// LocalModel is one entry of /api/tags.
type LocalModel struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

func (o *OllamaBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return o.generate(ctx, req, false, nil)
}

// GenerateStream passes each streamed chunk to onChunk and returns the
// concatenated reply. Chunks arriving after the final one are dropped.
func (o *OllamaBackend) GenerateStream(ctx context.Context, req GenerateRequest, onChunk func(string)) (string, error) {
	return o.generate(ctx, req, true, onChunk)
}

func (o *OllamaBackend) generate(ctx context.Context, req GenerateRequest, stream bool, onChunk func(string)) (string, error) {
	if o.urlErr != nil {
		return "", &models.ConfigurationError{Backend: o.Name(), Message: o.urlErr.Error()}
	}

	model := req.Model
	if model == "" {
		model = o.defaultModel
	}

	genReq := &api.GenerateRequest{
		Model:  model,
		Prompt: req.Prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}

	var (
		full     strings.Builder
		received bool
		done     bool
	)
	err := o.client.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
		if done {
			return nil
		}
		received = true
		if resp.Response != "" {
			full.WriteString(resp.Response)
			if onChunk != nil {
				onChunk(resp.Response)
			}
		}
		done = resp.Done
		return nil
	})
	if err != nil {
		return full.String(), o.backendError(ctx, err)
	}
	if !received {
		return "", &models.BackendError{Backend: o.Name(), Message: "empty response from local model"}
	}
	return full.String(), nil
}

// Tags lists the models installed on the local server.
func (o *OllamaBackend) Tags(ctx context.Context) ([]LocalModel, error) {
	if o.urlErr != nil {
		return nil, &models.ConfigurationError{Backend: o.Name(), Message: o.urlErr.Error()}
	}

	resp, err := o.client.List(ctx)
	if err != nil {
		return nil, o.backendError(ctx, err)
	}

	tags := make([]LocalModel, 0, len(resp.Models))
	for _, m := range resp.Models {
		tags = append(tags, LocalModel{Name: m.Name, Size: m.Size, ModifiedAt: m.ModifiedAt})
	}
	return tags, nil
}

// backendError maps client failures onto BackendError. Dial failures are
// marked unreachable; cancellation by the caller is not.
func (o *OllamaBackend) backendError(ctx context.Context, err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := strings.TrimSpace(statusErr.ErrorMessage)
		if msg == "" {
			msg = http.StatusText(statusErr.StatusCode)
		}
		return &models.BackendError{Backend: o.Name(), Status: statusErr.StatusCode, Message: msg, Err: err}
	}

	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return &models.BackendError{Backend: o.Name(), Message: "request cancelled or timed out", Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &models.BackendError{
			Backend:     o.Name(),
			Unreachable: true,
			Message:     fmt.Sprintf("cannot connect to %s; %s", o.baseURL, ollamaHint),
			Err:         err,
		}
	}

	return &models.BackendError{Backend: o.Name(), Message: err.Error(), Err: err}
}
