package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resumeiq/internal/models"
)

// fakeBackend records requests and replies with a fixed text or error.
type fakeBackend struct {
	fixedModels
	kind     models.BackendKind
	reply    string
	err      error
	requests []GenerateRequest
}

func newFakeBackend(kind models.BackendKind, reply string) *fakeBackend {
	return &fakeBackend{fixedModels: fixedModels{"fake-1", "fake-2"}, kind: kind, reply: reply}
}

func (f *fakeBackend) Kind() models.BackendKind { return f.kind }
func (f *fakeBackend) Name() string             { return "fake-" + string(f.kind) }
func (f *fakeBackend) Configured() bool         { return true }

func (f *fakeBackend) Generate(_ context.Context, req GenerateRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func TestDispatch_JSONReply(t *testing.T) {
	cloud := newFakeBackend(models.BackendCloud, "```json\n{\"match_score\": 91}\n```")
	d := NewDispatcher([]GenerationBackend{cloud}, nil, DispatchOptions{Temperature: 0.7, MaxTokens: 2000}, nil)

	res, err := d.Dispatch(context.Background(), DispatchRequest{
		Feature: models.FeatureReviewer, Backend: models.BackendCloud, Prompt: "p",
	})
	require.NoError(t, err)

	assert.Equal(t, models.FormatJSON, res.Format)
	assert.Equal(t, "fenced", res.Strategy)
	assert.Equal(t, "fake-1", res.Model)
	assert.Equal(t, map[string]any{"match_score": float64(91)}, res.Data)
	require.Len(t, cloud.requests, 1)
	assert.Equal(t, GenerateRequest{Prompt: "p", Model: "fake-1", Temperature: 0.7, MaxTokens: 2000}, cloud.requests[0])
}

func TestDispatch_TextFallbackAndStrict(t *testing.T) {
	local := newFakeBackend(models.BackendLocal, "The resume looks fine.")

	lenient := NewDispatcher([]GenerationBackend{local}, nil, DispatchOptions{}, nil)
	res, err := lenient.Dispatch(context.Background(), DispatchRequest{Backend: models.BackendLocal, Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, models.FormatText, res.Format)
	assert.Equal(t, "The resume looks fine.", res.Data)
	assert.Empty(t, res.Raw)

	strict := NewDispatcher([]GenerationBackend{local}, nil, DispatchOptions{StrictJSON: true}, nil)
	_, err = strict.Dispatch(context.Background(), DispatchRequest{Backend: models.BackendLocal, Prompt: "p"})
	var pErr *models.ParseError
	assert.ErrorAs(t, err, &pErr)
}

func TestDispatch_ModelValidation(t *testing.T) {
	cloud := newFakeBackend(models.BackendCloud, "{}")
	d := NewDispatcher([]GenerationBackend{cloud}, nil, DispatchOptions{}, nil)

	_, err := d.Dispatch(context.Background(), DispatchRequest{Backend: models.BackendCloud, Model: "nope", Prompt: "p"})
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, cloud.requests)

	res, err := d.Dispatch(context.Background(), DispatchRequest{Backend: models.BackendCloud, Model: "fake-2", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "fake-2", res.Model)
}

func TestDispatch_UnknownOrMissingBackend(t *testing.T) {
	d := NewDispatcher([]GenerationBackend{newFakeBackend(models.BackendCloud, "{}")}, nil, DispatchOptions{}, nil)

	_, err := d.Dispatch(context.Background(), DispatchRequest{Backend: "quantum", Prompt: "p"})
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = d.Dispatch(context.Background(), DispatchRequest{Backend: models.BackendLocal, Prompt: "p"})
	var cfgErr *models.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestDispatch_BackendErrorIsNotRetried(t *testing.T) {
	local := newFakeBackend(models.BackendLocal, "")
	local.err = &models.BackendError{Backend: "fake", Unreachable: true, Message: "down"}
	cloud := newFakeBackend(models.BackendCloud, "{}")
	d := NewDispatcher([]GenerationBackend{local, cloud}, nil, DispatchOptions{}, nil)

	_, err := d.Dispatch(context.Background(), DispatchRequest{Backend: models.BackendLocal, Prompt: "p"})
	var bErr *models.BackendError
	require.True(t, errors.As(err, &bErr))
	assert.Len(t, local.requests, 1)
	assert.Empty(t, cloud.requests, "no fallback to another backend")
}
