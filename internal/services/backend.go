package services

import (
	"context"
	"slices"

	"alfredoptarigan/resumeiq/internal/models"
)

// GenerateRequest is one prompt sent to a generation backend.
type GenerateRequest struct {
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// GenerationBackend turns a prompt into reply text. Implementations make a
// single attempt; callers decide what to do with failures.
type GenerationBackend interface {
	Kind() models.BackendKind
	Name() string
	Models() []string
	DefaultModel() string
	AcceptsModel(model string) bool
	Configured() bool
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// fixedModels is shared by the cloud backends, which only accept a known set.
type fixedModels []string

func (m fixedModels) Models() []string {
	return slices.Clone(m)
}

func (m fixedModels) DefaultModel() string {
	return m[0]
}

func (m fixedModels) AcceptsModel(model string) bool {
	return slices.Contains(m, model)
}
