package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/pkg/logger"
)

type DispatchOptions struct {
	Temperature float64
	MaxTokens   int
	// StrictJSON turns a reply that is not JSON into a ParseError instead of
	// returning it as text.
	StrictJSON bool
}

type DispatchRequest struct {
	Feature models.FeatureID
	Backend models.BackendKind
	Model   string
	Prompt  string
}

// Dispatcher routes prompts to the selected backend and normalizes replies.
// It makes exactly one attempt per request.
type Dispatcher struct {
	backends   map[models.BackendKind]GenerationBackend
	normalizer *ResponseNormalizer
	opts       DispatchOptions
	log        logger.Logger
	tracer     trace.Tracer
}

func NewDispatcher(backends []GenerationBackend, normalizer *ResponseNormalizer, opts DispatchOptions, log logger.Logger) *Dispatcher {
	registry := make(map[models.BackendKind]GenerationBackend, len(backends))
	for _, b := range backends {
		registry[b.Kind()] = b
	}
	if normalizer == nil {
		normalizer = NewResponseNormalizer()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Dispatcher{
		backends:   registry,
		normalizer: normalizer,
		opts:       opts,
		log:        log,
		tracer:     otel.Tracer("resumeiq/dispatcher"),
	}
}

func (d *Dispatcher) Backend(kind models.BackendKind) (GenerationBackend, error) {
	if !kind.Valid() {
		return nil, models.NewValidationError("backend", "unknown backend %q, expected cloud or local", kind)
	}
	b, ok := d.backends[kind]
	if !ok {
		return nil, &models.ConfigurationError{Backend: string(kind), Message: "no backend registered"}
	}
	return b, nil
}

// ResolveModel returns model, or the backend default when empty, after
// checking the backend accepts it.
func (d *Dispatcher) ResolveModel(kind models.BackendKind, model string) (string, error) {
	b, err := d.Backend(kind)
	if err != nil {
		return "", err
	}
	if model == "" {
		return b.DefaultModel(), nil
	}
	if !b.AcceptsModel(model) {
		return "", models.NewValidationError("model", "model %q is not available on the %s backend (%v)", model, kind, b.Models())
	}
	return model, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (*models.AnalysisResult, error) {
	ctx, span := d.tracer.Start(ctx, "dispatcher.Dispatch", trace.WithAttributes(
		attribute.String("feature", string(req.Feature)),
		attribute.String("backend", string(req.Backend)),
		attribute.Int("prompt.chars", len(req.Prompt)),
	))
	defer span.End()

	result, err := d.dispatch(ctx, span, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.log.Warn("dispatcher", "generation failed", map[string]any{
			"feature": req.Feature,
			"backend": req.Backend,
			"kind":    models.ErrorKind(err),
			"error":   err.Error(),
		})
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, span trace.Span, req DispatchRequest) (*models.AnalysisResult, error) {
	model, err := d.ResolveModel(req.Backend, req.Model)
	if err != nil {
		return nil, err
	}
	backend, _ := d.Backend(req.Backend)
	span.SetAttributes(attribute.String("provider", backend.Name()), attribute.String("model", model))

	start := time.Now()
	text, err := backend.Generate(ctx, GenerateRequest{
		Prompt:      req.Prompt,
		Model:       model,
		Temperature: d.opts.Temperature,
		MaxTokens:   d.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	norm := d.normalizer.Normalize(text)
	span.SetAttributes(attribute.String("normalizer.strategy", norm.Strategy))

	if !norm.Structured && d.opts.StrictJSON {
		return nil, &models.ParseError{Source: "model reply", Message: fmt.Sprintf("%s returned a reply that is not valid JSON", backend.Name())}
	}

	d.log.Info("dispatcher", "generation completed", map[string]any{
		"feature":     req.Feature,
		"provider":    backend.Name(),
		"model":       model,
		"strategy":    norm.Strategy,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	result := &models.AnalysisResult{
		Feature:  req.Feature,
		Backend:  req.Backend,
		Model:    model,
		Strategy: norm.Strategy,
		Data:     norm.Value,
	}
	if norm.Structured {
		result.Format = models.FormatJSON
		result.Raw = norm.Raw
	} else {
		result.Format = models.FormatText
	}
	return result, nil
}
