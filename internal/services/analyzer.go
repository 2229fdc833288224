package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/pkg/logger"
	"alfredoptarigan/resumeiq/internal/repositories"
)

type AnalyzerService interface {
	Features() []models.Feature
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
	CreateSession(inputs models.AnalysisInputs) (*models.AnalysisSession, error)
	RunFeatures(sessionID string, req models.RunFeaturesRequest) ([]models.FeatureRun, error)
	ProcessRun(ctx context.Context, runID string) error
	GetSession(sessionID string) (*models.SessionResponse, error)
}

type analyzerService struct {
	sessionRepo repositories.SessionRepository
	templates   TemplateStore
	prompts     *PromptBuilder
	dispatcher  *Dispatcher
	settings    SettingsStore
	profiles    ProfileService
	log         logger.Logger
}

func NewAnalyzerService(
	sessionRepo repositories.SessionRepository,
	templates TemplateStore,
	prompts *PromptBuilder,
	dispatcher *Dispatcher,
	settings SettingsStore,
	profiles ProfileService,
	log logger.Logger,
) AnalyzerService {
	if log == nil {
		log = logger.NewNop()
	}
	return &analyzerService{
		sessionRepo: sessionRepo,
		templates:   templates,
		prompts:     prompts,
		dispatcher:  dispatcher,
		settings:    settings,
		profiles:    profiles,
		log:         log,
	}
}

func (a *analyzerService) Features() []models.Feature {
	return a.templates.Features()
}

// plan is a validated feature invocation ready to dispatch.
type plan struct {
	feature models.Feature
	backend models.BackendKind
	model   string
	prompt  string
}

// prepare resolves backend and model defaults from settings and assembles
// the prompt. Every check that can fail without I/O to a backend runs here.
func (a *analyzerService) prepare(featureID models.FeatureID, backend models.BackendKind, model string, in models.AnalysisInputs) (*plan, error) {
	feature, err := a.templates.Feature(featureID)
	if err != nil {
		return nil, err
	}

	settings := a.settings.Get()
	if backend == "" {
		backend = settings.Backend()
	}
	if model == "" {
		model = settings.Model(backend)
	}

	if backend == models.BackendLocal && !feature.Offline {
		return nil, models.NewValidationError("feature", "%s is only available with the cloud backend", feature.Label)
	}

	model, err = a.dispatcher.ResolveModel(backend, model)
	if err != nil {
		return nil, err
	}

	if feature.ID == models.FeaturePredictor && len(in.Profiles) == 0 {
		profiles, err := a.profiles.Resolve(in.ProfileIDs)
		if err != nil {
			return nil, err
		}
		in.Profiles = profiles
	}

	prompt, err := a.prompts.Build(feature, in)
	if err != nil {
		return nil, err
	}

	return &plan{feature: feature, backend: backend, model: model, prompt: prompt}, nil
}

func (a *analyzerService) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	p, err := a.prepare(req.Feature, req.Backend, req.Model, req.AnalysisInputs)
	if err != nil {
		return nil, err
	}

	return a.dispatcher.Dispatch(ctx, DispatchRequest{
		Feature: p.feature.ID,
		Backend: p.backend,
		Model:   p.model,
		Prompt:  p.prompt,
	})
}

func (a *analyzerService) CreateSession(inputs models.AnalysisInputs) (*models.AnalysisSession, error) {
	session := &models.AnalysisSession{Inputs: datatypes.NewJSONType(inputs)}
	if err := a.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// RunFeatures validates every requested feature up front and queues one run
// each. Nothing is queued when any feature fails validation.
func (a *analyzerService) RunFeatures(sessionID string, req models.RunFeaturesRequest) ([]models.FeatureRun, error) {
	session, err := a.sessionRepo.FindByID(sessionID)
	if err != nil {
		return nil, err
	}

	inputs := session.Inputs.Data()
	features := make([]models.FeatureID, 0, len(req.Features))
	seen := make(map[models.FeatureID]bool, len(req.Features))
	var backend models.BackendKind
	var model string

	for _, id := range req.Features {
		if seen[id] {
			continue
		}
		seen[id] = true

		p, err := a.prepare(id, req.Backend, req.Model, inputs)
		if err != nil {
			return nil, err
		}
		backend, model = p.backend, p.model
		features = append(features, id)
	}

	runs, err := a.sessionRepo.CreateRuns(sessionID, features, backend, model)
	if err != nil {
		return nil, err
	}

	a.log.Info("analyzer", "runs queued", map[string]any{"session_id": sessionID, "features": features, "backend": backend})
	return runs, nil
}

// ProcessRun executes one queued run. A failure is recorded on the run and
// leaves the session's stored result for that feature untouched.
func (a *analyzerService) ProcessRun(ctx context.Context, runID string) error {
	claimed, err := a.sessionRepo.ClaimRun(runID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	run, err := a.sessionRepo.FindRun(runID)
	if err != nil {
		return err
	}

	result, err := a.executeRun(ctx, run)
	if err != nil {
		if failErr := a.sessionRepo.FailRun(run.ID, err.Error()); failErr != nil {
			a.log.Error("analyzer", "failed to record run failure", map[string]any{"run_id": run.ID, "error": failErr})
		}
		return fmt.Errorf("run %s (%s): %w", run.ID, run.Feature, err)
	}

	payload, err := json.Marshal(result.Data)
	if err != nil {
		_ = a.sessionRepo.FailRun(run.ID, err.Error())
		return fmt.Errorf("failed to encode result: %w", err)
	}

	applied, err := a.sessionRepo.CompleteRun(run, &models.SessionResult{
		Backend:  result.Backend,
		Model:    result.Model,
		Format:   result.Format,
		Strategy: result.Strategy,
		Payload:  datatypes.JSON(payload),
	})
	if err != nil {
		return err
	}
	if !applied {
		a.log.Info("analyzer", "stale result discarded", map[string]any{
			"run_id": run.ID, "feature": run.Feature, "generation": run.Generation,
		})
	}
	return nil
}

func (a *analyzerService) executeRun(ctx context.Context, run *models.FeatureRun) (*models.AnalysisResult, error) {
	session, err := a.sessionRepo.FindByID(run.SessionID)
	if err != nil {
		return nil, err
	}

	p, err := a.prepare(run.Feature, run.Backend, run.Model, session.Inputs.Data())
	if err != nil {
		return nil, err
	}

	return a.dispatcher.Dispatch(ctx, DispatchRequest{
		Feature: p.feature.ID,
		Backend: p.backend,
		Model:   p.model,
		Prompt:  p.prompt,
	})
}

func (a *analyzerService) GetSession(sessionID string) (*models.SessionResponse, error) {
	session, err := a.sessionRepo.FindByID(sessionID)
	if err != nil {
		return nil, err
	}
	runs, err := a.sessionRepo.FindRunsBySession(sessionID)
	if err != nil {
		return nil, err
	}
	stored, err := a.sessionRepo.FindResults(sessionID)
	if err != nil {
		return nil, err
	}

	resp := &models.SessionResponse{
		ID:        session.ID,
		CreatedAt: session.CreatedAt,
		Results:   make(map[models.FeatureID]*models.AnalysisResult, len(stored)),
		Loading:   make(map[models.FeatureID]bool),
		Errors:    make(map[models.FeatureID]string),
		Runs:      runs,
	}

	for _, r := range stored {
		var data any
		if err := json.Unmarshal(r.Payload, &data); err != nil {
			return nil, fmt.Errorf("failed to decode stored result for %s: %w", r.Feature, err)
		}
		resp.Results[r.Feature] = &models.AnalysisResult{
			Feature:  r.Feature,
			Backend:  r.Backend,
			Model:    r.Model,
			Format:   r.Format,
			Strategy: r.Strategy,
			Data:     data,
		}
	}

	latest := make(map[models.FeatureID]models.FeatureRun)
	for _, run := range runs {
		if run.Status.InFlight() {
			resp.Loading[run.Feature] = true
		}
		if cur, ok := latest[run.Feature]; !ok || run.Generation > cur.Generation {
			latest[run.Feature] = run
		}
	}
	for feature, run := range latest {
		if run.Status == models.StatusFailed {
			resp.Errors[feature] = run.ErrorMessage
		}
	}

	return resp, nil
}
