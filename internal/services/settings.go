package services

import (
	"errors"
	"fmt"
	"sync"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/repositories"
)

// ModelResolver validates a model name for a backend and fills in the default.
type ModelResolver interface {
	ResolveModel(kind models.BackendKind, model string) (string, error)
}

// SettingsStore holds the persisted preferences in memory. It is loaded once
// at startup and every mutation is written through before it becomes visible.
type SettingsStore interface {
	Get() models.Settings
	Update(req models.SettingsUpdateRequest) (models.Settings, error)
}

type settingsStore struct {
	mu       sync.RWMutex
	repo     repositories.SettingsRepository
	resolver ModelResolver
	current  models.Settings
}

// NewSettingsStore loads the stored row, or persists defaults when none exists.
func NewSettingsStore(repo repositories.SettingsRepository, resolver ModelResolver, defaults models.Settings) (SettingsStore, error) {
	s := &settingsStore{repo: repo, resolver: resolver}

	stored, err := repo.Get()
	switch {
	case err == nil:
		s.current = *stored
		if err := s.reconcile(defaults); err != nil {
			return nil, err
		}
	case errors.Is(err, models.ErrNotFound):
		if defaults.Theme == "" {
			defaults.Theme = "light"
		}
		if err := repo.Save(&defaults); err != nil {
			return nil, err
		}
		s.current = defaults
	default:
		return nil, err
	}

	return s, nil
}

// reconcile resets stored models the configured backends no longer accept,
// e.g. after CLOUD_PROVIDER changes between restarts.
func (s *settingsStore) reconcile(defaults models.Settings) error {
	next := s.current
	changed := false

	fields := []struct {
		kind     models.BackendKind
		model    *string
		fallback string
	}{
		{models.BackendLocal, &next.LocalModel, defaults.LocalModel},
		{models.BackendCloud, &next.CloudModel, defaults.CloudModel},
	}
	for _, f := range fields {
		_, err := s.resolve(f.kind, *f.model)
		var vErr *models.ValidationError
		if err == nil || !errors.As(err, &vErr) {
			continue
		}

		model, err := s.resolve(f.kind, f.fallback)
		if err != nil {
			model, err = s.resolve(f.kind, "")
			if err != nil {
				return fmt.Errorf("failed to reset stored %s model: %w", f.kind, err)
			}
		}
		*f.model = model
		changed = true
	}

	if !changed {
		return nil
	}
	if err := s.repo.Save(&next); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	s.current = next
	return nil
}

func (s *settingsStore) Get() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *settingsStore) Update(req models.SettingsUpdateRequest) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	if req.Theme != nil {
		if *req.Theme != "light" && *req.Theme != "dark" {
			return s.current, models.NewValidationError("theme", "must be light or dark")
		}
		next.Theme = *req.Theme
	}
	if req.UseLocal != nil {
		next.UseLocal = *req.UseLocal
	}
	if req.LocalModel != nil {
		model, err := s.resolve(models.BackendLocal, *req.LocalModel)
		if err != nil {
			return s.current, err
		}
		next.LocalModel = model
	}
	if req.CloudModel != nil {
		model, err := s.resolve(models.BackendCloud, *req.CloudModel)
		if err != nil {
			return s.current, err
		}
		next.CloudModel = model
	}

	if err := s.repo.Save(&next); err != nil {
		return s.current, fmt.Errorf("failed to persist settings: %w", err)
	}
	s.current = next
	return next, nil
}

func (s *settingsStore) resolve(kind models.BackendKind, model string) (string, error) {
	if s.resolver == nil {
		return model, nil
	}
	return s.resolver.ResolveModel(kind, model)
}
