package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/pkg/logger"
	"alfredoptarigan/resumeiq/internal/repositories"
)

const defaultSimilarLimit = 5

type ProfileService interface {
	Add(ctx context.Context, name, content string) (*models.ReferenceProfile, error)
	AddFromFile(ctx context.Context, filename, mimeType string, data []byte) (*models.ReferenceProfile, error)
	List() ([]models.ReferenceProfile, error)
	Get(id string) (*models.ReferenceProfile, error)
	Resolve(ids []string) ([]models.ReferenceProfile, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) (int64, error)
	Similar(ctx context.Context, resume string, limit int) ([]models.SimilarProfile, error)
}

type profileService struct {
	repo      repositories.ProfileRepository
	extractor TextExtractor
	index     ProfileIndex
	log       logger.Logger
}

func NewProfileService(repo repositories.ProfileRepository, extractor TextExtractor, index ProfileIndex, log logger.Logger) ProfileService {
	if index == nil {
		index = NewNopProfileIndex()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &profileService{repo: repo, extractor: extractor, index: index, log: log}
}

// ProfileNameFromFile strips a .pdf or .docx extension from the file name.
func ProfileNameFromFile(filename string) string {
	base := filepath.Base(filename)
	switch strings.ToLower(filepath.Ext(base)) {
	case ".pdf", ".docx":
		return base[:len(base)-len(filepath.Ext(base))]
	}
	return base
}

func (s *profileService) Add(ctx context.Context, name, content string) (*models.ReferenceProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("name", "profile name is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("content", "profile %q has no text", name)
	}

	profile := &models.ReferenceProfile{
		Name:       name,
		Content:    content,
		UploadedAt: time.Now(),
	}
	if err := s.repo.CreateWithinLimit(profile, models.MaxReferenceProfiles); err != nil {
		if errors.Is(err, repositories.ErrLimitReached) {
			return nil, models.NewValidationError("profiles", "at most %d reference profiles can be stored", models.MaxReferenceProfiles)
		}
		return nil, err
	}

	// The database row is authoritative; a failed index write only degrades search.
	if err := s.index.IndexProfile(ctx, *profile); err != nil {
		s.log.Warn("profiles", "failed to index profile", map[string]any{"profile_id": profile.ID, "error": err.Error()})
	}

	s.log.Info("profiles", "profile stored", map[string]any{"profile_id": profile.ID, "name": profile.Name, "chars": len(content)})
	return profile, nil
}

func (s *profileService) AddFromFile(ctx context.Context, filename, mimeType string, data []byte) (*models.ReferenceProfile, error) {
	text, err := s.extractor.Extract(filename, mimeType, data)
	if err != nil {
		return nil, err
	}
	return s.Add(ctx, ProfileNameFromFile(filename), text)
}

func (s *profileService) List() ([]models.ReferenceProfile, error) {
	return s.repo.FindAll()
}

func (s *profileService) Get(id string) (*models.ReferenceProfile, error) {
	return s.repo.FindByID(id)
}

// Resolve returns the listed profiles in order, or every stored profile when
// ids is empty.
func (s *profileService) Resolve(ids []string) ([]models.ReferenceProfile, error) {
	if len(ids) == 0 {
		return s.repo.FindAll()
	}
	return s.repo.FindByIDs(ids)
}

func (s *profileService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	if err := s.index.RemoveProfile(ctx, id); err != nil {
		s.log.Warn("profiles", "failed to remove profile from index", map[string]any{"profile_id": id, "error": err.Error()})
	}
	return nil
}

func (s *profileService) Clear(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll()
	if err != nil {
		return 0, err
	}
	if err := s.index.Clear(ctx); err != nil {
		s.log.Warn("profiles", "failed to clear profile index", map[string]any{"error": err.Error()})
	}
	return n, nil
}

func (s *profileService) Similar(ctx context.Context, resume string, limit int) ([]models.SimilarProfile, error) {
	if strings.TrimSpace(resume) == "" {
		return nil, models.NewValidationError("resume", "resume text is required")
	}
	if limit <= 0 {
		limit = defaultSimilarLimit
	}

	results, err := s.index.Search(ctx, resume, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}
	return results, nil
}
