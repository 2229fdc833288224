package services

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"alfredoptarigan/resumeiq/internal/models"
)

const localStatusTTL = 10 * time.Second

// LocalModelLister is the part of the local backend the status check needs.
type LocalModelLister interface {
	URL() string
	DefaultModel() string
	Tags(ctx context.Context) ([]LocalModel, error)
}

type StatusService interface {
	Status(ctx context.Context) models.BackendStatus
}

type statusService struct {
	cloud GenerationBackend
	local LocalModelLister
	cache *cache.Cache
}

func NewStatusService(cloud GenerationBackend, local LocalModelLister) StatusService {
	return &statusService{
		cloud: cloud,
		local: local,
		cache: cache.New(localStatusTTL, time.Minute),
	}
}

func (s *statusService) Status(ctx context.Context) models.BackendStatus {
	var status models.BackendStatus

	if s.cloud != nil {
		status.Cloud = models.CloudStatus{
			Provider:   s.cloud.Name(),
			Configured: s.cloud.Configured(),
			Models:     s.cloud.Models(),
		}
	}
	if s.local != nil {
		status.Local = s.localStatus(ctx)
	}
	return status
}

// localStatus queries the local server at most once per localStatusTTL.
func (s *statusService) localStatus(ctx context.Context) models.LocalStatus {
	if cached, found := s.cache.Get("local"); found {
		return cached.(models.LocalStatus)
	}

	status := models.LocalStatus{
		URL:          s.local.URL(),
		DefaultModel: s.local.DefaultModel(),
		Models:       []string{},
	}

	tagsCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tags, err := s.local.Tags(tagsCtx)
	if err != nil {
		status.Error = err.Error()
	} else {
		status.Available = true
		for _, tag := range tags {
			status.Models = append(status.Models, tag.Name)
		}
	}

	s.cache.Set("local", status, cache.DefaultExpiration)
	return status
}
