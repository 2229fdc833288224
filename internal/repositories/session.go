package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/resumeiq/internal/models"
)

type SessionRepository interface {
	Create(session *models.AnalysisSession) error
	FindByID(id string) (*models.AnalysisSession, error)

	CreateRuns(sessionID string, features []models.FeatureID, backend models.BackendKind, model string) ([]models.FeatureRun, error)
	FindRun(id string) (*models.FeatureRun, error)
	FindRunsBySession(sessionID string) ([]models.FeatureRun, error)
	FindQueuedRuns(limit int) ([]models.FeatureRun, error)
	UpdateRunStatus(id string, status models.RunStatus) error
	ClaimRun(id string) (bool, error)
	FailRun(id string, errorMsg string) error
	RequeueProcessing() (int64, error)

	CompleteRun(run *models.FeatureRun, result *models.SessionResult) (bool, error)
	FindResults(sessionID string) ([]models.SessionResult, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(session *models.AnalysisSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) FindByID(id string) (*models.AnalysisSession, error) {
	var session models.AnalysisSession
	if err := r.db.Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &session, nil
}

// CreateRuns queues one run per feature, each with the next generation for
// its (session, feature) pair. The session row is locked so that concurrent
// callers cannot hand out the same generation.
func (r *sessionRepository) CreateRuns(sessionID string, features []models.FeatureID, backend models.BackendKind, model string) ([]models.FeatureRun, error) {
	var runs []models.FeatureRun

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var session models.AnalysisSession
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", sessionID).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
			}
			return fmt.Errorf("failed to lock session: %w", err)
		}

		for _, feature := range features {
			var maxGen int
			if err := tx.Model(&models.FeatureRun{}).
				Where("session_id = ? AND feature = ?", sessionID, feature).
				Select("COALESCE(MAX(generation), 0)").
				Scan(&maxGen).Error; err != nil {
				return fmt.Errorf("failed to read generation: %w", err)
			}

			runs = append(runs, models.FeatureRun{
				ID:         uuid.NewString(),
				SessionID:  sessionID,
				Feature:    feature,
				Generation: maxGen + 1,
				Status:     models.StatusQueued,
				Backend:    backend,
				Model:      model,
			})
		}

		if err := tx.Create(&runs).Error; err != nil {
			return fmt.Errorf("failed to create runs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *sessionRepository) FindRun(id string) (*models.FeatureRun, error) {
	var run models.FeatureRun
	if err := r.db.Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return &run, nil
}

func (r *sessionRepository) FindRunsBySession(sessionID string) ([]models.FeatureRun, error) {
	var runs []models.FeatureRun
	if err := r.db.
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("generation ASC").
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to find runs: %w", err)
	}
	return runs, nil
}

func (r *sessionRepository) FindQueuedRuns(limit int) ([]models.FeatureRun, error) {
	var runs []models.FeatureRun
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find queued runs: %w", err)
	}
	return runs, nil
}

func (r *sessionRepository) UpdateRunStatus(id string, status models.RunStatus) error {
	result := r.db.Model(&models.FeatureRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update run status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// ClaimRun moves a queued run to processing. It reports false when the run
// was already claimed, so a run enqueued twice is processed once.
func (r *sessionRepository) ClaimRun(id string) (bool, error) {
	result := r.db.Model(&models.FeatureRun{}).
		Where("id = ? AND status = ?", id, models.StatusQueued).
		Updates(map[string]interface{}{
			"status":     models.StatusProcessing,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim run: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// FailRun records the error on the run only. The session's result slot for
// the feature is left as it was.
func (r *sessionRepository) FailRun(id string, errorMsg string) error {
	result := r.db.Model(&models.FeatureRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": errorMsg,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update run error: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// RequeueProcessing puts runs interrupted by a shutdown back in the queue.
func (r *sessionRepository) RequeueProcessing() (int64, error) {
	result := r.db.Model(&models.FeatureRun{}).
		Where("status = ?", models.StatusProcessing).
		Updates(map[string]interface{}{
			"status":     models.StatusQueued,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to requeue runs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CompleteRun marks the run completed and writes its result unless the slot
// already holds a newer generation. It reports whether the result was stored.
func (r *sessionRepository) CompleteRun(run *models.FeatureRun, result *models.SessionResult) (bool, error) {
	applied := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		result.SessionID = run.SessionID
		result.Feature = run.Feature
		result.Generation = run.Generation
		result.UpdatedAt = time.Now()

		upsert := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "feature"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"generation", "backend", "model", "format", "strategy", "payload", "updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "session_results.generation <= excluded.generation"},
			}},
		}).Create(result)
		if upsert.Error != nil {
			return fmt.Errorf("failed to store result: %w", upsert.Error)
		}
		applied = upsert.RowsAffected > 0

		if err := tx.Model(&models.FeatureRun{}).
			Where("id = ?", run.ID).
			Updates(map[string]interface{}{
				"status":     models.StatusCompleted,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return fmt.Errorf("failed to complete run: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *sessionRepository) FindResults(sessionID string) ([]models.SessionResult, error) {
	var results []models.SessionResult
	if err := r.db.Where("session_id = ?", sessionID).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to find results: %w", err)
	}
	return results, nil
}
