package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"alfredoptarigan/resumeiq/internal/models"
)

type SettingsRepository interface {
	Get() (*models.Settings, error)
	Save(settings *models.Settings) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get returns the settings row, or ErrNotFound before the first Save.
func (r *settingsRepository) Get() (*models.Settings, error) {
	var s models.Settings
	if err := r.db.Where("id = ?", models.SettingsRowID).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("settings: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &s, nil
}

func (r *settingsRepository) Save(settings *models.Settings) error {
	settings.ID = models.SettingsRowID
	if err := r.db.Save(settings).Error; err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
