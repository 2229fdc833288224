package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resumeiq/internal/models"
)

// ErrLimitReached is returned by CreateWithinLimit when the table is full.
var ErrLimitReached = errors.New("profile limit reached")

type ProfileRepository interface {
	Create(profile *models.ReferenceProfile) error
	CreateWithinLimit(profile *models.ReferenceProfile, limit int64) error
	FindAll() ([]models.ReferenceProfile, error)
	FindByID(id string) (*models.ReferenceProfile, error)
	FindByIDs(ids []string) ([]models.ReferenceProfile, error)
	Count() (int64, error)
	Delete(id string) error
	DeleteAll() (int64, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(profile *models.ReferenceProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if err := r.db.Create(profile).Error; err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// CreateWithinLimit counts and inserts in one transaction. On postgres the
// table is locked for the transaction so concurrent inserts see each other.
func (r *profileRepository) CreateWithinLimit(profile *models.ReferenceProfile, limit int64) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			lock := "LOCK TABLE " + models.ReferenceProfile{}.TableName() + " IN SHARE ROW EXCLUSIVE MODE"
			if err := tx.Exec(lock).Error; err != nil {
				return fmt.Errorf("failed to lock profiles: %w", err)
			}
		}

		var n int64
		if err := tx.Model(&models.ReferenceProfile{}).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to count profiles: %w", err)
		}
		if n >= limit {
			return ErrLimitReached
		}

		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
}

func (r *profileRepository) FindAll() ([]models.ReferenceProfile, error) {
	var profiles []models.ReferenceProfile
	if err := r.db.Order("uploaded_at ASC").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

func (r *profileRepository) FindByID(id string) (*models.ReferenceProfile, error) {
	var profile models.ReferenceProfile
	if err := r.db.Where("id = ?", id).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return &profile, nil
}

// FindByIDs returns the profiles in the order of ids. Unknown ids are an error.
func (r *profileRepository) FindByIDs(ids []string) ([]models.ReferenceProfile, error) {
	var found []models.ReferenceProfile
	if err := r.db.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to find profiles: %w", err)
	}

	byID := make(map[string]models.ReferenceProfile, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	profiles := make([]models.ReferenceProfile, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (r *profileRepository) Count() (int64, error) {
	var n int64
	if err := r.db.Model(&models.ReferenceProfile{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

func (r *profileRepository) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.ReferenceProfile{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *profileRepository) DeleteAll() (int64, error) {
	result := r.db.Where("1 = 1").Delete(&models.ReferenceProfile{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete profiles: %w", result.Error)
	}
	return result.RowsAffected, nil
}
