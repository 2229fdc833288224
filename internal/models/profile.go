package models

import "time"

const MaxReferenceProfiles = 20

// ReferenceProfile is a stored top-performer resume used by the success predictor.
type ReferenceProfile struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Name       string    `gorm:"size:255;not null" json:"name" validate:"required"`
	Content    string    `gorm:"type:text;not null" json:"content" validate:"required"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (ReferenceProfile) TableName() string {
	return "reference_profiles"
}
