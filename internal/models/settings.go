package models

import "time"

const SettingsRowID = 1

// Settings is the single persisted row of client preferences.
type Settings struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	Theme      string    `gorm:"size:16;not null" json:"theme"`
	UseLocal   bool      `gorm:"not null" json:"use_local"`
	LocalModel string    `gorm:"size:128" json:"local_model"`
	CloudModel string    `gorm:"size:128" json:"cloud_model"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Settings) TableName() string {
	return "settings"
}

// Backend maps the use_local flag onto a backend kind.
func (s Settings) Backend() BackendKind {
	if s.UseLocal {
		return BackendLocal
	}
	return BackendCloud
}

// Model returns the model preferred for the given backend.
func (s Settings) Model(kind BackendKind) string {
	if kind == BackendLocal {
		return s.LocalModel
	}
	return s.CloudModel
}
