package models

import (
	"time"

	"gorm.io/datatypes"
)

type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

func (s RunStatus) InFlight() bool {
	return s == StatusQueued || s == StatusProcessing
}

// AnalysisSession holds one set of user inputs that several features can be
// run against.
type AnalysisSession struct {
	ID        string                             `gorm:"primaryKey;size:36" json:"id"`
	Inputs    datatypes.JSONType[AnalysisInputs] `gorm:"column:inputs" json:"inputs"`
	CreatedAt time.Time                          `json:"created_at"`
	UpdatedAt time.Time                          `json:"updated_at"`
}

func (AnalysisSession) TableName() string {
	return "analysis_sessions"
}

// FeatureRun is one dispatch of one feature within a session. Generation
// increases with every run of the same feature in the same session.
type FeatureRun struct {
	ID           string      `gorm:"primaryKey;size:36" json:"id"`
	SessionID    string      `gorm:"size:36;not null;index" json:"session_id"`
	Feature      FeatureID   `gorm:"size:64;not null;index" json:"feature"`
	Generation   int         `gorm:"not null" json:"generation"`
	Status       RunStatus   `gorm:"size:16;not null;index" json:"status"`
	Backend      BackendKind `gorm:"size:16" json:"backend"`
	Model        string      `gorm:"size:128" json:"model"`
	ErrorMessage string      `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (FeatureRun) TableName() string {
	return "feature_runs"
}

// SessionResult is the latest successful result of a feature in a session.
// Payload holds the parsed JSON value, or a JSON string for text results.
type SessionResult struct {
	SessionID  string         `gorm:"primaryKey;size:36" json:"session_id"`
	Feature    FeatureID      `gorm:"primaryKey;size:64" json:"feature"`
	Generation int            `gorm:"not null" json:"generation"`
	Backend    BackendKind    `gorm:"size:16" json:"backend"`
	Model      string         `gorm:"size:128" json:"model"`
	Format     ResultFormat   `gorm:"size:8" json:"format"`
	Strategy   string         `gorm:"size:32" json:"strategy"`
	Payload    datatypes.JSON `json:"payload"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (SessionResult) TableName() string {
	return "session_results"
}
