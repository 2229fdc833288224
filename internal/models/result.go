package models

import "time"

type CandidateResume struct {
	Name    string `json:"name"`
	Content string `json:"content" validate:"required"`
}

// AnalysisInputs are the user-supplied texts shared by every feature, plus
// the extras only some features read.
type AnalysisInputs struct {
	Resume          string             `json:"resume"`
	JobDescription  string             `json:"job_description"`
	Resumes         []CandidateResume  `json:"resumes,omitempty" validate:"omitempty,dive"`
	Profiles        []ReferenceProfile `json:"profiles,omitempty" validate:"omitempty,dive"`
	ProfileIDs      []string           `json:"profile_ids,omitempty" validate:"omitempty,dive,uuid"`
	CompanyName     string             `json:"company_name,omitempty"`
	Tone            string             `json:"tone,omitempty" validate:"omitempty,oneof=professional enthusiastic creative"`
	Length          string             `json:"length,omitempty" validate:"omitempty,oneof=short medium long"`
	JobDescriptions []string           `json:"job_descriptions,omitempty"`
}

type AnalysisRequest struct {
	Feature FeatureID   `json:"feature" validate:"required"`
	Backend BackendKind `json:"backend,omitempty" validate:"omitempty,oneof=cloud local"`
	Model   string      `json:"model,omitempty"`
	AnalysisInputs
}

type ResultFormat string

const (
	FormatJSON ResultFormat = "json"
	FormatText ResultFormat = "text"
)

// AnalysisResult is a normalized backend reply. Data is the parsed object or
// array when Format is json, and the raw reply string when Format is text.
type AnalysisResult struct {
	Feature  FeatureID    `json:"feature"`
	Backend  BackendKind  `json:"backend"`
	Model    string       `json:"model"`
	Format   ResultFormat `json:"format"`
	Strategy string       `json:"strategy"`
	Data     any          `json:"data"`
	Raw      string       `json:"raw,omitempty"`
}

type RunFeaturesRequest struct {
	Features []FeatureID `json:"features" validate:"required,min=1,dive,required"`
	Backend  BackendKind `json:"backend,omitempty" validate:"omitempty,oneof=cloud local"`
	Model    string      `json:"model,omitempty"`
}

type RunFeaturesResponse struct {
	SessionID string       `json:"session_id"`
	Runs      []FeatureRun `json:"runs"`
}

// SessionResponse mirrors the per-feature results map and loading map.
type SessionResponse struct {
	ID        string                        `json:"id"`
	CreatedAt time.Time                     `json:"created_at"`
	Results   map[FeatureID]*AnalysisResult `json:"results"`
	Loading   map[FeatureID]bool            `json:"loading"`
	Errors    map[FeatureID]string          `json:"errors,omitempty"`
	Runs      []FeatureRun                  `json:"runs"`
}

type ExtractResponse struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
	Chars    int    `json:"chars"`
}

type SettingsUpdateRequest struct {
	Theme      *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark"`
	UseLocal   *bool   `json:"use_local,omitempty"`
	LocalModel *string `json:"local_model,omitempty" validate:"omitempty,min=1"`
	CloudModel *string `json:"cloud_model,omitempty" validate:"omitempty,min=1"`
}

type SimilarProfilesRequest struct {
	Resume string `json:"resume" validate:"required"`
	Limit  int    `json:"limit,omitempty" validate:"omitempty,min=1,max=20"`
}

type SimilarProfile struct {
	ProfileID string  `json:"profile_id"`
	Name      string  `json:"name"`
	Score     float32 `json:"score"`
	Excerpt   string  `json:"excerpt"`
}

type ExportFormat string

const (
	ExportPDF  ExportFormat = "pdf"
	ExportDOCX ExportFormat = "docx"
	ExportXLSX ExportFormat = "xlsx"
)

type CoverLetterExportRequest struct {
	Format      ExportFormat `json:"format" validate:"required,oneof=pdf docx"`
	CoverLetter string       `json:"cover_letter" validate:"required"`
	CompanyName string       `json:"company_name,omitempty"`
}

type ResumeExportRequest struct {
	Format ExportFormat    `json:"format" validate:"required,oneof=pdf docx"`
	Resume OptimizedResume `json:"resume"`
}

type ReportExportRequest struct {
	Feature FeatureID `json:"feature" validate:"required,oneof=comparison checklist"`
	Data    any       `json:"data" validate:"required"`
}

type ExportResponse struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type CloudStatus struct {
	Provider   string   `json:"provider"`
	Configured bool     `json:"configured"`
	Models     []string `json:"models"`
}

type LocalStatus struct {
	Available    bool     `json:"available"`
	URL          string   `json:"url"`
	DefaultModel string   `json:"default_model"`
	Models       []string `json:"models"`
	Error        string   `json:"error,omitempty"`
}

type BackendStatus struct {
	Cloud CloudStatus `json:"cloud"`
	Local LocalStatus `json:"local"`
}
