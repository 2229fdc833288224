package models

type FeatureID string

const (
	FeatureReviewer           FeatureID = "reviewer"
	FeatureATSScore           FeatureID = "ats_score"
	FeatureAnalyst            FeatureID = "analyst"
	FeatureEditor             FeatureID = "editor"
	FeatureBenchmarking       FeatureID = "benchmarking"
	FeatureComparison         FeatureID = "comparison"
	FeaturePredictor          FeatureID = "predictor"
	FeatureCoverLetter        FeatureID = "cover_letter"
	FeatureBehavioralFit      FeatureID = "behavioral_fit"
	FeatureHiddenRequirements FeatureID = "hidden_requirements"
	FeatureChecklist          FeatureID = "checklist"
	FeatureJobClustering      FeatureID = "job_clustering"
	FeatureInterviewPrep      FeatureID = "interview_prep"
)

// Feature is one selectable analysis type. The catalog is loaded once at
// startup and never mutated.
type Feature struct {
	ID             FeatureID `yaml:"id" json:"id"`
	Label          string    `yaml:"label" json:"label"`
	Description    string    `yaml:"description" json:"description"`
	Offline        bool      `yaml:"offline" json:"offline"`
	Template       string    `yaml:"template" json:"template"`
	TaskType       string    `yaml:"task_type,omitempty" json:"task_type,omitempty"`
	RequiresResume bool      `yaml:"requires_resume" json:"requires_resume"`
	ScoreField     string    `yaml:"score_field,omitempty" json:"score_field,omitempty"`
}

type BackendKind string

const (
	BackendCloud BackendKind = "cloud"
	BackendLocal BackendKind = "local"
)

func (k BackendKind) Valid() bool {
	return k == BackendCloud || k == BackendLocal
}
