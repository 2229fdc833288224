package models

import (
	"encoding/json"
	"fmt"
)

// Typed views over the JSON shapes the prompt templates request. Every field
// is optional: models routinely omit keys.

type ReviewerSuggestion struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`
}

type ReviewerResult struct {
	MatchScore        float64              `json:"match_score"`
	SummaryFeedback   string               `json:"summary_feedback"`
	MissingKeywords   []string             `json:"missing_keywords"`
	Suggestions       []ReviewerSuggestion `json:"suggestions"`
	SectionSuggestion map[string]any       `json:"section_suggestions,omitempty"`
}

type ResumeContact struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

type ResumeExperience struct {
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location,omitempty"`
	Dates        string   `json:"dates,omitempty"`
	Achievements []string `json:"achievements"`
}

type ResumeSkills struct {
	Technical  []string `json:"technical,omitempty"`
	Tools      []string `json:"tools,omitempty"`
	SoftSkills []string `json:"soft_skills,omitempty"`
}

type ResumeEducation struct {
	Degree         string `json:"degree"`
	Institution    string `json:"institution"`
	Location       string `json:"location,omitempty"`
	GraduationDate string `json:"graduation_date,omitempty"`
	GPA            string `json:"gpa,omitempty"`
	Honors         string `json:"honors,omitempty"`
}

type ResumeProject struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Link        string `json:"link,omitempty"`
}

// OptimizedResume is the editor feature's output and the input of resume export.
type OptimizedResume struct {
	FullName            string             `json:"full_name" validate:"required"`
	Contact             ResumeContact      `json:"contact"`
	ProfessionalSummary string             `json:"professional_summary"`
	Experience          []ResumeExperience `json:"experience"`
	Skills              ResumeSkills       `json:"skills"`
	Education           []ResumeEducation  `json:"education"`
	Projects            []ResumeProject    `json:"projects"`
	Certifications      []string           `json:"certifications"`
}

type CoverLetterResult struct {
	CoverLetter   string   `json:"cover_letter"`
	KeyHighlights []string `json:"key_highlights"`
	Suggestions   []string `json:"suggestions"`
	ToneUsed      string   `json:"tone_used"`
	WordCount     int      `json:"word_count"`
}

type CandidateExperience struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Duration string `json:"duration"`
}

// ComparisonCandidate uses camelCase keys, as the comparison template requests.
type ComparisonCandidate struct {
	Name                   string                `json:"name"`
	Email                  string                `json:"email"`
	OverallScore           float64               `json:"overallScore"`
	RequiredSkillsPercent  float64               `json:"requiredSkillsPercent"`
	PreferredSkillsPercent float64               `json:"preferredSkillsPercent"`
	RequiredSkillsMatched  int                   `json:"requiredSkillsMatched"`
	RequiredSkillsTotal    int                   `json:"requiredSkillsTotal"`
	PreferredSkillsMatched int                   `json:"preferredSkillsMatched"`
	PreferredSkillsTotal   int                   `json:"preferredSkillsTotal"`
	KeyStrengths           []string              `json:"keyStrengths"`
	MissingSkills          []string              `json:"missingSkills"`
	Summary                string                `json:"summary"`
	Experience             []CandidateExperience `json:"experience"`
	AllSkills              []string              `json:"allSkills"`
}

type ComparisonResult struct {
	JobTitle        string                `json:"jobTitle"`
	TotalCandidates int                   `json:"totalCandidates"`
	Candidates      []ComparisonCandidate `json:"candidates"`
}

type ChecklistItem struct {
	Requirement string `json:"requirement"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Evidence    string `json:"evidence"`
}

type ChecklistSummary struct {
	TotalRequirements int      `json:"total_requirements"`
	Present           int      `json:"present"`
	Partial           int      `json:"partial"`
	Missing           int      `json:"missing"`
	MatchPercentage   float64  `json:"match_percentage"`
	KeyStrengths      []string `json:"key_strengths"`
	MainGaps          []string `json:"main_gaps"`
}

type ChecklistResult struct {
	Checklist []ChecklistItem  `json:"checklist"`
	Summary   ChecklistSummary `json:"summary"`
}

// DecodeResult converts a normalized result value into a typed view.
func DecodeResult[T any](data any) (T, error) {
	var out T
	if s, ok := data.(string); ok {
		return out, &ParseError{Source: "result", Message: fmt.Sprintf("expected a JSON object, got text (%d chars)", len(s))}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return out, fmt.Errorf("failed to encode result: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &ParseError{Source: "result", Message: "unexpected shape", Err: err}
	}
	return out, nil
}
