package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"alfredoptarigan/resumeiq/internal/models"
)

type ScoreBand string

const (
	BandExcellent ScoreBand = "excellent"
	BandGood      ScoreBand = "good"
	BandFair      ScoreBand = "fair"
	BandPoor      ScoreBand = "poor"
)

func BandForScore(score float64) ScoreBand {
	switch {
	case score >= 80:
		return BandExcellent
	case score >= 60:
		return BandGood
	case score >= 40:
		return BandFair
	default:
		return BandPoor
	}
}

// Highlight is one labelled line of a result summary.
type Highlight struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// View is the display projection of one result.
type View struct {
	Feature    models.FeatureID    `json:"feature"`
	Label      string              `json:"label"`
	Format     models.ResultFormat `json:"format"`
	Score      *float64            `json:"score,omitempty"`
	Band       ScoreBand           `json:"band,omitempty"`
	Highlights []Highlight         `json:"highlights,omitempty"`
	Text       string              `json:"text,omitempty"`
	Data       any                 `json:"data,omitempty"`
}

type highlightField struct {
	label string
	path  string
}

var featureHighlights = map[models.FeatureID][]highlightField{
	models.FeatureReviewer: {
		{"Summary", "summary_feedback"},
		{"Missing keywords", "missing_keywords"},
		{"Suggestions", "suggestions"},
	},
	models.FeatureATSScore: {
		{"Summary", "summary"},
		{"Formatting", "score_breakdown.formatting.score"},
		{"Keywords", "score_breakdown.keywords.score"},
		{"Critical issues", "critical_issues"},
		{"Quick wins", "quick_wins"},
	},
	models.FeatureAnalyst: {
		{"Company", "company_overview.what_they_do"},
		{"Resume focus", "positioning_advice.resume_focus"},
	},
	models.FeatureEditor: {
		{"Name", "full_name"},
		{"Summary", "professional_summary"},
		{"Experience", "experience"},
	},
	models.FeatureBenchmarking: {
		{"Experience level", "experience_level"},
		{"Salary min", "salary_estimate.min"},
		{"Salary max", "salary_estimate.max"},
		{"Missing top skills", "skills_analysis.missing_top_skills"},
		{"Assessment", "comparison_to_benchmark.overall_assessment"},
	},
	models.FeatureComparison: {
		{"Job title", "jobTitle"},
		{"Candidates", "candidates"},
	},
	models.FeaturePredictor: {
		{"Candidate", "candidate_name"},
		{"Recommendation", "final_prediction.recommendation"},
		{"Confidence", "final_prediction.confidence"},
		{"JD fit", "jd_fit.score"},
		{"Cultural fit", "cultural_fit.score"},
	},
	models.FeatureCoverLetter: {
		{"Tone", "tone_used"},
		{"Words", "word_count"},
		{"Highlights", "key_highlights"},
	},
	models.FeatureBehavioralFit: {
		{"Signals", "behavioral_signals"},
		{"Gaps", "gaps"},
		{"Recommendations", "recommendations"},
	},
	models.FeatureHiddenRequirements: {
		{"Hidden requirements", "hidden_requirements"},
		{"Risks", "risk_analysis"},
		{"Mitigation", "mitigation_strategies"},
	},
	models.FeatureChecklist: {
		{"Present", "summary.present"},
		{"Partial", "summary.partial"},
		{"Missing", "summary.missing"},
		{"Main gaps", "summary.main_gaps"},
	},
	models.FeatureJobClustering: {
		{"Clusters", "clusters"},
		{"Next steps", "next_steps"},
	},
	models.FeatureInterviewPrep: {
		{"Short answer", "short_version"},
		{"Key points", "key_points_to_emphasize"},
	},
}

// Render projects a result for display. Absent or mistyped optional fields
// are skipped and text results pass through untouched.
func Render(feature models.Feature, result *models.AnalysisResult) View {
	view := View{Feature: feature.ID, Label: feature.Label}
	if result == nil {
		return view
	}
	view.Format = result.Format
	view.Data = result.Data

	if result.Format != models.FormatJSON {
		if s, ok := result.Data.(string); ok {
			view.Text = s
		}
		return view
	}

	if feature.ScoreField != "" {
		if v, ok := lookupPath(result.Data, feature.ScoreField); ok {
			if score, ok := asNumber(v); ok {
				view.Score = &score
				view.Band = BandForScore(score)
			}
		}
	}

	for _, f := range featureHighlights[feature.ID] {
		v, ok := lookupPath(result.Data, f.path)
		if !ok {
			continue
		}
		if s := formatValue(v); s != "" {
			view.Highlights = append(view.Highlights, Highlight{Label: f.label, Value: s})
		}
	}
	return view
}

// lookupPath walks a dotted path through decoded JSON objects.
func lookupPath(data any, path string) (any, bool) {
	cur := data
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// asNumber accepts JSON numbers and numeric strings such as "82" or "82%".
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		if len(t) == 0 {
			return ""
		}
		parts := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return fmt.Sprintf("%d items", len(t))
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}
