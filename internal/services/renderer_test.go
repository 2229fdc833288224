package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resumeiq/internal/models"
)

func TestBandForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  ScoreBand
	}{
		{100, BandExcellent},
		{85, BandExcellent},
		{80, BandExcellent},
		{79.9, BandGood},
		{65, BandGood},
		{60, BandGood},
		{45, BandFair},
		{40, BandFair},
		{39, BandPoor},
		{10, BandPoor},
		{0, BandPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandForScore(tt.score), "score %v", tt.score)
	}
}

func TestRender_ScoreAndHighlights(t *testing.T) {
	store, err := NewTemplateStore()
	require.NoError(t, err)
	f, err := store.Feature(models.FeatureReviewer)
	require.NoError(t, err)

	view := Render(f, &models.AnalysisResult{
		Feature: f.ID,
		Format:  models.FormatJSON,
		Data: map[string]any{
			"match_score":      float64(72),
			"summary_feedback": "Solid fit.",
			"missing_keywords": []any{"kafka", "grpc"},
			"suggestions":      []any{map[string]any{"title": "x"}},
		},
	})

	require.NotNil(t, view.Score)
	assert.Equal(t, 72.0, *view.Score)
	assert.Equal(t, BandGood, view.Band)
	assert.Equal(t, []Highlight{
		{Label: "Summary", Value: "Solid fit."},
		{Label: "Missing keywords", Value: "kafka, grpc"},
		{Label: "Suggestions", Value: "1 items"},
	}, view.Highlights)
}

func TestRender_NestedScoreField(t *testing.T) {
	store, err := NewTemplateStore()
	require.NoError(t, err)
	f, err := store.Feature(models.FeaturePredictor)
	require.NoError(t, err)

	view := Render(f, &models.AnalysisResult{
		Format: models.FormatJSON,
		Data:   map[string]any{"final_prediction": map[string]any{"success_score": "86%"}},
	})
	require.NotNil(t, view.Score)
	assert.Equal(t, 86.0, *view.Score)
	assert.Equal(t, BandExcellent, view.Band)
}

func TestRender_ToleratesMissingFields(t *testing.T) {
	store, err := NewTemplateStore()
	require.NoError(t, err)

	inputs := []*models.AnalysisResult{
		nil,
		{Format: models.FormatJSON, Data: map[string]any{}},
		{Format: models.FormatJSON, Data: []any{1, 2}},
		{Format: models.FormatJSON, Data: map[string]any{"match_score": "high", "summary": nil}},
		{Format: models.FormatText, Data: "model said something"},
	}

	for _, f := range store.Features() {
		for _, in := range inputs {
			assert.NotPanics(t, func() {
				view := Render(f, in)
				assert.Nil(t, view.Score)
			})
		}
	}

	reviewer, _ := store.Feature(models.FeatureReviewer)
	view := Render(reviewer, &models.AnalysisResult{Format: models.FormatText, Data: "plain"})
	assert.Equal(t, "plain", view.Text)
	assert.Empty(t, view.Band)
}
