package services

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resumeiq/internal/models"
)

func TestNewTemplateStore_Catalog(t *testing.T) {
	store, err := NewTemplateStore()
	require.NoError(t, err)

	features := store.Features()
	require.Len(t, features, 13)
	assert.Equal(t, models.FeatureReviewer, features[0].ID)

	offline := map[models.FeatureID]bool{}
	for _, f := range features {
		offline[f.ID] = f.Offline
	}
	assert.True(t, offline[models.FeatureReviewer])
	assert.True(t, offline[models.FeatureATSScore])
	assert.True(t, offline[models.FeatureAnalyst])
	assert.True(t, offline[models.FeatureChecklist])
	assert.False(t, offline[models.FeatureComparison])
	assert.False(t, offline[models.FeatureCoverLetter])

	checklist, err := store.Feature(models.FeatureChecklist)
	require.NoError(t, err)
	assert.Equal(t, "jobcopilot", checklist.Template)
	assert.Equal(t, "REQUIREMENT_CHECKLIST", checklist.TaskType)
}

func TestTemplateStore_UnknownFeature(t *testing.T) {
	store, err := NewTemplateStore()
	require.NoError(t, err)

	_, err = store.Feature("horoscope")
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = store.Template("missing")
	assert.Error(t, err)
}

func TestTemplateStore_FeaturesReturnsCopy(t *testing.T) {
	store, err := NewTemplateStore()
	require.NoError(t, err)

	got := store.Features()
	got[0].Label = "mutated"
	assert.NotEqual(t, "mutated", store.Features()[0].Label)
}

func TestLoadTemplateStore_RejectsBrokenCatalog(t *testing.T) {
	tests := []struct {
		name string
		fs   fstest.MapFS
	}{
		{
			name: "missing template",
			fs: fstest.MapFS{
				"t/features.yaml": {Data: []byte("features:\n  - id: a\n    template: nope\n")},
			},
		},
		{
			name: "duplicate id",
			fs: fstest.MapFS{
				"t/features.yaml": {Data: []byte("features:\n  - id: a\n    template: x\n  - id: a\n    template: x\n")},
				"t/x.md":          {Data: []byte("body")},
			},
		},
		{
			name: "invalid yaml",
			fs: fstest.MapFS{
				"t/features.yaml": {Data: []byte("features: [")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadTemplateStore(tt.fs, "t")
			assert.Error(t, err)
		})
	}
}
