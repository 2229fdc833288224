package services

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"alfredoptarigan/resumeiq/internal/models"
)

//go:embed templates/*.md templates/*.yaml
var templateFS embed.FS

type TemplateStore interface {
	Features() []models.Feature
	Feature(id models.FeatureID) (models.Feature, error)
	Template(key string) (string, error)
}

type featureCatalog struct {
	Features []models.Feature `yaml:"features"`
}

type templateStore struct {
	features  []models.Feature
	byID      map[models.FeatureID]models.Feature
	templates map[string]string
}

// NewTemplateStore loads the embedded feature catalog and prompt templates.
// Every feature must reference an existing template.
func NewTemplateStore() (TemplateStore, error) {
	return loadTemplateStore(templateFS, "templates")
}

func loadTemplateStore(fsys fs.FS, dir string) (*templateStore, error) {
	raw, err := fs.ReadFile(fsys, path.Join(dir, "features.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read feature catalog: %w", err)
	}

	var catalog featureCatalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse feature catalog: %w", err)
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	templates := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".md" {
			continue
		}
		body, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", entry.Name(), err)
		}
		templates[strings.TrimSuffix(entry.Name(), ".md")] = strings.TrimSpace(string(body))
	}

	store := &templateStore{
		features:  catalog.Features,
		byID:      make(map[models.FeatureID]models.Feature, len(catalog.Features)),
		templates: templates,
	}

	for _, f := range catalog.Features {
		if _, dup := store.byID[f.ID]; dup {
			return nil, fmt.Errorf("duplicate feature %q in catalog", f.ID)
		}
		if _, ok := templates[f.Template]; !ok {
			return nil, fmt.Errorf("feature %q references missing template %q", f.ID, f.Template)
		}
		store.byID[f.ID] = f
	}

	return store, nil
}

// Features implements TemplateStore. The returned slice is a copy in catalog order.
func (s *templateStore) Features() []models.Feature {
	out := make([]models.Feature, len(s.features))
	copy(out, s.features)
	return out
}

// Feature implements TemplateStore.
func (s *templateStore) Feature(id models.FeatureID) (models.Feature, error) {
	f, ok := s.byID[id]
	if !ok {
		return models.Feature{}, models.NewValidationError("feature", "unknown feature %q", id)
	}
	return f, nil
}

// Template implements TemplateStore.
func (s *templateStore) Template(key string) (string, error) {
	t, ok := s.templates[key]
	if !ok {
		return "", fmt.Errorf("template %q not found", key)
	}
	return t, nil
}
