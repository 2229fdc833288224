package services

import (
	"fmt"
	"slices"
	"strings"

	"alfredoptarigan/resumeiq/internal/models"
)

const (
	MinComparisonResumes = 2
	MaxComparisonResumes = 5
	MinReferenceProfiles = 3
	MinClusteringJobs    = 2
)

var (
	coverLetterTones   = []string{"professional", "enthusiastic", "creative"}
	coverLetterLengths = []string{"short", "medium", "long"}
)

// PromptBuilder turns a feature and its inputs into one prompt: the
// feature's template followed by a payload of labeled input sections.
type PromptBuilder struct {
	store      TemplateStore
	benchmarks *BenchmarkTable
}

func NewPromptBuilder(store TemplateStore, benchmarks *BenchmarkTable) *PromptBuilder {
	return &PromptBuilder{
		store:      store,
		benchmarks: benchmarks,
	}
}

// Build assembles the prompt for feature. It fails with a ValidationError
// when required inputs are missing.
func (pb *PromptBuilder) Build(feature models.Feature, in models.AnalysisInputs) (string, error) {
	template, err := pb.store.Template(feature.Template)
	if err != nil {
		return "", err
	}

	if isBlank(in.JobDescription) {
		return "", models.NewValidationError("job_description", "job description is required")
	}
	if feature.RequiresResume && isBlank(in.Resume) {
		return "", models.NewValidationError("resume", "resume is required for %s", feature.Label)
	}

	var payload string
	switch feature.ID {
	case models.FeatureComparison:
		payload, err = pb.comparisonPayload(in)
	case models.FeaturePredictor:
		payload, err = pb.predictorPayload(in)
	case models.FeatureBenchmarking:
		payload, err = pb.benchmarkPayload(in)
	case models.FeatureCoverLetter:
		payload, err = pb.coverLetterPayload(in)
	case models.FeatureJobClustering:
		payload, err = pb.clusteringPayload(feature, in)
	default:
		payload = taskPrefix(feature) + resumeAndJob(in)
	}
	if err != nil {
		return "", err
	}

	return template + payload, nil
}

// ComparisonCandidates lists the resumes compared by the comparison feature:
// the primary resume first, unless it is already among the extra resumes.
func ComparisonCandidates(in models.AnalysisInputs) []models.CandidateResume {
	var out []models.CandidateResume
	if !isBlank(in.Resume) && !containsResume(in.Resumes, in.Resume) {
		out = append(out, models.CandidateResume{Content: in.Resume})
	}
	return append(out, in.Resumes...)
}

func (pb *PromptBuilder) comparisonPayload(in models.AnalysisInputs) (string, error) {
	candidates := ComparisonCandidates(in)
	if len(candidates) < MinComparisonResumes || len(candidates) > MaxComparisonResumes {
		return "", models.NewValidationError("resumes",
			"comparison requires %d to %d resumes, got %d", MinComparisonResumes, MaxComparisonResumes, len(candidates))
	}

	var b strings.Builder
	for i, c := range candidates {
		if isBlank(c.Content) {
			return "", models.NewValidationError("resumes", "resume %d is empty", i+1)
		}
		if c.Name != "" {
			fmt.Fprintf(&b, "\n\nCANDIDATE %d (%s):\n%s", i+1, c.Name, c.Content)
		} else {
			fmt.Fprintf(&b, "\n\nCANDIDATE %d:\n%s", i+1, c.Content)
		}
	}
	fmt.Fprintf(&b, "\n\nJOB_DESCRIPTION:\n%s", in.JobDescription)
	return b.String(), nil
}

func (pb *PromptBuilder) predictorPayload(in models.AnalysisInputs) (string, error) {
	if len(in.Profiles) < MinReferenceProfiles {
		return "", models.NewValidationError("profiles",
			"success prediction requires at least %d reference profiles, got %d", MinReferenceProfiles, len(in.Profiles))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n\nCANDIDATE_RESUME:\n%s\n\nJOB_DESCRIPTION:\n%s", in.Resume, in.JobDescription)
	for i, p := range in.Profiles {
		if isBlank(p.Content) {
			return "", models.NewValidationError("profiles", "reference profile %q is empty", p.Name)
		}
		fmt.Fprintf(&b, "\n\nTOP_PERFORMER_%d:\nNAME: %s\nCONTENT:\n%s", i+1, p.Name, p.Content)
	}
	return b.String(), nil
}

func (pb *PromptBuilder) benchmarkPayload(in models.AnalysisInputs) (string, error) {
	roleName := pb.benchmarks.FindClosestRole(in.JobDescription)
	role, ok := pb.benchmarks.Role(roleName)
	if !ok {
		return "", fmt.Errorf("benchmark role %q not found", roleName)
	}
	return resumeAndJob(in) + "\n\n" + role.Summary(), nil
}

func (pb *PromptBuilder) coverLetterPayload(in models.AnalysisInputs) (string, error) {
	tone := defaultString(in.Tone, "professional")
	if !slices.Contains(coverLetterTones, tone) {
		return "", models.NewValidationError("tone", "tone must be one of %s", strings.Join(coverLetterTones, ", "))
	}
	length := defaultString(in.Length, "medium")
	if !slices.Contains(coverLetterLengths, length) {
		return "", models.NewValidationError("length", "length must be one of %s", strings.Join(coverLetterLengths, ", "))
	}
	company := defaultString(strings.TrimSpace(in.CompanyName), "Not provided")

	return fmt.Sprintf("%s\n\nCOMPANY_NAME: %s\n\nTONE: %s\n\nLENGTH: %s",
		resumeAndJob(in), company, tone, length), nil
}

func (pb *PromptBuilder) clusteringPayload(feature models.Feature, in models.AnalysisInputs) (string, error) {
	var extra []string
	for _, jd := range in.JobDescriptions {
		if !isBlank(jd) && jd != in.JobDescription {
			extra = append(extra, jd)
		}
	}
	if 1+len(extra) < MinClusteringJobs {
		return "", models.NewValidationError("job_descriptions",
			"job clustering requires at least %d job descriptions", MinClusteringJobs)
	}

	var b strings.Builder
	b.WriteString(taskPrefix(feature))
	b.WriteString(resumeAndJob(in))
	for i, jd := range extra {
		fmt.Fprintf(&b, "\n\nJOB_DESCRIPTION_%d:\n%s", i+2, jd)
	}
	return b.String(), nil
}

func taskPrefix(feature models.Feature) string {
	if feature.TaskType == "" {
		return ""
	}
	return "\n\nTASK_TYPE: " + feature.TaskType
}

// resumeAndJob renders the shared payload. The resume section is omitted
// only when no resume was supplied.
func resumeAndJob(in models.AnalysisInputs) string {
	if isBlank(in.Resume) {
		return "\n\nJOB_DESCRIPTION:\n" + in.JobDescription
	}
	return "\n\nRESUME:\n" + in.Resume + "\n\nJOB_DESCRIPTION:\n" + in.JobDescription
}

func containsResume(resumes []models.CandidateResume, content string) bool {
	for _, r := range resumes {
		if r.Content == content {
			return true
		}
	}
	return false
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
