package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/services"
)

var analyzeFlags struct {
	feature    string
	resume     string
	jd         string
	candidates []string
	profiles   []string
	company    string
	tone       string
	length     string
	backend    string
	model      string
	asJSON     bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis feature",
	Long: "Runs a feature against a resume and a job description. --resume and --jd accept\n" +
		"a file path (PDF, DOCX or plain text) or the text itself.",
	Example: "  resumeiq analyze --feature reviewer --resume cv.pdf --jd job.txt\n" +
		"  resumeiq analyze --feature comparison --jd job.txt --candidate a.pdf --candidate b.docx",
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.feature, "feature", "f", "reviewer", "feature id (see `resumeiq features`)")
	f.StringVarP(&analyzeFlags.resume, "resume", "r", "", "resume file or text")
	f.StringVarP(&analyzeFlags.jd, "jd", "j", "", "job description file or text")
	f.StringArrayVar(&analyzeFlags.candidates, "candidate", nil, "candidate resume file for comparison (repeatable)")
	f.StringArrayVar(&analyzeFlags.profiles, "profile", nil, "reference profile file for the success predictor (repeatable)")
	f.StringVar(&analyzeFlags.company, "company", "", "company name for the cover letter")
	f.StringVar(&analyzeFlags.tone, "tone", "", "cover letter tone: professional, enthusiastic or creative")
	f.StringVar(&analyzeFlags.length, "length", "", "cover letter length: short, medium or long")
	f.StringVarP(&analyzeFlags.backend, "backend", "b", "", "cloud or local (default from settings)")
	f.StringVarP(&analyzeFlags.model, "model", "m", "", "model name (default per backend)")
	f.BoolVar(&analyzeFlags.asJSON, "json", false, "print the raw normalized result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setupApp(ctx)
	if err != nil {
		return err
	}

	req := models.AnalysisRequest{
		Feature: models.FeatureID(analyzeFlags.feature),
		Backend: models.BackendKind(analyzeFlags.backend),
		Model:   analyzeFlags.model,
		AnalysisInputs: models.AnalysisInputs{
			CompanyName: analyzeFlags.company,
			Tone:        analyzeFlags.tone,
			Length:      analyzeFlags.length,
		},
	}
	if req.Backend != "" && req.Backend != models.BackendCloud && req.Backend != models.BackendLocal {
		return models.NewValidationError("backend", "must be cloud or local, got %q", req.Backend)
	}

	if req.Resume, err = readInput(a.extractor, analyzeFlags.resume); err != nil {
		return err
	}
	if req.JobDescription, err = readInput(a.extractor, analyzeFlags.jd); err != nil {
		return err
	}
	for _, path := range analyzeFlags.candidates {
		text, err := readInput(a.extractor, path)
		if err != nil {
			return err
		}
		req.Resumes = append(req.Resumes, models.CandidateResume{Name: baseName(path), Content: text})
	}
	for _, path := range analyzeFlags.profiles {
		text, err := readInput(a.extractor, path)
		if err != nil {
			return err
		}
		req.Profiles = append(req.Profiles, models.ReferenceProfile{Name: services.ProfileNameFromFile(path), Content: text})
	}

	feature, err := a.templates.Feature(req.Feature)
	if err != nil {
		return err
	}

	stop := spinner(fmt.Sprintf("Running %s", feature.Label))
	result, err := a.analyzer.Analyze(ctx, req)
	stop()
	if err != nil {
		return err
	}

	if analyzeFlags.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printView(services.Render(feature, result))
	return nil
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// spinner prints a status line on stderr until the returned func is called.
func spinner(msg string) func() {
	fmt.Fprintf(os.Stderr, "⏳ %s...", msg)
	return func() {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
}

func bandColor(band services.ScoreBand) *color.Color {
	switch band {
	case services.BandExcellent:
		return color.New(color.FgGreen, color.Bold)
	case services.BandGood:
		return color.New(color.FgCyan, color.Bold)
	case services.BandFair:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func printView(v services.View) {
	color.New(color.Bold).Printf("%s\n", v.Label)
	fmt.Println(strings.Repeat("─", 47))

	if v.Score != nil {
		fmt.Print("Score: ")
		bandColor(v.Band).Printf("%.0f/100 (%s)\n", *v.Score, v.Band)
	}

	for _, h := range v.Highlights {
		color.New(color.FgHiBlack).Printf("%s: ", h.Label)
		fmt.Println(h.Value)
	}

	switch {
	case v.Format == models.FormatText:
		color.Yellow("\nThe model did not return JSON; showing the raw reply.\n")
		fmt.Println(v.Text)
	case len(v.Highlights) == 0:
		raw, err := json.MarshalIndent(v.Data, "", "  ")
		if err == nil {
			fmt.Println(string(raw))
		}
	}
}
