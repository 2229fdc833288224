package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"alfredoptarigan/resumeiq/internal/config"
	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/pkg/logger"
	"alfredoptarigan/resumeiq/internal/repositories"
	"alfredoptarigan/resumeiq/internal/services"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:           "resumeiq",
	Short:         "Resume optimization assistant",
	Long:          "ResumeIQ analyzes a resume against a job description with a cloud or local LLM.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cliLog != nil {
			_ = cliLog.Sync()
		}
	},
}

var cliLog *logger.ZapLogger

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log dispatches to stderr")
}

// app bundles what the subcommands need. State lives in a private in-memory
// database, so nothing persists between invocations.
type app struct {
	cfg       *config.Config
	templates services.TemplateStore
	analyzer  services.AnalyzerService
	extractor services.TextExtractor
}

func setupApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cliLog = logger.NewNop()
	if debug {
		cliLog = logger.NewZapLogger(cfg.Log.File, false)
	}

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open scratch database: %w", err)
	}
	if err := config.Migrate(db); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.LLM.Timeout}
	local := services.NewOllamaBackend(cfg.Local.URL, cfg.Local.Model, httpClient)

	var cloud services.GenerationBackend
	switch cfg.Cloud.Provider {
	case "gemini":
		gemini, err := services.NewGeminiBackend(ctx, cfg.Cloud.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		cloud = gemini
	default:
		cloud = services.NewOpenAIBackend(cfg.Cloud.OpenAIBaseURL, cfg.Cloud.OpenAIAPIKey, httpClient)
	}

	dispatcher := services.NewDispatcher(
		[]services.GenerationBackend{cloud, local},
		services.NewResponseNormalizer(),
		services.DispatchOptions{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			StrictJSON:  cfg.LLM.StrictJSON,
		},
		cliLog,
	)

	settings, err := services.NewSettingsStore(repositories.NewSettingsRepository(db), dispatcher, models.Settings{
		LocalModel: cfg.Local.Model,
		CloudModel: cloud.DefaultModel(),
	})
	if err != nil {
		return nil, err
	}

	templates, err := services.NewTemplateStore()
	if err != nil {
		return nil, err
	}
	benchmarks, err := services.LoadBenchmarkTable()
	if err != nil {
		return nil, err
	}

	extractor := services.NewTextExtractor()
	profiles := services.NewProfileService(repositories.NewProfileRepository(db), extractor, nil, cliLog)

	return &app{
		cfg:       cfg,
		templates: templates,
		extractor: extractor,
		analyzer: services.NewAnalyzerService(
			repositories.NewSessionRepository(db),
			templates,
			services.NewPromptBuilder(templates, benchmarks),
			dispatcher,
			settings,
			profiles,
			cliLog,
		),
	}, nil
}

// readInput treats arg as a file path when it names an existing file and as
// literal text otherwise. PDF and DOCX files go through the extractor.
func readInput(extractor services.TextExtractor, arg string) (string, error) {
	if arg == "" {
		return "", nil
	}

	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return arg, nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", arg, err)
	}

	switch strings.ToLower(filepath.Ext(arg)) {
	case ".pdf", ".docx":
		return extractor.Extract(filepath.Base(arg), "", data)
	default:
		return string(data), nil
	}
}
