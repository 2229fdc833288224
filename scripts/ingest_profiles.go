package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"alfredoptarigan/resumeiq/internal/config"
	"alfredoptarigan/resumeiq/internal/pkg/logger"
	"alfredoptarigan/resumeiq/internal/repositories"
	"alfredoptarigan/resumeiq/internal/services"
)

// Loads every PDF and DOCX in a directory (default ./reference_profiles) as a
// reference profile, then re-indexes all stored profiles in Qdrant.
//
//	go run ./scripts/ingest_profiles.go [dir]
func main() {
	log.Println("🚀 Starting reference profile ingestion...")

	cfg := config.Load()
	ctx := context.Background()

	dir := "./reference_profiles"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	gemini, err := services.NewGeminiBackend(ctx, cfg.Cloud.GeminiAPIKey)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}

	index := services.NewNopProfileIndex()
	if cfg.Qdrant.URL != "" && gemini.Configured() {
		store, err := services.NewQdrantStore(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection)
		if err != nil {
			log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
		}
		if err := store.EnsureCollection(ctx); err != nil {
			log.Fatalf("❌ Failed to initialize collection: %v", err)
		}
		index = services.NewProfileIndex(store, gemini, services.NewTextChunker())
	} else {
		log.Println("⚠️  QDRANT_URL or GEMINI_API_KEY not set: profiles are stored but not indexed")
	}

	profileLog := logger.NewZapLogger(cfg.Log.File, cfg.IsProduction())
	defer profileLog.Sync()

	profiles := services.NewProfileService(
		repositories.NewProfileRepository(db),
		services.NewTextExtractor(),
		index,
		profileLog,
	)

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("❌ Failed to read %s: %v", dir, err)
	}

	successCount := 0
	failCount := 0

	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".pdf" && ext != ".docx") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		log.Printf("\n📄 Processing: %s", path)

		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("   ❌ Failed to read file: %v", err)
			failCount++
			continue
		}

		profile, err := profiles.AddFromFile(ctx, entry.Name(), "", data)
		if err != nil {
			log.Printf("   ❌ Failed to add profile: %v", err)
			failCount++
			continue
		}

		log.Printf("   ✅ Stored %q (%d characters)", profile.Name, len(profile.Content))
		successCount++
	}

	if index.Enabled() {
		stored, err := profiles.List()
		if err != nil {
			log.Fatalf("❌ Failed to list profiles: %v", err)
		}
		log.Printf("\n🔄 Re-indexing %d stored profiles...", len(stored))
		for _, p := range stored {
			if err := index.RemoveProfile(ctx, p.ID); err != nil {
				log.Printf("   ❌ Failed to clear old points of %q: %v", p.Name, err)
				continue
			}
			if err := index.IndexProfile(ctx, p); err != nil {
				log.Printf("   ❌ Failed to index %q: %v", p.Name, err)
			}
		}
	}

	log.Printf("\n✅ Ingestion complete: %d added, %d failed", successCount, failCount)
}
