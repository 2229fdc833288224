package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups every resource handler mounted under /api/v1.
type Handlers struct {
	Analyze  *AnalyzeHandler
	Session  *SessionHandler
	Upload   *UploadHandler
	Profile  *ProfileHandler
	Settings *SettingsHandler
	Export   *ExportHandler
}

// Register mounts the API routes on router. limit guards the endpoints that
// reach a generation backend.
func Register(router fiber.Router, h *Handlers, limit fiber.Handler) {
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Health check
	router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	router.Get("/features", h.Analyze.HandleFeatures)
	router.Get("/models/status", h.Analyze.HandleStatus)
	router.Post("/analyze", limit, h.Analyze.HandleAnalyze)

	router.Post("/sessions", h.Session.HandleCreate)
	router.Post("/sessions/:id/run", limit, h.Session.HandleRun)
	router.Get("/sessions/:id", h.Session.HandleGet)

	router.Post("/extract", h.Upload.HandleExtract)

	router.Get("/settings", h.Settings.HandleGet)
	router.Put("/settings", h.Settings.HandleUpdate)

	router.Get("/profiles", h.Profile.HandleList)
	router.Post("/profiles", h.Profile.HandleUpload)
	router.Post("/profiles/similar", h.Profile.HandleSimilar)
	router.Delete("/profiles/:id", h.Profile.HandleDelete)
	router.Delete("/profiles", h.Profile.HandleDeleteAll)

	router.Post("/exports/cover-letter", h.Export.HandleCoverLetter)
	router.Post("/exports/resume", h.Export.HandleResume)
	router.Post("/exports/report", h.Export.HandleReport)
	router.Get("/exports/:name", h.Export.HandleDownload)
}
