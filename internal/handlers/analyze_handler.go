package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/services"
)

type AnalyzeHandler struct {
	analyzer services.AnalyzerService
	status   services.StatusService
}

func NewAnalyzeHandler(analyzer services.AnalyzerService, status services.StatusService) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
		status:   status,
	}
}

// HandleAnalyze handles POST /analyze. The feature runs synchronously and the
// normalized result is returned in the response.
func (h *AnalyzeHandler) HandleAnalyze(c *fiber.Ctx) error {
	var req models.AnalysisRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.analyzer.Analyze(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(result)
}

// HandleFeatures handles GET /features
func (h *AnalyzeHandler) HandleFeatures(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"features": h.analyzer.Features(),
	})
}

// HandleStatus handles GET /models/status
func (h *AnalyzeHandler) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(h.status.Status(c.UserContext()))
}
