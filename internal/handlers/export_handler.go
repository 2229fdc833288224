package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/services"
)

type ExportHandler struct {
	exporter services.ExportService
}

func NewExportHandler(exporter services.ExportService) *ExportHandler {
	return &ExportHandler{
		exporter: exporter,
	}
}

// HandleCoverLetter handles POST /exports/cover-letter
func (h *ExportHandler) HandleCoverLetter(c *fiber.Ctx) error {
	var req models.CoverLetterExportRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	resp, err := h.exporter.CoverLetter(req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleResume handles POST /exports/resume
func (h *ExportHandler) HandleResume(c *fiber.Ctx) error {
	var req models.ResumeExportRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	resp, err := h.exporter.Resume(req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleReport handles POST /exports/report
func (h *ExportHandler) HandleReport(c *fiber.Ctx) error {
	var req models.ReportExportRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	resp, err := h.exporter.Report(req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleDownload handles GET /exports/:name
func (h *ExportHandler) HandleDownload(c *fiber.Ctx) error {
	name := c.Params("name")
	path, contentType, err := h.exporter.Open(name)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, contentType)
	return c.Download(path, name)
}
