package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/services"
)

type SessionHandler struct {
	analyzer services.AnalyzerService
	worker   services.Worker
}

func NewSessionHandler(analyzer services.AnalyzerService, worker services.Worker) *SessionHandler {
	return &SessionHandler{
		analyzer: analyzer,
		worker:   worker,
	}
}

// HandleCreate handles POST /sessions
func (h *SessionHandler) HandleCreate(c *fiber.Ctx) error {
	var inputs models.AnalysisInputs
	if err := parseBody(c, &inputs); err != nil {
		return respondError(c, err)
	}

	session, err := h.analyzer.CreateSession(inputs)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         session.ID,
		"created_at": session.CreatedAt,
	})
}

// HandleRun handles POST /sessions/:id/run. Runs are queued and picked up by
// the worker; poll GET /sessions/:id for results.
func (h *SessionHandler) HandleRun(c *fiber.Ctx) error {
	sessionID, err := sessionIDParam(c)
	if err != nil {
		return respondError(c, err)
	}

	var req models.RunFeaturesRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	runs, err := h.analyzer.RunFeatures(sessionID, req)
	if err != nil {
		return respondError(c, err)
	}

	for _, run := range runs {
		h.worker.EnqueueRun(run.ID)
	}

	return c.Status(fiber.StatusAccepted).JSON(models.RunFeaturesResponse{
		SessionID: sessionID,
		Runs:      runs,
	})
}

// HandleGet handles GET /sessions/:id
func (h *SessionHandler) HandleGet(c *fiber.Ctx) error {
	sessionID, err := sessionIDParam(c)
	if err != nil {
		return respondError(c, err)
	}

	session, err := h.analyzer.GetSession(sessionID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(session)
}

func sessionIDParam(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", models.NewValidationError("id", "invalid session ID format")
	}
	return id, nil
}
