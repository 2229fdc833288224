package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/services"
)

type SettingsHandler struct {
	settings services.SettingsStore
}

func NewSettingsHandler(settings services.SettingsStore) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
	}
}

// HandleGet handles GET /settings
func (h *SettingsHandler) HandleGet(c *fiber.Ctx) error {
	return c.JSON(h.settings.Get())
}

// HandleUpdate handles PUT /settings. Omitted fields keep their value.
func (h *SettingsHandler) HandleUpdate(c *fiber.Ctx) error {
	var req models.SettingsUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	settings, err := h.settings.Update(req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(settings)
}
