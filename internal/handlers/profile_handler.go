package handlers

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/services"
)

type ProfileHandler struct {
	profiles    services.ProfileService
	maxFileSize int64
}

func NewProfileHandler(profiles services.ProfileService, maxFileSize int64) *ProfileHandler {
	return &ProfileHandler{
		profiles:    profiles,
		maxFileSize: maxFileSize,
	}
}

type uploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
	Type     string `json:"type"`
}

// HandleList handles GET /profiles
func (h *ProfileHandler) HandleList(c *fiber.Ctx) error {
	profiles, err := h.profiles.List()
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"profiles": profiles,
		"count":    len(profiles),
		"max":      models.MaxReferenceProfiles,
	})
}

// HandleUpload handles POST /profiles. Multipart "files" are extracted and
// stored one by one; a JSON body {name, content} adds a pasted profile.
func (h *ProfileHandler) HandleUpload(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var req models.ReferenceProfile
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		profile, err := h.profiles.Add(c.UserContext(), req.Name, req.Content)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"profiles": []*models.ReferenceProfile{profile},
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, models.NewValidationError("", "failed to parse multipart form"))
	}

	files := form.File["files"]
	if len(files) == 0 {
		return respondError(c, models.NewValidationError("files", "no files uploaded. Please upload 'files' as PDF or DOCX"))
	}

	var (
		created  []*models.ReferenceProfile
		failures []uploadFailure
		firstErr error
	)
	for _, file := range files {
		profile, err := h.addFile(c.UserContext(), file)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failures = append(failures, uploadFailure{
				Filename: file.Filename,
				Error:    err.Error(),
				Type:     models.ErrorKind(err),
			})
			continue
		}
		created = append(created, profile)
	}

	if len(created) == 0 {
		return respondError(c, firstErr)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"profiles": created,
		"failed":   failures,
	})
}

func (h *ProfileHandler) addFile(ctx context.Context, file *multipart.FileHeader) (*models.ReferenceProfile, error) {
	data, err := readUpload(file, h.maxFileSize)
	if err != nil {
		return nil, err
	}
	return h.profiles.AddFromFile(ctx, file.Filename, file.Header.Get(fiber.HeaderContentType), data)
}

// HandleDelete handles DELETE /profiles/:id
func (h *ProfileHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.profiles.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleDeleteAll handles DELETE /profiles
func (h *ProfileHandler) HandleDeleteAll(c *fiber.Ctx) error {
	deleted, err := h.profiles.Clear(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"deleted": deleted,
	})
}

// HandleSimilar handles POST /profiles/similar
func (h *ProfileHandler) HandleSimilar(c *fiber.Ctx) error {
	var req models.SimilarProfilesRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	matches, err := h.profiles.Similar(c.UserContext(), req.Resume, req.Limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"profiles": matches,
	})
}
