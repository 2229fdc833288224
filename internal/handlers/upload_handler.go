package handlers

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resumeiq/internal/models"
	"alfredoptarigan/resumeiq/internal/services"
)

type UploadHandler struct {
	extractor   services.TextExtractor
	maxFileSize int64
}

func NewUploadHandler(extractor services.TextExtractor, maxFileSize int64) *UploadHandler {
	return &UploadHandler{
		extractor:   extractor,
		maxFileSize: maxFileSize,
	}
}

// HandleExtract handles POST /extract. A single "file" part returns one
// document; "files" parts return a list. Any failing file fails the request.
func (h *UploadHandler) HandleExtract(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, models.NewValidationError("", "failed to parse multipart form"))
	}

	if files, exists := form.File["file"]; exists && len(files) > 0 {
		doc, err := h.extract(files[0])
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	}

	files := form.File["files"]
	if len(files) == 0 {
		return respondError(c, models.NewValidationError("file", "no file uploaded. Please upload 'file' or 'files' as PDF or DOCX"))
	}

	documents := make([]models.ExtractResponse, 0, len(files))
	for _, file := range files {
		doc, err := h.extract(file)
		if err != nil {
			return respondError(c, err)
		}
		documents = append(documents, *doc)
	}

	return c.JSON(fiber.Map{
		"documents": documents,
	})
}

func (h *UploadHandler) extract(file *multipart.FileHeader) (*models.ExtractResponse, error) {
	data, err := readUpload(file, h.maxFileSize)
	if err != nil {
		return nil, err
	}

	text, err := h.extractor.Extract(file.Filename, file.Header.Get(fiber.HeaderContentType), data)
	if err != nil {
		return nil, err
	}

	return &models.ExtractResponse{
		Filename: file.Filename,
		Text:     text,
		Chars:    len([]rune(text)),
	}, nil
}

// readUpload loads a multipart file into memory, enforcing maxSize.
func readUpload(file *multipart.FileHeader, maxSize int64) ([]byte, error) {
	if maxSize > 0 && file.Size > maxSize {
		return nil, tooLarge(file.Filename, maxSize)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return data, nil
}
