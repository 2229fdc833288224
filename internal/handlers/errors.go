package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"alfredoptarigan/resumeiq/internal/models"
)

var validate = validator.New()

// StatusForError maps the error taxonomy onto HTTP status codes.
func StatusForError(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	switch models.ErrorKind(err) {
	case "validation_error":
		return fiber.StatusBadRequest
	case "unsupported_format":
		return fiber.StatusUnsupportedMediaType
	case "parse_error":
		return fiber.StatusUnprocessableEntity
	case "configuration_error":
		return fiber.StatusServiceUnavailable
	case "backend_error":
		return fiber.StatusBadGateway
	case "rate_limited":
		return fiber.StatusTooManyRequests
	case "not_found":
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the single JSON error body every endpoint uses.
func respondError(c *fiber.Ctx, err error) error {
	code := StatusForError(err)
	kind := models.ErrorKind(err)
	if kind == "internal" && code != fiber.StatusInternalServerError {
		// Framework errors such as 413 or 405 are typed by their status text.
		kind = strings.ToLower(strings.ReplaceAll(utils.StatusMessage(code), " ", "_"))
	}

	var rateErr *models.RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(rateErr.RetryAfter.Seconds())))
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
		"type":  kind,
	})
}

// ErrorHandler is the app-level fallback for errors returned by handlers
// and middleware.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return respondError(c, err)
}

// parseBody decodes the JSON body into req and runs its validate tags.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return models.NewValidationError("", "invalid request payload: %v", err)
	}
	return validateStruct(req)
}

func validateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return models.NewValidationError("", "invalid request: %v", err)
	}

	first := fieldErrs[0]
	field := jsonFieldPath(first.Namespace())
	switch first.Tag() {
	case "required":
		return models.NewValidationError(field, "is required")
	case "oneof":
		return models.NewValidationError(field, "must be one of [%s]", first.Param())
	case "min", "max":
		return models.NewValidationError(field, "must satisfy %s=%s", first.Tag(), first.Param())
	default:
		return models.NewValidationError(field, "failed %s validation", first.Tag())
	}
}

// jsonFieldPath turns "AnalysisRequest.AnalysisInputs.Tone" into "tone".
func jsonFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	var out []string
	for _, p := range parts {
		if p == "AnalysisInputs" {
			continue
		}
		out = append(out, toSnake(p))
	}
	return strings.Join(out, ".")
}

func toSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && (runes[i-1] < 'A' || runes[i-1] > 'Z') && runes[i-1] != '[' {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func tooLarge(filename string, max int64) error {
	return models.NewValidationError("file", "%s is too large. Max size: %d bytes", filename, max)
}
