package controller

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// errorBody is the JSON error envelope every endpoint uses
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message  string            `json:"message"`
	TextCode string            `json:"text_code,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// renderError maps any error onto the JSON envelope. Rich errors carry
// their own HTTP status code; validation errors become a field map; anything
// else is a masked 500.
func renderError(c *fiber.Ctx, err error) error {
	if fields, ok := validationFields(err); ok {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{
			Error: errorDetail{
				Message:  "validation failed",
				TextCode: "VALIDATION",
				Fields:   fields,
			},
		})
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = statusForCategory(richErr.Category)
	}

	message := richErr.Message
	if status >= fiber.StatusInternalServerError {
		message = "An unexpected server error occurred"
	}

	return c.Status(status).JSON(errorBody{
		Error: errorDetail{
			Message:  message,
			TextCode: richErr.TextCode,
		},
	})
}

func validationFields(err error) (map[string]string, bool) {
	verr, ok := err.(validation.Errors)
	if !ok {
		return nil, false
	}
	fields := make(map[string]string, len(verr))
	for name, ferr := range verr {
		fields[name] = ferr.Error()
	}
	return fields, true
}

func statusForCategory(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return fiber.StatusUnauthorized
	case errors.CategoryAuthz:
		return fiber.StatusForbidden
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	case errors.CategoryConflict:
		return fiber.StatusConflict
	case errors.CategoryBadInput, errors.CategoryValidation:
		return fiber.StatusBadRequest
	case errors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
