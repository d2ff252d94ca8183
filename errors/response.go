package errors

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type failureDetail struct {
	Handler string `json:"handler"`
	Error   string `json:"error"`
}

// HandleServiceError maps engine errors to HTTP responses
func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	var validationErr *ValidationError
	var eventsErr *EventsFailedError

	switch {
	case errors.As(err, &validationErr):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Code:    CodeValidationFailed,
			Message: "Validation failed",
			Details: validationErr.Violations,
		})
	case errors.Is(err, ErrPermissionDenied):
		return c.Status(http.StatusForbidden).JSON(ErrorResponse{
			Code:    CodePermissionDenied,
			Message: "Permission denied",
			Details: err.Error(),
		})
	case errors.Is(err, ErrEntityNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Code:    CodeEntityNotFound,
			Message: "Entity not found",
			Details: err.Error(),
		})
	case errors.Is(err, ErrConfiguration):
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    CodeConfiguration,
			Message: "Server misconfigured",
			Details: err.Error(),
		})
	case errors.Is(err, ErrTransactionFailed):
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    CodeTransactionFailed,
			Message: "Operation rolled back",
			Details: err.Error(),
		})
	case errors.As(err, &eventsErr):
		details := make([]failureDetail, 0, len(eventsErr.Failures))
		for _, f := range eventsErr.Failures {
			details = append(details, failureDetail{Handler: f.Handler, Error: f.Err.Error()})
		}
		return c.Status(http.StatusBadGateway).JSON(ErrorResponse{
			Code:    CodeEventsFailed,
			Message: "Notifications incomplete",
			Details: details,
		})
	default:
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    CodeInternalError,
			Message: "Internal server error",
			Details: err.Error(),
		})
	}
}
