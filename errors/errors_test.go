package errors_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crudErrors "github.com/qolzam/telar/apps/crud/errors"
)

func TestError_Error(t *testing.T) {
	err := crudErrors.NewConfigurationError("no allowed fields for %s", "ordering")
	assert.Equal(t, "CONFIGURATION_ERROR: no allowed fields for ordering", err.Error())

	cause := errors.New("insert failed")
	txErr := crudErrors.NewTransactionFailed(cause)
	assert.Contains(t, txErr.Error(), "TRANSACTION_FAILED: transaction rolled back")
	assert.Contains(t, txErr.Error(), "insert failed")
}

func TestError_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("insert failed")
	err := crudErrors.NewTransactionFailed(cause)

	assert.ErrorIs(t, err, crudErrors.ErrTransactionFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, crudErrors.ErrEntityNotFound)

	notFound := crudErrors.NewEntityNotFound("product", 7)
	assert.True(t, crudErrors.IsNotFound(notFound))
	assert.Equal(t, "7", notFound.Details)
}

func TestValidationError(t *testing.T) {
	err := crudErrors.NewValidationError(
		crudErrors.Violation{Property: "name", Constraints: map[string]string{"required": "name is required"}},
		crudErrors.Violation{Property: "dimensions", Children: []crudErrors.Violation{
			{Property: "width", Value: -1, Constraints: map[string]string{"gt": "width must be greater than 0"}},
		}},
	)

	assert.ErrorIs(t, err, crudErrors.ErrValidationFailed)
	assert.Equal(t, []string{"name", "dimensions"}, err.Properties())
	assert.Equal(t, "validation failed: name (required); dimensions.width (gt)", err.Error())
}

func TestEventsFailedError(t *testing.T) {
	boom := errors.New("boom")
	err := &crudErrors.EventsFailedError{
		Event:    "product.created",
		Failures: []crudErrors.HandlerFailure{{Handler: "notifier", Err: boom}},
	}

	assert.ErrorIs(t, err, crudErrors.ErrEventsFailed)
	assert.ErrorIs(t, err, boom)
	assert.False(t, crudErrors.Committed(err))
	assert.Contains(t, err.Error(), "1 handler(s) failed for product.created: notifier: boom")

	err.Committed = true
	assert.True(t, crudErrors.Committed(err))
	assert.False(t, crudErrors.Committed(boom))
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", crudErrors.NewValidationError(crudErrors.Violation{Property: "name"}), 400, crudErrors.CodeValidationFailed},
		{"validation inside transaction", crudErrors.NewTransactionFailed(crudErrors.NewValidationError(crudErrors.Violation{Property: "sku"})), 400, crudErrors.CodeValidationFailed},
		{"permission", crudErrors.NewPermissionDenied("update denied"), 403, crudErrors.CodePermissionDenied},
		{"not found", crudErrors.NewEntityNotFound("product", 1), 404, crudErrors.CodeEntityNotFound},
		{"configuration", crudErrors.NewConfigurationError("bad wiring"), 500, crudErrors.CodeConfiguration},
		{"transaction", crudErrors.NewTransactionFailed(errors.New("disk full")), 500, crudErrors.CodeTransactionFailed},
		{"events", &crudErrors.EventsFailedError{Event: "product.created", Failures: []crudErrors.HandlerFailure{{Handler: "h", Err: errors.New("x")}}}, 502, crudErrors.CodeEventsFailed},
		{"unknown", errors.New("surprise"), 500, crudErrors.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return crudErrors.HandleServiceError(c, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var body crudErrors.ErrorResponse
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestHasKind(t *testing.T) {
	assert.True(t, crudErrors.HasKind(crudErrors.NewEntityNotFound("product", "42")))
	assert.True(t, crudErrors.HasKind(fmt.Errorf("load: %w", crudErrors.NewPermissionDenied("no"))))
	assert.True(t, crudErrors.HasKind(&crudErrors.EventsFailedError{Event: "product.created"}))
	assert.False(t, crudErrors.HasKind(errors.New("connection reset")))
	assert.False(t, crudErrors.HasKind(nil))
}
