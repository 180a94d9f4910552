package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "garage_door", Slugify("Garage Door"))
	assert.Equal(t, "forecast_apparent_temperature", Slugify("Forecast Apparent Temperature"))
	assert.Equal(t, "wind_speed_2", Slugify(" Wind-Speed (2) "))
	assert.Equal(t, "", Slugify("---"))
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrCodeValidationInvalidUnits.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, ErrCodeAuthPasswordInvalid.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, ErrCodeNotFoundEntity.HTTPStatus())
	assert.Equal(t, http.StatusConflict, ErrCodeConflictNotADoor.HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, ErrCodeUpstreamForecast.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrCodeInternalRecorder.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrorCode("something_else").HTTPStatus())
}

func TestAppErrorChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAppError(ErrCodeUpstreamForecast, "forecast fetch failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upstream_forecast_unavailable")
	assert.Contains(t, err.Error(), "connection refused")

	var appErr *AppError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &appErr))
	assert.Equal(t, ErrCodeUpstreamForecast, appErr.Code)
}

func TestSecretStringRedaction(t *testing.T) {
	secret := SecretString("super-secret-key")

	assert.Equal(t, "***REDACTED***", secret.String())
	assert.Equal(t, "***REDACTED***", fmt.Sprintf("%v", secret))
	assert.Equal(t, "super-secret-key", secret.Unmask())

	out, err := json.Marshal(struct {
		Key SecretString `json:"key"`
	}{Key: secret})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "super-secret-key")
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}
