package httputil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/keycore/internal/errors"
)

func TestMakeJSONResponse(t *testing.T) {
	tests := []struct {
		name         string
		body         interface{}
		statusCode   int
		expectedBody string
	}{
		{
			name:         "success response",
			body:         map[string]string{"status": "ok"},
			statusCode:   http.StatusOK,
			expectedBody: `{"status":"ok"}`,
		},
		{
			name:         "error response",
			body:         map[string]string{"error": "something went wrong"},
			statusCode:   http.StatusInternalServerError,
			expectedBody: `{"error":"something went wrong"}`,
		},
		{
			name: "complex object",
			body: map[string]interface{}{
				"id":   1,
				"name": "Test",
				"data": map[string]string{"key": "value"},
			},
			statusCode:   http.StatusOK,
			expectedBody: `{"data":{"key":"value"},"id":1,"name":"Test"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			MakeJSONResponse(w, tt.statusCode, tt.body)

			assert.Equal(t, tt.statusCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestHandleErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name         string
		err          error
		statusCode   int
		expectedCode string
	}{
		{
			name:         "not found",
			err:          apperrors.ErrNotFound,
			statusCode:   http.StatusNotFound,
			expectedCode: "not_found",
		},
		{
			name:         "conflict",
			err:          apperrors.ErrConflict,
			statusCode:   http.StatusConflict,
			expectedCode: "conflict",
		},
		{
			name:         "invalid input",
			err:          apperrors.Wrap(apperrors.ErrInvalidInput, "bad payload"),
			statusCode:   http.StatusUnprocessableEntity,
			expectedCode: "invalid_input",
		},
		{
			name:         "rate limited",
			err:          apperrors.ErrRateLimited,
			statusCode:   http.StatusTooManyRequests,
			expectedCode: "rate_limit_exceeded",
		},
		{
			name:         "key service",
			err:          apperrors.Wrap(apperrors.ErrKeyService, "oracle unreachable"),
			statusCode:   http.StatusBadGateway,
			expectedCode: "key_service_error",
		},
		{
			name:         "storage",
			err:          apperrors.ErrStorage,
			statusCode:   http.StatusBadGateway,
			expectedCode: "storage_error",
		},
		{
			name:         "unknown error hides details",
			err:          assert.AnError,
			statusCode:   http.StatusInternalServerError,
			expectedCode: "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			HandleErrorGin(c, tt.err, logger)

			assert.Equal(t, tt.statusCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedCode)
		})
	}
}

func TestHandleErrorGin_NilError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleErrorGin(c, nil, nil)

	assert.Empty(t, w.Body.String())
}
