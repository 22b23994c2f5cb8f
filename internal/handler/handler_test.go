package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/studyquest-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
	"github.com/yourusername/studyquest-api/internal/service"
	"github.com/yourusername/studyquest-api/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestGinContext создает *gin.Context для тестов с JSON body
func newTestGinContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()

	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

// newAuthedContext дополнительно выставляет пользователя и числовой параметр, как это делают middleware
func newAuthedContext(method, path string, body interface{}, userID uint, key string, id uint) (*gin.Context, *httptest.ResponseRecorder) {
	c, w := newTestGinContext(method, path, body)
	c.Set("user_id", userID)
	if key != "" {
		c.Set(key, id)
	}
	return c, w
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

// ============================================================================
// handleError
// ============================================================================

func TestHandleError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("quiz #1: %w", apperrors.ErrNotFound), http.StatusNotFound},
		{"invalid state", repository.ErrAttemptAlreadyCompleted, http.StatusConflict},
		{"conflict", repository.ErrProfileVersionConflict, http.StatusConflict},
		{"validation", fmt.Errorf("%w: bad", apperrors.ErrValidation), http.StatusUnprocessableEntity},
		{"external service", fmt.Errorf("%w: llm down", apperrors.ErrExternalService), http.StatusBadGateway},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized},
		{"expired token", apperrors.ErrExpiredToken, http.StatusUnauthorized},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestGinContext("GET", "/", nil)
			handleError(c, logger.NewNop(), tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := parseJSONResponse(t, w)
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestHandleError_QuizExists(t *testing.T) {
	c, w := newTestGinContext("POST", "/", nil)
	handleError(c, logger.NewNop(), &service.QuizExistsError{QuizID: 12})

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, float64(12), resp["quiz_id"], "Клиент получает ID существующего квиза")
}

func TestHandleError_InternalDoesNotLeakDetails(t *testing.T) {
	c, w := newTestGinContext("GET", "/", nil)
	handleError(c, logger.NewNop(), errors.New("pq: password authentication failed"))

	resp := parseJSONResponse(t, w)
	assert.Equal(t, "Internal server error", resp["error"])
}
