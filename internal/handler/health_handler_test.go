package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/studyquest-api/internal/testutil"
)

func TestHealthHandler(t *testing.T) {
	t.Run("database ok, redis disabled", func(t *testing.T) {
		h := NewHealthHandler(testutil.NewDB(t), nil)
		c, w := newTestGinContext(http.MethodGet, "/health", nil)

		h.Health(c)

		assert.Equal(t, http.StatusOK, w.Code)
		body := parseJSONResponse(t, w)
		assert.Equal(t, "ok", body["status"])
		checks := body["checks"].(map[string]interface{})
		assert.Equal(t, "ok", checks["database"])
		assert.Equal(t, "disabled", checks["redis"])
	})

	t.Run("redis unreachable is degraded", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
		defer client.Close()
		h := NewHealthHandler(testutil.NewDB(t), client)
		c, w := newTestGinContext(http.MethodGet, "/health", nil)

		h.Health(c)

		assert.Equal(t, http.StatusOK, w.Code)
		body := parseJSONResponse(t, w)
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "unreachable", body["checks"].(map[string]interface{})["redis"])
	})

	t.Run("database closed", func(t *testing.T) {
		db := testutil.NewDB(t)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		h := NewHealthHandler(db, nil)
		c, w := newTestGinContext(http.MethodGet, "/health", nil)

		h.Health(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unavailable", parseJSONResponse(t, w)["status"])
	})
}
