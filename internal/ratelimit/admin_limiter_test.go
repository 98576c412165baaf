package ratelimit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newAdminTestRouter(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(AdminMiddleware(rps, burst, logger))
	router.POST("/v1/admin/rotate-due", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func doAdminRequest(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/rotate-due", nil)
	req.RemoteAddr = ip + ":51234"
	router.ServeHTTP(w, req)
	return w
}

func TestAdminMiddleware(t *testing.T) {
	t.Run("AllowsBurst", func(t *testing.T) {
		router := newAdminTestRouter(1, 3)

		for i := 0; i < 3; i++ {
			w := doAdminRequest(router, "203.0.113.1")
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("DeniesOverBurst", func(t *testing.T) {
		router := newAdminTestRouter(0.001, 2)

		doAdminRequest(router, "203.0.113.2")
		doAdminRequest(router, "203.0.113.2")
		w := doAdminRequest(router, "203.0.113.2")

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("CallersAreIndependent", func(t *testing.T) {
		router := newAdminTestRouter(0.001, 1)

		doAdminRequest(router, "203.0.113.3")
		denied := doAdminRequest(router, "203.0.113.3")
		other := doAdminRequest(router, "203.0.113.4")

		assert.Equal(t, http.StatusTooManyRequests, denied.Code)
		assert.Equal(t, http.StatusOK, other.Code)
	})
}
