package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/meetscribe/backend/config"
)

func newTestRouter(cfg config.ServerConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/meetings", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := newTestRouter(config.ServerConfig{CORSAllowedOrigins: "http://localhost:5173"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/meetings", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Disposition", w.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	r := newTestRouter(config.ServerConfig{CORSAllowedOrigins: "http://localhost:5173"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/meetings", nil)
	req.Header.Set("Origin", "http://evil.example")
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	r := newTestRouter(config.ServerConfig{CORSAllowedOrigins: "*"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/meetings", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
