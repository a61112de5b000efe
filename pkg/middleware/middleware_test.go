package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"ecrwatch/internal/logger"
	"ecrwatch/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		seen = logging.GetTraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-1", seen)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRecoveryAndLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := logger.FromZap(zap.New(core))

	router := gin.New()
	router.Use(RequestIDMiddleware(), LoggerMiddleware(log), RecoveryMiddleware(log))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
	assert.Equal(t, 1, logs.FilterMessage("HTTP Request").Len())
}
