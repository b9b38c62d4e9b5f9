package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestProfiling_LabelsRoute(t *testing.T) {
	var route, method string
	var labelled bool

	r := gin.New()
	r.Use(ProfilingWithConfig(ProfilingConfig{Enabled: true, SkipPaths: []string{"/health"}}))
	handler := func(c *gin.Context) {
		route, labelled = pprof.Label(c.Request.Context(), "route")
		method, _ = pprof.Label(c.Request.Context(), "method")
		c.Status(http.StatusNoContent)
	}
	r.GET("/reservations/:id", handler)
	r.GET("/health", handler)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/reservations/7", nil))
	assert.True(t, labelled)
	assert.Equal(t, "/reservations/:id", route)
	assert.Equal(t, http.MethodGet, method)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.False(t, labelled)
}

func TestProfiling_Disabled(t *testing.T) {
	var labelled bool
	r := gin.New()
	r.Use(ProfilingWithConfig(ProfilingConfig{}))
	r.GET("/quotes", func(c *gin.Context) {
		_, labelled = pprof.Label(c.Request.Context(), "route")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/quotes", nil))
	assert.False(t, labelled)
}
