package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerRouter(cfg SwaggerConfig) *gin.Engine {
	r := gin.New()
	r.GET("/swagger/*any", SwaggerProtection(cfg), func(c *gin.Context) { c.String(http.StatusOK, "docs") })
	return r
}

func swaggerRequest(r *gin.Engine, remote string) int {
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestSwaggerProtection(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, swaggerRequest(swaggerRouter(SwaggerConfig{}), "10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, swaggerRequest(swaggerRouter(SwaggerConfig{Enabled: true}), "10.0.0.1:1234"))

	restricted := swaggerRouter(SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.1.0.0/16", "192.168.1.7", "bogus"}})
	assert.Equal(t, http.StatusOK, swaggerRequest(restricted, "10.1.44.2:1234"))
	assert.Equal(t, http.StatusOK, swaggerRequest(restricted, "192.168.1.7:1234"))
	assert.Equal(t, http.StatusForbidden, swaggerRequest(restricted, "192.168.1.8:1234"))
}

func TestSwaggerProtection_Auth(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	r := swaggerRouter(SwaggerConfig{Enabled: true, Auth: deny})
	assert.Equal(t, http.StatusUnauthorized, swaggerRequest(r, "10.0.0.1:1234"))
}

func TestParseAllowed(t *testing.T) {
	prefixes := parseAllowed([]string{"::1", "10.0.0.0/8", "nope", "10.0.0.0/99"})
	assert.Len(t, prefixes, 2)
	assert.True(t, ipAllowed("::ffff:10.2.3.4", prefixes))
	assert.False(t, ipAllowed("not-an-ip", prefixes))
}
