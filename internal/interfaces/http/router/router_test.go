package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "/api/v1", r.BasePath())

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	stock := NewDomainGroup("stock", "/stock").
		GET("/balances", func(c *gin.Context) { c.String(http.StatusOK, "balances") }).
		POST("/receipts", func(c *gin.Context) { c.String(http.StatusCreated, "received") })
	quotes := NewDomainGroup("quotes", "/quotes").
		GET("/:number", func(c *gin.Context) { c.String(http.StatusOK, c.Param("number")) })

	NewRouter(engine).Register(stock, quotes).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/stock/balances")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "balances", w.Body.String())

	assert.Equal(t, http.StatusCreated, serve(engine, http.MethodPost, "/api/v1/stock/receipts").Code)

	w = serve(engine, http.MethodGet, "/api/v1/quotes/COT-000042")
	assert.Equal(t, "COT-000042", w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/stock/balances").Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("catalog", "/catalog")
		assert.Equal(t, "catalog", g.Name())
		assert.Equal(t, "/catalog", g.Prefix())
	})

	t.Run("middleware applies to routes and sub-groups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("system", "/system").Use(func(c *gin.Context) {
			c.Header("X-Guard", "applied")
			c.Next()
		})
		g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		g.Group("outbox", "/outbox").GET("/stats", func(c *gin.Context) { c.String(http.StatusOK, "stats") })

		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/system/ping")
		assert.Equal(t, "applied", w.Header().Get("X-Guard"))
		w = serve(engine, http.MethodGet, "/api/v1/system/outbox/stats")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "applied", w.Header().Get("X-Guard"))
	})

	t.Run("aborting middleware blocks the handler", func(t *testing.T) {
		engine := gin.New()
		called := false
		g := NewDomainGroup("sales", "/sales").Use(func(c *gin.Context) {
			c.AbortWithStatus(http.StatusForbidden)
		})
		g.POST("/rebuild", func(c *gin.Context) { called = true })
		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodPost, "/api/v1/sales/rebuild").Code)
		assert.False(t, called)
	})

	t.Run("routes are listed with their full path", func(t *testing.T) {
		noop := func(c *gin.Context) {}
		g := NewDomainGroup("reservations", "/reservations").
			POST("", noop).
			GET("/:id", noop)
		g.Group("admin", "/admin").POST("/sweep", noop)

		assert.Equal(t, []Route{
			{Method: http.MethodPost, Path: "/api/v1/reservations"},
			{Method: http.MethodGet, Path: "/api/v1/reservations/:id"},
			{Method: http.MethodPost, Path: "/api/v1/reservations/admin/sweep"},
		}, g.Routes("/api/v1"))
	})
}
