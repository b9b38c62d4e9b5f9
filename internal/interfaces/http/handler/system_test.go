package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/marmoleria/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSystemHandler_Health(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		h := NewSystemHandler("marmoleria-engine", "test")
		h.AddCheck("database", func(context.Context) error { return nil })

		testutil.RunHTTPTestCase(t, h.Health, testutil.HTTPTestCase{
			ExpectedStatus: http.StatusOK,
			ExpectedBody: map[string]any{
				"status": "healthy",
				"checks": map[string]any{"database": "ok"},
			},
		})
	})

	t.Run("failing check reports unhealthy", func(t *testing.T) {
		h := NewSystemHandler("marmoleria-engine", "test")
		h.AddCheck("database", func(context.Context) error { return nil })
		h.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })

		testutil.RunHTTPTestCase(t, h.Health, testutil.HTTPTestCase{
			ExpectedStatus: http.StatusServiceUnavailable,
			ExpectedBody: map[string]any{
				"status": "unhealthy",
				"checks": map[string]any{"database": "ok", "redis": "connection refused"},
			},
		})
	})
}

func TestSystemHandler_Info(t *testing.T) {
	h := NewSystemHandler("marmoleria-engine", "1.2.0")
	testutil.RunHTTPTestCase(t, h.GetSystemInfo, testutil.HTTPTestCase{
		ExpectedStatus: http.StatusOK,
		Validate: func(t *testing.T, tc *testutil.TestContext) {
			data := testutil.JSONResponse(t, tc)["data"].(map[string]any)
			assert.Equal(t, "marmoleria-engine", data["name"])
			assert.Equal(t, "1.2.0", data["version"])
		},
	})
}
