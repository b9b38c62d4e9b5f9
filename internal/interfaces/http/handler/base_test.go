package handler

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/interfaces/http/middleware"
	"github.com/marmoleria/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func init() {
	middleware.SetupValidator()
}

func TestHandleError(t *testing.T) {
	h := &BaseHandler{RetryAfter: 1500 * time.Millisecond}

	cases := []struct {
		name       string
		err        error
		status     int
		code       string
		retryAfter string
	}{
		{"busy", shared.NewDomainError(shared.CodeBusy, "locked"), http.StatusServiceUnavailable, "ERR_BUSY", "2"},
		{"unavailable", shared.NewDomainError(shared.CodeUnavailable, "renderer down"), http.StatusServiceUnavailable, "ERR_UNAVAILABLE", "2"},
		{"insufficient stock", shared.NewDomainError(shared.CodeInsufficientStock, "short"), http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_STOCK", ""},
		{"wrapped not found", errors.Join(errors.New("load"), shared.NewDomainError(shared.CodeNotFound, "gone")), http.StatusNotFound, "ERR_NOT_FOUND", ""},
		{"forbidden", shared.NewDomainError(shared.CodeForbidden, "no"), http.StatusForbidden, "ERR_FORBIDDEN", ""},
		{"plain error", errors.New("disk on fire"), http.StatusInternalServerError, "ERR_INTERNAL", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			testutil.RunHTTPTestCase(t, func(c *gin.Context) { h.HandleError(c, tc.err) }, testutil.HTTPTestCase{
				ExpectedStatus: tc.status,
				Validate: func(t *testing.T, ctx *testutil.TestContext) {
					testutil.AssertErrorResponse(t, ctx, tc.code)
					assert.Equal(t, tc.retryAfter, ctx.Recorder.Header().Get("Retry-After"))
				},
			})
		})
	}
}

func TestRetryAfterDefaults(t *testing.T) {
	assert.Equal(t, 1, (&BaseHandler{}).retryAfterSeconds())
	assert.Equal(t, 3, (&BaseHandler{RetryAfter: 3 * time.Second}).retryAfterSeconds())
}

type bindTarget struct {
	Name string `json:"name" binding:"required"`
}

func TestBindJSON(t *testing.T) {
	h := &BaseHandler{}
	run := func(c *gin.Context) {
		var req bindTarget
		if h.BindJSON(c, &req) {
			h.Success(c, req)
		}
	}

	testutil.RunHTTPTestCases(t, run, []testutil.HTTPTestCase{
		{
			Name:           "valid body",
			Method:         http.MethodPost,
			Body:           map[string]string{"name": "Carrara"},
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:           "missing field",
			Method:         http.MethodPost,
			Body:           map[string]string{},
			ExpectedStatus: http.StatusBadRequest,
			Validate: func(t *testing.T, tc *testutil.TestContext) {
				resp := testutil.JSONResponse(t, tc)
				errInfo := resp["error"].(map[string]any)
				assert.True(t, strings.HasPrefix(errInfo["code"].(string), "ERR_VALIDATION"))
			},
		},
		{
			Name:           "wrong json type",
			Method:         http.MethodPost,
			Body:           []string{"Carrara"},
			ExpectedStatus: http.StatusBadRequest,
		},
	})
}

func TestActorRequiresMiddleware(t *testing.T) {
	h := &BaseHandler{}
	testutil.RunHTTPTestCase(t, func(c *gin.Context) {
		if _, ok := h.Actor(c); ok {
			t.Fatal("expected no actor")
		}
	}, testutil.HTTPTestCase{
		ExpectedStatus: http.StatusUnauthorized,
		Validate: func(t *testing.T, tc *testutil.TestContext) {
			testutil.AssertErrorResponse(t, tc, "ERR_UNAUTHORIZED")
		},
	})

	testutil.RunHTTPTestCase(t, func(c *gin.Context) {
		c.Set(middleware.ActorKey, reservation.MustActor(reservation.RoleAdmin, "root"))
		actor, ok := h.Actor(c)
		assert.True(t, ok)
		assert.True(t, actor.CanApprove())
	}, testutil.HTTPTestCase{ExpectedStatus: http.StatusOK})
}
