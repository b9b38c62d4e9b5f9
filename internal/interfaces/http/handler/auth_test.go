package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/infrastructure/auth"
	"github.com/marmoleria/backend/internal/infrastructure/config"
	"github.com/marmoleria/backend/internal/interfaces/http/middleware"
	"github.com/marmoleria/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthEngine(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:   "handler-test-secret-with-enough-length",
		Issuer:   "marmoleria",
		TokenTTL: time.Hour,
	})
	revocations := auth.NewMemoryRevocations()
	h := NewAuthHandler(jwtService, revocations)

	engine := gin.New()
	group := engine.Group("/auth", middleware.ActorAuth(middleware.ActorAuthConfig{
		JWTService:  jwtService,
		Revocations: revocations,
	}))
	group.POST("/tokens", middleware.RequireRole(reservation.RoleAdmin), h.IssueToken)
	group.POST("/revoke", h.Revoke)
	group.GET("/me", h.Me)
	return engine, jwtService
}

func bearer(t *testing.T, s *auth.JWTService, role reservation.Role, name string) string {
	t.Helper()
	tok, err := s.Issue(role, name, name)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func call(t *testing.T, engine *gin.Engine, method, path, authorization string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, testutil.ToJSONReader(t, body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Me(t *testing.T) {
	engine, s := newAuthEngine(t)

	w := call(t, engine, http.MethodGet, "/auth/me", bearer(t, s, reservation.RoleAccounting, "ana"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tc := &testutil.TestContext{Recorder: w}
	data := testutil.JSONResponse(t, tc)["data"].(map[string]any)
	assert.Equal(t, "ACCOUNTING", data["role"])
	assert.Equal(t, "ana", data["name"])
	assert.Equal(t, true, data["can_approve"])
	assert.NotEmpty(t, data["token_id"])
}

func TestAuthHandler_IssueToken(t *testing.T) {
	engine, s := newAuthEngine(t)
	req := map[string]string{"role": "advisor", "subject": "laura"}

	w := call(t, engine, http.MethodPost, "/auth/tokens", bearer(t, s, reservation.RoleAccounting, "ana"), req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call(t, engine, http.MethodPost, "/auth/tokens", bearer(t, s, reservation.RoleAdmin, "root"), req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	issued := testutil.JSONResponse(t, &testutil.TestContext{Recorder: w})["data"].(map[string]any)

	claims, err := s.Verify(issued["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "ADVISOR", claims.Role)
	assert.Equal(t, "laura", claims.Subject)
}

func TestAuthHandler_Revoke(t *testing.T) {
	engine, s := newAuthEngine(t)
	token := bearer(t, s, reservation.RoleAdvisor, "laura")

	w := call(t, engine, http.MethodPost, "/auth/revoke", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = call(t, engine, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	testutil.AssertErrorResponse(t, &testutil.TestContext{Recorder: w}, "ERR_TOKEN_REVOKED")
}
