package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/infrastructure/auth"
	"github.com/marmoleria/backend/internal/infrastructure/config"
	"github.com/marmoleria/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:   "test-secret-key-at-least-32-chars",
		Issuer:   "marmoleria-test",
		TokenTTL: 15 * time.Minute,
	})
}

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Duration) error { return nil }
func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func actorRouter(cfg ActorAuthConfig, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), ActorAuth(cfg))
	handlers := append(extra, func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"role": ""})
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": actor.Role(), "name": actor.Name()})
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/whoami", handlers...)
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return *resp.Error
}

func TestActorAuth_BearerToken(t *testing.T) {
	svc := newTestJWTService()
	issued, err := svc.Issue(reservation.RoleAccounting, "u-9", "Marta")
	require.NoError(t, err)

	r := actorRouter(ActorAuthConfig{JWTService: svc})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+issued.Token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"role":"ACCOUNTING","name":"Marta"}`, w.Body.String())
}

func TestActorAuth_Rejections(t *testing.T) {
	svc := newTestJWTService()
	issued, err := svc.Issue(reservation.RoleAdvisor, "u-1", "")
	require.NoError(t, err)
	revocations := auth.NewMemoryRevocations()
	require.NoError(t, revocations.Revoke(context.Background(), issued.ID, time.Minute))

	tests := []struct {
		name   string
		header map[string]string
		code   string
		status int
	}{
		{"missing header", nil, dto.ErrCodeTokenInvalid, http.StatusUnauthorized},
		{"not bearer", map[string]string{AuthHeaderKey: "Basic abc"}, dto.ErrCodeTokenInvalid, http.StatusUnauthorized},
		{"garbage token", map[string]string{AuthHeaderKey: BearerPrefix + "x.y.z"}, dto.ErrCodeTokenInvalid, http.StatusUnauthorized},
		{"revoked", map[string]string{AuthHeaderKey: BearerPrefix + issued.Token}, dto.ErrCodeTokenRevoked, http.StatusUnauthorized},
		{"header actor not allowed", map[string]string{ActorRoleHeader: "ADMIN"}, dto.ErrCodeTokenInvalid, http.StatusUnauthorized},
	}

	r := actorRouter(ActorAuthConfig{JWTService: svc, Revocations: revocations})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			info := decodeError(t, w)
			assert.Equal(t, tt.code, info.Code)
			assert.NotEmpty(t, info.RequestID)
		})
	}
}

func TestActorAuth_RevocationStoreFailureFailsOpen(t *testing.T) {
	svc := newTestJWTService()
	issued, err := svc.Issue(reservation.RoleAdvisor, "u-1", "laura")
	require.NoError(t, err)

	r := actorRouter(ActorAuthConfig{JWTService: svc, Revocations: failingRevocations{}})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+issued.Token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestActorAuth_Headers(t *testing.T) {
	r := actorRouter(ActorAuthConfig{JWTService: newTestJWTService(), AllowHeader: true})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set(ActorRoleHeader, "advisor")
	req.Header.Set(ActorNameHeader, "laura")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"role":"ADVISOR","name":"laura"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set(ActorRoleHeader, "janitor")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrCodeForbidden, decodeError(t, w).Code)
}

func TestActorAuth_SkipPaths(t *testing.T) {
	r := actorRouter(ActorAuthConfig{JWTService: newTestJWTService(), SkipPaths: []string{"/health"}})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	r := actorRouter(ActorAuthConfig{JWTService: newTestJWTService(), AllowHeader: true},
		RequireRole(reservation.RoleAccounting, reservation.RoleAdmin))

	for role, want := range map[string]int{
		"ADVISOR":    http.StatusForbidden,
		"ACCOUNTING": http.StatusOK,
		"ADMIN":      http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
		req.Header.Set(ActorRoleHeader, role)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestTokenRemaining(t *testing.T) {
	svc := newTestJWTService()
	issued, err := svc.Issue(reservation.RoleAdmin, "ops", "")
	require.NoError(t, err)
	claims, err := svc.Verify(issued.Token)
	require.NoError(t, err)

	assert.InDelta(t, 15*time.Minute, TokenRemaining(claims), float64(5*time.Second))
	assert.Zero(t, TokenRemaining(nil))
}
