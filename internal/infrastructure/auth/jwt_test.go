package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/domain/shared"
	"github.com/marmoleria/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-characters"

func newTestService() *JWTService {
	return NewJWTService(config.JWTConfig{Secret: testSecret, Issuer: "marmoleria", TokenTTL: time.Hour})
}

func TestJWTService_IssueAndVerify(t *testing.T) {
	svc := newTestService()

	issued, err := svc.Issue(reservation.RoleAccounting, "u-17", "Ana Gómez")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)

	claims, err := svc.Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "ACCOUNTING", claims.Role)
	assert.Equal(t, issued.ID, claims.ID)

	actor, err := claims.Actor()
	require.NoError(t, err)
	assert.Equal(t, reservation.RoleAccounting, actor.Role())
	assert.Equal(t, "Ana Gómez", actor.Name())
	assert.True(t, actor.CanApprove())
}

func TestJWTService_IssueRejectsUnknownRole(t *testing.T) {
	_, err := newTestService().Issue("CASHIER", "u-1", "")
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestJWTService_VerifyFailures(t *testing.T) {
	svc := newTestService()

	t.Run("expired", func(t *testing.T) {
		past := NewJWTService(config.JWTConfig{Secret: testSecret, Issuer: "marmoleria", TokenTTL: time.Minute})
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		issued, err := past.Issue(reservation.RoleAdvisor, "u-1", "")
		require.NoError(t, err)
		_, err = svc.Verify(issued.Token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-of-32-characters!!", Issuer: "marmoleria"})
		issued, err := other.Issue(reservation.RoleAdvisor, "u-1", "")
		require.NoError(t, err)
		_, err = svc.Verify(issued.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: testSecret, Issuer: "someone-else"})
		issued, err := other.Issue(reservation.RoleAdvisor, "u-1", "")
		require.NoError(t, err)
		_, err = svc.Verify(issued.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing role", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "marmoleria", Subject: "u-1"},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = svc.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestClaims_ActorUnknownRoleIsForbidden(t *testing.T) {
	_, err := (&Claims{Role: "intern"}).Actor()
	assert.True(t, shared.HasCode(err, shared.CodeForbidden))

	actor, err := (&Claims{Role: "advisor", RegisteredClaims: jwt.RegisteredClaims{Subject: "laura"}}).Actor()
	require.NoError(t, err)
	assert.Equal(t, "laura", actor.Name())
	assert.False(t, actor.CanApprove())
}
