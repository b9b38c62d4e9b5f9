package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/infrastructure/auth"
	"github.com/marmoleria/backend/internal/infrastructure/logger"
	"github.com/marmoleria/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Actor context keys
const (
	ActorKey        = "actor"
	ClaimsKey       = "jwt_claims"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
	ActorRoleHeader = "X-Actor-Role"
	ActorNameHeader = "X-Actor-Name"
)

// ActorAuthConfig holds configuration for the actor middleware
type ActorAuthConfig struct {
	// JWTService verifies bearer tokens
	JWTService *auth.JWTService
	// Revocations is optional; when set, revoked token IDs are refused
	Revocations auth.Revocations
	// AllowHeader accepts X-Actor-Role / X-Actor-Name without a token.
	// Callers must keep this off in production.
	AllowHeader bool
	// SkipPaths are paths that don't require an actor
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that don't require an actor
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// ActorAuth resolves the calling actor from a bearer token (or, in
// development, from the actor headers) and stores it in the gin context
func ActorAuth(cfg ActorAuthConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if slices.Contains(cfg.SkipPaths, path) {
			c.Next()
			return
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" && cfg.AllowHeader && c.GetHeader(ActorRoleHeader) != "" {
			actorFromHeaders(c, cfg)
			return
		}
		if authHeader == "" {
			abortUnauthorized(c, cfg.Logger, auth.ErrInvalidToken, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, cfg.Logger, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		if tokenString == "" {
			abortUnauthorized(c, cfg.Logger, auth.ErrInvalidToken, "Missing token")
			return
		}

		claims, err := cfg.JWTService.Verify(tokenString)
		if err != nil {
			abortUnauthorized(c, cfg.Logger, err, "Token validation failed")
			return
		}

		if cfg.Revocations != nil && claims.ID != "" {
			revoked, err := cfg.Revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// fail open: the revocation store is an optimisation over expiry
				cfg.Logger.Error("Failed to check token revocation",
					zap.String("jti", claims.ID),
					zap.Error(err))
			} else if revoked {
				abortUnauthorized(c, cfg.Logger, auth.ErrTokenRevoked, "Token has been revoked")
				return
			}
		}

		actor, err := claims.Actor()
		if err != nil {
			abortForbidden(c, err.Error())
			return
		}

		c.Set(ClaimsKey, claims)
		setActor(c, actor)
		c.Next()
	}
}

func actorFromHeaders(c *gin.Context, cfg ActorAuthConfig) {
	role, err := reservation.ParseRole(c.GetHeader(ActorRoleHeader))
	if err != nil {
		abortForbidden(c, err.Error())
		return
	}
	actor, err := reservation.NewActor(role, c.GetHeader(ActorNameHeader))
	if err != nil {
		abortForbidden(c, err.Error())
		return
	}
	cfg.Logger.Debug("Actor taken from headers", zap.String("role", string(role)))
	setActor(c, actor)
	c.Next()
}

func setActor(c *gin.Context, actor reservation.Actor) {
	c.Set(ActorKey, actor)
	c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), string(actor.Role())))
}

// RequireRole only lets the listed roles through
func RequireRole(roles ...reservation.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			abortUnauthorized(c, zap.NewNop(), auth.ErrInvalidToken, "No actor")
			return
		}
		if !slices.Contains(roles, actor.Role()) {
			abortForbidden(c, "Role "+string(actor.Role())+" cannot perform this operation")
			return
		}
		c.Next()
	}
}

// GetActor retrieves the actor stored by ActorAuth
func GetActor(c *gin.Context) (reservation.Actor, bool) {
	if v, exists := c.Get(ActorKey); exists {
		if actor, ok := v.(reservation.Actor); ok {
			return actor, true
		}
	}
	return reservation.Actor{}, false
}

// GetClaims retrieves the verified token claims, nil for header actors
func GetClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(ClaimsKey); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// TokenRemaining is how long the current token stays valid
func TokenRemaining(claims *auth.Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Warn("Actor authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code := dto.ErrCodeUnauthorized
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, message = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrTokenNotYetValid):
		code = dto.ErrCodeTokenInvalid
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

func abortForbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, message, getRequestID(c)))
}
