package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marmoleria/backend/internal/domain/reservation"
	"github.com/marmoleria/backend/internal/infrastructure/auth"
	"github.com/marmoleria/backend/internal/interfaces/http/dto"
	"github.com/marmoleria/backend/internal/interfaces/http/middleware"
)

// AuthHandler issues and revokes role tokens
type AuthHandler struct {
	BaseHandler
	jwt         *auth.JWTService
	revocations auth.Revocations
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwt *auth.JWTService, revocations auth.Revocations) *AuthHandler {
	return &AuthHandler{jwt: jwt, revocations: revocations}
}

// IssueTokenRequest asks for a token bound to a role
type IssueTokenRequest struct {
	Role    string `json:"role" binding:"required,oneof=ADVISOR ACCOUNTING ADMIN advisor accounting admin"`
	Subject string `json:"subject" binding:"required,max=100"`
	Name    string `json:"name" binding:"max=100"`
}

// MeResponse describes the authenticated caller
type MeResponse struct {
	Role       string     `json:"role"`
	Name       string     `json:"name"`
	CanApprove bool       `json:"can_approve"`
	TokenID    string     `json:"token_id,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// IssueToken godoc
// @ID           issueToken
// @Summary      Issue a role token
// @Description  Admin only
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body IssueTokenRequest true "Token"
// @Success      201 {object} APIResponse[auth.IssuedToken]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/tokens [post]
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if !h.BindJSON(c, &req) {
		return
	}
	role, err := reservation.ParseRole(req.Role)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	token, err := h.jwt.Issue(role, req.Subject, req.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, token)
}

// Revoke godoc
// @ID           revokeToken
// @Summary      Revoke the token used for this request
// @Tags         auth
// @Produce      json
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/revoke [post]
func (h *AuthHandler) Revoke(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil || claims.ID == "" {
		h.BadRequest(c, "Only bearer tokens can be revoked")
		return
	}
	ttl := middleware.TokenRemaining(claims)
	if ttl > 0 {
		if err := h.revocations.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
			h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Token revocation is unavailable")
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// Me godoc
// @ID           getCurrentActor
// @Summary      Describe the authenticated caller
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[MeResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	resp := MeResponse{
		Role:       string(actor.Role()),
		Name:       actor.Name(),
		CanApprove: actor.CanApprove(),
	}
	if claims := middleware.GetClaims(c); claims != nil {
		resp.TokenID = claims.ID
		if claims.ExpiresAt != nil {
			exp := claims.ExpiresAt.Time
			resp.ExpiresAt = &exp
		}
	}
	h.Success(c, resp)
}
