package handler

import (
	"net/http"

	"floodrescue/backend/internal/auth"
	"floodrescue/backend/internal/models"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// GetAnonID creates a requester identity and returns its token.
func (h *Handler) GetAnonID(c *gin.Context) {
	anonID, token, err := h.Auth.NewAnonID()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "anon_id": anonID})
}

// Authenticate rejects requests without a valid bearer token. Browsers cannot
// set headers on a WebSocket handshake, so ?token= is accepted as well.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authorization token missing"})
			return
		}
		claims, err := h.Auth.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid or expired token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole only lets holders of one of roles through. It must run after
// Authenticate.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		for _, r := range roles {
			if claims != nil && claims.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unauthorized", "message": "not allowed for this role"})
	}
}

func claimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func senderRole(r auth.Role) models.SenderRole {
	if r == auth.RoleResponder {
		return models.SenderResponder
	}
	return models.SenderRequester
}
