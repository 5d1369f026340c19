// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"queueline-service/internal/pkg/jwt"
	"queueline-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

type AuthMiddleware struct {
	verifier *jwt.Verifier
}

func NewAuthMiddleware(verifier *jwt.Verifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Auth is the base authentication middleware that validates JWT tokens
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		c.Set(claimsKey, claims)
		c.Set("business_id", claims.BusinessID)
		c.Set("roles", claims.Roles)
		c.Set("jti", claims.ID)

		c.Next()
	}
}

// RequireBusinessParam rejects operators acting on another business's :param.
// MUST be used after Auth() middleware
func (m *AuthMiddleware) RequireBusinessParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CanActOn(c, c.Param(param)) {
			response.Forbidden(c, "not allowed to manage this business")
			return
		}
		c.Next()
	}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return ""
}

// GetClaims returns the verified claims set by Auth.
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

// CanActOn checks the authenticated caller against a business id.
func CanActOn(c *gin.Context, businessID string) bool {
	claims, ok := GetClaims(c)
	if !ok {
		return false
	}
	return claims.CanActOn(businessID)
}

// IsAdmin checks if user is an admin
func IsAdmin(c *gin.Context) bool {
	claims, ok := GetClaims(c)
	return ok && claims.IsAdmin()
}
