package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/catalog_sync/internal/utils"
)

// Context keys set by JWTMiddleware.
const (
	ContextSubject = "subject"
	ContextRoles   = "roles"
)

// JWTMiddleware admits bearer tokens signed with the admin secret that carry
// the required role.
type JWTMiddleware struct {
	secret string
	role   string
}

func NewJWTMiddleware(secret, role string) *JWTMiddleware {
	return &JWTMiddleware{secret: secret, role: role}
}

func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			utils.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or malformed bearer token")
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(token, m.secret)
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, utils.ErrInvalidToken.Error(), "Invalid or expired token")
			c.Abort()
			return
		}
		if m.role != "" && !slices.Contains(claims.Roles, m.role) {
			utils.Error(c, http.StatusForbidden, "FORBIDDEN", "Token lacks the "+m.role+" role")
			c.Abort()
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Set(ContextRoles, claims.Roles)
		c.Next()
	}
}
