// README: Bearer-token auth middleware; resolves the caller identity through infra.TokenVerifier.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"charterhub/internal/infra"
	"charterhub/internal/types"
)

const (
	ctxCallerUID  = "caller_uid"
	ctxCallerRole = "caller_role"
)

// BearerToken extracts the token from the Authorization header, falling back to
// the token query parameter (browsers cannot set headers on websocket upgrades).
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if !strings.HasPrefix(h, "Bearer ") {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.Request)
		if token == "" {
			unauthorized(c, "missing bearer token")
			return
		}
		id, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}
		c.Set(ctxCallerUID, types.ID(id.UID))
		c.Set(ctxCallerRole, id.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose token role is not one of roles. Must run after Auth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CallerRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   gin.H{"kind": "forbidden", "message": "role " + role + " cannot access this resource"},
		})
	}
}

func CallerUID(c *gin.Context) types.ID {
	if v, ok := c.Get(ctxCallerUID); ok {
		if id, ok := v.(types.ID); ok {
			return id
		}
	}
	return ""
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxCallerRole)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"kind": "unauthorized", "message": msg},
	})
}
