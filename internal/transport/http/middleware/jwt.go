package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cogniva-docs/internal/pkg/jwtutil"
	"cogniva-docs/internal/transport/http/response"
)

const ContextClientKey = "client"

// AuthJWT requires a bearer token signed with secret. An empty secret
// disables the check.
func AuthJWT(secret string) gin.HandlerFunc {
	if strings.TrimSpace(secret) == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization header")
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, http.StatusUnauthorized, "invalid authorization scheme")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(ContextClientKey, claims.Client)
		c.Next()
	}
}
