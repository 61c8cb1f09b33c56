package identity

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
)

type contextKey string

const identityContextKey contextKey = "blogIdentity"

// AdminMiddleware authenticates the bearer token and injects the verified
// administrator identity into the request context.
func AdminMiddleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing authorization header"})
			return
		}

		token := extractBearerToken(authHeader)
		if token == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid authorization header"})
			return
		}

		ident, err := service.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, ErrForbidden) {
				c.AbortWithStatusJSON(403, gin.H{"error": "admins only"})
				return
			}
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid or expired token"})
			return
		}

		Inject(c, ident)
		c.Next()
	}
}

// Inject stores a verified identity on the request context.
func Inject(c *gin.Context, ident Identity) {
	c.Set(string(identityContextKey), ident)
}

// CurrentIdentity extracts the verified identity from the context.
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	value, exists := c.Get(string(identityContextKey))
	if !exists {
		return Identity{}, false
	}
	ident, ok := value.(Identity)
	return ident, ok
}

// RequireAdmin fetches the verified administrator identity.
func RequireAdmin(c *gin.Context) (Identity, bool) {
	ident, ok := CurrentIdentity(c)
	if !ok || !ident.IsAdmin {
		return Identity{}, false
	}
	return ident, true
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
