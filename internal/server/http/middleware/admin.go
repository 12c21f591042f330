package middleware

import (
	"crypto/hmac"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminActorContextKey is a gin context key for the acting admin label.
const AdminActorContextKey = "adminActor"

// AdminRequired guards admin endpoints with a static bearer token compared
// in constant time.
func AdminRequired(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		provided := strings.TrimSpace(header[7:])
		if !hmac.Equal([]byte(provided), []byte(token)) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		c.Set(AdminActorContextKey, "admin")
		c.Next()
	}
}
