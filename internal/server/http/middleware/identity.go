package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storekit/fulfillment/internal/domain/model"
)

const (
	// IdentityContextKey is a gin context key for the resolved identity claim.
	IdentityContextKey = "identity"

	userIDHeader     = "X-User-ID"
	guestEmailHeader = "X-Guest-Email"
)

// IdentityRequired resolves the identity claim supplied by the upstream auth
// collaborator. Exactly one of the two headers must be present.
func IdentityRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := extractIdentity(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set(IdentityContextKey, identity)
		c.Next()
	}
}

func extractIdentity(c *gin.Context) (model.Identity, bool) {
	var identity model.Identity

	if raw := strings.TrimSpace(c.GetHeader(userIDHeader)); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return identity, false
		}
		identity.UserID = &id
	}
	if email := strings.TrimSpace(c.GetHeader(guestEmailHeader)); email != "" {
		identity.GuestEmail = &email
	}

	return identity, identity.Valid()
}

// CurrentIdentity extracts the identity claim from context.
func CurrentIdentity(c *gin.Context) model.Identity {
	val, ok := c.Get(IdentityContextKey)
	if !ok {
		return model.Identity{}
	}
	identity, _ := val.(model.Identity)
	return identity
}
