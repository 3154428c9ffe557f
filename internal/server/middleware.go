package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/orderdesk/internal/actor"
)

const (
	HeaderActorID           = "X-Actor-ID"
	HeaderActorRoles        = "X-Actor-Roles"
	HeaderActorCapabilities = "X-Actor-Capabilities"
)

// ActorRequired resolves the already authenticated actor from the upstream
// gateway headers.
func ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if id == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		a := actor.Actor{
			ID:           id,
			Roles:        actor.ParseList(c.GetHeader(HeaderActorRoles)),
			Capabilities: actor.ParseList(c.GetHeader(HeaderActorCapabilities)),
		}
		c.Request = c.Request.WithContext(actor.WithActor(c.Request.Context(), a))
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actor.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !a.HasRole(roles...) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func currentActor(c *gin.Context) (actor.Actor, bool) {
	a, ok := actor.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return actor.Actor{}, false
	}
	return a, true
}
