package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const actorKey = "auth.actor"

// Middleware validates the Bearer token and stores the Actor in the gin context.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := ParseBearer(c.GetHeader("Authorization"), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Set(actorKey, *actor)
		c.Next()
	}
}

// FromContext retrieves the actor stored by Middleware.
func FromContext(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, false
	}
	a, ok := v.(Actor)
	return a, ok
}
