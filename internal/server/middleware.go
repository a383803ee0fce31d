package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/platefulhq/plateful/internal/actorctx"
)

// ActorContext resolves the calling principal from the gateway-injected
// identity headers and stores it on the request context. Authentication
// itself happens upstream; this service only consumes the result.
func (s *Server) ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if value := strings.TrimSpace(c.GetHeader("X-User-Id")); value != "" {
			if userID, err := snowflake.ParseString(value); err == nil {
				ctx = actorctx.WithUserID(ctx, int64(userID))
			}
		}

		role := actorctx.Role(strings.ToLower(strings.TrimSpace(c.GetHeader("X-User-Role"))))
		if role.Valid() {
			ctx = actorctx.WithRole(ctx, role)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actorctx.UserIDFromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func (s *Server) StaffRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorctx.RoleFromContext(c.Request.Context()).Staff() {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actorctx.RoleFromContext(c.Request.Context()) != actorctx.RoleAdmin {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}
