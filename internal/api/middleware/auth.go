package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/cardpool-backend/internal/service"
)

const (
	actorKey = "actor"
	userKey  = "user"
)

// AuthMiddleware validates bearer tokens, upserts the user record and sets
// the acting user in the context.
func AuthMiddleware(authService service.AuthService, userService service.UserService) gin.HandlerFunc {
	log := slog.With("component", "auth")

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Debug("missing authorization header", "path", c.Request.URL.Path)
			abortUnauthenticated(c, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			log.Debug("invalid authorization header", "path", c.Request.URL.Path)
			abortUnauthenticated(c, "Invalid authorization header format")
			return
		}

		claims, err := authService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Debug("invalid token", "path", c.Request.URL.Path, "error", err)
			abortUnauthenticated(c, "Invalid or expired token")
			return
		}

		user, err := userService.Resolve(c.Request.Context(), claims.Email, claims.Name)
		if err != nil {
			log.Error("failed to resolve user", "email", claims.Email, "error", err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to load user", "code": "transport"})
			return
		}

		c.Set(userKey, user)
		c.Set(actorKey, service.ActorFor(user))
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message, "code": "unauthenticated"})
}

// GetActor extracts the acting user from gin context
func GetActor(c *gin.Context) (service.Actor, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return service.Actor{}, false
	}
	actor, ok := v.(service.Actor)
	return actor, ok && actor.Email != ""
}

// RequireActor writes 401 when no user is authenticated.
func RequireActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := GetActor(c)
	if !ok {
		abortUnauthenticated(c, "User not authenticated")
		return service.Actor{}, false
	}
	return actor, true
}
