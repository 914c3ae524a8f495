// Package api assembles the gin engine.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/cardpool-backend/internal/api/handlers"
	"github.com/Marga-Ghale/cardpool-backend/internal/api/middleware"
	"github.com/Marga-Ghale/cardpool-backend/internal/config"
	"github.com/Marga-Ghale/cardpool-backend/internal/metrics"
	"github.com/Marga-Ghale/cardpool-backend/internal/service"
	"github.com/Marga-Ghale/cardpool-backend/internal/socket"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterDeps contains everything the HTTP surface needs.
type RouterDeps struct {
	Config   *config.Config
	Services *service.Services
	Hub      *socket.Hub
	Metrics  *metrics.Metrics
	// Checks are reported by /health under their key.
	Checks map[string]HealthCheck
}

// NewRouter builds the engine with every route mounted.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	services := deps.Services

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics(deps.Metrics))

	// Configure CORS
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"store":     cfg.StoreDriver,
		}
		if deps.Hub != nil {
			body["ws_clients"] = deps.Hub.GetConnectedClientsCount()
		}
		for name, check := range deps.Checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			err := check(ctx)
			cancel()
			if err != nil {
				body[name] = "unavailable"
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "connected"
		}
		c.JSON(status, body)
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	h := handlers.NewHandlers(services)

	api := r.Group("/api")
	{
		// ============================================
		// Public routes
		// ============================================
		if deps.Hub != nil {
			wsHandler := socket.NewHandler(deps.Hub, func(token string) (string, error) {
				claims, err := services.Auth.ValidateToken(token)
				if err != nil {
					return "", err
				}
				return claims.Email, nil
			}, cfg.CORSOrigins)
			api.GET("/ws", wsHandler.HandleWebSocket)
		}

		if !cfg.IsProduction() {
			api.POST("/dev/token", h.User.IssueDevToken)
		}

		// ============================================
		// Protected routes
		// ============================================
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(services.Auth, services.User))
		{
			users := protected.Group("/users")
			{
				users.GET("/me", h.User.GetCurrentUser)
				users.PUT("/me", h.User.UpdateDisplayName)
			}

			groups := protected.Group("/groups")
			{
				groups.GET("", h.Group.List)
				groups.POST("", h.Group.Create)
				groups.POST("/join", h.Group.Join)
				groups.GET("/:id", h.Group.Get)
				groups.DELETE("/:id", h.Group.Delete)
				groups.POST("/:id/invite-email", h.Group.SendInvite)
				groups.GET("/:id/orders", h.Order.ListByGroup)
				groups.POST("/:id/orders", h.Order.Create)
				groups.GET("/:id/chat", h.Chat.ListGroupMessages)
				groups.POST("/:id/chat", h.Chat.SendGroupMessage)
			}

			orders := protected.Group("/orders")
			{
				orders.GET("/:id", h.Order.Get)
				orders.PATCH("/:id/status", h.Order.UpdateStatus)
				orders.PATCH("/:id/total", h.Order.SetTotalValue)
				orders.DELETE("/:id", h.Order.Delete)
				orders.GET("/:id/cards", h.Card.List)
				orders.POST("/:id/cards", h.Card.Add)
				orders.GET("/:id/chat", h.Chat.ListOrderMessages)
				orders.POST("/:id/chat", h.Chat.SendOrderMessage)
			}

			protected.DELETE("/cards/:id", h.Card.Remove)
			protected.GET("/catalog/search", h.Card.Search)
		}
	}

	return r
}
