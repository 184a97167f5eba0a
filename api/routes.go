package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailweave/mailweave/api/handlers"
	"github.com/mailweave/mailweave/api/middleware"
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/repository"
	"github.com/mailweave/mailweave/internal/tracing"
	"github.com/mailweave/mailweave/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, log logger.Logger, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	apiHandlers := handlers.InitHandlers(repos, s, log)

	// Health check endpoint (no auth)
	r.GET("/health", handlers.HealthCheck)

	// Provider webhooks authenticate through clientState, not the caller
	// token: the handshake and change batches come from the provider itself.
	webhooks := r.Group("/webhooks")
	webhooks.Use(middleware.TracingMiddleware())
	{
		webhooks.POST("/graph", apiHandlers.Webhooks.GraphNotifications())
	}

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-MAILWEAVE-API-KEY",
		ValidAPIKey: apikey,
	})

	// API group with version, caller auth and tracing
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.OwnerAuthMiddleware(s.IdentityService))
	api.Use(middleware.TracingMiddleware())
	{
		emails := api.Group("/emails")
		{
			emails.GET("", apiHandlers.Emails.List())
			emails.GET("/:id", apiHandlers.Emails.Get())
			emails.PATCH("/:id/read", apiHandlers.Emails.UpdateRead())
			emails.PATCH("/:id/flag", apiHandlers.Emails.UpdateFlag())
			emails.PATCH("/:id/folder", apiHandlers.Emails.Move())
		}

		sync := api.Group("/sync")
		{
			sync.POST("", apiHandlers.Sync.Request())
			sync.POST("/:folder", apiHandlers.Sync.SyncFolder())
		}

		subscriptions := api.Group("/subscriptions")
		{
			subscriptions.POST("", apiHandlers.Subscriptions.Ensure())
			subscriptions.DELETE("/:id", apiHandlers.Subscriptions.Delete())
		}

		account := api.Group("/account")
		{
			account.DELETE("", apiHandlers.Account.Disconnect())
		}

		threads := api.Group("/threads")
		{
			threads.POST("", apiHandlers.Threads.Create())
			threads.GET("", apiHandlers.Threads.List())
			threads.GET("/:id", apiHandlers.Threads.Get())
			threads.PATCH("/:id", apiHandlers.Threads.UpdateTitle())
			threads.DELETE("/:id", apiHandlers.Threads.Delete())

			threads.POST("/:id/emails", apiHandlers.Threads.AddEmail())
			threads.POST("/:id/comments", apiHandlers.Threads.AddComment())
			threads.POST("/:id/notes", apiHandlers.Threads.AddNote())
			threads.POST("/:id/dividers", apiHandlers.Threads.AddDivider())
		}

		merge := api.Group("/merge")
		{
			merge.POST("", apiHandlers.Threads.Merge())
		}

		items := api.Group("/items")
		{
			items.DELETE("/:itemId", apiHandlers.Threads.RemoveItem())
			items.POST("/:itemId/restore", apiHandlers.Threads.RestoreItem())
			items.DELETE("/:itemId/permanent", apiHandlers.Threads.PermanentDeleteItem())
			items.PATCH("/:itemId", apiHandlers.Threads.UpdateItemContent())
		}
	}
}
