package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailweave/mailweave/api/middleware"
	"github.com/mailweave/mailweave/interfaces"
	apperrors "github.com/mailweave/mailweave/internal/errors"
	"github.com/mailweave/mailweave/internal/tracing"
)

type SubscriptionsHandler struct {
	subscriptionService interfaces.SubscriptionService
}

func NewSubscriptionsHandler(subscriptionService interfaces.SubscriptionService) *SubscriptionsHandler {
	return &SubscriptionsHandler{subscriptionService: subscriptionService}
}

// Ensure registers a webhook subscription for the caller, or returns the
// active one.
func (h *SubscriptionsHandler) Ensure() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SubscriptionsHandler.Ensure")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		sub, err := h.subscriptionService.EnsureSubscription(ctx, middleware.GetOwnerID(c))
		if err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, apperrors.ErrAuthFailed) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "provider authentication failed"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register subscription"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"subscriptionId": sub.SubscriptionID,
			"resource":       sub.Resource,
			"expiresAt":      sub.ExpiresAt,
		})
	}
}

func (h *SubscriptionsHandler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SubscriptionsHandler.Delete")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		err := h.subscriptionService.DeleteSubscription(ctx, middleware.GetOwnerID(c), c.Param("id"))
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
				return
			}
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete subscription"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}
