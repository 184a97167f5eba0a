package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailweave/mailweave/api/middleware"
	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/tracing"
)

type AccountHandler struct {
	subscriptionService interfaces.SubscriptionService
	syncService         interfaces.FolderSyncService
}

func NewAccountHandler(subscriptionService interfaces.SubscriptionService, syncService interfaces.FolderSyncService) *AccountHandler {
	return &AccountHandler{
		subscriptionService: subscriptionService,
		syncService:         syncService,
	}
}

// Disconnect tears down everything held for the caller's mailbox: webhook
// registrations first, so the provider stops pushing, then the cached
// emails and sync cursors. A later reconnect starts from a full sync.
func (h *AccountHandler) Disconnect() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AccountHandler.Disconnect")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		ownerID := middleware.GetOwnerID(c)

		if err := h.subscriptionService.DeleteOwnerSubscriptions(ctx, ownerID); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove subscriptions"})
			return
		}
		if err := h.syncService.PurgeOwnerData(ctx, ownerID); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to purge mailbox data"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}
