package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/tracing"
)

const notificationProcessingTimeout = 2 * time.Minute

type WebhooksHandler struct {
	notificationService interfaces.NotificationService
	log                 logger.Logger
}

func NewWebhooksHandler(notificationService interfaces.NotificationService, log logger.Logger) *WebhooksHandler {
	return &WebhooksHandler{
		notificationService: notificationService,
		log:                 log,
	}
}

// GraphNotifications receives provider webhook posts. Two shapes arrive on
// the same endpoint: the subscription validation handshake, which must echo
// the token back as plain text, and regular change batches, which are
// acknowledged immediately and processed in the background so the provider
// never times out waiting on sync work.
func (h *WebhooksHandler) GraphNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "WebhooksHandler.GraphNotifications")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		if validationToken := c.Query("validationToken"); validationToken != "" {
			span.SetTag("handshake", true)
			c.String(http.StatusOK, validationToken)
			return
		}

		var batch interfaces.NotificationBatch
		if err := c.BindJSON(&batch); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"message": "Accepted"})

		go func() {
			defer tracing.RecoverAndLogToJaeger(h.log)

			bgCtx, cancel := context.WithTimeout(context.Background(), notificationProcessingTimeout)
			defer cancel()
			bgCtx = opentracing.ContextWithSpan(bgCtx, span)

			if err := h.notificationService.ProcessBatch(bgCtx, batch); err != nil {
				h.log.Errorf("Failed to process notification batch: %v", err)
			}
		}()
	}
}
