package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailweave/mailweave/api/middleware"
	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/enum"
	apperrors "github.com/mailweave/mailweave/internal/errors"
	"github.com/mailweave/mailweave/internal/tracing"
)

const sourceManual = "manual"

type SyncHandler struct {
	syncService interfaces.FolderSyncService
	publisher   interfaces.EventPublisher
}

func NewSyncHandler(syncService interfaces.FolderSyncService, publisher interfaces.EventPublisher) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		publisher:   publisher,
	}
}

// Request queues a full fan-out sync for the caller. The sync itself runs on
// the queue consumer, so the response is an acknowledgment, not a result.
func (h *SyncHandler) Request() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.Request")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		ownerID := middleware.GetOwnerID(c)
		err := h.publisher.PublishSyncRequested(ctx, interfaces.SyncRequested{
			OwnerID: ownerID,
			Source:  sourceManual,
		})
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue sync"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"message": "sync queued"})
	}
}

// SyncFolder runs one folder's sync inline. Useful for debugging a single
// folder without waiting on the queue.
func (h *SyncHandler) SyncFolder() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.SyncFolder")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		folder, ok := enum.DecodeFolder(c.Param("folder"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown folder"})
			return
		}

		err := h.syncService.SyncFolder(ctx, middleware.GetOwnerID(c), folder)
		if err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, apperrors.ErrAuthFailed) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "provider authentication failed"})
				return
			}
			if errors.Is(err, apperrors.ErrStaleCursor) {
				c.JSON(http.StatusConflict, gin.H{"error": "cursor expired, full sync scheduled on next run"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "folder synced"})
	}
}
