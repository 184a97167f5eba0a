package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailweave/mailweave/api/middleware"
	"github.com/mailweave/mailweave/interfaces"
	apperrors "github.com/mailweave/mailweave/internal/errors"
	"github.com/mailweave/mailweave/internal/tracing"
)

type ThreadsHandler struct {
	threadService interfaces.ThreadService
}

func NewThreadsHandler(threadService interfaces.ThreadService) *ThreadsHandler {
	return &ThreadsHandler{threadService: threadService}
}

type createThreadRequest struct {
	Title string `json:"title"`
}

func (h *ThreadsHandler) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ThreadsHandler.Create")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req createThreadRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		thread, err := h.threadService.CreateThread(ctx, middleware.GetOwnerID(c), req.Title)
		if respondThreadErr(c, span, err) {
			return
		}

		c.JSON(http.StatusCreated, thread)
	}
}

func (h *ThreadsHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ThreadsHandler.List")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		limit, offset := pagination(c)
		threads, total, err := h.threadService.ListThreads(ctx, middleware.GetOwnerID(c), limit, offset)
		if respondThreadErr(c, span, err) {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"threads": threads,
			"total":   total,
			"limit":   limit,
			"offset":  offset,
		})
	}
}

func (h *ThreadsHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ThreadsHandler.Get")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		includeRemoved, _ := strconv.ParseBool(c.DefaultQuery("includeRemoved", "false"))
		thread, err := h.threadService.GetWithItems(ctx, middleware.GetOwnerID(c), c.Param("id"), includeRemoved)
		if respondThreadErr(c, span, err) {
			return
		}

		c.JSON(http.StatusOK, thread)
	}
}

type updateThreadRequest struct {
	Title string `json:"title"`
}

func (h *ThreadsHandler) UpdateTitle() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ThreadsHandler.UpdateTitle")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req updateThreadRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		err := h.threadService.UpdateTitle(ctx, middleware.GetOwnerID(c), c.Param("id"), req.Title)
		if respondThreadErr(c, span, err) {
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func (h *ThreadsHandler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ThreadsHandler.Delete")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		err := h.threadService.DeleteThread(ctx, middleware.GetOwnerID(c), c.Param("id"))
		if respondThreadErr(c, span, err) {
			return
		}

		c.Status(http.StatusNoContent)
	}
}

type addEmailRequest struct {
	EmailID string `json:"emailId"`
}

func (h *ThreadsHandler) AddEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ThreadsHandler.AddEmail")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req addEmailRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		item, alreadyPresent, err := h.threadService.AddEmail(ctx, middleware.GetOwnerID(c), c.Param("id"), req.EmailID)
		if respondThreadErr(c, span, err) {
			return
		}

		status := http.StatusCreated
		if alreadyPresent {
			status = http.StatusOK
		}
		c.JSON(status, gin.H{"item": item, "alreadyPresent": alreadyPresent})
	}
}

type addItemRequest struct {
	Content string `json:"content"`
}

func (h *ThreadsHandler) AddComment() gin.HandlerFunc {
	return h.addTextItem("ThreadsHandler.AddComment", func(c *gin.Context, ownerID, threadID, content string) (any, error) {
		return h.threadService.AddComment(c.Request.Context(), ownerID, threadID, content)
	})
}

func (h *ThreadsHandler) AddNote() gin.HandlerFunc {
	return h.addTextItem("ThreadsHandler.AddNote", func(c *gin.Context, ownerID, threadID, content string) (any, error) {
		return h.threadService.AddNote(c.Request.Context(), ownerID, threadID, content)
	})
}

func (h *ThreadsHandler) AddDivider() gin.HandlerFunc {
	return h.addTextItem("ThreadsHandler.AddDivider", func(c *gin.Context, ownerID, threadID, content string) (any, error) {
		return h.threadService.AddDivider(c.Request.Context(), ownerID, threadID, content)
	})
}

func (h *ThreadsHandler) addTextItem(operationName string, add func(c *gin.Context, ownerID, threadID, content string) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), operationName)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)
		c.Request = c.Request.WithContext(ctx)

		var req addItemRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		item, err := add(c, middleware.GetOwnerID(c), c.Param("id"), req.Content)
		if respondThreadErr(c, span, err) {
			return
		}

		c.JSON(http.StatusCreated, item)
	}
}

type mergeRequest struct {
	EmailIDs       []string `json:"emailIds"`
	TargetThreadID string   `json:"targetThreadId,omitempty"`
	Title          string   `json:"title,omitempty"`
}

func (h *ThreadsHandler) Merge() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ThreadsHandler.Merge")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req mergeRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(req.EmailIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "emailIds must not be empty"})
			return
		}

		result, err := h.threadService.Merge(ctx, middleware.GetOwnerID(c), req.EmailIDs, req.TargetThreadID, req.Title)
		if respondThreadErr(c, span, err) {
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

type removeItemRequest struct {
	RemovedBy string `json:"removedBy"`
}

func (h *ThreadsHandler) RemoveItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ThreadsHandler.RemoveItem")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		// Body is optional; an empty delete attributes the removal to the caller.
		var req removeItemRequest
		_ = c.ShouldBindJSON(&req)

		ownerID := middleware.GetOwnerID(c)
		removedBy := req.RemovedBy
		if removedBy == "" {
			removedBy = ownerID
		}

		err := h.threadService.RemoveItem(ctx, ownerID, c.Param("itemId"), removedBy)
		if respondThreadErr(c, span, err) {
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func (h *ThreadsHandler) RestoreItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ThreadsHandler.RestoreItem")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		err := h.threadService.RestoreItem(ctx, middleware.GetOwnerID(c), c.Param("itemId"))
		if respondThreadErr(c, span, err) {
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func (h *ThreadsHandler) PermanentDeleteItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ThreadsHandler.PermanentDeleteItem")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		err := h.threadService.PermanentDeleteItem(ctx, middleware.GetOwnerID(c), c.Param("itemId"))
		if respondThreadErr(c, span, err) {
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func (h *ThreadsHandler) UpdateItemContent() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ThreadsHandler.UpdateItemContent")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req addItemRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		err := h.threadService.UpdateItemContent(ctx, middleware.GetOwnerID(c), c.Param("itemId"), req.Content)
		if respondThreadErr(c, span, err) {
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func respondThreadErr(c *gin.Context, span opentracing.Span, err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, apperrors.ErrThreadNotFound), errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrContentRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrContentImmutable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		tracing.TraceErr(span, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
	return true
}
