package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/mailweave/mailweave/api/middleware"
	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/enum"
	apperrors "github.com/mailweave/mailweave/internal/errors"
	"github.com/mailweave/mailweave/internal/tracing"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type EmailsHandler struct {
	emails interfaces.EmailRepository
}

func NewEmailsHandler(emails interfaces.EmailRepository) *EmailsHandler {
	return &EmailsHandler{emails: emails}
}

func (h *EmailsHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.List")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		ownerID := middleware.GetOwnerID(c)
		folder, ok := enum.DecodeFolder(c.DefaultQuery("folder", enum.FolderInbox.String()))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown folder"})
			return
		}
		limit, offset := pagination(c)

		emails, total, err := h.emails.ListByFolder(ctx, ownerID, folder, limit, offset)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list emails"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"emails": emails,
			"total":  total,
			"limit":  limit,
			"offset": offset,
		})
	}
}

func (h *EmailsHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.Get")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		ownerID := middleware.GetOwnerID(c)
		email, err := h.emails.GetByID(ctx, ownerID, c.Param("id"))
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get email"})
			return
		}
		if email == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
			return
		}

		c.JSON(http.StatusOK, email)
	}
}

type updateReadRequest struct {
	IsRead bool `json:"isRead"`
}

func (h *EmailsHandler) UpdateRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.UpdateRead")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req updateReadRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ownerID := middleware.GetOwnerID(c)
		err := h.emails.UpdateReadStatus(ctx, ownerID, c.Param("id"), req.IsRead)
		if respondRepoErr(c, span, err) {
			return
		}

		c.Status(http.StatusNoContent)
	}
}

type updateFlagRequest struct {
	Status enum.FlagStatus `json:"status"`
	Color  *string         `json:"color,omitempty"`
}

func (h *EmailsHandler) UpdateFlag() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.UpdateFlag")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req updateFlagRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ownerID := middleware.GetOwnerID(c)
		err := h.emails.UpdateFlag(ctx, ownerID, c.Param("id"), req.Status, req.Color)
		if respondRepoErr(c, span, err) {
			return
		}

		c.Status(http.StatusNoContent)
	}
}

type moveFolderRequest struct {
	Folder string `json:"folder"`
}

func (h *EmailsHandler) Move() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.Move")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req moveFolderRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		folder, ok := enum.DecodeFolder(req.Folder)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown folder"})
			return
		}

		ownerID := middleware.GetOwnerID(c)
		err := h.emails.UpdateFolder(ctx, ownerID, c.Param("id"), folder)
		if respondRepoErr(c, span, err) {
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func respondRepoErr(c *gin.Context, span opentracing.Span, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return true
	}
	tracing.TraceErr(span, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	return true
}
