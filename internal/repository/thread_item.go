package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/enum"
	"github.com/mailweave/mailweave/internal/models"
	"github.com/mailweave/mailweave/internal/tracing"
	"github.com/mailweave/mailweave/internal/utils"
)

type threadItemRepository struct {
	db *gorm.DB
}

func NewThreadItemRepository(db *gorm.DB) interfaces.ThreadItemRepository {
	return &threadItemRepository{
		db: db,
	}
}

func (r *threadItemRepository) Create(ctx context.Context, item *models.ThreadItem) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadItemRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if item == nil {
		err := errors.New("item cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}
	tracing.TagOwner(span, item.OwnerID)

	if item.Status == "" {
		item.Status = enum.ThreadItemActive
	}
	now := utils.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return item.ID, nil
}

func (r *threadItemRepository) GetByID(ctx context.Context, ownerID, id string) (*models.ThreadItem, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadItemRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, id)

	var item models.ThreadItem
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &item, nil
}

// GetActiveEmailItem enforces the one-live-email-per-thread invariant:
// removed items do not count, so a removed email can be re-added.
func (r *threadItemRepository) GetActiveEmailItem(ctx context.Context, threadID, emailID string) (*models.ThreadItem, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadItemRepository.GetActiveEmailItem")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var item models.ThreadItem
	if err := r.db.WithContext(ctx).
		Where("thread_id = ? AND item_type = ? AND email_id = ? AND status = ?",
			threadID, enum.ThreadItemEmail, emailID, enum.ThreadItemActive).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &item, nil
}

// ListByThread returns items ordered by item date ascending for display.
func (r *threadItemRepository) ListByThread(ctx context.Context, threadID string, includeRemoved bool) ([]*models.ThreadItem, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadItemRepository.ListByThread")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("include_removed", includeRemoved)

	query := r.db.WithContext(ctx).Where("thread_id = ?", threadID)
	if !includeRemoved {
		query = query.Where("status = ?", enum.ThreadItemActive)
	}

	var items []*models.ThreadItem
	if err := query.Order("item_date ASC").Find(&items).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return items, nil
}

func (r *threadItemRepository) SetRemoved(ctx context.Context, id, removedBy string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadItemRepository.SetRemoved")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	now := utils.Now()
	return r.updateItem(ctx, span, id, map[string]interface{}{
		"status":     enum.ThreadItemRemoved,
		"removed_at": now,
		"removed_by": removedBy,
		"updated_at": now,
	})
}

// ClearRemoved restores the item, clearing both removal fields unconditionally.
func (r *threadItemRepository) ClearRemoved(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadItemRepository.ClearRemoved")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	return r.updateItem(ctx, span, id, map[string]interface{}{
		"status":     enum.ThreadItemActive,
		"removed_at": nil,
		"removed_by": nil,
		"updated_at": utils.Now(),
	})
}

func (r *threadItemRepository) UpdateContent(ctx context.Context, id, content string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadItemRepository.UpdateContent")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	return r.updateItem(ctx, span, id, map[string]interface{}{
		"content":    content,
		"updated_at": utils.Now(),
	})
}

func (r *threadItemRepository) updateItem(ctx context.Context, span opentracing.Span, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.ThreadItem{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete hard-deletes the item regardless of its soft-delete state.
func (r *threadItemRepository) Delete(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadItemRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.ThreadItem{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *threadItemRepository) DeleteByThread(ctx context.Context, threadID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadItemRepository.DeleteByThread")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Delete(&models.ThreadItem{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
