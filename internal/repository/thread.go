package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/models"
	"github.com/mailweave/mailweave/internal/tracing"
	"github.com/mailweave/mailweave/internal/utils"
)

type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(db *gorm.DB) interfaces.ThreadRepository {
	return &threadRepository{
		db: db,
	}
}

// Create inserts a new thread into the database
func (r *threadRepository) Create(ctx context.Context, thread *models.Thread) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if thread == nil {
		err := errors.New("thread cannot be nil")
		tracing.TraceErr(span, err)
		return "", err
	}
	if thread.OwnerID == "" {
		err := errors.New("thread owner cannot be empty")
		tracing.TraceErr(span, err)
		return "", err
	}
	tracing.TagOwner(span, thread.OwnerID)

	now := utils.Now()
	thread.CreatedAt = now
	thread.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(thread).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return thread.ID, nil
}

// GetByID retrieves a thread by its ID, scoped to the owner. A thread
// belonging to a different owner is reported as absent, not forbidden.
func (r *threadRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Thread, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, id)

	if id == "" {
		err := errors.New("thread ID cannot be empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var thread models.Thread
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &thread, nil
}

// ListByOwner retrieves an owner's threads with pagination
func (r *threadRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Thread, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.ListByOwner")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)

	var threads []*models.Thread
	var count int64

	if err := r.db.WithContext(ctx).Model(&models.Thread{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&threads).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	return threads, count, nil
}

func (r *threadRepository) UpdateTitle(ctx context.Context, ownerID, id, title string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.UpdateTitle")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, id)

	result := r.db.WithContext(ctx).
		Model(&models.Thread{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Updates(map[string]interface{}{
			"title":      title,
			"updated_at": utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the thread row. Items are removed separately by the
// composer so the two deletes stay visible at the call site.
func (r *threadRepository) Delete(ctx context.Context, ownerID, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, id)

	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&models.Thread{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
