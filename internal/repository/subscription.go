package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/models"
	"github.com/mailweave/mailweave/internal/tracing"
	"github.com/mailweave/mailweave/internal/utils"
)

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) interfaces.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Save(ctx context.Context, sub *models.WebhookSubscription) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "subscriptionRepository.Save")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, sub.OwnerID)

	if sub == nil {
		err := errors.New("subscription cannot be nil")
		tracing.TraceErr(span, err)
		return err
	}

	sub.UpdatedAt = utils.Now()
	if err := r.db.WithContext(ctx).Save(sub).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *subscriptionRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.WebhookSubscription, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "subscriptionRepository.GetBySubscriptionID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var sub models.WebhookSubscription
	if err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.WebhookSubscription, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "subscriptionRepository.ListByOwner")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)

	var subs []*models.WebhookSubscription
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("expires_at DESC").
		Find(&subs).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.WebhookSubscription, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "subscriptionRepository.ListExpiringBefore")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var subs []*models.WebhookSubscription
	if err := r.db.WithContext(ctx).
		Where("expires_at < ?", deadline).
		Find(&subs).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) UpdateExpiry(ctx context.Context, subscriptionID string, expiresAt time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "subscriptionRepository.UpdateExpiry")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Model(&models.WebhookSubscription{}).
		Where("subscription_id = ?", subscriptionID).
		Updates(map[string]interface{}{
			"expires_at": expiresAt,
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

func (r *subscriptionRepository) Delete(ctx context.Context, subscriptionID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "subscriptionRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Delete(&models.WebhookSubscription{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
