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

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{
		db: db,
	}
}

// Upsert inserts or updates the row keyed by (owner, provider id). Applying
// the same record twice leaves the row identical to applying it once.
func (r *emailRepository) Upsert(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Upsert")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, email.OwnerID)

	existing := &models.Email{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND provider_id = ?", email.OwnerID, email.ProviderID).
		First(existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if createErr := r.db.WithContext(ctx).Create(email).Error; createErr != nil {
			tracing.TraceErr(span, createErr)
			return createErr
		}
		span.SetTag("created", true)
		return nil
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	updates := mutableFieldChanges(existing, email)
	if len(updates) == 0 {
		span.SetTag("unchanged", true)
		email.ID = existing.ID
		return nil
	}
	updates["updated_at"] = utils.Now()

	if err := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	email.ID = existing.ID
	return nil
}

// mutableFieldChanges diffs the fields sync and user actions may change and
// returns only the ones that actually differ, so a repeated identical
// record produces no write at all.
func mutableFieldChanges(existing, incoming *models.Email) map[string]interface{} {
	updates := map[string]interface{}{}

	if incoming.Folder != "" && incoming.Folder != existing.Folder {
		updates["folder"] = incoming.Folder
	}
	if incoming.Subject != existing.Subject {
		updates["subject"] = incoming.Subject
	}
	if incoming.BodyPreview != existing.BodyPreview {
		updates["body_preview"] = incoming.BodyPreview
	}
	if incoming.IsRead != existing.IsRead {
		updates["is_read"] = incoming.IsRead
	}
	if incoming.HasAttachments != existing.HasAttachments {
		updates["has_attachments"] = incoming.HasAttachments
	}
	if incoming.Importance != "" && incoming.Importance != existing.Importance {
		updates["importance"] = incoming.Importance
	}
	if incoming.FlagStatus != "" && incoming.FlagStatus != existing.FlagStatus {
		updates["flag_status"] = incoming.FlagStatus
	}
	if utils.GetOrDefault(incoming.FlagColor, "") != utils.GetOrDefault(existing.FlagColor, "") {
		updates["flag_color"] = incoming.FlagColor
	}
	if incoming.ConversationID != "" && incoming.ConversationID != existing.ConversationID {
		updates["conversation_id"] = incoming.ConversationID
	}
	return updates
}

// DeleteByProviderID deletes if present; deleting a row that was never
// cached is a no-op, not an error.
func (r *emailRepository) DeleteByProviderID(ctx context.Context, ownerID, providerID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.DeleteByProviderID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)

	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND provider_id = ?", ownerID, providerID).
		Delete(&models.Email{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	span.SetTag("deleted", result.RowsAffected > 0)
	return nil
}

func (r *emailRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)

	var email models.Email
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

func (r *emailRepository) GetByProviderID(ctx context.Context, ownerID, providerID string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByProviderID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)

	var email models.Email
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND provider_id = ?", ownerID, providerID).
		First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

func (r *emailRepository) ListByFolder(ctx context.Context, ownerID string, folder enum.Folder, limit, offset int) ([]*models.Email, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListByFolder")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagFolder(span, folder.String())

	var emails []*models.Email
	var count int64

	if err := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("owner_id = ? AND folder = ?", ownerID, folder).
		Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND folder = ?", ownerID, folder).
		Order("received_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	return emails, count, nil
}

func (r *emailRepository) UpdateReadStatus(ctx context.Context, ownerID, id string, isRead bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.UpdateReadStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)

	return r.updateFields(ctx, span, ownerID, id, map[string]interface{}{"is_read": isRead})
}

func (r *emailRepository) UpdateFlag(ctx context.Context, ownerID, id string, status enum.FlagStatus, color *string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.UpdateFlag")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)

	return r.updateFields(ctx, span, ownerID, id, map[string]interface{}{
		"flag_status": status,
		"flag_color":  color,
	})
}

func (r *emailRepository) UpdateFolder(ctx context.Context, ownerID, id string, folder enum.Folder) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.UpdateFolder")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagFolder(span, folder.String())

	return r.updateFields(ctx, span, ownerID, id, map[string]interface{}{"folder": folder})
}

func (r *emailRepository) updateFields(ctx context.Context, span opentracing.Span, ownerID, id string, updates map[string]interface{}) error {
	updates["updated_at"] = utils.Now()

	result := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
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

func (r *emailRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.DeleteByOwner")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)

	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&models.Email{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
