package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/enum"
	"github.com/mailweave/mailweave/internal/models"
	"github.com/mailweave/mailweave/internal/tracing"
	"github.com/mailweave/mailweave/internal/utils"
)

type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) interfaces.SyncStateRepository {
	return &syncStateRepository{db: db}
}

// GetSyncState retrieves the sync state for an owner's folder
func (r *syncStateRepository) GetSyncState(ctx context.Context, ownerID string, folder enum.Folder) (*models.SyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.GetSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagFolder(span, folder.String())

	var state models.SyncState
	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND folder = ?", ownerID, folder).
		First(&state)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil // never synced
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get sync state: %w", result.Error)
	}

	return &state, nil
}

// SaveCursor persists the resting cursor after a reconciliation window fully
// commits. Partial pages never reach this point.
func (r *syncStateRepository) SaveCursor(ctx context.Context, ownerID string, folder enum.Folder, cursor string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.SaveCursor")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagFolder(span, folder.String())

	now := utils.Now()

	// Try to update first
	result := r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("owner_id = ? AND folder = ?", ownerID, folder).
		Updates(map[string]interface{}{
			"cursor":         cursor,
			"last_synced_at": now,
			"updated_at":     now,
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to save sync state: %w", result.Error)
	}

	// If no record was updated, create a new one
	if result.RowsAffected == 0 {
		state := &models.SyncState{
			OwnerID:      ownerID,
			Folder:       folder,
			Cursor:       cursor,
			LastSyncedAt: now,
		}
		if err := r.db.WithContext(ctx).Create(state).Error; err != nil {
			tracing.TraceErr(span, err)
			return fmt.Errorf("failed to save sync state: %w", err)
		}
	}

	return nil
}

// ClearCursor resets the folder to the never-synced state so the next run
// performs a full sync. Used when the provider reports the cursor stale.
func (r *syncStateRepository) ClearCursor(ctx context.Context, ownerID string, folder enum.Folder) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.ClearCursor")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagFolder(span, folder.String())

	result := r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("owner_id = ? AND folder = ?", ownerID, folder).
		Updates(map[string]interface{}{
			"cursor":     "",
			"updated_at": utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to clear sync state: %w", result.Error)
	}
	return nil
}

// ListOwners returns every distinct owner that has synced at least once
func (r *syncStateRepository) ListOwners(ctx context.Context) ([]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.ListOwners")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var owners []string
	err := r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Distinct("owner_id").
		Pluck("owner_id", &owners).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list sync state owners: %w", err)
	}
	return owners, nil
}

// DeleteOwnerSyncStates deletes all sync states for an owner
func (r *syncStateRepository) DeleteOwnerSyncStates(ctx context.Context, ownerID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.DeleteOwnerSyncStates")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagOwner(span, ownerID)

	result := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&models.SyncState{})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to delete owner sync states: %w", result.Error)
	}
	return nil
}
