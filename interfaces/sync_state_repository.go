package interfaces

import (
	"context"

	"github.com/mailweave/mailweave/internal/enum"
	"github.com/mailweave/mailweave/internal/models"
)

type SyncStateRepository interface {
	// GetSyncState returns nil, nil when the folder has never been synced.
	GetSyncState(ctx context.Context, ownerID string, folder enum.Folder) (*models.SyncState, error)
	// SaveCursor persists the new resting cursor and stamps lastSyncedAt.
	// Called only once a reconciliation window fully commits.
	SaveCursor(ctx context.Context, ownerID string, folder enum.Folder, cursor string) error
	// ClearCursor forces the next sync of the folder to run as a full sync.
	ClearCursor(ctx context.Context, ownerID string, folder enum.Folder) error
	// ListOwners returns every distinct owner with at least one sync state.
	ListOwners(ctx context.Context) ([]string, error)
	DeleteOwnerSyncStates(ctx context.Context, ownerID string) error
}
