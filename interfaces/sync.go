package interfaces

import (
	"context"

	"github.com/mailweave/mailweave/internal/enum"
)

// FolderSyncService brings (owner, folder) pairs of the local cache to
// eventual consistency with the remote provider.
type FolderSyncService interface {
	SyncFolder(ctx context.Context, ownerID string, folder enum.Folder) error
	// SyncAllFolders fans out across every tracked folder. A failure in one
	// folder does not abort the others; the returned error aggregates
	// per-folder failures.
	SyncAllFolders(ctx context.Context, ownerID string) error
	// PurgeOwnerData drops the owner's cached emails and sync cursors, so a
	// later reconnect starts from a full sync of every folder.
	PurgeOwnerData(ctx context.Context, ownerID string) error
}
