package interfaces

import (
	"context"

	"github.com/mailweave/mailweave/internal/enum"
	"github.com/mailweave/mailweave/internal/models"
)

// EmailRepository is the local mail cache. Every operation is scoped by
// owner; no call may observe or mutate another owner's rows.
type EmailRepository interface {
	// Upsert inserts or updates keyed by (owner, provider id). Re-applying
	// an identical record is a no-op.
	Upsert(ctx context.Context, email *models.Email) error
	// DeleteByProviderID removes the row if present. Absence is not an error.
	DeleteByProviderID(ctx context.Context, ownerID, providerID string) error
	GetByID(ctx context.Context, ownerID, id string) (*models.Email, error)
	GetByProviderID(ctx context.Context, ownerID, providerID string) (*models.Email, error)
	ListByFolder(ctx context.Context, ownerID string, folder enum.Folder, limit, offset int) ([]*models.Email, int64, error)
	UpdateReadStatus(ctx context.Context, ownerID, id string, isRead bool) error
	UpdateFlag(ctx context.Context, ownerID, id string, status enum.FlagStatus, color *string) error
	UpdateFolder(ctx context.Context, ownerID, id string, folder enum.Folder) error
	DeleteByOwner(ctx context.Context, ownerID string) error
}
