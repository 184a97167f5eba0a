package interfaces

import (
	"context"

	"github.com/mailweave/mailweave/internal/models"
)

type ThreadRepository interface {
	Create(ctx context.Context, thread *models.Thread) (string, error)
	// GetByID returns nil, nil when no thread with that id belongs to the owner.
	GetByID(ctx context.Context, ownerID, id string) (*models.Thread, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Thread, int64, error)
	UpdateTitle(ctx context.Context, ownerID, id, title string) error
	Delete(ctx context.Context, ownerID, id string) error
}

type ThreadItemRepository interface {
	Create(ctx context.Context, item *models.ThreadItem) (string, error)
	GetByID(ctx context.Context, ownerID, id string) (*models.ThreadItem, error)
	// GetActiveEmailItem finds the live email item linking (threadID, emailID),
	// nil, nil when the email is not currently in the thread.
	GetActiveEmailItem(ctx context.Context, threadID, emailID string) (*models.ThreadItem, error)
	ListByThread(ctx context.Context, threadID string, includeRemoved bool) ([]*models.ThreadItem, error)
	SetRemoved(ctx context.Context, id, removedBy string) error
	ClearRemoved(ctx context.Context, id string) error
	UpdateContent(ctx context.Context, id, content string) error
	// Delete is the hard delete; it bypasses the soft-delete state machine.
	Delete(ctx context.Context, id string) error
	DeleteByThread(ctx context.Context, threadID string) error
}
