package interfaces

import (
	"context"

	"github.com/mailweave/mailweave/internal/models"
)

// EmailSnapshot is the read-through enrichment attached to email items when
// a thread is loaded. It is never stored.
type EmailSnapshot struct {
	EmailID     string   `json:"emailId"`
	Subject     string   `json:"subject"`
	BodyPreview string   `json:"bodyPreview"`
	FromAddress string   `json:"fromAddress"`
	FromName    string   `json:"fromName"`
	ToAddresses []string `json:"toAddresses"`
	CcAddresses []string `json:"ccAddresses"`
	IsRead      bool     `json:"isRead"`
}

type ThreadItemView struct {
	Item  *models.ThreadItem `json:"item"`
	Email *EmailSnapshot     `json:"email,omitempty"`
}

type ThreadWithItems struct {
	Thread *models.Thread   `json:"thread"`
	Items  []ThreadItemView `json:"items"`
}

// MergeResult reports the partial-success outcome of a merge: emails already
// linked or not owned by the caller are skipped, not fatal.
type MergeResult struct {
	ThreadID string   `json:"threadId"`
	Added    []string `json:"added"`
	Skipped  []Skip   `json:"skipped"`
}

type Skip struct {
	EmailID string `json:"emailId"`
	Reason  string `json:"reason"`
}

const (
	SkipReasonAlreadyLinked = "already_linked"
	SkipReasonNotFound      = "not_found"
)

type ThreadService interface {
	CreateThread(ctx context.Context, ownerID, title string) (*models.Thread, error)
	GetWithItems(ctx context.Context, ownerID, threadID string, includeRemoved bool) (*ThreadWithItems, error)
	ListThreads(ctx context.Context, ownerID string, limit, offset int) ([]*models.Thread, int64, error)
	UpdateTitle(ctx context.Context, ownerID, threadID, title string) error
	DeleteThread(ctx context.Context, ownerID, threadID string) error

	// AddEmail reports alreadyPresent=true instead of creating a duplicate
	// when a live item for the email already exists in the thread.
	AddEmail(ctx context.Context, ownerID, threadID, emailID string) (item *models.ThreadItem, alreadyPresent bool, err error)
	AddComment(ctx context.Context, ownerID, threadID, content string) (*models.ThreadItem, error)
	AddNote(ctx context.Context, ownerID, threadID, content string) (*models.ThreadItem, error)
	AddDivider(ctx context.Context, ownerID, threadID, content string) (*models.ThreadItem, error)
	Merge(ctx context.Context, ownerID string, emailIDs []string, targetThreadID, title string) (*MergeResult, error)

	RemoveItem(ctx context.Context, ownerID, itemID, removedBy string) error
	RestoreItem(ctx context.Context, ownerID, itemID string) error
	PermanentDeleteItem(ctx context.Context, ownerID, itemID string) error
	UpdateItemContent(ctx context.Context, ownerID, itemID, content string) error
}
