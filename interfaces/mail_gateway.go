package interfaces

import (
	"context"
	"time"

	"github.com/mailweave/mailweave/internal/enum"
	"github.com/mailweave/mailweave/internal/models"
)

// ChangeRecord is one entry of a delta batch. Either Removed is set and only
// ProviderID is meaningful, or Email carries the message metadata.
type ChangeRecord struct {
	ProviderID string
	Removed    bool
	Email      *models.Email
}

// DeltaPage is one page of a delta query. Exactly one of NextCursor and
// DeltaCursor is set: NextCursor means more pages remain in the current
// window, DeltaCursor is the new resting cursor of a terminal page.
type DeltaPage struct {
	Records     []ChangeRecord
	NextCursor  string
	DeltaCursor string
}

type SubscriptionInfo struct {
	SubscriptionID string
	Resource       string
	ExpiresAt      time.Time
}

// MailGateway abstracts the remote provider's delta and subscription APIs.
// Implementations map provider-specific failures onto the internal/errors
// sentinels (ErrStaleCursor, ErrAuthFailed).
type MailGateway interface {
	// FetchDelta reads one page. An empty cursor starts a full sync.
	FetchDelta(ctx context.Context, ownerID string, folder enum.Folder, cursor string) (*DeltaPage, error)
	FetchMessage(ctx context.Context, ownerID, providerID string) (*models.Email, error)
	CreateSubscription(ctx context.Context, ownerID, notifyURL, clientState string) (*SubscriptionInfo, error)
	RenewSubscription(ctx context.Context, ownerID, subscriptionID string) (time.Time, error)
	DeleteSubscription(ctx context.Context, ownerID, subscriptionID string) error
}
