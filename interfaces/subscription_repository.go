package interfaces

import (
	"context"
	"time"

	"github.com/mailweave/mailweave/internal/models"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, sub *models.WebhookSubscription) error
	// GetBySubscriptionID returns nil, nil for unknown subscriptions.
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.WebhookSubscription, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.WebhookSubscription, error)
	ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.WebhookSubscription, error)
	UpdateExpiry(ctx context.Context, subscriptionID string, expiresAt time.Time) error
	Delete(ctx context.Context, subscriptionID string) error
}
