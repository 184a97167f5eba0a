package interfaces

import (
	"context"

	"github.com/mailweave/mailweave/internal/models"
)

type SubscriptionService interface {
	// EnsureSubscription creates a push registration for the owner if none
	// is active, returning the existing one otherwise.
	EnsureSubscription(ctx context.Context, ownerID string) (*models.WebhookSubscription, error)
	// RenewDueSubscriptions extends registrations expiring within the
	// renewal window, replacing any whose renewal the provider rejects.
	RenewDueSubscriptions(ctx context.Context) error
	DeleteSubscription(ctx context.Context, ownerID, subscriptionID string) error
	// DeleteOwnerSubscriptions tears down every registration the owner has,
	// on both the provider and the local store.
	DeleteOwnerSubscriptions(ctx context.Context, ownerID string) error
}
