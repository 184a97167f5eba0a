package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailweave/mailweave/config"
	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/enum"
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/models"
	"github.com/mailweave/mailweave/internal/utils"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type fakeGateway struct {
	created       []string // notify URLs seen
	clientStates  []string
	renewErr      error
	renewedUntil  time.Time
	deleted       []string
	createCounter int
}

func (g *fakeGateway) FetchDelta(ctx context.Context, ownerID string, folder enum.Folder, cursor string) (*interfaces.DeltaPage, error) {
	return nil, errors.New("not scripted")
}

func (g *fakeGateway) FetchMessage(ctx context.Context, ownerID, providerID string) (*models.Email, error) {
	return nil, nil
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, ownerID, notifyURL, clientState string) (*interfaces.SubscriptionInfo, error) {
	g.createCounter++
	g.created = append(g.created, notifyURL)
	g.clientStates = append(g.clientStates, clientState)
	return &interfaces.SubscriptionInfo{
		SubscriptionID: "sub-new",
		Resource:       "/me/messages",
		ExpiresAt:      utils.Now().Add(70 * time.Hour),
	}, nil
}

func (g *fakeGateway) RenewSubscription(ctx context.Context, ownerID, subscriptionID string) (time.Time, error) {
	if g.renewErr != nil {
		return time.Time{}, g.renewErr
	}
	return g.renewedUntil, nil
}

func (g *fakeGateway) DeleteSubscription(ctx context.Context, ownerID, subscriptionID string) error {
	g.deleted = append(g.deleted, subscriptionID)
	return nil
}

type fakeSubscriptionRepo struct {
	subs map[string]*models.WebhookSubscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[string]*models.WebhookSubscription)}
}

func (r *fakeSubscriptionRepo) Save(ctx context.Context, sub *models.WebhookSubscription) error {
	r.subs[sub.SubscriptionID] = sub
	return nil
}

func (r *fakeSubscriptionRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.WebhookSubscription, error) {
	return r.subs[subscriptionID], nil
}

func (r *fakeSubscriptionRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.WebhookSubscription, error) {
	var out []*models.WebhookSubscription
	for _, sub := range r.subs {
		if sub.OwnerID == ownerID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.WebhookSubscription, error) {
	var out []*models.WebhookSubscription
	for _, sub := range r.subs {
		if sub.ExpiresAt.Before(deadline) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) UpdateExpiry(ctx context.Context, subscriptionID string, expiresAt time.Time) error {
	sub, ok := r.subs[subscriptionID]
	if !ok {
		return errors.New("record not found")
	}
	sub.ExpiresAt = expiresAt
	return nil
}

func (r *fakeSubscriptionRepo) Delete(ctx context.Context, subscriptionID string) error {
	delete(r.subs, subscriptionID)
	return nil
}

func newService(gateway *fakeGateway, repo *fakeSubscriptionRepo) interfaces.SubscriptionService {
	cfg := &config.WebhookConfig{
		PublicBaseURL:        "https://mail.example.com/",
		RenewalWindowMinutes: 60,
	}
	return NewSubscriptionService(cfg, gateway, repo, getLogger())
}

func TestEnsureSubscription_CreatesWithDerivedNotifyURL(t *testing.T) {
	gateway := &fakeGateway{}
	repo := newFakeSubscriptionRepo()
	service := newService(gateway, repo)

	sub, err := service.EnsureSubscription(context.Background(), "owner-1")

	require.NoError(t, err)
	assert.Equal(t, "sub-new", sub.SubscriptionID)
	assert.NotEmpty(t, sub.ClientState)
	require.Len(t, gateway.created, 1)
	assert.Equal(t, "https://mail.example.com/webhooks/graph", gateway.created[0])
	assert.Contains(t, repo.subs, "sub-new")
}

func TestEnsureSubscription_ReturnsActiveRegistration(t *testing.T) {
	gateway := &fakeGateway{}
	repo := newFakeSubscriptionRepo()
	repo.subs["sub-live"] = &models.WebhookSubscription{
		OwnerID:        "owner-1",
		SubscriptionID: "sub-live",
		ClientState:    "existing-secret",
		ExpiresAt:      utils.Now().Add(24 * time.Hour),
	}
	service := newService(gateway, repo)

	sub, err := service.EnsureSubscription(context.Background(), "owner-1")

	require.NoError(t, err)
	assert.Equal(t, "sub-live", sub.SubscriptionID)
	assert.Equal(t, 0, gateway.createCounter)
}

func TestEnsureSubscription_ReplacesExpiredRegistration(t *testing.T) {
	gateway := &fakeGateway{}
	repo := newFakeSubscriptionRepo()
	repo.subs["sub-dead"] = &models.WebhookSubscription{
		OwnerID:        "owner-1",
		SubscriptionID: "sub-dead",
		ExpiresAt:      utils.Now().Add(-time.Hour),
	}
	service := newService(gateway, repo)

	sub, err := service.EnsureSubscription(context.Background(), "owner-1")

	require.NoError(t, err)
	assert.Equal(t, "sub-new", sub.SubscriptionID)
	assert.NotContains(t, repo.subs, "sub-dead")
	assert.Contains(t, gateway.deleted, "sub-dead")
}

func TestRenewDueSubscriptions_ExtendsExpiry(t *testing.T) {
	gateway := &fakeGateway{renewedUntil: utils.Now().Add(70 * time.Hour)}
	repo := newFakeSubscriptionRepo()
	repo.subs["sub-due"] = &models.WebhookSubscription{
		OwnerID:        "owner-1",
		SubscriptionID: "sub-due",
		ExpiresAt:      utils.Now().Add(10 * time.Minute),
	}
	service := newService(gateway, repo)

	err := service.RenewDueSubscriptions(context.Background())

	require.NoError(t, err)
	assert.Equal(t, gateway.renewedUntil, repo.subs["sub-due"].ExpiresAt)
}

func TestRenewDueSubscriptions_ReplacesRejectedRenewal(t *testing.T) {
	gateway := &fakeGateway{renewErr: errors.New("subscription not found upstream")}
	repo := newFakeSubscriptionRepo()
	repo.subs["sub-due"] = &models.WebhookSubscription{
		OwnerID:        "owner-1",
		SubscriptionID: "sub-due",
		ExpiresAt:      utils.Now().Add(10 * time.Minute),
	}
	service := newService(gateway, repo)

	err := service.RenewDueSubscriptions(context.Background())

	require.NoError(t, err)
	assert.NotContains(t, repo.subs, "sub-due")
	assert.Contains(t, repo.subs, "sub-new")
}

func TestDeleteOwnerSubscriptions_DropsAllForOwner(t *testing.T) {
	gateway := &fakeGateway{}
	repo := newFakeSubscriptionRepo()
	repo.subs["sub-1"] = &models.WebhookSubscription{OwnerID: "owner-1", SubscriptionID: "sub-1", ExpiresAt: utils.Now().Add(time.Hour)}
	repo.subs["sub-2"] = &models.WebhookSubscription{OwnerID: "owner-1", SubscriptionID: "sub-2", ExpiresAt: utils.Now().Add(-time.Hour)}
	repo.subs["sub-3"] = &models.WebhookSubscription{OwnerID: "owner-2", SubscriptionID: "sub-3", ExpiresAt: utils.Now().Add(time.Hour)}
	service := newService(gateway, repo)

	err := service.DeleteOwnerSubscriptions(context.Background(), "owner-1")

	require.NoError(t, err)
	assert.NotContains(t, repo.subs, "sub-1")
	assert.NotContains(t, repo.subs, "sub-2")
	assert.Contains(t, repo.subs, "sub-3")
	assert.ElementsMatch(t, []string{"sub-1", "sub-2"}, gateway.deleted)
}

func TestDeleteSubscription_OwnerScoped(t *testing.T) {
	gateway := &fakeGateway{}
	repo := newFakeSubscriptionRepo()
	repo.subs["sub-1"] = &models.WebhookSubscription{
		OwnerID:        "owner-1",
		SubscriptionID: "sub-1",
		ExpiresAt:      utils.Now().Add(24 * time.Hour),
	}
	service := newService(gateway, repo)

	// another owner cannot delete it
	err := service.DeleteSubscription(context.Background(), "owner-2", "sub-1")
	require.Error(t, err)
	assert.Contains(t, repo.subs, "sub-1")

	// the owner can
	err = service.DeleteSubscription(context.Background(), "owner-1", "sub-1")
	require.NoError(t, err)
	assert.NotContains(t, repo.subs, "sub-1")
	assert.Contains(t, gateway.deleted, "sub-1")
}
