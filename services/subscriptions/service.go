package subscriptions

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailweave/mailweave/config"
	"github.com/mailweave/mailweave/interfaces"
	apperrors "github.com/mailweave/mailweave/internal/errors"
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/models"
	"github.com/mailweave/mailweave/internal/tracing"
	"github.com/mailweave/mailweave/internal/utils"
)

const notificationPath = "/webhooks/graph"

type subscriptionService struct {
	cfg     *config.WebhookConfig
	gateway interfaces.MailGateway
	repo    interfaces.SubscriptionRepository
	log     logger.Logger
}

func NewSubscriptionService(
	cfg *config.WebhookConfig,
	gateway interfaces.MailGateway,
	repo interfaces.SubscriptionRepository,
	log logger.Logger,
) interfaces.SubscriptionService {
	return &subscriptionService{
		cfg:     cfg,
		gateway: gateway,
		repo:    repo,
		log:     log,
	}
}

func (s *subscriptionService) notifyURL() string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + notificationPath
}

// EnsureSubscription is idempotent per owner: an unexpired registration is
// returned as-is, anything else is replaced with a fresh one carrying a new
// clientState secret.
func (s *subscriptionService) EnsureSubscription(ctx context.Context, ownerID string) (*models.WebhookSubscription, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "subscriptionService.EnsureSubscription")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)

	existing, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	for _, sub := range existing {
		if sub.ExpiresAt.After(utils.Now()) {
			return sub, nil
		}
		// Expired registrations are dead weight on both sides.
		if delErr := s.dropSubscription(ctx, sub); delErr != nil {
			s.log.Warnf("[%s] failed to drop expired subscription %s: %v", ownerID, sub.SubscriptionID, delErr)
		}
	}

	clientState := uuid.New().String()
	info, err := s.gateway.CreateSubscription(ctx, ownerID, s.notifyURL(), clientState)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to create provider subscription")
	}

	sub := &models.WebhookSubscription{
		OwnerID:        ownerID,
		SubscriptionID: info.SubscriptionID,
		Resource:       info.Resource,
		ClientState:    clientState,
		ExpiresAt:      info.ExpiresAt,
	}
	if err := s.repo.Save(ctx, sub); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	s.log.Infof("[%s] registered subscription %s, expires %s", ownerID, sub.SubscriptionID, sub.ExpiresAt.Format(time.RFC3339))
	return sub, nil
}

// RenewDueSubscriptions extends every registration expiring within the
// renewal window. A rejected renewal usually means the provider already
// dropped the subscription, so it is recreated instead.
func (s *subscriptionService) RenewDueSubscriptions(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "subscriptionService.RenewDueSubscriptions")
	defer span.Finish()
	tracing.TagComponentService(span)

	deadline := utils.Now().Add(time.Duration(s.cfg.RenewalWindowMinutes) * time.Minute)
	due, err := s.repo.ListExpiringBefore(ctx, deadline)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	span.SetTag("due.count", len(due))

	multiErr := apperrors.NewMultiErrors()
	for _, sub := range due {
		if err := s.renewOrReplace(ctx, sub); err != nil {
			s.log.Errorf("[%s] failed to renew subscription %s: %v", sub.OwnerID, sub.SubscriptionID, err)
			multiErr.Add(sub.SubscriptionID, err.Error(), err)
		}
	}

	if multiErr.HasErrors() {
		tracing.TraceErr(span, multiErr)
		return multiErr
	}
	return nil
}

func (s *subscriptionService) renewOrReplace(ctx context.Context, sub *models.WebhookSubscription) error {
	expiresAt, err := s.gateway.RenewSubscription(ctx, sub.OwnerID, sub.SubscriptionID)
	if err == nil {
		return s.repo.UpdateExpiry(ctx, sub.SubscriptionID, expiresAt)
	}
	if errors.Is(err, apperrors.ErrAuthFailed) {
		return err
	}

	s.log.Warnf("[%s] renewal of %s rejected, replacing: %v", sub.OwnerID, sub.SubscriptionID, err)
	if delErr := s.dropSubscription(ctx, sub); delErr != nil {
		return delErr
	}
	if _, createErr := s.EnsureSubscription(ctx, sub.OwnerID); createErr != nil {
		return createErr
	}
	return nil
}

func (s *subscriptionService) DeleteSubscription(ctx context.Context, ownerID, subscriptionID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "subscriptionService.DeleteSubscription")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)

	sub, err := s.repo.GetBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if sub == nil || sub.OwnerID != ownerID {
		return errors.Wrapf(apperrors.ErrNotFound, "subscription %s", subscriptionID)
	}
	if err := s.dropSubscription(ctx, sub); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// DeleteOwnerSubscriptions drops every registration the owner has. Used on
// mailbox disconnect, where leaving a registration behind would keep the
// provider pushing notifications nobody can authenticate.
func (s *subscriptionService) DeleteOwnerSubscriptions(ctx context.Context, ownerID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "subscriptionService.DeleteOwnerSubscriptions")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)

	subs, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	multiErr := apperrors.NewMultiErrors()
	for _, sub := range subs {
		if err := s.dropSubscription(ctx, sub); err != nil {
			s.log.Errorf("[%s] failed to drop subscription %s: %v", ownerID, sub.SubscriptionID, err)
			multiErr.Add(sub.SubscriptionID, err.Error(), err)
		}
	}

	if multiErr.HasErrors() {
		tracing.TraceErr(span, multiErr)
		return multiErr
	}
	return nil
}

// dropSubscription removes the registration on both sides. The provider-side
// delete tolerates an already-gone subscription.
func (s *subscriptionService) dropSubscription(ctx context.Context, sub *models.WebhookSubscription) error {
	if err := s.gateway.DeleteSubscription(ctx, sub.OwnerID, sub.SubscriptionID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.log.Warnf("[%s] provider delete of subscription %s failed: %v", sub.OwnerID, sub.SubscriptionID, err)
	}
	return s.repo.Delete(ctx, sub.SubscriptionID)
}
