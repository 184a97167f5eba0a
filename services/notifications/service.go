package notifications

import (
	"context"
	"crypto/subtle"

	"github.com/opentracing/opentracing-go"

	"github.com/mailweave/mailweave/interfaces"
	apperrors "github.com/mailweave/mailweave/internal/errors"
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/tracing"
)

const sourceWebhook = "webhook"

type notificationService struct {
	subscriptions interfaces.SubscriptionRepository
	publisher     interfaces.EventPublisher
	log           logger.Logger
}

func NewNotificationService(
	subscriptions interfaces.SubscriptionRepository,
	publisher interfaces.EventPublisher,
	log logger.Logger,
) interfaces.NotificationService {
	return &notificationService{
		subscriptions: subscriptions,
		publisher:     publisher,
		log:           log,
	}
}

// ProcessBatch authenticates each notification against the stored
// registration and collapses the batch to one sync request per owner. A
// forged or stale notification is dropped and logged, never an error: the
// provider retries on non-2xx and a retry would not make it authentic.
func (s *notificationService) ProcessBatch(ctx context.Context, batch interfaces.NotificationBatch) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "notificationService.ProcessBatch")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("batch.size", len(batch.Value))

	owners := make(map[string]struct{})
	for _, notification := range batch.Value {
		ownerID, ok := s.authenticate(ctx, notification)
		if !ok {
			continue
		}
		owners[ownerID] = struct{}{}
	}
	span.SetTag("owners.count", len(owners))

	multiErr := apperrors.NewMultiErrors()
	for ownerID := range owners {
		err := s.publisher.PublishSyncRequested(ctx, interfaces.SyncRequested{
			OwnerID: ownerID,
			Source:  sourceWebhook,
		})
		if err != nil {
			s.log.Errorf("[%s] failed to publish sync request: %v", ownerID, err)
			multiErr.Add(ownerID, err.Error(), err)
		}
	}

	if multiErr.HasErrors() {
		tracing.TraceErr(span, multiErr)
		return multiErr
	}
	return nil
}

func (s *notificationService) authenticate(ctx context.Context, notification interfaces.ChangeNotification) (string, bool) {
	sub, err := s.subscriptions.GetBySubscriptionID(ctx, notification.SubscriptionID)
	if err != nil {
		s.log.Errorf("failed to look up subscription %s: %v", notification.SubscriptionID, err)
		return "", false
	}
	if sub == nil {
		s.log.Warnf("dropping notification for unknown subscription %s", notification.SubscriptionID)
		return "", false
	}
	// A registration without a stored secret cannot be verified, only a
	// present one gates the notification.
	if sub.ClientState != "" && subtle.ConstantTimeCompare([]byte(sub.ClientState), []byte(notification.ClientState)) != 1 {
		s.log.Warnf("dropping notification for subscription %s: clientState mismatch", notification.SubscriptionID)
		return "", false
	}
	return sub.OwnerID, true
}
