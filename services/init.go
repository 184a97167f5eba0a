package services

import (
	"context"

	"github.com/mailweave/mailweave/config"
	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/repository"
	"github.com/mailweave/mailweave/services/events"
	"github.com/mailweave/mailweave/services/graph"
	"github.com/mailweave/mailweave/services/identity"
	"github.com/mailweave/mailweave/services/notifications"
	"github.com/mailweave/mailweave/services/subscriptions"
	"github.com/mailweave/mailweave/services/syncer"
	"github.com/mailweave/mailweave/services/threads"
)

type Services struct {
	EventsService       *events.EventsService
	IdentityService     interfaces.IdentityService
	MailGateway         interfaces.MailGateway
	SyncService         interfaces.FolderSyncService
	SubscriptionService interfaces.SubscriptionService
	NotificationService interfaces.NotificationService
	ThreadService       interfaces.ThreadService
}

func InitServices(ctx context.Context, cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	publisherConfig := &events.PublisherConfig{
		MessageTTL:          events.DefaultMessageTTL,
		MaxRetries:          events.DefaultMaxRetries,
		PublishTimeout:      events.DefaultPublishTimeout,
		ReconnectBackoff:    events.DefaultReconnectBackoff,
		MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
	}

	subscriberConfig := &events.SubscriberConfig{
		MaxRetries:          events.DefaultMaxRetries,
		ReconnectBackoff:    events.DefaultReconnectBackoff,
		MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
	}

	eventsService, err := events.NewEventsService(cfg.AppConfig.RabbitMQURL, log, publisherConfig, subscriberConfig)
	if err != nil {
		return nil, err
	}

	identityService, err := identity.NewIdentityService(ctx, cfg.IdentityConfig, log)
	if err != nil {
		eventsService.Close()
		return nil, err
	}

	gateway := graph.NewGateway(identityService, log)

	services := Services{
		EventsService:   eventsService,
		IdentityService: identityService,
		MailGateway:     gateway,
		SyncService: syncer.NewFolderSyncEngine(
			gateway,
			repos.EmailRepository,
			repos.SyncStateRepository,
			eventsService.Publisher,
			log,
		),
		SubscriptionService: subscriptions.NewSubscriptionService(
			cfg.WebhookConfig,
			gateway,
			repos.SubscriptionRepository,
			log,
		),
		NotificationService: notifications.NewNotificationService(
			repos.SubscriptionRepository,
			eventsService.Publisher,
			log,
		),
		ThreadService: threads.NewThreadComposer(
			repos.ThreadRepository,
			repos.ThreadItemRepository,
			repos.EmailRepository,
			log,
		),
	}

	return &services, nil
}
