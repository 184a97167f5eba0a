package handlers

import (
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/repository"
	"github.com/mailweave/mailweave/services"
)

type APIHandlers struct {
	Emails        *EmailsHandler
	Threads       *ThreadsHandler
	Sync          *SyncHandler
	Subscriptions *SubscriptionsHandler
	Webhooks      *WebhooksHandler
	Account       *AccountHandler
}

func InitHandlers(repos *repository.Repositories, svc *services.Services, log logger.Logger) *APIHandlers {
	return &APIHandlers{
		Emails:        NewEmailsHandler(repos.EmailRepository),
		Threads:       NewThreadsHandler(svc.ThreadService),
		Sync:          NewSyncHandler(svc.SyncService, svc.EventsService.Publisher),
		Subscriptions: NewSubscriptionsHandler(svc.SubscriptionService),
		Webhooks:      NewWebhooksHandler(svc.NotificationService, log),
		Account:       NewAccountHandler(svc.SubscriptionService, svc.SyncService),
	}
}
