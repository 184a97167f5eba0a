package interfaces

import (
	"context"

	"github.com/mailweave/mailweave/internal/enum"
)

// SyncRequested asks for a full-folder fan-out sync of one owner. Published
// by the webhook handler, consumed by the events listener so the HTTP
// acknowledgment never waits on sync work.
type SyncRequested struct {
	OwnerID string `json:"ownerId"`
	Source  string `json:"source"`
}

// EmailCached is emitted after a change record is applied to the cache.
type EmailCached struct {
	OwnerID    string      `json:"ownerId"`
	ProviderID string      `json:"providerId"`
	Folder     enum.Folder `json:"folder"`
	Removed    bool        `json:"removed"`
}

type EventPublisher interface {
	PublishSyncRequested(ctx context.Context, event SyncRequested) error
	// PublishEmailCached is fire-and-forget: a lost cache event is
	// recovered by the next sync, so failures are logged, not returned.
	PublishEmailCached(ctx context.Context, event EmailCached)
	Close() error
}

type EventListener interface {
	Handle(ctx context.Context, event any) error
	GetEventType() string
	GetQueueName() string
}

type EventSubscriber interface {
	RegisterListener(listener EventListener)
	ListenQueue(queueName string) error
	ListenQueueExclusive(queueName string) error
	Close() error
}
