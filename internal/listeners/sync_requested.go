package listeners

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/tracing"
	"github.com/mailweave/mailweave/services/events"
)

// SyncRequestedListener consumes queued sync requests and runs the folder
// fan-out. A returned error nacks the delivery onto the dead letter queue.
type SyncRequestedListener struct {
	events.BaseEventListener
	syncService interfaces.FolderSyncService
}

func NewSyncRequestedListener(
	logger logger.Logger, syncService interfaces.FolderSyncService,
) interfaces.EventListener {
	return &SyncRequestedListener{
		BaseEventListener: events.NewBaseEventListener(
			logger,
			events.GetEventType[interfaces.SyncRequested](),
			events.QueueSyncRequested,
		),
		syncService: syncService,
	}
}

func (l *SyncRequestedListener) Handle(ctx context.Context, baseEvent any) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncRequestedListener.Handle")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "event", baseEvent)

	validatedEvent, err := l.ValidateBaseEvent(ctx, baseEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	request, err := events.DecodeEventData[interfaces.SyncRequested](ctx, validatedEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	tracing.TagOwner(span, request.OwnerID)
	span.SetTag("source", request.Source)

	return l.syncService.SyncAllFolders(ctx, request.OwnerID)
}
