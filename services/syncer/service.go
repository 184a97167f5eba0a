package syncer

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/enum"
	apperrors "github.com/mailweave/mailweave/internal/errors"
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/tracing"
)

// folderSyncEngine reconciles one (owner, folder) pair of the local cache
// against the remote delta feed. Every mutation it performs is idempotent
// and keyed by stable identifiers, so concurrent runs for the same folder
// converge without locking; the worst case is a redundant remote fetch.
type folderSyncEngine struct {
	gateway    interfaces.MailGateway
	emails     interfaces.EmailRepository
	syncStates interfaces.SyncStateRepository
	publisher  interfaces.EventPublisher
	log        logger.Logger
}

func NewFolderSyncEngine(
	gateway interfaces.MailGateway,
	emails interfaces.EmailRepository,
	syncStates interfaces.SyncStateRepository,
	publisher interfaces.EventPublisher,
	log logger.Logger,
) interfaces.FolderSyncService {
	return &folderSyncEngine{
		gateway:    gateway,
		emails:     emails,
		syncStates: syncStates,
		publisher:  publisher,
		log:        log,
	}
}

// SyncFolder drives one reconciliation window for the folder. An empty
// stored cursor triggers a full sync, otherwise the window continues from
// the resting delta cursor. The cursor is persisted only after the terminal
// page commits: a failure anywhere mid-window leaves SyncState untouched and
// the whole window replays on the next invocation.
func (s *folderSyncEngine) SyncFolder(ctx context.Context, ownerID string, folder enum.Folder) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncEngine.SyncFolder")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagFolder(span, folder.String())

	state, err := s.syncStates.GetSyncState(ctx, ownerID, folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	cursor := ""
	if state != nil {
		cursor = state.Cursor
	}
	span.SetTag("full_sync", cursor == "")

	deltaCursor, err := s.runWindow(ctx, ownerID, folder, cursor)
	if err != nil {
		if errors.Is(err, apperrors.ErrStaleCursor) {
			// The provider no longer honors this cursor. Reset to the
			// never-synced state; the next invocation runs a full sync.
			s.log.Warnf("[%s][%s] delta cursor stale, resetting to full sync", ownerID, folder)
			if clearErr := s.syncStates.ClearCursor(ctx, ownerID, folder); clearErr != nil {
				tracing.TraceErr(span, clearErr)
				return clearErr
			}
		}
		tracing.TraceErr(span, err)
		return err
	}

	if err := s.syncStates.SaveCursor(ctx, ownerID, folder, deltaCursor); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

// runWindow pages through one logical change window in the order the
// gateway returns pages; later pages may update or remove rows applied by
// earlier ones. Returns the terminal delta cursor.
func (s *folderSyncEngine) runWindow(ctx context.Context, ownerID string, folder enum.Folder, cursor string) (string, error) {
	pageCursor := cursor
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page, err := s.gateway.FetchDelta(ctx, ownerID, folder, pageCursor)
		if err != nil {
			return "", err
		}

		for _, record := range page.Records {
			if err := s.applyRecord(ctx, ownerID, folder, record); err != nil {
				return "", err
			}
		}

		if page.DeltaCursor != "" {
			return page.DeltaCursor, nil
		}
		if page.NextCursor == "" {
			return "", errors.New("delta page carries neither next nor delta cursor")
		}
		pageCursor = page.NextCursor
	}
}

// applyRecord reconciles one change record. Both branches are idempotent:
// deleting an uncached message is a no-op, re-upserting an identical record
// leaves the row unchanged.
func (s *folderSyncEngine) applyRecord(ctx context.Context, ownerID string, folder enum.Folder, record interfaces.ChangeRecord) error {
	if record.Removed {
		if err := s.emails.DeleteByProviderID(ctx, ownerID, record.ProviderID); err != nil {
			return errors.Wrapf(err, "failed to delete %s", record.ProviderID)
		}
		s.publishCached(ctx, ownerID, record.ProviderID, folder, true)
		return nil
	}

	if record.Email == nil {
		return errors.Errorf("change record %s has neither removal marker nor payload", record.ProviderID)
	}

	email := record.Email
	email.OwnerID = ownerID
	if email.Folder == "" {
		email.Folder = folder
	}
	if err := s.emails.Upsert(ctx, email); err != nil {
		return errors.Wrapf(err, "failed to upsert %s", record.ProviderID)
	}
	s.publishCached(ctx, ownerID, record.ProviderID, folder, false)
	return nil
}

func (s *folderSyncEngine) publishCached(ctx context.Context, ownerID, providerID string, folder enum.Folder, removed bool) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishEmailCached(ctx, interfaces.EmailCached{
		OwnerID:    ownerID,
		ProviderID: providerID,
		Folder:     folder,
		Removed:    removed,
	})
}

// SyncAllFolders fans the sync out across every tracked folder. Folder
// failures are isolated from each other; only an authentication failure
// short-circuits, because the same owner credential would fail for every
// remaining folder too.
func (s *folderSyncEngine) SyncAllFolders(ctx context.Context, ownerID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncEngine.SyncAllFolders")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)

	multiErr := apperrors.NewMultiErrors()
	for _, folder := range enum.AllFolders() {
		if err := s.SyncFolder(ctx, ownerID, folder); err != nil {
			s.log.Errorf("[%s][%s] sync failed: %v", ownerID, folder, err)
			multiErr.Add(folder.String(), err.Error(), err)

			if errors.Is(err, apperrors.ErrAuthFailed) {
				tracing.TraceErr(span, err)
				return errors.Wrapf(apperrors.ErrAuthFailed, "owner %s", ownerID)
			}
		}
	}

	if multiErr.HasErrors() {
		tracing.TraceErr(span, multiErr)
		return multiErr
	}
	return nil
}

// PurgeOwnerData removes everything the sync engine owns for the owner:
// the cached email rows and every folder's cursor. The next sync after a
// reconnect runs as a full sync.
func (s *folderSyncEngine) PurgeOwnerData(ctx context.Context, ownerID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncEngine.PurgeOwnerData")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)

	if err := s.emails.DeleteByOwner(ctx, ownerID); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to purge cached emails")
	}
	if err := s.syncStates.DeleteOwnerSyncStates(ctx, ownerID); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to purge sync states")
	}

	s.log.Infof("[%s] purged cached emails and sync cursors", ownerID)
	return nil
}
