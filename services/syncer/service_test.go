package syncer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/enum"
	apperrors "github.com/mailweave/mailweave/internal/errors"
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/models"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

// fakeGateway scripts delta pages per cursor. Cursor "" plays the full-sync
// script.
type fakeGateway struct {
	pages      map[string]*interfaces.DeltaPage
	errs       map[string]error
	fetchCalls []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		pages: make(map[string]*interfaces.DeltaPage),
		errs:  make(map[string]error),
	}
}

func (g *fakeGateway) FetchDelta(ctx context.Context, ownerID string, folder enum.Folder, cursor string) (*interfaces.DeltaPage, error) {
	g.fetchCalls = append(g.fetchCalls, cursor)
	if err, ok := g.errs[cursor]; ok {
		return nil, err
	}
	page, ok := g.pages[cursor]
	if !ok {
		return &interfaces.DeltaPage{DeltaCursor: "delta-final"}, nil
	}
	return page, nil
}

func (g *fakeGateway) FetchMessage(ctx context.Context, ownerID, providerID string) (*models.Email, error) {
	return nil, nil
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, ownerID, notifyURL, clientState string) (*interfaces.SubscriptionInfo, error) {
	return nil, errors.New("not scripted")
}

func (g *fakeGateway) RenewSubscription(ctx context.Context, ownerID, subscriptionID string) (time.Time, error) {
	return time.Time{}, errors.New("not scripted")
}

func (g *fakeGateway) DeleteSubscription(ctx context.Context, ownerID, subscriptionID string) error {
	return nil
}

type fakeEmailRepo struct {
	emails      map[string]*models.Email // keyed by ownerID + "/" + providerID
	upsertCalls int
	failOn      string // providerID whose upsert fails
}

func newFakeEmailRepo() *fakeEmailRepo {
	return &fakeEmailRepo{emails: make(map[string]*models.Email)}
}

func (r *fakeEmailRepo) key(ownerID, providerID string) string {
	return ownerID + "/" + providerID
}

func (r *fakeEmailRepo) Upsert(ctx context.Context, email *models.Email) error {
	if email.ProviderID == r.failOn {
		return errors.New("storage failure")
	}
	r.upsertCalls++
	r.emails[r.key(email.OwnerID, email.ProviderID)] = email
	return nil
}

func (r *fakeEmailRepo) DeleteByProviderID(ctx context.Context, ownerID, providerID string) error {
	delete(r.emails, r.key(ownerID, providerID))
	return nil
}

func (r *fakeEmailRepo) GetByID(ctx context.Context, ownerID, id string) (*models.Email, error) {
	return nil, nil
}

func (r *fakeEmailRepo) GetByProviderID(ctx context.Context, ownerID, providerID string) (*models.Email, error) {
	return r.emails[r.key(ownerID, providerID)], nil
}

func (r *fakeEmailRepo) ListByFolder(ctx context.Context, ownerID string, folder enum.Folder, limit, offset int) ([]*models.Email, int64, error) {
	return nil, 0, nil
}

func (r *fakeEmailRepo) UpdateReadStatus(ctx context.Context, ownerID, id string, isRead bool) error {
	return nil
}

func (r *fakeEmailRepo) UpdateFlag(ctx context.Context, ownerID, id string, status enum.FlagStatus, color *string) error {
	return nil
}

func (r *fakeEmailRepo) UpdateFolder(ctx context.Context, ownerID, id string, folder enum.Folder) error {
	return nil
}

func (r *fakeEmailRepo) DeleteByOwner(ctx context.Context, ownerID string) error {
	for key := range r.emails {
		if strings.HasPrefix(key, ownerID+"/") {
			delete(r.emails, key)
		}
	}
	return nil
}

type fakeSyncStateRepo struct {
	states map[string]*models.SyncState // keyed by ownerID + "/" + folder
	saves  int
}

func newFakeSyncStateRepo() *fakeSyncStateRepo {
	return &fakeSyncStateRepo{states: make(map[string]*models.SyncState)}
}

func (r *fakeSyncStateRepo) key(ownerID string, folder enum.Folder) string {
	return ownerID + "/" + folder.String()
}

func (r *fakeSyncStateRepo) GetSyncState(ctx context.Context, ownerID string, folder enum.Folder) (*models.SyncState, error) {
	return r.states[r.key(ownerID, folder)], nil
}

func (r *fakeSyncStateRepo) SaveCursor(ctx context.Context, ownerID string, folder enum.Folder, cursor string) error {
	r.saves++
	r.states[r.key(ownerID, folder)] = &models.SyncState{
		OwnerID: ownerID,
		Folder:  folder,
		Cursor:  cursor,
	}
	return nil
}

func (r *fakeSyncStateRepo) ClearCursor(ctx context.Context, ownerID string, folder enum.Folder) error {
	if state, ok := r.states[r.key(ownerID, folder)]; ok {
		state.Cursor = ""
	}
	return nil
}

func (r *fakeSyncStateRepo) ListOwners(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (r *fakeSyncStateRepo) DeleteOwnerSyncStates(ctx context.Context, ownerID string) error {
	for key := range r.states {
		if strings.HasPrefix(key, ownerID+"/") {
			delete(r.states, key)
		}
	}
	return nil
}

func newEngine(gateway *fakeGateway, emails *fakeEmailRepo, states *fakeSyncStateRepo) interfaces.FolderSyncService {
	return NewFolderSyncEngine(gateway, emails, states, nil, getLogger())
}

func changeRecord(providerID, subject string) interfaces.ChangeRecord {
	return interfaces.ChangeRecord{
		ProviderID: providerID,
		Email: &models.Email{
			ProviderID: providerID,
			Subject:    subject,
		},
	}
}

func TestSyncFolder_FullSyncWhenNeverSynced(t *testing.T) {
	gateway := newFakeGateway()
	gateway.pages[""] = &interfaces.DeltaPage{
		Records:     []interfaces.ChangeRecord{changeRecord("m1", "hello")},
		DeltaCursor: "delta-1",
	}
	emails := newFakeEmailRepo()
	states := newFakeSyncStateRepo()
	engine := newEngine(gateway, emails, states)

	err := engine.SyncFolder(context.Background(), "owner-1", enum.FolderInbox)

	require.NoError(t, err)
	assert.Equal(t, []string{""}, gateway.fetchCalls)
	assert.NotNil(t, emails.emails["owner-1/m1"])

	state, _ := states.GetSyncState(context.Background(), "owner-1", enum.FolderInbox)
	require.NotNil(t, state)
	assert.Equal(t, "delta-1", state.Cursor)
}

func TestSyncFolder_PaginatesUntilTerminalPage(t *testing.T) {
	gateway := newFakeGateway()
	gateway.pages[""] = &interfaces.DeltaPage{
		Records:    []interfaces.ChangeRecord{changeRecord("m1", "first")},
		NextCursor: "page-2",
	}
	gateway.pages["page-2"] = &interfaces.DeltaPage{
		Records:    []interfaces.ChangeRecord{changeRecord("m2", "second")},
		NextCursor: "page-3",
	}
	gateway.pages["page-3"] = &interfaces.DeltaPage{
		Records:     []interfaces.ChangeRecord{changeRecord("m1", "first, edited")},
		DeltaCursor: "delta-1",
	}
	emails := newFakeEmailRepo()
	states := newFakeSyncStateRepo()
	engine := newEngine(gateway, emails, states)

	err := engine.SyncFolder(context.Background(), "owner-1", enum.FolderInbox)

	require.NoError(t, err)
	assert.Equal(t, []string{"", "page-2", "page-3"}, gateway.fetchCalls)
	// later page wins for the same provider id
	assert.Equal(t, "first, edited", emails.emails["owner-1/m1"].Subject)
	assert.Equal(t, 1, states.saves)
}

func TestSyncFolder_IncrementalUsesStoredCursor(t *testing.T) {
	gateway := newFakeGateway()
	gateway.pages["delta-1"] = &interfaces.DeltaPage{
		Records:     []interfaces.ChangeRecord{changeRecord("m9", "new mail")},
		DeltaCursor: "delta-2",
	}
	emails := newFakeEmailRepo()
	states := newFakeSyncStateRepo()
	require.NoError(t, states.SaveCursor(context.Background(), "owner-1", enum.FolderInbox, "delta-1"))
	states.saves = 0
	engine := newEngine(gateway, emails, states)

	err := engine.SyncFolder(context.Background(), "owner-1", enum.FolderInbox)

	require.NoError(t, err)
	assert.Equal(t, []string{"delta-1"}, gateway.fetchCalls)
	state, _ := states.GetSyncState(context.Background(), "owner-1", enum.FolderInbox)
	assert.Equal(t, "delta-2", state.Cursor)
}

func TestSyncFolder_RemovalRecordDeletes(t *testing.T) {
	gateway := newFakeGateway()
	gateway.pages[""] = &interfaces.DeltaPage{
		Records: []interfaces.ChangeRecord{
			{ProviderID: "m1", Removed: true},
			{ProviderID: "m2", Removed: true}, // not cached, must be a no-op
		},
		DeltaCursor: "delta-1",
	}
	emails := newFakeEmailRepo()
	emails.emails["owner-1/m1"] = &models.Email{ProviderID: "m1"}
	states := newFakeSyncStateRepo()
	engine := newEngine(gateway, emails, states)

	err := engine.SyncFolder(context.Background(), "owner-1", enum.FolderInbox)

	require.NoError(t, err)
	assert.Empty(t, emails.emails)
}

func TestSyncFolder_MidWindowFailureLeavesCursorUntouched(t *testing.T) {
	gateway := newFakeGateway()
	gateway.pages["delta-1"] = &interfaces.DeltaPage{
		Records:    []interfaces.ChangeRecord{changeRecord("m1", "ok")},
		NextCursor: "page-2",
	}
	gateway.pages["page-2"] = &interfaces.DeltaPage{
		Records:     []interfaces.ChangeRecord{changeRecord("m2", "boom")},
		DeltaCursor: "delta-2",
	}
	emails := newFakeEmailRepo()
	emails.failOn = "m2"
	states := newFakeSyncStateRepo()
	require.NoError(t, states.SaveCursor(context.Background(), "owner-1", enum.FolderInbox, "delta-1"))
	engine := newEngine(gateway, emails, states)

	err := engine.SyncFolder(context.Background(), "owner-1", enum.FolderInbox)

	require.Error(t, err)
	state, _ := states.GetSyncState(context.Background(), "owner-1", enum.FolderInbox)
	// the whole window replays from the old cursor next time
	assert.Equal(t, "delta-1", state.Cursor)
}

func TestSyncFolder_StaleCursorFallsBackToFullSync(t *testing.T) {
	gateway := newFakeGateway()
	gateway.errs["delta-old"] = apperrors.ErrStaleCursor
	gateway.pages[""] = &interfaces.DeltaPage{
		Records:     []interfaces.ChangeRecord{changeRecord("m1", "resynced")},
		DeltaCursor: "delta-new",
	}
	emails := newFakeEmailRepo()
	states := newFakeSyncStateRepo()
	require.NoError(t, states.SaveCursor(context.Background(), "owner-1", enum.FolderInbox, "delta-old"))
	engine := newEngine(gateway, emails, states)

	// First attempt surfaces the stale cursor and resets the state.
	err := engine.SyncFolder(context.Background(), "owner-1", enum.FolderInbox)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStaleCursor))

	state, _ := states.GetSyncState(context.Background(), "owner-1", enum.FolderInbox)
	assert.Equal(t, "", state.Cursor)

	// Second attempt runs as full sync.
	err = engine.SyncFolder(context.Background(), "owner-1", enum.FolderInbox)
	require.NoError(t, err)
	assert.NotNil(t, emails.emails["owner-1/m1"])
	state, _ = states.GetSyncState(context.Background(), "owner-1", enum.FolderInbox)
	assert.Equal(t, "delta-new", state.Cursor)
}

func TestSyncAllFolders_IsolatesFolderFailures(t *testing.T) {
	gateway := newFakeGateway()
	// folders without a stored cursor hit the failing full-sync script
	gateway.errs[""] = errors.New("transient provider failure")
	emails := newFakeEmailRepo()
	states := newFakeSyncStateRepo()
	// sent has a cursor, so it does not hit the failing "" script
	require.NoError(t, states.SaveCursor(context.Background(), "owner-1", enum.FolderSent, "delta-sent"))
	gateway.pages["delta-sent"] = &interfaces.DeltaPage{
		Records:     []interfaces.ChangeRecord{changeRecord("s1", "sent mail")},
		DeltaCursor: "delta-sent-2",
	}
	engine := newEngine(gateway, emails, states)

	err := engine.SyncAllFolders(context.Background(), "owner-1")

	require.Error(t, err)
	var multiErr *apperrors.MultiErrors
	require.True(t, errors.As(err, &multiErr))
	// the sent folder still synced despite the other folders failing
	assert.NotNil(t, emails.emails["owner-1/s1"])
	assert.NotContains(t, multiErr.Errors, enum.FolderSent.String())
	assert.Contains(t, multiErr.Errors, enum.FolderInbox.String())
}

func TestSyncAllFolders_AuthFailureShortCircuits(t *testing.T) {
	gateway := newFakeGateway()
	gateway.errs[""] = apperrors.ErrAuthFailed
	emails := newFakeEmailRepo()
	states := newFakeSyncStateRepo()
	engine := newEngine(gateway, emails, states)

	err := engine.SyncAllFolders(context.Background(), "owner-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAuthFailed))
	// one failing fetch for the first folder, no attempts for the rest
	assert.Len(t, gateway.fetchCalls, 1)
}

func TestSyncFolder_UpsertIsIdempotentAcrossReplays(t *testing.T) {
	gateway := newFakeGateway()
	gateway.pages[""] = &interfaces.DeltaPage{
		Records:     []interfaces.ChangeRecord{changeRecord("m1", "same mail")},
		DeltaCursor: "delta-1",
	}
	emails := newFakeEmailRepo()
	states := newFakeSyncStateRepo()
	engine := newEngine(gateway, emails, states)

	require.NoError(t, engine.SyncFolder(context.Background(), "owner-1", enum.FolderInbox))

	// Replaying the same window converges to the same single row.
	states.states = map[string]*models.SyncState{}
	require.NoError(t, engine.SyncFolder(context.Background(), "owner-1", enum.FolderInbox))

	assert.Len(t, emails.emails, 1)
}

func TestPurgeOwnerData_DropsCacheAndCursorsForOwnerOnly(t *testing.T) {
	gateway := newFakeGateway()
	emails := newFakeEmailRepo()
	emails.emails["owner-1/m1"] = &models.Email{OwnerID: "owner-1", ProviderID: "m1"}
	emails.emails["owner-2/m2"] = &models.Email{OwnerID: "owner-2", ProviderID: "m2"}
	states := newFakeSyncStateRepo()
	states.states["owner-1/inbox"] = &models.SyncState{OwnerID: "owner-1", Folder: enum.FolderInbox, Cursor: "delta-1"}
	states.states["owner-2/inbox"] = &models.SyncState{OwnerID: "owner-2", Folder: enum.FolderInbox, Cursor: "delta-2"}
	engine := newEngine(gateway, emails, states)

	require.NoError(t, engine.PurgeOwnerData(context.Background(), "owner-1"))

	assert.NotContains(t, emails.emails, "owner-1/m1")
	assert.Contains(t, emails.emails, "owner-2/m2")
	assert.NotContains(t, states.states, "owner-1/inbox")
	assert.Contains(t, states.states, "owner-2/inbox")

	// The purged owner's next sync runs as a full sync.
	gateway.pages[""] = &interfaces.DeltaPage{
		Records:     []interfaces.ChangeRecord{changeRecord("m3", "fresh start")},
		DeltaCursor: "delta-new",
	}
	require.NoError(t, engine.SyncFolder(context.Background(), "owner-1", enum.FolderInbox))
	assert.Contains(t, emails.emails, "owner-1/m3")
}
