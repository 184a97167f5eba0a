package threads

import (
	"context"
	"fmt"
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
	"github.com/mailweave/mailweave/internal/utils"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type fakeThreadRepo struct {
	threads map[string]*models.Thread
	seq     int
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{threads: make(map[string]*models.Thread)}
}

func (r *fakeThreadRepo) Create(ctx context.Context, thread *models.Thread) (string, error) {
	if thread.ID == "" {
		r.seq++
		thread.ID = fmt.Sprintf("thread_%d", r.seq)
	}
	r.threads[thread.ID] = thread
	return thread.ID, nil
}

func (r *fakeThreadRepo) GetByID(ctx context.Context, ownerID, id string) (*models.Thread, error) {
	thread, ok := r.threads[id]
	if !ok || thread.OwnerID != ownerID {
		return nil, nil
	}
	return thread, nil
}

func (r *fakeThreadRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Thread, int64, error) {
	var out []*models.Thread
	for _, thread := range r.threads {
		if thread.OwnerID == ownerID {
			out = append(out, thread)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeThreadRepo) UpdateTitle(ctx context.Context, ownerID, id, title string) error {
	thread, ok := r.threads[id]
	if !ok || thread.OwnerID != ownerID {
		return errors.New("record not found")
	}
	thread.Title = title
	return nil
}

func (r *fakeThreadRepo) Delete(ctx context.Context, ownerID, id string) error {
	delete(r.threads, id)
	return nil
}

type fakeThreadItemRepo struct {
	items map[string]*models.ThreadItem
	seq   int
}

func newFakeThreadItemRepo() *fakeThreadItemRepo {
	return &fakeThreadItemRepo{items: make(map[string]*models.ThreadItem)}
}

func (r *fakeThreadItemRepo) Create(ctx context.Context, item *models.ThreadItem) (string, error) {
	if item.ID == "" {
		r.seq++
		item.ID = fmt.Sprintf("titem_%d", r.seq)
	}
	if item.Status == "" {
		item.Status = enum.ThreadItemActive
	}
	r.items[item.ID] = item
	return item.ID, nil
}

func (r *fakeThreadItemRepo) GetByID(ctx context.Context, ownerID, id string) (*models.ThreadItem, error) {
	item, ok := r.items[id]
	if !ok || item.OwnerID != ownerID {
		return nil, nil
	}
	return item, nil
}

func (r *fakeThreadItemRepo) GetActiveEmailItem(ctx context.Context, threadID, emailID string) (*models.ThreadItem, error) {
	for _, item := range r.items {
		if item.ThreadID == threadID &&
			item.ItemType == enum.ThreadItemEmail &&
			item.EmailID != nil && *item.EmailID == emailID &&
			item.Status == enum.ThreadItemActive {
			return item, nil
		}
	}
	return nil, nil
}

func (r *fakeThreadItemRepo) ListByThread(ctx context.Context, threadID string, includeRemoved bool) ([]*models.ThreadItem, error) {
	var out []*models.ThreadItem
	for _, item := range r.items {
		if item.ThreadID != threadID {
			continue
		}
		if !includeRemoved && item.Status == enum.ThreadItemRemoved {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *fakeThreadItemRepo) SetRemoved(ctx context.Context, id, removedBy string) error {
	item := r.items[id]
	item.Status = enum.ThreadItemRemoved
	item.RemovedAt = utils.NowPtr()
	item.RemovedBy = &removedBy
	return nil
}

func (r *fakeThreadItemRepo) ClearRemoved(ctx context.Context, id string) error {
	item := r.items[id]
	item.Status = enum.ThreadItemActive
	item.RemovedAt = nil
	item.RemovedBy = nil
	return nil
}

func (r *fakeThreadItemRepo) UpdateContent(ctx context.Context, id, content string) error {
	r.items[id].Content = content
	return nil
}

func (r *fakeThreadItemRepo) Delete(ctx context.Context, id string) error {
	delete(r.items, id)
	return nil
}

func (r *fakeThreadItemRepo) DeleteByThread(ctx context.Context, threadID string) error {
	for id, item := range r.items {
		if item.ThreadID == threadID {
			delete(r.items, id)
		}
	}
	return nil
}

type fakeEmailRepo struct {
	emails map[string]*models.Email // keyed by ownerID + "/" + id
}

func newFakeEmailRepo() *fakeEmailRepo {
	return &fakeEmailRepo{emails: make(map[string]*models.Email)}
}

func (r *fakeEmailRepo) add(ownerID string, email *models.Email) {
	email.OwnerID = ownerID
	r.emails[ownerID+"/"+email.ID] = email
}

func (r *fakeEmailRepo) Upsert(ctx context.Context, email *models.Email) error { return nil }

func (r *fakeEmailRepo) DeleteByProviderID(ctx context.Context, ownerID, providerID string) error {
	return nil
}

func (r *fakeEmailRepo) GetByID(ctx context.Context, ownerID, id string) (*models.Email, error) {
	return r.emails[ownerID+"/"+id], nil
}

func (r *fakeEmailRepo) GetByProviderID(ctx context.Context, ownerID, providerID string) (*models.Email, error) {
	return nil, nil
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

func (r *fakeEmailRepo) DeleteByOwner(ctx context.Context, ownerID string) error { return nil }

type fixture struct {
	threads *fakeThreadRepo
	items   *fakeThreadItemRepo
	emails  *fakeEmailRepo
	service interfaces.ThreadService
}

func newFixture() *fixture {
	threads := newFakeThreadRepo()
	items := newFakeThreadItemRepo()
	emails := newFakeEmailRepo()
	return &fixture{
		threads: threads,
		items:   items,
		emails:  emails,
		service: NewThreadComposer(threads, items, emails, getLogger()),
	}
}

func TestAddEmail_DeduplicatesLiveItems(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.emails.add("owner-1", &models.Email{ID: "email-1", Subject: "hello"})
	thread, err := f.service.CreateThread(ctx, "owner-1", "")
	require.NoError(t, err)

	item1, alreadyPresent, err := f.service.AddEmail(ctx, "owner-1", thread.ID, "email-1")
	require.NoError(t, err)
	assert.False(t, alreadyPresent)

	item2, alreadyPresent, err := f.service.AddEmail(ctx, "owner-1", thread.ID, "email-1")
	require.NoError(t, err)
	assert.True(t, alreadyPresent)
	assert.Equal(t, item1.ID, item2.ID)
}

func TestAddEmail_RemovedItemDoesNotBlockReAdd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.emails.add("owner-1", &models.Email{ID: "email-1"})
	thread, _ := f.service.CreateThread(ctx, "owner-1", "")

	item, _, err := f.service.AddEmail(ctx, "owner-1", thread.ID, "email-1")
	require.NoError(t, err)
	require.NoError(t, f.service.RemoveItem(ctx, "owner-1", item.ID, "owner-1"))

	fresh, alreadyPresent, err := f.service.AddEmail(ctx, "owner-1", thread.ID, "email-1")
	require.NoError(t, err)
	assert.False(t, alreadyPresent)
	assert.NotEqual(t, item.ID, fresh.ID)
}

func TestAddEmail_UnknownEmailIsNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	thread, _ := f.service.CreateThread(ctx, "owner-1", "")

	_, _, err := f.service.AddEmail(ctx, "owner-1", thread.ID, "no-such-email")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestAddEmail_ForeignThreadReadsAsNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.emails.add("owner-2", &models.Email{ID: "email-1"})
	thread, _ := f.service.CreateThread(ctx, "owner-1", "")

	// owner-2 cannot see owner-1's thread, even though it exists
	_, _, err := f.service.AddEmail(ctx, "owner-2", thread.ID, "email-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrThreadNotFound))
}

func TestAddComment_RequiresContent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	thread, _ := f.service.CreateThread(ctx, "owner-1", "")

	_, err := f.service.AddComment(ctx, "owner-1", thread.ID, "")
	assert.True(t, errors.Is(err, apperrors.ErrContentRequired))

	_, err = f.service.AddNote(ctx, "owner-1", thread.ID, "")
	assert.True(t, errors.Is(err, apperrors.ErrContentRequired))

	// dividers are separators, empty content is fine
	divider, err := f.service.AddDivider(ctx, "owner-1", thread.ID, "")
	require.NoError(t, err)
	assert.Equal(t, enum.ThreadItemDivider, divider.ItemType)
}

func TestMerge_CreatesThreadAndInfersTitle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	received := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.emails.add("owner-1", &models.Email{ID: "email-1", Subject: "Re: Fwd: Quarterly review", ReceivedAt: &received})
	f.emails.add("owner-1", &models.Email{ID: "email-2", Subject: "Quarterly review"})

	result, err := f.service.Merge(ctx, "owner-1", []string{"email-1", "email-2"}, "", "")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"email-1", "email-2"}, result.Added)
	assert.Empty(t, result.Skipped)

	thread := f.threads.threads[result.ThreadID]
	require.NotNil(t, thread)
	assert.Equal(t, "Quarterly review", thread.Title)
}

func TestMerge_ExplicitTitleWinsOverInference(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.emails.add("owner-1", &models.Email{ID: "email-1", Subject: "Inferred subject"})
	thread, err := f.service.CreateThread(ctx, "owner-1", "")
	require.NoError(t, err)

	result, err := f.service.Merge(ctx, "owner-1", []string{"email-1"}, thread.ID, "Explicit title")

	require.NoError(t, err)
	assert.Equal(t, []string{"email-1"}, result.Added)
	assert.Equal(t, "Explicit title", f.threads.threads[thread.ID].Title)
}

func TestMerge_ExplicitTitleDoesNotOverwriteExisting(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.emails.add("owner-1", &models.Email{ID: "email-1", Subject: "hello"})
	thread, _ := f.service.CreateThread(ctx, "owner-1", "original")

	_, err := f.service.Merge(ctx, "owner-1", []string{"email-1"}, thread.ID, "replacement")

	require.NoError(t, err)
	assert.Equal(t, "original", f.threads.threads[thread.ID].Title)
}

func TestMerge_SkipsDuplicatesAndForeignEmails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.emails.add("owner-1", &models.Email{ID: "email-1", Subject: "keep"})
	f.emails.add("owner-2", &models.Email{ID: "email-2", Subject: "not yours"})
	thread, _ := f.service.CreateThread(ctx, "owner-1", "existing title")
	_, _, err := f.service.AddEmail(ctx, "owner-1", thread.ID, "email-1")
	require.NoError(t, err)

	result, err := f.service.Merge(ctx, "owner-1", []string{"email-1", "email-2"}, thread.ID, "")

	require.NoError(t, err)
	assert.Empty(t, result.Added)
	require.Len(t, result.Skipped, 2)
	reasons := map[string]string{}
	for _, skip := range result.Skipped {
		reasons[skip.EmailID] = skip.Reason
	}
	assert.Equal(t, interfaces.SkipReasonAlreadyLinked, reasons["email-1"])
	assert.Equal(t, interfaces.SkipReasonNotFound, reasons["email-2"])
	// explicit title never overwritten
	assert.Equal(t, "existing title", f.threads.threads[thread.ID].Title)
}

func TestRemoveRestoreRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	thread, _ := f.service.CreateThread(ctx, "owner-1", "")
	item, err := f.service.AddNote(ctx, "owner-1", thread.ID, "a note")
	require.NoError(t, err)

	require.NoError(t, f.service.RemoveItem(ctx, "owner-1", item.ID, "assistant-7"))

	stored := f.items.items[item.ID]
	assert.Equal(t, enum.ThreadItemRemoved, stored.Status)
	require.NotNil(t, stored.RemovedBy)
	assert.Equal(t, "assistant-7", *stored.RemovedBy)
	assert.NotNil(t, stored.RemovedAt)

	// removed items disappear from the default view but stay loadable
	view, err := f.service.GetWithItems(ctx, "owner-1", thread.ID, false)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	view, err = f.service.GetWithItems(ctx, "owner-1", thread.ID, true)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)

	require.NoError(t, f.service.RestoreItem(ctx, "owner-1", item.ID))
	stored = f.items.items[item.ID]
	assert.Equal(t, enum.ThreadItemActive, stored.Status)
	assert.Nil(t, stored.RemovedAt)
	assert.Nil(t, stored.RemovedBy)
}

func TestRemoveItem_AlreadyRemovedIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	thread, _ := f.service.CreateThread(ctx, "owner-1", "")
	item, _ := f.service.AddNote(ctx, "owner-1", thread.ID, "a note")

	require.NoError(t, f.service.RemoveItem(ctx, "owner-1", item.ID, "first"))
	require.NoError(t, f.service.RemoveItem(ctx, "owner-1", item.ID, "second"))

	// the original removal audit survives the repeated call
	assert.Equal(t, "first", *f.items.items[item.ID].RemovedBy)
}

func TestPermanentDeleteItem_DropsRemovedItems(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	thread, _ := f.service.CreateThread(ctx, "owner-1", "")
	item, _ := f.service.AddNote(ctx, "owner-1", thread.ID, "a note")

	require.NoError(t, f.service.RemoveItem(ctx, "owner-1", item.ID, "owner-1"))
	require.NoError(t, f.service.PermanentDeleteItem(ctx, "owner-1", item.ID))

	assert.NotContains(t, f.items.items, item.ID)

	err := f.service.RestoreItem(ctx, "owner-1", item.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestUpdateItemContent_OnlyCommentsAndNotes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.emails.add("owner-1", &models.Email{ID: "email-1"})
	thread, _ := f.service.CreateThread(ctx, "owner-1", "")

	comment, _ := f.service.AddComment(ctx, "owner-1", thread.ID, "draft")
	require.NoError(t, f.service.UpdateItemContent(ctx, "owner-1", comment.ID, "final"))
	assert.Equal(t, "final", f.items.items[comment.ID].Content)

	emailItem, _, err := f.service.AddEmail(ctx, "owner-1", thread.ID, "email-1")
	require.NoError(t, err)
	err = f.service.UpdateItemContent(ctx, "owner-1", emailItem.ID, "nope")
	assert.True(t, errors.Is(err, apperrors.ErrContentImmutable))

	divider, _ := f.service.AddDivider(ctx, "owner-1", thread.ID, "March")
	err = f.service.UpdateItemContent(ctx, "owner-1", divider.ID, "April")
	assert.True(t, errors.Is(err, apperrors.ErrContentImmutable))
}

func TestGetWithItems_EnrichesEmailItems(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.emails.add("owner-1", &models.Email{
		ID:          "email-1",
		Subject:     "status",
		BodyPreview: "all green",
		FromAddress: "a@example.com",
		IsRead:      true,
	})
	thread, _ := f.service.CreateThread(ctx, "owner-1", "")
	_, _, err := f.service.AddEmail(ctx, "owner-1", thread.ID, "email-1")
	require.NoError(t, err)
	_, err = f.service.AddNote(ctx, "owner-1", thread.ID, "plain note")
	require.NoError(t, err)

	view, err := f.service.GetWithItems(ctx, "owner-1", thread.ID, false)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	var emailView, noteView *interfaces.ThreadItemView
	for i := range view.Items {
		switch view.Items[i].Item.ItemType {
		case enum.ThreadItemEmail:
			emailView = &view.Items[i]
		case enum.ThreadItemNote:
			noteView = &view.Items[i]
		}
	}
	require.NotNil(t, emailView)
	require.NotNil(t, emailView.Email)
	assert.Equal(t, "status", emailView.Email.Subject)
	assert.Equal(t, "all green", emailView.Email.BodyPreview)
	require.NotNil(t, noteView)
	assert.Nil(t, noteView.Email)
}

func TestDeleteThread_RemovesItemsButNotEmails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.emails.add("owner-1", &models.Email{ID: "email-1"})
	thread, _ := f.service.CreateThread(ctx, "owner-1", "")
	_, _, err := f.service.AddEmail(ctx, "owner-1", thread.ID, "email-1")
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteThread(ctx, "owner-1", thread.ID))

	assert.Empty(t, f.items.items)
	assert.NotContains(t, f.threads.threads, thread.ID)
	// the cached email itself is untouched
	email, _ := f.emails.GetByID(ctx, "owner-1", "email-1")
	assert.NotNil(t, email)
}
