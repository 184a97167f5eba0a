package threads

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/enum"
	apperrors "github.com/mailweave/mailweave/internal/errors"
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/models"
	"github.com/mailweave/mailweave/internal/tracing"
	"github.com/mailweave/mailweave/internal/utils"
)

type threadComposer struct {
	threads interfaces.ThreadRepository
	items   interfaces.ThreadItemRepository
	emails  interfaces.EmailRepository
	log     logger.Logger
}

func NewThreadComposer(
	threads interfaces.ThreadRepository,
	items interfaces.ThreadItemRepository,
	emails interfaces.EmailRepository,
	log logger.Logger,
) interfaces.ThreadService {
	return &threadComposer{
		threads: threads,
		items:   items,
		emails:  emails,
		log:     log,
	}
}

func (s *threadComposer) CreateThread(ctx context.Context, ownerID, title string) (*models.Thread, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadComposer.CreateThread")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)

	thread := &models.Thread{
		OwnerID: ownerID,
		Title:   title,
	}
	if _, err := s.threads.Create(ctx, thread); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return thread, nil
}

func (s *threadComposer) GetWithItems(ctx context.Context, ownerID, threadID string, includeRemoved bool) (*interfaces.ThreadWithItems, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadComposer.GetWithItems")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, threadID)

	thread, err := s.getOwnedThread(ctx, ownerID, threadID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	items, err := s.items.ListByThread(ctx, threadID, includeRemoved)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	views := make([]interfaces.ThreadItemView, 0, len(items))
	for _, item := range items {
		view := interfaces.ThreadItemView{Item: item}
		if item.ItemType == enum.ThreadItemEmail && item.EmailID != nil {
			view.Email = s.snapshotEmail(ctx, ownerID, *item.EmailID)
		}
		views = append(views, view)
	}

	return &interfaces.ThreadWithItems{Thread: thread, Items: views}, nil
}

// snapshotEmail enriches an email item from the cache. A missing cached
// email is not an error: the item stays in the thread with no snapshot,
// since the underlying message may have been removed upstream.
func (s *threadComposer) snapshotEmail(ctx context.Context, ownerID, emailID string) *interfaces.EmailSnapshot {
	email, err := s.emails.GetByID(ctx, ownerID, emailID)
	if err != nil {
		s.log.Warnf("[%s] failed to enrich email item %s: %v", ownerID, emailID, err)
		return nil
	}
	if email == nil {
		return nil
	}
	return &interfaces.EmailSnapshot{
		EmailID:     email.ID,
		Subject:     email.Subject,
		BodyPreview: email.BodyPreview,
		FromAddress: email.FromAddress,
		FromName:    email.FromName,
		ToAddresses: email.ToAddresses,
		CcAddresses: email.CcAddresses,
		IsRead:      email.IsRead,
	}
}

func (s *threadComposer) ListThreads(ctx context.Context, ownerID string, limit, offset int) ([]*models.Thread, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadComposer.ListThreads")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)

	threads, total, err := s.threads.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}
	return threads, total, nil
}

func (s *threadComposer) UpdateTitle(ctx context.Context, ownerID, threadID, title string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadComposer.UpdateTitle")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, threadID)

	if _, err := s.getOwnedThread(ctx, ownerID, threadID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if err := s.threads.UpdateTitle(ctx, ownerID, threadID, title); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// DeleteThread removes the thread and all of its items, removed ones
// included. Cached emails are untouched; a thread only references them.
func (s *threadComposer) DeleteThread(ctx context.Context, ownerID, threadID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadComposer.DeleteThread")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, threadID)

	if _, err := s.getOwnedThread(ctx, ownerID, threadID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if err := s.items.DeleteByThread(ctx, threadID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if err := s.threads.Delete(ctx, ownerID, threadID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (s *threadComposer) AddEmail(ctx context.Context, ownerID, threadID, emailID string) (*models.ThreadItem, bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadComposer.AddEmail")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, threadID)

	if _, err := s.getOwnedThread(ctx, ownerID, threadID); err != nil {
		tracing.TraceErr(span, err)
		return nil, false, err
	}

	item, alreadyPresent, err := s.linkEmail(ctx, ownerID, threadID, emailID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, false, err
	}
	return item, alreadyPresent, nil
}

// linkEmail attaches one cached email to a thread. Only live items count
// toward the duplicate check: a removed email item does not block re-adding
// the same email as a fresh item.
func (s *threadComposer) linkEmail(ctx context.Context, ownerID, threadID, emailID string) (*models.ThreadItem, bool, error) {
	email, err := s.emails.GetByID(ctx, ownerID, emailID)
	if err != nil {
		return nil, false, err
	}
	if email == nil {
		return nil, false, errors.Wrapf(apperrors.ErrNotFound, "email %s", emailID)
	}

	existing, err := s.items.GetActiveEmailItem(ctx, threadID, emailID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	itemDate := utils.Now()
	if email.ReceivedAt != nil {
		itemDate = *email.ReceivedAt
	}
	item := &models.ThreadItem{
		ThreadID: threadID,
		OwnerID:  ownerID,
		ItemType: enum.ThreadItemEmail,
		EmailID:  &email.ID,
		ItemDate: itemDate,
		Status:   enum.ThreadItemActive,
	}
	if _, err := s.items.Create(ctx, item); err != nil {
		return nil, false, err
	}
	return item, false, nil
}

func (s *threadComposer) AddComment(ctx context.Context, ownerID, threadID, content string) (*models.ThreadItem, error) {
	return s.addTextItem(ctx, ownerID, threadID, enum.ThreadItemComment, content, true)
}

func (s *threadComposer) AddNote(ctx context.Context, ownerID, threadID, content string) (*models.ThreadItem, error) {
	return s.addTextItem(ctx, ownerID, threadID, enum.ThreadItemNote, content, true)
}

// AddDivider accepts empty content; a divider is a visual separator and its
// optional label is cosmetic.
func (s *threadComposer) AddDivider(ctx context.Context, ownerID, threadID, content string) (*models.ThreadItem, error) {
	return s.addTextItem(ctx, ownerID, threadID, enum.ThreadItemDivider, content, false)
}

func (s *threadComposer) addTextItem(ctx context.Context, ownerID, threadID string, itemType enum.ThreadItemType, content string, contentRequired bool) (*models.ThreadItem, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadComposer.addTextItem")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, threadID)
	span.SetTag("item.type", itemType.String())

	if contentRequired && content == "" {
		return nil, apperrors.ErrContentRequired
	}

	if _, err := s.getOwnedThread(ctx, ownerID, threadID); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	item := &models.ThreadItem{
		ThreadID: threadID,
		OwnerID:  ownerID,
		ItemType: itemType,
		Content:  content,
		ItemDate: utils.Now(),
		Status:   enum.ThreadItemActive,
	}
	if _, err := s.items.Create(ctx, item); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return item, nil
}

// Merge links a batch of emails into one thread, creating the thread first
// when no target is given. Per-email failures (already linked, not owned)
// are reported as skips, not errors; the merge always makes as much progress
// as it can.
func (s *threadComposer) Merge(ctx context.Context, ownerID string, emailIDs []string, targetThreadID, title string) (*interfaces.MergeResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadComposer.Merge")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	span.SetTag("email.count", len(emailIDs))

	var thread *models.Thread
	var err error
	if targetThreadID != "" {
		thread, err = s.getOwnedThread(ctx, ownerID, targetThreadID)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		// An explicit title wins over inference, but never overwrites a
		// title the thread already carries.
		if title != "" && thread.Title == "" {
			if err := s.threads.UpdateTitle(ctx, ownerID, thread.ID, title); err != nil {
				tracing.TraceErr(span, err)
				return nil, err
			}
			thread.Title = title
		}
	} else {
		thread, err = s.CreateThread(ctx, ownerID, title)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	result := &interfaces.MergeResult{ThreadID: thread.ID}
	for _, emailID := range emailIDs {
		_, alreadyPresent, linkErr := s.linkEmail(ctx, ownerID, thread.ID, emailID)
		switch {
		case linkErr != nil && errors.Is(linkErr, apperrors.ErrNotFound):
			result.Skipped = append(result.Skipped, interfaces.Skip{EmailID: emailID, Reason: interfaces.SkipReasonNotFound})
		case linkErr != nil:
			tracing.TraceErr(span, linkErr)
			return nil, linkErr
		case alreadyPresent:
			result.Skipped = append(result.Skipped, interfaces.Skip{EmailID: emailID, Reason: interfaces.SkipReasonAlreadyLinked})
		default:
			result.Added = append(result.Added, emailID)
		}
	}

	if thread.Title == "" && len(result.Added) > 0 {
		if inferErr := s.inferTitle(ctx, ownerID, thread, result.Added[0]); inferErr != nil {
			s.log.Warnf("[%s] failed to infer title for thread %s: %v", ownerID, thread.ID, inferErr)
		}
	}

	return result, nil
}

// inferTitle sets the thread title from the first merged email's subject,
// stripped of reply/forward prefixes.
func (s *threadComposer) inferTitle(ctx context.Context, ownerID string, thread *models.Thread, emailID string) error {
	email, err := s.emails.GetByID(ctx, ownerID, emailID)
	if err != nil || email == nil {
		return err
	}
	title := utils.NormalizeEmailSubject(email.Subject)
	if title == "" {
		return nil
	}
	if err := s.threads.UpdateTitle(ctx, ownerID, thread.ID, title); err != nil {
		return err
	}
	thread.Title = title
	return nil
}

// RemoveItem soft-deletes: the row survives with who removed it and when,
// so restore can undo it exactly. Removing an already removed item is a
// no-op.
func (s *threadComposer) RemoveItem(ctx context.Context, ownerID, itemID, removedBy string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadComposer.RemoveItem")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, itemID)

	item, err := s.getOwnedItem(ctx, ownerID, itemID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if item.IsRemoved() {
		return nil
	}
	if err := s.items.SetRemoved(ctx, itemID, removedBy); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// RestoreItem flips a removed item back to active and clears the removal
// audit fields. Restoring an active item is a no-op.
func (s *threadComposer) RestoreItem(ctx context.Context, ownerID, itemID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadComposer.RestoreItem")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, itemID)

	item, err := s.getOwnedItem(ctx, ownerID, itemID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if !item.IsRemoved() {
		return nil
	}
	if err := s.items.ClearRemoved(ctx, itemID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// PermanentDeleteItem drops the row regardless of its soft-delete state.
// There is no undo.
func (s *threadComposer) PermanentDeleteItem(ctx context.Context, ownerID, itemID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadComposer.PermanentDeleteItem")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, itemID)

	if _, err := s.getOwnedItem(ctx, ownerID, itemID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if err := s.items.Delete(ctx, itemID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// UpdateItemContent edits comment and note text. Email items carry no
// editable content and divider labels are fixed at creation.
func (s *threadComposer) UpdateItemContent(ctx context.Context, ownerID, itemID, content string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadComposer.UpdateItemContent")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagOwner(span, ownerID)
	tracing.TagEntity(span, itemID)

	if content == "" {
		return apperrors.ErrContentRequired
	}

	item, err := s.getOwnedItem(ctx, ownerID, itemID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if item.ItemType != enum.ThreadItemComment && item.ItemType != enum.ThreadItemNote {
		return apperrors.ErrContentImmutable
	}
	if err := s.items.UpdateContent(ctx, itemID, content); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (s *threadComposer) getOwnedThread(ctx context.Context, ownerID, threadID string) (*models.Thread, error) {
	thread, err := s.threads.GetByID(ctx, ownerID, threadID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, errors.Wrapf(apperrors.ErrThreadNotFound, "thread %s", threadID)
	}
	return thread, nil
}

func (s *threadComposer) getOwnedItem(ctx context.Context, ownerID, itemID string) (*models.ThreadItem, error) {
	item, err := s.items.GetByID(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errors.Wrapf(apperrors.ErrNotFound, "thread item %s", itemID)
	}
	return item, nil
}
