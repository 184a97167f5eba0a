package graph

import (
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/enum"
	"github.com/mailweave/mailweave/internal/models"
)

// normalizeMessage converts a Graph message into a change record. Delta
// responses mark deletions with an "@removed" annotation instead of message
// fields, so removal is checked before any metadata is read.
func normalizeMessage(ownerID string, folder enum.Folder, msg graphmodels.Messageable) interfaces.ChangeRecord {
	record := interfaces.ChangeRecord{}

	if id := msg.GetId(); id != nil {
		record.ProviderID = *id
	}

	if additional := msg.GetAdditionalData(); additional != nil {
		if _, removed := additional["@removed"]; removed {
			record.Removed = true
			return record
		}
	}

	email := &models.Email{
		OwnerID:    ownerID,
		ProviderID: record.ProviderID,
		Folder:     folder,
	}

	if convID := msg.GetConversationId(); convID != nil {
		email.ConversationID = *convID
	}
	if subject := msg.GetSubject(); subject != nil {
		email.Subject = *subject
	}
	if preview := msg.GetBodyPreview(); preview != nil {
		email.BodyPreview = *preview
	}
	if from := msg.GetFrom(); from != nil {
		if emailAddr := from.GetEmailAddress(); emailAddr != nil {
			if addr := emailAddr.GetAddress(); addr != nil {
				email.FromAddress = *addr
			}
			if name := emailAddr.GetName(); name != nil {
				email.FromName = *name
			}
		}
	}
	email.ToAddresses = extractAddresses(msg.GetToRecipients())
	email.CcAddresses = extractAddresses(msg.GetCcRecipients())

	if isRead := msg.GetIsRead(); isRead != nil {
		email.IsRead = *isRead
	}
	if hasAttachments := msg.GetHasAttachments(); hasAttachments != nil {
		email.HasAttachments = *hasAttachments
	}

	email.Importance = normalizeImportance(msg.GetImportance())

	if flag := msg.GetFlag(); flag != nil {
		email.FlagStatus = normalizeFlagStatus(flag.GetFlagStatus())
	} else {
		email.FlagStatus = enum.FlagStatusNotFlagged
	}

	if received := msg.GetReceivedDateTime(); received != nil {
		t := received.UTC()
		email.ReceivedAt = &t
	}
	if sent := msg.GetSentDateTime(); sent != nil {
		t := sent.UTC()
		email.SentAt = &t
	}

	record.Email = email
	return record
}

func extractAddresses(recipients []graphmodels.Recipientable) []string {
	var addrs []string
	for _, r := range recipients {
		if emailAddr := r.GetEmailAddress(); emailAddr != nil {
			if addr := emailAddr.GetAddress(); addr != nil {
				addrs = append(addrs, *addr)
			}
		}
	}
	return addrs
}

func normalizeImportance(importance *graphmodels.Importance) enum.Importance {
	if importance == nil {
		return enum.ImportanceNormal
	}
	switch *importance {
	case graphmodels.LOW_IMPORTANCE:
		return enum.ImportanceLow
	case graphmodels.HIGH_IMPORTANCE:
		return enum.ImportanceHigh
	default:
		return enum.ImportanceNormal
	}
}

func normalizeFlagStatus(status *graphmodels.FollowupFlagStatus) enum.FlagStatus {
	if status == nil {
		return enum.FlagStatusNotFlagged
	}
	switch *status {
	case graphmodels.FLAGGED_FOLLOWUPFLAGSTATUS:
		return enum.FlagStatusFlagged
	case graphmodels.COMPLETE_FOLLOWUPFLAGSTATUS:
		return enum.FlagStatusComplete
	default:
		return enum.FlagStatusNotFlagged
	}
}
