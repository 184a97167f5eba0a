package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mailweave/mailweave/internal/enum"
	"github.com/mailweave/mailweave/internal/utils"
)

// Email is the locally cached metadata of one remote message. The full body
// stays with the provider; only what the UI lists and the sync engine
// reconciles is mirrored here.
type Email struct {
	ID         string `gorm:"column:id;type:varchar(50);primaryKey"`
	OwnerID    string `gorm:"column:owner_id;type:varchar(255);not null;uniqueIndex:idx_owner_provider_id"`
	ProviderID string `gorm:"column:provider_id;type:varchar(512);not null;uniqueIndex:idx_owner_provider_id"`

	ConversationID string      `gorm:"column:conversation_id;type:varchar(512);index"`
	Folder         enum.Folder `gorm:"column:folder;type:varchar(50);index;not null"`

	// Core email metadata
	Subject     string         `gorm:"column:subject;type:varchar(1000)"`
	BodyPreview string         `gorm:"column:body_preview;type:varchar(2000)"`
	FromAddress string         `gorm:"column:from_address;type:varchar(255);index"`
	FromName    string         `gorm:"column:from_name;type:varchar(255)"`
	ToAddresses pq.StringArray `gorm:"column:to_addresses;type:text[]"`
	CcAddresses pq.StringArray `gorm:"column:cc_addresses;type:text[]"`

	// User-mutable state mirrored from the provider
	IsRead         bool            `gorm:"column:is_read;default:false"`
	HasAttachments bool            `gorm:"column:has_attachments;default:false"`
	Importance     enum.Importance `gorm:"column:importance;type:varchar(20);default:'normal'"`
	FlagStatus     enum.FlagStatus `gorm:"column:flag_status;type:varchar(20);default:'notFlagged'"`
	FlagColor      *string         `gorm:"column:flag_color;type:varchar(50)"`

	// Time information
	ReceivedAt *time.Time `gorm:"column:received_at;type:timestamp;index"`
	SentAt     *time.Time `gorm:"column:sent_at;type:timestamp"`

	// Standard timestamps
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	e.CreatedAt = utils.Now()
	return nil
}
