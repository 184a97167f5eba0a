package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailweave/mailweave/internal/enum"
	"github.com/mailweave/mailweave/internal/utils"
)

// ThreadItem is one entry in a thread. EmailID is set iff ItemType is email;
// Content carries the text of comment/note/divider items. ItemDate is the
// display ordering key: the referenced email's receivedAt for email items,
// creation time for everything else.
type ThreadItem struct {
	ID       string               `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	ThreadID string               `gorm:"column:thread_id;type:varchar(50);index;not null" json:"threadId"`
	OwnerID  string               `gorm:"column:owner_id;type:varchar(255);index;not null" json:"ownerId"`
	ItemType enum.ThreadItemType  `gorm:"column:item_type;type:varchar(20);not null" json:"itemType"`
	EmailID  *string              `gorm:"column:email_id;type:varchar(50);index" json:"emailId,omitempty"`
	Content  string               `gorm:"column:content;type:text" json:"content"`
	ItemDate time.Time            `gorm:"column:item_date;type:timestamp;index;not null" json:"itemDate"`
	Status   enum.ThreadItemStatus `gorm:"column:status;type:varchar(20);index;default:'active'" json:"status"`

	RemovedAt *time.Time `gorm:"column:removed_at;type:timestamp" json:"removedAt,omitempty"`
	RemovedBy *string    `gorm:"column:removed_by;type:varchar(255)" json:"removedBy,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp" json:"updatedAt"`
}

func (ThreadItem) TableName() string {
	return "thread_items"
}

func (i *ThreadItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = utils.GenerateNanoIDWithPrefix("titem", 16)
	}
	i.CreatedAt = utils.Now()
	return nil
}

func (i *ThreadItem) IsRemoved() bool {
	return i.Status == enum.ThreadItemRemoved
}
