package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailweave/mailweave/internal/utils"
)

// Thread is a user-curated scrapbook of items, independent of the provider's
// own conversation grouping. Title stays empty until explicitly set or
// inferred from the first merged email.
type Thread struct {
	ID        string    `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	OwnerID   string    `gorm:"column:owner_id;type:varchar(255);index;not null" json:"ownerId"`
	Title     string    `gorm:"column:title;type:varchar(1000)" json:"title"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp" json:"updatedAt"`
}

func (Thread) TableName() string {
	return "threads"
}

func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = utils.GenerateNanoIDWithPrefix("thread", 16)
	}
	t.CreatedAt = utils.Now()
	return nil
}
