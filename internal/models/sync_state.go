package models

import (
	"time"

	"github.com/mailweave/mailweave/internal/enum"
)

// SyncState tracks the resting delta cursor for one (owner, folder) pair.
// An empty cursor means the folder has never completed a full sync. The
// cursor only advances once a reconciliation window commits its terminal
// page, so a crash mid-pagination replays the same window on the next run.
type SyncState struct {
	ID           string      `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerID      string      `gorm:"column:owner_id;type:varchar(255);not null;uniqueIndex:idx_owner_folder"`
	Folder       enum.Folder `gorm:"column:folder;type:varchar(50);not null;uniqueIndex:idx_owner_folder"`
	Cursor       string      `gorm:"column:cursor;type:text"`
	LastSyncedAt time.Time   `gorm:"column:last_synced_at;type:timestamp"`
	CreatedAt    time.Time   `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt    time.Time   `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (SyncState) TableName() string {
	return "sync_states"
}
