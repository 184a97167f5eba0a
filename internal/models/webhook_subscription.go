package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailweave/mailweave/internal/utils"
)

// WebhookSubscription is one active push registration with the remote
// provider. ClientState is the secret handed to the provider at subscribe
// time; inbound notifications must echo it back to be trusted.
type WebhookSubscription struct {
	ID             string    `gorm:"column:id;type:varchar(50);primaryKey"`
	OwnerID        string    `gorm:"column:owner_id;type:varchar(255);index;not null"`
	SubscriptionID string    `gorm:"column:subscription_id;type:varchar(255);uniqueIndex;not null"`
	Resource       string    `gorm:"column:resource;type:varchar(512)"`
	ClientState    string    `gorm:"column:client_state;type:varchar(255)"`
	ExpiresAt      time.Time `gorm:"column:expires_at;type:timestamp;index"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt      time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (WebhookSubscription) TableName() string {
	return "webhook_subscriptions"
}

func (s *WebhookSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = utils.GenerateNanoIDWithPrefix("whsub", 16)
	}
	s.CreatedAt = utils.Now()
	return nil
}
