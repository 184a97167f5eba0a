package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailweave/mailweave/config"
	"github.com/mailweave/mailweave/interfaces"
	"github.com/mailweave/mailweave/internal/models"
)

type Repositories struct {
	EmailRepository        interfaces.EmailRepository
	SyncStateRepository    interfaces.SyncStateRepository
	SubscriptionRepository interfaces.SubscriptionRepository
	ThreadRepository       interfaces.ThreadRepository
	ThreadItemRepository   interfaces.ThreadItemRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		EmailRepository:        NewEmailRepository(db),
		SyncStateRepository:    NewSyncStateRepository(db),
		SubscriptionRepository: NewSubscriptionRepository(db),
		ThreadRepository:       NewThreadRepository(db),
		ThreadItemRepository:   NewThreadItemRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Email{},
		&models.SyncState{},
		&models.WebhookSubscription{},
		&models.Thread{},
		&models.ThreadItem{},
	)

	sqlDB.Close()

	sqlDB, _ = db.DB()
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
