package cron

import (
	"os"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"k8s.io/client-go/kubernetes"

	cron_config "github.com/mailweave/mailweave/internal/cron/config"
	"github.com/mailweave/mailweave/internal/logger"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	log := getLogger()
	k8s := &mockKubernetesInterface{}

	// Act
	cm := NewCronManager(log, k8s, nil, nil, nil)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_StartCron(t *testing.T) {
	// Set environment variable for testing
	os.Setenv("CRON_SCHEDULE_HEARTBEAT", "0 * * * * *")
	os.Setenv("CRON_SCHEDULE_POLL_SYNC", "0 */15 * * * *")
	os.Setenv("CRON_SCHEDULE_RENEW_SUBSCRIPTIONS", "0 */30 * * * *")
	defer os.Unsetenv("CRON_SCHEDULE_HEARTBEAT")
	defer os.Unsetenv("CRON_SCHEDULE_POLL_SYNC")
	defer os.Unsetenv("CRON_SCHEDULE_RENEW_SUBSCRIPTIONS")

	// Arrange
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	cm := NewCronManager(log, k8s, nil, nil, nil)

	// Create a mock cron for testing
	mockCron := cronv3.New(cronv3.WithSeconds())

	// Register jobs directly
	var cronConfig cron_config.Config
	cronConfig.CronScheduleHeartbeat = "0 * * * * *"
	cronConfig.CronSchedulePollSync = "0 */15 * * * *"
	cronConfig.CronScheduleRenewSubscriptions = "0 */30 * * * *"

	// Act - register jobs manually
	heartbeatId, err := mockCron.AddFunc(cronConfig.CronScheduleHeartbeat, func() {})
	assert.NoError(t, err)
	cm.jobIDs["heartbeat"] = heartbeatId

	pollSyncId, err := mockCron.AddFunc(cronConfig.CronSchedulePollSync, func() {})
	assert.NoError(t, err)
	cm.jobIDs["poll_sync"] = pollSyncId

	renewId, err := mockCron.AddFunc(cronConfig.CronScheduleRenewSubscriptions, func() {})
	assert.NoError(t, err)
	cm.jobIDs["renew_subscriptions"] = renewId

	cm.cron = mockCron

	// Assert
	assert.NotNil(t, cm.cron)
	assert.Equal(t, 3, len(cm.jobIDs))
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	cm := NewCronManager(log, k8s, nil, nil, nil)

	// Create a mock cron for testing
	mockCron := cronv3.New(cronv3.WithSeconds())
	mockCron.Start()
	cm.cron = mockCron

	// Act
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}
