package cron

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/mailweave/mailweave/interfaces"
	cron_config "github.com/mailweave/mailweave/internal/cron/config"
	"github.com/mailweave/mailweave/internal/logger"
	"github.com/mailweave/mailweave/internal/tracing"
)

// CONSTANTS
const (
	// GroupSync serializes the sync related jobs
	GroupSync = "sync"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupSync: new(sync.Mutex),
	},
}

type CronManager struct {
	log           logger.Logger
	cron          *cronv3.Cron
	k8s           kubernetes.Interface
	stopCh        chan struct{}
	jobIDs        map[string]cronv3.EntryID
	syncStates    interfaces.SyncStateRepository
	publisher     interfaces.EventPublisher
	subscriptions interfaces.SubscriptionService
}

func NewCronManager(
	log logger.Logger,
	k8s kubernetes.Interface,
	syncStates interfaces.SyncStateRepository,
	publisher interfaces.EventPublisher,
	subscriptions interfaces.SubscriptionService,
) *CronManager {
	return &CronManager{
		log:           log,
		k8s:           k8s,
		stopCh:        make(chan struct{}),
		jobIDs:        make(map[string]cronv3.EntryID),
		syncStates:    syncStates,
		publisher:     publisher,
		subscriptions: subscriptions,
	}
}

// Start initializes and starts the cron manager with leader election
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start(podName, namespace string) error {
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		cm.StartCron()
		return nil
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      "mailweave-cron-leader",
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					cm.StartCron()
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		ctx := context.Background()
		le.Run(ctx)
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	if cronConfig.CronScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		id, err := c.AddFunc(cronConfig.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			cm.log.Fatalf("Could not add heartbeat cron job: %v", err)
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cronConfig.CronScheduleHeartbeat)
	}

	if cronConfig.CronSchedulePollSync != "" {
		id, err := c.AddFunc(cronConfig.CronSchedulePollSync, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupSync].Lock()
			defer jobLocks.locks[GroupSync].Unlock()
			cm.pollSyncAllOwners()
		})
		if err != nil {
			cm.log.Fatalf("Could not add poll sync cron job: %v", err)
		}
		cm.jobIDs["poll_sync"] = id
		cm.log.Infof("Registered poll sync job with schedule: %s", cronConfig.CronSchedulePollSync)
	}

	if cronConfig.CronScheduleRenewSubscriptions != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleRenewSubscriptions, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.renewSubscriptions()
		})
		if err != nil {
			cm.log.Fatalf("Could not add subscription renewal cron job: %v", err)
		}
		cm.jobIDs["renew_subscriptions"] = id
		cm.log.Infof("Registered subscription renewal job with schedule: %s", cronConfig.CronScheduleRenewSubscriptions)
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// pollSyncAllOwners queues a sync request for every known owner. Webhooks
// usually cover this; the poll catches owners whose notifications stopped
// (expired subscription, missed delivery) without anyone noticing.
func (cm *CronManager) pollSyncAllOwners() {
	cm.log.Info("Running poll sync for all owners")

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.pollSyncAllOwners")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	owners, err := cm.syncStates.ListOwners(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to list owners for poll sync: %v", err)
		return
	}
	span.SetTag("owners.count", len(owners))

	for _, ownerID := range owners {
		err := cm.publisher.PublishSyncRequested(ctx, interfaces.SyncRequested{
			OwnerID: ownerID,
			Source:  "cron",
		})
		if err != nil {
			tracing.TraceErr(span, err)
			cm.log.Errorf("Failed to queue poll sync for owner %s: %v", ownerID, err)
		}
	}

	cm.log.Infof("Queued poll sync for %d owners", len(owners))
}

func (cm *CronManager) renewSubscriptions() {
	cm.log.Info("Running subscription renewal")

	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.renewSubscriptions")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	if err := cm.subscriptions.RenewDueSubscriptions(ctx); err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to renew subscriptions: %v", err)
		return
	}

	cm.log.Info("Successfully completed subscription renewal")
}
