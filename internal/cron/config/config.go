package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Poll sync fallback for owners whose webhooks went quiet, every 15 minutes
	CronSchedulePollSync string `env:"CRON_SCHEDULE_POLL_SYNC" envDefault:"0 */15 * * * *"`
	// Webhook subscription renewal, every 30 minutes
	CronScheduleRenewSubscriptions string `env:"CRON_SCHEDULE_RENEW_SUBSCRIPTIONS" envDefault:"0 */30 * * * *"`
}
