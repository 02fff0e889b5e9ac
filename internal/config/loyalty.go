package config

import (
	"time"
)

type LoyaltyConfig struct {
	QRTokenTTL               time.Duration `yaml:"qr_token_ttl"`
	DefaultStampsTarget      int           `yaml:"default_stamps_target"`
	DefaultPointsPercentage  float64       `yaml:"default_points_percentage"`
	ReaperSchedule           string        `yaml:"reaper_schedule"`
	QRTokenRetention         time.Duration `yaml:"qr_token_retention"`
	NotificationQueueSize    int           `yaml:"notification_queue_size"`
	NotificationWorkers      int           `yaml:"notification_workers"`
	SubmitRateLimitPerMinute int           `yaml:"submit_rate_limit_per_minute"`
	EventsChannel            string        `yaml:"events_channel"`
}

func loadLoyaltyConfig() *LoyaltyConfig {
	return &LoyaltyConfig{
		QRTokenTTL:               getEnvAsDuration("QR_TOKEN_TTL", 5*time.Minute),
		DefaultStampsTarget:      getEnvAsInt("DEFAULT_STAMPS_TARGET", 6),
		DefaultPointsPercentage:  getEnvAsFloat64("DEFAULT_POINTS_PERCENTAGE", 10),
		ReaperSchedule:           getEnv("REAPER_SCHEDULE", "@every 1m"),
		QRTokenRetention:         getEnvAsDuration("QR_TOKEN_RETENTION", 24*time.Hour),
		NotificationQueueSize:    getEnvAsInt("NOTIFICATION_QUEUE_SIZE", 256),
		NotificationWorkers:      getEnvAsInt("NOTIFICATION_WORKERS", 2),
		SubmitRateLimitPerMinute: getEnvAsInt("SUBMIT_RATE_LIMIT_PER_MINUTE", 20),
		EventsChannel:            getEnv("EVENTS_CHANNEL", "loyalty:events"),
	}
}
