package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string
	Environment string

	OTPStore         string
	RedisAddr        string
	OTPNotifier      string
	OTPSweepInterval time.Duration

	FeedInterval       time.Duration
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	RateLimitPerMinute      int
	RateLimitBurst          int
	PhoneRateLimitPerMinute int
	PhoneRateLimitBurst     int

	WebhookURL   string
	WebhookToken string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMSGateway   string
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:        port,
		DatabaseURL: os.Getenv("DB_DSN"),
		Environment: readString("APP_ENV", "development"),

		OTPStore:         readString("OTP_STORE", "memory"),
		RedisAddr:        readString("REDIS_ADDR", "localhost:6379"),
		OTPNotifier:      readString("OTP_NOTIFIER", "log"),
		OTPSweepInterval: readDurationSeconds("OTP_SWEEP_INTERVAL_SECONDS", 60),

		FeedInterval:       readDurationSeconds("FEED_INTERVAL_SECONDS", 10),
		OutboxPollInterval: readDurationSeconds("OUTBOX_POLL_SECONDS", 1),
		OutboxBatchSize:    readInt("OUTBOX_BATCH_SIZE", 100),

		RateLimitPerMinute:      readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:          readInt("RATE_LIMIT_BURST", 30),
		PhoneRateLimitPerMinute: readInt("PHONE_RATE_LIMIT_PER_MIN", 60),
		PhoneRateLimitBurst:     readInt("PHONE_RATE_LIMIT_BURST", 10),

		WebhookURL:   os.Getenv("OTP_WEBHOOK_URL"),
		WebhookToken: os.Getenv("OTP_WEBHOOK_TOKEN"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     readInt("SMTP_PORT", 587),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		SMSGateway:   readString("SMS_GATEWAY_DOMAIN", "sms.gateway.local"),
	}
}

func readString(key, fallback string) string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	return raw
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
