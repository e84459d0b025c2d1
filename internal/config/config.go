/**
 * @description
 * This package handles the configuration management for the adoption service. It uses
 * the Viper library to read configuration from environment variables and an optional
 * `.env` file.
 *
 * Numeric and enumerated settings are parsed here rather than by Unmarshal so that a bad
 * value falls back to its default with a warning instead of failing startup.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultServerPort              = "8080"
	defaultRedisRateLimitPrefix    = "adoption:rate_limit"
	defaultEventsExchange          = "adoption.events"
	defaultNotificationQueue       = "adoption_service.notifications"
	defaultPaymentTimeoutSeconds   = 15
	defaultMockDeclinePercent      = 10
	defaultMockLatencyMS           = 300
	defaultDonationPolicy          = "accept"
	defaultMessageRateLimit        = 60
	defaultDonationRateLimit       = 10
	defaultLedgerReconcileSchedule = "@every 1h"
	defaultCORSAllowedOrigins      = "*"
)

// Config holds all the configuration variables for the adoption service.
type Config struct {
	ServerPort              string `mapstructure:"SERVER_PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	RedisURL                string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix    string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	EventsExchange          string `mapstructure:"EVENTS_EXCHANGE"`
	NotificationEventQueue  string `mapstructure:"NOTIFICATION_EVENT_QUEUE"`
	JWTSecret               string `mapstructure:"JWT_SECRET"`
	PaymentGatewayURL       string `mapstructure:"PAYMENT_GATEWAY_URL"`
	PaymentGatewayAPIKey    string `mapstructure:"PAYMENT_GATEWAY_API_KEY"`
	LedgerReconcileSchedule string `mapstructure:"LEDGER_RECONCILE_SCHEDULE"`

	RunMigrations                 bool          `mapstructure:"-"`
	PaymentTimeout                time.Duration `mapstructure:"-"`
	PaymentMockDeclinePercent     int           `mapstructure:"-"`
	PaymentMockLatency            time.Duration `mapstructure:"-"`
	DonationNonHelpRequestPolicy  string        `mapstructure:"-"`
	MessageSendRateLimitPerMinute int           `mapstructure:"-"`
	DonationRateLimitPerMinute    int           `mapstructure:"-"`
	CORSAllowedOrigins            []string      `mapstructure:"-"`
}

// ErrMissingJWTSecret is returned by Validate when no token signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// LoadConfig reads configuration from environment variables and an optional .env file
// under path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", defaultServerPort)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", defaultRedisRateLimitPrefix)
	viper.SetDefault("EVENTS_EXCHANGE", defaultEventsExchange)
	viper.SetDefault("NOTIFICATION_EVENT_QUEUE", defaultNotificationQueue)
	viper.SetDefault("LEDGER_RECONCILE_SCHEDULE", defaultLedgerReconcileSchedule)

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RUN_MIGRATIONS")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("NOTIFICATION_EVENT_QUEUE")
	_ = viper.BindEnv("JWT_SECRET", "JWT_SECRET", "AUTH_JWT_SECRET")
	_ = viper.BindEnv("PAYMENT_GATEWAY_URL")
	_ = viper.BindEnv("PAYMENT_GATEWAY_API_KEY")
	_ = viper.BindEnv("PAYMENT_TIMEOUT_SECONDS")
	_ = viper.BindEnv("PAYMENT_MOCK_DECLINE_PERCENT")
	_ = viper.BindEnv("PAYMENT_MOCK_LATENCY_MS")
	_ = viper.BindEnv("DONATION_NON_HELP_REQUEST_POLICY")
	_ = viper.BindEnv("MESSAGE_SEND_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("DONATION_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("LEDGER_RECONCILE_SCHEDULE")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RabbitMQURL = strings.TrimSpace(config.RabbitMQURL)
	config.JWTSecret = strings.TrimSpace(config.JWTSecret)
	config.PaymentGatewayURL = strings.TrimSpace(config.PaymentGatewayURL)
	config.PaymentGatewayAPIKey = strings.TrimSpace(config.PaymentGatewayAPIKey)
	config.RedisRateLimitPrefix = stringOrDefault(config.RedisRateLimitPrefix, defaultRedisRateLimitPrefix)
	config.EventsExchange = stringOrDefault(config.EventsExchange, defaultEventsExchange)
	config.NotificationEventQueue = stringOrDefault(config.NotificationEventQueue, defaultNotificationQueue)
	config.LedgerReconcileSchedule = stringOrDefault(config.LedgerReconcileSchedule, defaultLedgerReconcileSchedule)

	config.RunMigrations = boolSetting("RUN_MIGRATIONS", true)
	config.PaymentTimeout = time.Duration(intSetting("PAYMENT_TIMEOUT_SECONDS", defaultPaymentTimeoutSeconds, 1, 300)) * time.Second
	config.PaymentMockDeclinePercent = intSetting("PAYMENT_MOCK_DECLINE_PERCENT", defaultMockDeclinePercent, 0, 100)
	config.PaymentMockLatency = time.Duration(intSetting("PAYMENT_MOCK_LATENCY_MS", defaultMockLatencyMS, 0, 60000)) * time.Millisecond
	config.MessageSendRateLimitPerMinute = intSetting("MESSAGE_SEND_RATE_LIMIT_PER_MINUTE", defaultMessageRateLimit, 1, 100000)
	config.DonationRateLimitPerMinute = intSetting("DONATION_RATE_LIMIT_PER_MINUTE", defaultDonationRateLimit, 1, 100000)

	config.DonationNonHelpRequestPolicy = strings.ToLower(strings.TrimSpace(viper.GetString("DONATION_NON_HELP_REQUEST_POLICY")))
	switch config.DonationNonHelpRequestPolicy {
	case "accept", "reject":
	case "":
		config.DonationNonHelpRequestPolicy = defaultDonationPolicy
	default:
		log.Printf("level=warn component=config msg=\"invalid DONATION_NON_HELP_REQUEST_POLICY; using default\" value=%q default=%s", config.DonationNonHelpRequestPolicy, defaultDonationPolicy)
		config.DonationNonHelpRequestPolicy = defaultDonationPolicy
	}

	config.CORSAllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))
	if len(config.CORSAllowedOrigins) == 0 {
		config.CORSAllowedOrigins = []string{defaultCORSAllowedOrigins}
	}

	return
}

// Validate reports settings without which the service cannot start.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// UseMockPayments reports whether donations should go through the in-process mock gateway.
func (c Config) UseMockPayments() bool {
	return c.PaymentGatewayURL == ""
}

func stringOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func intSetting(key string, fallback, min, max int) int {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("level=warn component=config msg=\"invalid integer setting; using default\" key=%s value=%q default=%d", key, raw, fallback)
		return fallback
	}
	if value < min || value > max {
		log.Printf("level=warn component=config msg=\"setting out of range; using default\" key=%s value=%d min=%d max=%d default=%d", key, value, min, max, fallback)
		return fallback
	}
	return value
}

func boolSetting(key string, fallback bool) bool {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("level=warn component=config msg=\"invalid boolean setting; using default\" key=%s value=%q default=%t", key, raw, fallback)
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
