package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig is the PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig is the Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig is the broker configuration for the vitals ingestion feed.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte

	// Topic carries device vitals samples, HeartbeatTopic carries hub
	// heartbeats. Both end in a wildcard device/hub ID segment.
	Topic          string
	HeartbeatTopic string
}

// Config is the full service configuration.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	Session struct {
		// ResetTimeout is how long a session may sit idle before a new
		// press starts a fresh incident instead of merging in.
		ResetTimeout time.Duration

		// SubsequentUrgentThreshold is the time-since-last-update window
		// past which any press escalates regardless of count.
		SubsequentUrgentThreshold time.Duration
	}

	Vitals struct {
		SweepInterval time.Duration

		ButtonHeartbeatThreshold  time.Duration
		GatewayHeartbeatThreshold time.Duration

		// SubsequentAlertThreshold is the reminder back-off shared by all
		// vitals alert kinds.
		SubsequentAlertThreshold time.Duration

		// LowBatteryThreshold raises the alert; RecoveryBatteryThreshold
		// must be crossed before the recovered notice fires. The gap is
		// the hysteresis.
		LowBatteryThreshold      int
		RecoveryBatteryThreshold int

		Hub struct {
			FlicThreshold      time.Duration
			PingThreshold      time.Duration
			HeartbeatThreshold time.Duration
			ExternalThreshold  time.Duration
		}
	}

	Streams struct {
		PressStream   string
		ConsumerGroup string
		ConsumerName  string
	}

	Cache struct {
		VitalsKeyPrefix string
		VitalsSuffix    string
		VitalsTTL       int // seconds
	}

	Notifier struct {
		AccountSID string
		AuthToken  string
		BaseURL    string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from environment variables, falling back
// to defaults suitable for local development.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "beacon")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "beacon-alerts")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1
	cfg.MQTT.Topic = getEnv("MQTT_VITALS_TOPIC", "beacon/vitals/#")
	cfg.MQTT.HeartbeatTopic = getEnv("MQTT_HEARTBEAT_TOPIC", "beacon/heartbeat/#")

	// Durations are configured in seconds.
	cfg.Session.ResetTimeout = getEnvDuration("SESSION_RESET_TIMEOUT", 2*time.Hour)
	cfg.Session.SubsequentUrgentThreshold = getEnvDuration("SUBSEQUENT_URGENT_MESSAGE_THRESHOLD", 2*time.Minute)

	cfg.Vitals.SweepInterval = getEnvDuration("VITALS_SWEEP_INTERVAL", time.Minute)
	cfg.Vitals.ButtonHeartbeatThreshold = getEnvDuration("HEARTBEAT_VITALS_ALERT_THRESHOLD", time.Hour)
	cfg.Vitals.GatewayHeartbeatThreshold = getEnvDuration("GATEWAY_VITALS_ALERT_THRESHOLD", 500*time.Second)
	cfg.Vitals.SubsequentAlertThreshold = getEnvDuration("SUBSEQUENT_VITALS_ALERT_THRESHOLD", 24*time.Hour)
	cfg.Vitals.LowBatteryThreshold = getEnvInt("BUTTON_LOW_BATTERY_ALERT_THRESHOLD", 10)
	cfg.Vitals.RecoveryBatteryThreshold = getEnvInt("BUTTON_BATTERY_RECOVERY_THRESHOLD", 80)

	cfg.Vitals.Hub.FlicThreshold = getEnvDuration("LAST_SEEN_FLIC_THRESHOLD", 370*time.Second)
	cfg.Vitals.Hub.PingThreshold = getEnvDuration("LAST_SEEN_PING_THRESHOLD", 75*time.Second)
	cfg.Vitals.Hub.HeartbeatThreshold = getEnvDuration("LAST_SEEN_HEARTBEAT_THRESHOLD", 75*time.Second)
	cfg.Vitals.Hub.ExternalThreshold = getEnvDuration("HUB_VITALS_ALERT_THRESHOLD", 900*time.Second)

	cfg.Streams.PressStream = getEnv("PRESS_STREAM", "beacon:presses")
	cfg.Streams.ConsumerGroup = getEnv("PRESS_CONSUMER_GROUP", "beacon-alerts")
	cfg.Streams.ConsumerName = getEnv("PRESS_CONSUMER_NAME", "beacon-alerts-1")

	cfg.Cache.VitalsKeyPrefix = getEnv("CACHE_VITALS_PREFIX", "beacon:device:")
	cfg.Cache.VitalsSuffix = ":vitals"
	cfg.Cache.VitalsTTL = getEnvInt("CACHE_VITALS_TTL", 600)

	cfg.Notifier.AccountSID = getEnv("SMS_ACCOUNT_SID", "")
	cfg.Notifier.AuthToken = getEnv("SMS_AUTH_TOKEN", "")
	cfg.Notifier.BaseURL = getEnv("SMS_BASE_URL", "https://api.twilio.com")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}
