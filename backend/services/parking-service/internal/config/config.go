package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "parkspot/backend/libs/config"
)

// HTTPConfig controls the listener.
type HTTPConfig struct {
	Port string `yaml:"port" env:"PARKING_HTTP_PORT"`
}

// DatabaseConfig controls the Postgres pool.
type DatabaseConfig struct {
	DSN          string        `yaml:"dsn" env:"PARKING_POSTGRES_DSN"`
	MaxOpenConns int           `yaml:"maxOpenConns" env:"PARKING_POSTGRES_MAX_OPEN_CONNS"`
	MaxIdleConns int           `yaml:"maxIdleConns" env:"PARKING_POSTGRES_MAX_IDLE_CONNS"`
	ConnLifetime time.Duration `yaml:"connLifetime" env:"PARKING_POSTGRES_CONN_LIFETIME"`
}

// RedisConfig controls the active-session cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"PARKING_REDIS_ADDR"`
	Password string        `yaml:"password" env:"PARKING_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"PARKING_REDIS_DB"`
	TTL      time.Duration `yaml:"ttl" env:"PARKING_REDIS_TTL"`
}

// JWTConfig holds the shared token secret.
type JWTConfig struct {
	Secret string `yaml:"secret" env:"PARKING_JWT_SECRET"`
}

// BrokerConfig controls notification fan-out. An empty URL disables it.
type BrokerConfig struct {
	URL      string `yaml:"url" env:"PARKING_AMQP_URL"`
	Exchange string `yaml:"exchange" env:"PARKING_AMQP_EXCHANGE"`
}

// NotificationsConfig sizes the delivery worker pool.
type NotificationsConfig struct {
	Workers      int           `yaml:"workers" env:"PARKING_NOTIFY_WORKERS"`
	QueueSize    int           `yaml:"queueSize" env:"PARKING_NOTIFY_QUEUE_SIZE"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"PARKING_WS_WRITE_TIMEOUT"`
}

// BookingConfig controls the expiry sweep.
type BookingConfig struct {
	SweepInterval time.Duration `yaml:"sweepInterval" env:"PARKING_BOOKING_SWEEP_INTERVAL"`
	GracePeriod   time.Duration `yaml:"gracePeriod" env:"PARKING_BOOKING_GRACE_PERIOD"`
}

// BillingConfig controls pricing presentation.
type BillingConfig struct {
	Currency string `yaml:"currency" env:"PARKING_CURRENCY"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level    string `yaml:"level" env:"PARKING_LOG_LEVEL"`
	Encoding string `yaml:"encoding" env:"PARKING_LOG_ENCODING"`
}

// Config defines parking service configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	JWT           JWTConfig           `yaml:"jwt"`
	Broker        BrokerConfig        `yaml:"broker"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Booking       BookingConfig       `yaml:"booking"`
	Billing       BillingConfig       `yaml:"billing"`
	Log           LogConfig           `yaml:"log"`
}

func defaults() *Config {
	return &Config{
		HTTP:  HTTPConfig{Port: "8080"},
		Redis: RedisConfig{TTL: 24 * time.Hour},
		Broker: BrokerConfig{
			Exchange: "parking.events",
		},
		Notifications: NotificationsConfig{
			Workers:      4,
			QueueSize:    256,
			WriteTimeout: 10 * time.Second,
		},
		Booking: BookingConfig{
			SweepInterval: time.Minute,
			GracePeriod:   15 * time.Minute,
		},
		Billing: BillingConfig{Currency: "NPR"},
		Log:     LogConfig{Encoding: "json"},
	}
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := defaults()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt secret required")
	}
	if c.Booking.GracePeriod < 0 {
		return errors.New("config: booking grace period must not be negative")
	}
	if c.Broker.URL != "" && strings.TrimSpace(c.Broker.Exchange) == "" {
		return errors.New("config: amqp exchange required when amqp url is set")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
