package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Email    EmailConfig
	Sweeper  SweeperConfig
	Schedule ScheduleConfig
	Outbox   OutboxConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type JWTConfig struct {
	Secret             string `mapstructure:"secret"`
	RefreshSecret      string `mapstructure:"refresh_secret"`
	ExpiryHours        int    `mapstructure:"expiry_hours"`
	RefreshExpiryHours int    `mapstructure:"refresh_expiry_hours"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

// GatewayConfig carries the payment gateway credentials. Store credentials
// are secrets and come from the environment, never from the config file.
type GatewayConfig struct {
	BaseURL         string        `mapstructure:"base_url" envconfig:"GATEWAY_BASE_URL"`
	StoreID         string        `mapstructure:"-" envconfig:"GATEWAY_STORE_ID"`
	StorePassword   string        `mapstructure:"-" envconfig:"GATEWAY_STORE_PASSWORD"`
	Timeout         time.Duration `mapstructure:"timeout"`
	SuccessURL      string        `mapstructure:"success_url"`
	FailURL         string        `mapstructure:"fail_url"`
	CancelURL       string        `mapstructure:"cancel_url"`
	IPNURL          string        `mapstructure:"ipn_url"`
	SuccessRedirect string        `mapstructure:"success_redirect"`
	FailRedirect    string        `mapstructure:"fail_redirect"`
	CancelRedirect  string        `mapstructure:"cancel_redirect"`
}

type EmailConfig struct {
	Host     string `mapstructure:"host" envconfig:"SMTP_HOST"`
	Port     int    `mapstructure:"port" envconfig:"SMTP_PORT"`
	Username string `mapstructure:"-" envconfig:"SMTP_USERNAME"`
	Password string `mapstructure:"-" envconfig:"SMTP_PASSWORD"`
	From     string `mapstructure:"from" envconfig:"SMTP_FROM"`
}

type SweeperConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
	BatchSize   int           `mapstructure:"batch_size"`
}

type ScheduleConfig struct {
	SlotMinutes int `mapstructure:"slot_minutes"`
}

type OutboxConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &config.Gateway); err != nil {
		return nil, fmt.Errorf("failed to load gateway credentials: %w", err)
	}
	if err := envconfig.Process("", &config.Email); err != nil {
		return nil, fmt.Errorf("failed to load smtp credentials: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout_seconds", 30)

	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)

	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("jwt.refresh_expiry_hours", 168)

	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.retry_backoff", "100ms")
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 2)

	viper.SetDefault("gateway.timeout", "30s")

	viper.SetDefault("sweeper.interval", "1m")
	viper.SetDefault("sweeper.grace_period", "30m")
	viper.SetDefault("sweeper.batch_size", 100)

	viper.SetDefault("schedule.slot_minutes", 30)

	viper.SetDefault("outbox.batch_size", 50)
	viper.SetDefault("outbox.poll_interval", "5s")
	viper.SetDefault("outbox.retention", "24h")
	viper.SetDefault("outbox.cleanup_interval", "1h")
}
