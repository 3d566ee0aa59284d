package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Provider     ProviderConfig     `mapstructure:"provider"`
	Store        StoreConfig        `mapstructure:"store"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Log          LogConfig          `mapstructure:"log"`

	v *viper.Viper
}

// Viper exposes the instance the config was loaded from, for sections
// other packages unmarshal themselves (engine settings).
func (c *Config) Viper() *viper.Viper { return c.v }

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProviderConfig holds remote payment provider API configuration.
type ProviderConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Mode                string        `mapstructure:"mode"` // test, live
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`
	KeepAlive           time.Duration `mapstructure:"keep_alive"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	BreakerMaxRequests  uint32        `mapstructure:"breaker_max_requests"`
	BreakerInterval     time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout      time.Duration `mapstructure:"breaker_timeout"`
}

// StoreConfig holds host store details used when building provider payloads.
type StoreConfig struct {
	Name        string `mapstructure:"name"`
	BaseURL     string `mapstructure:"base_url"`
	WebhookPath string `mapstructure:"webhook_path"`
	Locale      string `mapstructure:"locale"`
}

// SubscriptionConfig holds renewal scheduling configuration.
type SubscriptionConfig struct {
	RenewalInterval   time.Duration `mapstructure:"renewal_interval"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	ConfirmationGrace time.Duration `mapstructure:"confirmation_grace"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/orderlink")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	v.SetEnvPrefix("ORDERLINK")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.v = v

	// Override with environment variables for sensitive values
	if key := os.Getenv("ORDERLINK_PROVIDER_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if password := os.Getenv("ORDERLINK_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("ORDERLINK_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "orderlink")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Provider defaults
	v.SetDefault("provider.base_url", "https://api.payprovider.test")
	v.SetDefault("provider.mode", "test")
	v.SetDefault("provider.dial_timeout", 5*time.Second)
	v.SetDefault("provider.response_timeout", 30*time.Second)
	v.SetDefault("provider.keep_alive", 30*time.Second)
	v.SetDefault("provider.max_idle_conns", 100)
	v.SetDefault("provider.max_idle_conns_per_host", 10)
	v.SetDefault("provider.idle_conn_timeout", 90*time.Second)
	v.SetDefault("provider.tls_handshake_timeout", 10*time.Second)
	v.SetDefault("provider.breaker_max_requests", 3)
	v.SetDefault("provider.breaker_interval", time.Minute)
	v.SetDefault("provider.breaker_timeout", 30*time.Second)

	// Store defaults
	v.SetDefault("store.name", "orderlink")
	v.SetDefault("store.base_url", "http://localhost:8080")
	v.SetDefault("store.webhook_path", "/webhooks/provider")
	v.SetDefault("store.locale", "en_US")

	// Subscription defaults
	v.SetDefault("subscription.renewal_interval", 5*time.Minute)
	v.SetDefault("subscription.sweep_interval", 10*time.Minute)
	v.SetDefault("subscription.confirmation_grace", 21*24*time.Hour)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
