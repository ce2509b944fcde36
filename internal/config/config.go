package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Stripe       StripeConfig       `mapstructure:"stripe"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Carrier      CarrierConfig      `mapstructure:"carrier"`
	Shipment     ShipmentConfig     `mapstructure:"shipment"`
	Notification NotificationConfig `mapstructure:"notification"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	DetailTTL time.Duration `mapstructure:"detail_ttl"`
}

// StorageConfig points at any S3-compatible bucket holding label artifacts.
type StorageConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type PaymentConfig struct {
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout"`
	// ClaimLease is how long an IN_PROGRESS marker blocks other callers before
	// it is considered abandoned. Must exceed GatewayTimeout.
	ClaimLease time.Duration `mapstructure:"claim_lease"`
}

type CarrierConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	AccountCode string        `mapstructure:"account_code"`
	ServiceCode string        `mapstructure:"service_code"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ShipmentConfig struct {
	LabelClaimLease time.Duration `mapstructure:"label_claim_lease"`
}

type NotificationConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Channels       []string      `mapstructure:"channels"`
	ChannelTimeout time.Duration `mapstructure:"channel_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the YAML file at path (optional) and applies environment
// overrides such as DATABASE_HOST or STRIPE_SECRET_KEY on top of it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "storefront")
	v.SetDefault("database.password", "secret")
	v.SetDefault("database.name", "storefront")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.detail_ttl", "30s")

	v.SetDefault("storage.endpoint", "http://localhost:9000")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "shipping-labels")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_path_style", true)
	v.SetDefault("storage.key_prefix", "labels/")

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")

	v.SetDefault("payment.gateway_timeout", "10s")
	v.SetDefault("payment.claim_lease", "2m")

	v.SetDefault("carrier.base_url", "http://localhost:8090")
	v.SetDefault("carrier.api_key", "")
	v.SetDefault("carrier.account_code", "")
	v.SetDefault("carrier.service_code", "STANDARD")
	v.SetDefault("carrier.timeout", "20s")

	v.SetDefault("shipment.label_claim_lease", "2m")

	v.SetDefault("notification.base_url", "http://localhost:8070")
	v.SetDefault("notification.channels", []string{"invoice_email"})
	v.SetDefault("notification.channel_timeout", "5s")
	v.SetDefault("notification.max_concurrency", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive, got %d", c.Server.Port)
	}
	if c.Payment.GatewayTimeout <= 0 {
		return errors.New("payment.gateway_timeout must be positive")
	}
	if c.Payment.ClaimLease <= c.Payment.GatewayTimeout {
		return fmt.Errorf("payment.claim_lease (%s) must exceed payment.gateway_timeout (%s)", c.Payment.ClaimLease, c.Payment.GatewayTimeout)
	}
	if c.Carrier.Timeout <= 0 {
		return errors.New("carrier.timeout must be positive")
	}
	if c.Shipment.LabelClaimLease <= c.Carrier.Timeout {
		return fmt.Errorf("shipment.label_claim_lease (%s) must exceed carrier.timeout (%s)", c.Shipment.LabelClaimLease, c.Carrier.Timeout)
	}
	if c.Notification.MaxConcurrency <= 0 {
		return errors.New("notification.max_concurrency must be positive")
	}
	return nil
}
