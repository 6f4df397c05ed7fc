package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMySQL    = "mysql"
	DriverDynamoDB = "dynamodb"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Dynamo     DynamoConfig     `yaml:"dynamo"`
	Log        LogConfig        `yaml:"log"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Stripe     StripeConfig     `yaml:"stripe"`
	Storage    StorageConfig    `yaml:"storage"`
	Admin      AdminConfig      `yaml:"admin"`
	Order      OrderConfig      `yaml:"order"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// WriteTimeout bounds evidence uploads too, keep it above the time a
	// client needs to send STORAGE_MAX_UPLOAD_BYTES.
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

type DynamoConfig struct {
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	OrdersTable string `yaml:"ordersTable"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type EncryptionConfig struct {
	// Key is base64 encoded, 16, 24 or 32 bytes once decoded.
	Key string `yaml:"key"`
}

type StripeConfig struct {
	SecretKey     string        `yaml:"secretKey"`
	WebhookSecret string        `yaml:"webhookSecret"`
	SuccessURL    string        `yaml:"successUrl"`
	CancelURL     string        `yaml:"cancelUrl"`
	Currency      string        `yaml:"currency"`
	Timeout       time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Bucket         string `yaml:"bucket"`
	Folder         string `yaml:"folder"`
	PublicBaseURL  string `yaml:"publicBaseUrl"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
}

type AdminConfig struct {
	Token string `yaml:"token"`
}

type OrderConfig struct {
	MaxTransitionAttempts int `yaml:"maxTransitionAttempts"`
	MaxRetryAttempts      int `yaml:"maxRetryAttempts"`
}

// Load reads configuration from the environment. Values from base, usually
// decoded from the YAML file, replace the built-in defaults; environment
// variables override both.
func Load(base *Config) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("DB_DRIVER", DriverMySQL)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_USER", "storefront")
	v.SetDefault("DB_PASSWORD", "secret")
	v.SetDefault("DB_NAME", "storefront")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DYNAMO_REGION", "us-east-1")
	v.SetDefault("DYNAMO_ORDERS_TABLE", "orders")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STRIPE_CURRENCY", "usd")
	v.SetDefault("STRIPE_TIMEOUT", "10s")
	v.SetDefault("STORAGE_FOLDER", "transfers")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "https://storage.googleapis.com")
	v.SetDefault("STORAGE_MAX_UPLOAD_BYTES", 5<<20)
	v.SetDefault("ORDER_MAX_TRANSITION_ATTEMPTS", 3)
	v.SetDefault("ORDER_MAX_RETRY_ATTEMPTS", 3)

	if base != nil {
		seedDefaults(v, base)
	}

	readTimeout, err := time.ParseDuration(v.GetString("SERVER_READ_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("SERVER_READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := time.ParseDuration(v.GetString("SERVER_WRITE_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("SERVER_WRITE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := time.ParseDuration(v.GetString("SERVER_SHUTDOWN_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("SERVER_SHUTDOWN_TIMEOUT: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, fmt.Errorf("DB_CONN_MAX_LIFETIME: %w", err)
	}

	stripeTimeout, err := time.ParseDuration(v.GetString("STRIPE_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("STRIPE_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("SERVER_PORT"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("DB_DRIVER"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Dynamo: DynamoConfig{
			Region:      v.GetString("DYNAMO_REGION"),
			Endpoint:    v.GetString("DYNAMO_ENDPOINT"),
			OrdersTable: v.GetString("DYNAMO_ORDERS_TABLE"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
			SuccessURL:    v.GetString("STRIPE_SUCCESS_URL"),
			CancelURL:     v.GetString("STRIPE_CANCEL_URL"),
			Currency:      v.GetString("STRIPE_CURRENCY"),
			Timeout:       stripeTimeout,
		},
		Storage: StorageConfig{
			Bucket:         v.GetString("STORAGE_BUCKET"),
			Folder:         v.GetString("STORAGE_FOLDER"),
			PublicBaseURL:  v.GetString("STORAGE_PUBLIC_BASE_URL"),
			MaxUploadBytes: v.GetInt64("STORAGE_MAX_UPLOAD_BYTES"),
		},
		Admin: AdminConfig{
			Token: v.GetString("ADMIN_TOKEN"),
		},
		Order: OrderConfig{
			MaxTransitionAttempts: v.GetInt("ORDER_MAX_TRANSITION_ATTEMPTS"),
			MaxRetryAttempts:      v.GetInt("ORDER_MAX_RETRY_ATTEMPTS"),
		},
	}

	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverMySQL, DriverDynamoDB:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverMySQL, DriverDynamoDB, c.Database.Driver))
	}

	required := map[string]string{
		"ENCRYPTION_KEY":        c.Encryption.Key,
		"STRIPE_SECRET_KEY":     c.Stripe.SecretKey,
		"STRIPE_WEBHOOK_SECRET": c.Stripe.WebhookSecret,
		"STRIPE_SUCCESS_URL":    c.Stripe.SuccessURL,
		"STRIPE_CANCEL_URL":     c.Stripe.CancelURL,
		"STORAGE_BUCKET":        c.Storage.Bucket,
		"ADMIN_TOKEN":           c.Admin.Token,
	}
	for _, key := range []string{
		"ENCRYPTION_KEY", "STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET",
		"STRIPE_SUCCESS_URL", "STRIPE_CANCEL_URL", "STORAGE_BUCKET", "ADMIN_TOKEN",
	} {
		if required[key] == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("SERVER_READ_TIMEOUT and SERVER_WRITE_TIMEOUT must be positive"))
	}
	if c.Stripe.Timeout <= 0 {
		errs = append(errs, errors.New("STRIPE_TIMEOUT must be positive"))
	}
	if c.Storage.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("STORAGE_MAX_UPLOAD_BYTES must be positive"))
	}
	if c.Order.MaxTransitionAttempts < 1 {
		errs = append(errs, errors.New("ORDER_MAX_TRANSITION_ATTEMPTS must be at least 1"))
	}

	return errors.Join(errs...)
}

func seedDefaults(v *viper.Viper, base *Config) {
	seed := func(key string, value any, set bool) {
		if set {
			v.SetDefault(key, value)
		}
	}

	seed("SERVER_PORT", base.Server.Port, base.Server.Port != 0)
	seed("SERVER_READ_TIMEOUT", base.Server.ReadTimeout.String(), base.Server.ReadTimeout != 0)
	seed("SERVER_WRITE_TIMEOUT", base.Server.WriteTimeout.String(), base.Server.WriteTimeout != 0)
	seed("SERVER_SHUTDOWN_TIMEOUT", base.Server.ShutdownTimeout.String(), base.Server.ShutdownTimeout != 0)
	seed("DB_DRIVER", base.Database.Driver, base.Database.Driver != "")
	seed("DB_HOST", base.Database.Host, base.Database.Host != "")
	seed("DB_PORT", base.Database.Port, base.Database.Port != 0)
	seed("DB_USER", base.Database.User, base.Database.User != "")
	seed("DB_PASSWORD", base.Database.Password, base.Database.Password != "")
	seed("DB_NAME", base.Database.Name, base.Database.Name != "")
	seed("DB_MAX_OPEN_CONNS", base.Database.MaxOpenConns, base.Database.MaxOpenConns != 0)
	seed("DB_MAX_IDLE_CONNS", base.Database.MaxIdleConns, base.Database.MaxIdleConns != 0)
	seed("DB_CONN_MAX_LIFETIME", base.Database.ConnMaxLifetime.String(), base.Database.ConnMaxLifetime != 0)
	seed("DYNAMO_REGION", base.Dynamo.Region, base.Dynamo.Region != "")
	seed("DYNAMO_ENDPOINT", base.Dynamo.Endpoint, base.Dynamo.Endpoint != "")
	seed("DYNAMO_ORDERS_TABLE", base.Dynamo.OrdersTable, base.Dynamo.OrdersTable != "")
	seed("LOG_LEVEL", base.Log.Level, base.Log.Level != "")
	seed("ENCRYPTION_KEY", base.Encryption.Key, base.Encryption.Key != "")
	seed("STRIPE_SECRET_KEY", base.Stripe.SecretKey, base.Stripe.SecretKey != "")
	seed("STRIPE_WEBHOOK_SECRET", base.Stripe.WebhookSecret, base.Stripe.WebhookSecret != "")
	seed("STRIPE_SUCCESS_URL", base.Stripe.SuccessURL, base.Stripe.SuccessURL != "")
	seed("STRIPE_CANCEL_URL", base.Stripe.CancelURL, base.Stripe.CancelURL != "")
	seed("STRIPE_CURRENCY", base.Stripe.Currency, base.Stripe.Currency != "")
	seed("STRIPE_TIMEOUT", base.Stripe.Timeout.String(), base.Stripe.Timeout != 0)
	seed("STORAGE_BUCKET", base.Storage.Bucket, base.Storage.Bucket != "")
	seed("STORAGE_FOLDER", base.Storage.Folder, base.Storage.Folder != "")
	seed("STORAGE_PUBLIC_BASE_URL", base.Storage.PublicBaseURL, base.Storage.PublicBaseURL != "")
	seed("STORAGE_MAX_UPLOAD_BYTES", base.Storage.MaxUploadBytes, base.Storage.MaxUploadBytes != 0)
	seed("ADMIN_TOKEN", base.Admin.Token, base.Admin.Token != "")
	seed("ORDER_MAX_TRANSITION_ATTEMPTS", base.Order.MaxTransitionAttempts, base.Order.MaxTransitionAttempts != 0)
	seed("ORDER_MAX_RETRY_ATTEMPTS", base.Order.MaxRetryAttempts, base.Order.MaxRetryAttempts != 0)
}
