package config

import (
	"fmt"
	"time"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/user"

	"github.com/caarlos0/env/v6"
)

type StorageDriver string

const (
	StoragePostgres StorageDriver = "postgres"
	StorageSQLite   StorageDriver = "sqlite"
	StorageMongoDB  StorageDriver = "mongodb"
)

type Config struct {
	IsTestMode     bool     `env:"TEST_MODE" envDefault:"false"`
	Secret         string   `env:"SECRET,required"`
	Port           uint16   `env:"PORT" envDefault:"9090"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	AdminToken     string   `env:"ADMIN_TOKEN"`

	StorageDriver   StorageDriver `env:"STORAGE_DRIVER" envDefault:"postgres"`
	PostgresqlURL   string        `env:"POSTGRESQL_URL"`
	SQLitePath      string        `env:"SQLITE_PATH" envDefault:"accounts.db"`
	MongodbURL      string        `env:"MONGODB_URL"`
	MongodbDatabase string        `env:"MONGODB_DATABASE" envDefault:"accounts"`

	RedisURL                string `env:"REDIS_URL"`
	RabbitmqURL             string `env:"RABBITMQ_URL"`
	RabbitmqAccountExchange string `env:"RABBITMQ_ACCOUNT_EXCHANGE" envDefault:"account-events"`

	BcryptHasherCost          int                 `env:"BCRYPT_HASHER_COST" envDefault:"10"`
	PasswordResetTokenTTL     time.Duration       `env:"PASSWORD_RESET_TOKEN_TTL" envDefault:"24h"`
	PasswordResetRetryTTL     time.Duration       `env:"PASSWORD_RESET_RETRY_TTL" envDefault:"2h"`
	PasswordResetRequestLimit uint16              `env:"PASSWORD_RESET_REQUEST_LIMIT" envDefault:"5"`
	IdentityResolutionMode    user.ResolutionMode `env:"IDENTITY_RESOLUTION_MODE" envDefault:"either"`

	AwsRegion                     string `env:"AWS_REGION" envDefault:"eu-central-1"`
	AwsAccessKey                  string `env:"AWS_ACCESS_KEY"`
	AwsSecretKey                  string `env:"AWS_SECRET_KEY"`
	AwsEmailSender                string `env:"AWS_EMAIL_SENDER"`
	AwsEmailPasswordResetTemplate string `env:"AWS_EMAIL_PASSWORD_RESET_TEMPLATE" envDefault:"PasswordReset"`
	AwsEmailPasswordResetBaseUrl  string `env:"AWS_EMAIL_PASSWORD_RESET_BASE_URL"`

	SentryDsn string `env:"SENTRY_DSN"`
}

func (c *Config) ResetPolicy() user.ResetPolicy {
	return user.ResetPolicy{TokenTTL: c.PasswordResetTokenTTL, RetryTTL: c.PasswordResetRetryTTL}
}

func (c *Config) IsEmailSendingEnabled() bool {
	return c.AwsEmailSender != ""
}

func Load() (*Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	config := &Config{}
	if err := env.Parse(config, opts); err != nil {
		return nil, e.NewConfigurationError("environment", err.Error())
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StoragePostgres:
		if c.PostgresqlURL == "" {
			return e.NewConfigurationError("POSTGRESQL_URL", "must be set for the postgres storage driver")
		}
	case StorageSQLite:
		if c.SQLitePath == "" {
			return e.NewConfigurationError("SQLITE_PATH", "must be set for the sqlite storage driver")
		}
	case StorageMongoDB:
		if c.MongodbURL == "" {
			return e.NewConfigurationError("MONGODB_URL", "must be set for the mongodb storage driver")
		}
	default:
		return e.NewConfigurationError("STORAGE_DRIVER", fmt.Sprintf("unknown driver %q", c.StorageDriver))
	}

	if _, err := user.ParseResolutionMode(string(c.IdentityResolutionMode)); err != nil {
		return e.NewConfigurationError("IDENTITY_RESOLUTION_MODE", err.Error())
	}
	if c.PasswordResetRequestLimit == 0 {
		return e.NewConfigurationError("PASSWORD_RESET_REQUEST_LIMIT", "must be positive")
	}
	if c.IsEmailSendingEnabled() && c.AwsEmailPasswordResetBaseUrl == "" {
		return e.NewConfigurationError("AWS_EMAIL_PASSWORD_RESET_BASE_URL", "must be set when emails are sent")
	}
	return c.ResetPolicy().Validate()
}
