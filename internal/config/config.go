// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces all environment variables.
const EnvPrefix = "consigna"

// Config is the full application configuration.
type Config struct {
	App    AppConfig
	DB     DBConfig
	JWT    JWTConfig
	Credit CreditConfig
	Sales  SalesConfig
	Worker WorkerConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env      string `envconfig:"CONSIGNA_APP_ENV" default:"development"`
	Port     string `envconfig:"CONSIGNA_APP_PORT" default:"8080"`
	LogLevel string `envconfig:"CONSIGNA_LOG_LEVEL" default:"info"`
}

func (a AppConfig) IsDev() bool {
	return a.Env == "development"
}

type DBConfig struct {
	DSN               string        `envconfig:"CONSIGNA_DATABASE_URL" required:"true"`
	MaxConns          int32         `envconfig:"CONSIGNA_DB_MAX_CONNS" default:"25"`
	MinConns          int32         `envconfig:"CONSIGNA_DB_MIN_CONNS" default:"5"`
	MaxConnLifetime   time.Duration `envconfig:"CONSIGNA_DB_CONN_MAX_LIFETIME" default:"1h"`
	MaxConnIdleTime   time.Duration `envconfig:"CONSIGNA_DB_CONN_MAX_IDLE_TIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"CONSIGNA_DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

type JWTConfig struct {
	Secret string `envconfig:"CONSIGNA_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"CONSIGNA_JWT_ISSUER" default:"consigna"`
}

type CreditConfig struct {
	// HoldingPeriod is how long an accrued credit stays PENDING before the
	// release sweep may flip it to RELEASED.
	HoldingPeriod time.Duration `envconfig:"CONSIGNA_CREDIT_HOLDING_PERIOD" default:"720h"`
}

type SalesConfig struct {
	// RefundWindow bounds online refund approval, counted from confirmation.
	RefundWindow time.Duration `envconfig:"CONSIGNA_REFUND_WINDOW" default:"168h"`

	// PendingMaxAge is how long an online sale may sit in PENDING_PAYMENT
	// before the worker cancels it.
	PendingMaxAge time.Duration `envconfig:"CONSIGNA_PENDING_MAX_AGE" default:"30m"`
}

type WorkerConfig struct {
	SweepInterval time.Duration `envconfig:"CONSIGNA_WORKER_SWEEP_INTERVAL" default:"1m"`
	SweepBatch    int           `envconfig:"CONSIGNA_WORKER_SWEEP_BATCH" default:"100"`
}
