package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/stakepot/arena-server-go/internal/money"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Game parameters
	EntryFee               string `env:"ENTRY_FEE" envDefault:"10.00"`
	SessionDurationMinutes int    `env:"SESSION_DURATION_MINUTES" envDefault:"60"`
	MessageQuota           int    `env:"MESSAGE_QUOTA" envDefault:"5"`
	RolloverIntervalSecs   int    `env:"ROLLOVER_INTERVAL_SECONDS" envDefault:"60"`

	// Payments
	SettlementURL            string `env:"SETTLEMENT_URL,required"`
	PaymentFreshnessMinutes  int    `env:"PAYMENT_FRESHNESS_MINUTES" envDefault:"60"`

	// Scoring oracle
	OracleURL               string `env:"ORACLE_URL,required"`
	OracleAPIKey            string `env:"ORACLE_API_KEY"`
	OracleTimeoutSeconds    int    `env:"ORACLE_TIMEOUT_SECONDS" envDefault:"30"`
	OracleMaxRetries        int    `env:"ORACLE_MAX_RETRIES" envDefault:"3"`
	OracleRetryBaseMillis   int    `env:"ORACLE_RETRY_BASE_MS" envDefault:"500"`
	OracleRetryFormatErrors bool   `env:"ORACLE_RETRY_FORMAT_ERRORS" envDefault:"true"`

	// Identity attestation
	AttestURL string `env:"ATTEST_URL,required"`

	// Admin surface
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	RateLimitPerMin int `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) SessionDuration() time.Duration {
	return time.Duration(c.SessionDurationMinutes) * time.Minute
}

func (c *Config) RolloverInterval() time.Duration {
	return time.Duration(c.RolloverIntervalSecs) * time.Second
}

func (c *Config) PaymentFreshness() time.Duration {
	return time.Duration(c.PaymentFreshnessMinutes) * time.Minute
}

func (c *Config) OracleTimeout() time.Duration {
	return time.Duration(c.OracleTimeoutSeconds) * time.Second
}

func (c *Config) OracleRetryBase() time.Duration {
	return time.Duration(c.OracleRetryBaseMillis) * time.Millisecond
}

// EntryFeeAmount parses the configured entry fee into raw currency units.
func (c *Config) EntryFeeAmount() (money.Amount, error) {
	return money.Parse(c.EntryFee)
}

func (c *Config) Validate() error {
	if _, err := c.EntryFeeAmount(); err != nil {
		return fmt.Errorf("ENTRY_FEE: %w", err)
	}
	if c.SessionDurationMinutes <= 0 {
		return fmt.Errorf("SESSION_DURATION_MINUTES must be positive")
	}
	if c.MessageQuota <= 0 {
		return fmt.Errorf("MESSAGE_QUOTA must be positive")
	}
	if c.OracleMaxRetries < 1 {
		return fmt.Errorf("ORACLE_MAX_RETRIES must be at least 1")
	}
	if c.AdminPasswordHash != "" {
		if !strings.HasPrefix(c.AdminPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.AdminPasswordHash, "$2y$") {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash")
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
