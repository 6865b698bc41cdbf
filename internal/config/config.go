package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	AccountDomain string `env:"ACCOUNT_DOMAIN" envDefault:"greengrid.energy"`

	MeterInterval   time.Duration `env:"METER_INTERVAL" envDefault:"3s"`
	AutoStartMeter  bool          `env:"AUTO_START_METER" envDefault:"false"`
	SettlementDelay time.Duration `env:"SETTLEMENT_DELAY" envDefault:"3s"`
	SettlementPoll  time.Duration `env:"SETTLEMENT_POLL" envDefault:"250ms"`
	MarketFeeRate   float64       `env:"MARKET_FEE_RATE" envDefault:"0.01"`
	SeedOrders      bool          `env:"SEED_ORDERS" envDefault:"true"`

	ExportDir string `env:"EXPORT_DIR" envDefault:"certificates"`

	// AuditDriver selects the audit log backend: memory, postgres or sqlite.
	AuditDriver string `env:"AUDIT_DRIVER" envDefault:"memory"`
	AuditDSN    string `env:"AUDIT_DSN"`

	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`
}

// Load parses the process environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.AuditDriver {
	case "memory":
	case "postgres", "sqlite":
		if c.AuditDSN == "" {
			return fmt.Errorf("AUDIT_DSN is required for audit driver %q", c.AuditDriver)
		}
	default:
		return fmt.Errorf("unknown audit driver %q", c.AuditDriver)
	}
	if c.MeterInterval <= 0 {
		return fmt.Errorf("METER_INTERVAL must be positive")
	}
	if c.SettlementDelay <= 0 {
		return fmt.Errorf("SETTLEMENT_DELAY must be positive")
	}
	if c.SettlementPoll <= 0 {
		return fmt.Errorf("SETTLEMENT_POLL must be positive")
	}
	if c.MarketFeeRate <= 0 || c.MarketFeeRate >= 1 {
		return fmt.Errorf("MARKET_FEE_RATE must be in (0, 1)")
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	return nil
}
