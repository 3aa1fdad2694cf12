package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const defaultStripeTimeout = 15 * time.Second

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	ClientURL   string `yaml:"client_url"`
}

func (c ServiceConfig) IsProduction() bool {
	return c.Environment == "production"
}

// StripeConfig carries the gateway credentials. Leaving SecretKey or
// WebhookSecret empty turns the payment feature off.
type StripeConfig struct {
	SecretKey     string        `yaml:"secret_key"`
	WebhookSecret string        `yaml:"webhook_secret"`
	APITimeout    time.Duration `yaml:"api_timeout"`
}

func (c StripeConfig) Configured() bool {
	return c.SecretKey != "" && c.WebhookSecret != ""
}

// BillingConfig holds invoicing defaults. TaxRate is a decimal string so the
// rate is never parsed through a float.
type BillingConfig struct {
	DefaultCurrency string `yaml:"default_currency"`
	TaxRate         string `yaml:"tax_rate"`
	DueDays         int    `yaml:"due_days"`
	Timezone        string `yaml:"timezone"`
}

// Rate returns TaxRate as a decimal. Call after Validate.
func (c BillingConfig) Rate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// Location returns the zone used to pick the invoice numbering year.
func (c BillingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c BillingConfig) validate() error {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return fmt.Errorf("billing.tax_rate %q is not a decimal", c.TaxRate)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("billing.tax_rate %s must be between 0 and 1", rate)
	}
	if c.DueDays < 0 {
		return fmt.Errorf("billing.due_days must not be negative")
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("billing.default_currency %q is not an ISO code", c.DefaultCurrency)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("billing.timezone: %w", err)
	}
	return nil
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Output      string `yaml:"output"`
	FilePath    string `yaml:"file_path"`
	Development bool   `yaml:"development"`
	GormLevel   string `yaml:"gorm_level"`
}
