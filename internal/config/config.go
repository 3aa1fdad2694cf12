package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	pkgconfig "github.com/wekeepgrowing/portal-billing/pkg/config"
)

const envPrefix = "billing"

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Billing  BillingConfig  `yaml:"billing"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
}

// LoadConfig reads .env, the YAML file at CONFIG_PATH and then the BILLING_*
// environment overrides, in that order.
func LoadConfig() (*Config, error) {
	if err := pkgconfig.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/billing.yaml"
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML, applies defaults and environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyEnv(pkgconfig.NewEnv(envPrefix))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{Name: "billing", Environment: "development"},
		Server: ServerConfig{
			HTTP: HTTPConfig{Host: "0.0.0.0", Port: 8080},
			GRPC: GRPCConfig{Host: "0.0.0.0", Port: 9090},
		},
		Database: DatabaseConfig{
			Driver:         DriverPostgres,
			Port:           5432,
			SSLMode:        "disable",
			MaxOpenConns:   20,
			MaxIdleConns:   5,
			ConnectRetries: 5,
		},
		Mongo: MongoConfig{Database: "portal", ConnectTimeout: defaultConnectTimeout},
		Redis: RedisConfig{Channel: "notifications"},
		Stripe: StripeConfig{
			APITimeout: defaultStripeTimeout,
		},
		Billing: BillingConfig{
			DefaultCurrency: "EUR",
			TaxRate:         "0.23",
			DueDays:         30,
			Timezone:        "Europe/Lisbon",
		},
		Log: LogConfig{Level: "info", Format: "json", Output: "stdout", GormLevel: "warn"},
	}
}

func (c *Config) applyEnv(env *pkgconfig.Env) {
	env.String("service.environment", &c.Service.Environment)
	env.String("service.client_url", &c.Service.ClientURL)
	env.String("server.http.host", &c.Server.HTTP.Host)
	env.Int("server.http.port", &c.Server.HTTP.Port)
	env.Int("server.grpc.port", &c.Server.GRPC.Port)

	env.String("database.driver", &c.Database.Driver)
	env.String("database.path", &c.Database.Path)
	env.String("database.host", &c.Database.Host)
	env.Int("database.port", &c.Database.Port)
	env.String("database.name", &c.Database.Name)
	env.String("database.user", &c.Database.User)
	env.String("database.password", &c.Database.Password)

	env.String("mongo.uri", &c.Mongo.URI)
	env.String("mongo.database", &c.Mongo.Database)
	env.String("redis.addr", &c.Redis.Addr)
	env.String("redis.password", &c.Redis.Password)

	env.String("stripe.secret_key", &c.Stripe.SecretKey)
	env.String("stripe.webhook_secret", &c.Stripe.WebhookSecret)
	env.Duration("stripe.api_timeout", &c.Stripe.APITimeout)

	env.String("billing.tax_rate", &c.Billing.TaxRate)
	env.String("billing.default_currency", &c.Billing.DefaultCurrency)

	env.String("jwt.secret", &c.JWT.Secret)
	env.String("log.level", &c.Log.Level)
	env.Bool("log.development", &c.Log.Development)
}

// Validate rejects values the service cannot start with. Missing Stripe keys
// are allowed and disable payments instead.
func (c *Config) Validate() error {
	if err := c.Database.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Server.HTTP.Port <= 0 || c.Server.HTTP.Port > 65535 {
		return fmt.Errorf("invalid config: server.http.port %d out of range", c.Server.HTTP.Port)
	}
	if c.Server.GRPC.Port < 0 || c.Server.GRPC.Port > 65535 {
		return fmt.Errorf("invalid config: server.grpc.port %d out of range", c.Server.GRPC.Port)
	}
	if err := c.Billing.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
