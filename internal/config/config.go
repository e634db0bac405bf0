// Package config loads the service configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/oracle"
)

// Pricing modes.
const (
	PricingFixed  = "fixed"
	PricingOracle = "oracle"
)

// Oracle quote sources.
const (
	SourceRPC    = "rpc"
	SourceStream = "stream"
	SourceManual = "manual"
)

// DefaultProgramID is the program address used to derive vault addresses
// when none is configured.
const DefaultProgramID = "2Y2WUM4XYPbqk81BXLNC1b3J7zuPsV1DzLFNtuXsLeWX"

// Oracle clocks.
const (
	ClockSystem = "system"
	ClockChain  = "chain"
)

type Config struct {
	Service ServiceConfig `yaml:"service"`
	Logging LoggingConfig `yaml:"logging"`
	Solana  SolanaConfig  `yaml:"solana"`
	Storage StorageConfig `yaml:"storage"`
	Pricing PricingConfig `yaml:"pricing"`
	Custody CustodyConfig `yaml:"custody"`
}

type ServiceConfig struct {
	ProgramID       string        `yaml:"program_id"`
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type SolanaConfig struct {
	RPCEndpoint    string  `yaml:"rpc_endpoint"`
	WSEndpoint     string  `yaml:"ws_endpoint"`
	Commitment     string  `yaml:"commitment"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	MaxRetries     int     `yaml:"max_retries"`
}

type StorageConfig struct {
	UseMemory     bool   `yaml:"use_memory"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
}

type PricingConfig struct {
	Mode      string       `yaml:"mode"`
	FixedRate uint64       `yaml:"fixed_rate"`
	Oracle    OracleConfig `yaml:"oracle"`
}

type OracleConfig struct {
	FeedID string        `yaml:"feed_id"`
	MaxAge time.Duration `yaml:"max_age"`
	Source string        `yaml:"source"`
	Clock  string        `yaml:"clock"`
	// Manual quotes, used when Source is manual.
	Manual []ManualQuote `yaml:"manual"`
}

type ManualQuote struct {
	FeedID      string `yaml:"feed_id"`
	Price       int64  `yaml:"price"`
	Exponent    int32  `yaml:"exponent"`
	PublishedAt int64  `yaml:"published_at"` // 0 means load time
}

// CustodyConfig seeds the in-memory custody ledger for development runs.
type CustodyConfig struct {
	Native []NativeSeed `yaml:"native"`
	Tokens []TokenSeed  `yaml:"tokens"`
}

type NativeSeed struct {
	Owner  string `yaml:"owner"`
	Amount uint64 `yaml:"amount"`
}

type TokenSeed struct {
	Mint   string `yaml:"mint"`
	Owner  string `yaml:"owner"`
	Amount uint64 `yaml:"amount"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			ProgramID:       DefaultProgramID,
			HTTPAddr:        ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Solana: SolanaConfig{
			Commitment:     "confirmed",
			RateLimitBurst: 1,
			MaxRetries:     3,
		},
		Pricing: PricingConfig{
			Mode: PricingFixed,
			Oracle: OracleConfig{
				MaxAge: oracle.DefaultMaxAge,
				Source: SourceRPC,
				Clock:  ClockSystem,
			},
		},
	}
}

// Override adjusts a configuration after file and environment values are
// applied and before validation. Command-line flags are passed this way.
type Override func(*Config)

// WithHTTPAddr overrides service.http_addr when addr is non-empty.
func WithHTTPAddr(addr string) Override {
	return func(c *Config) {
		if addr != "" {
			c.Service.HTTPAddr = addr
		}
	}
}

// WithMemoryStorage forces in-memory storage when on is true.
func WithMemoryStorage(on bool) Override {
	return func(c *Config) {
		if on {
			c.Storage.UseMemory = true
		}
	}
}

// Load reads path (optional), applies .env, environment and caller overrides
// in that order and validates the result.
func Load(path string, overrides ...Override) (*Config, error) {
	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString(&c.Service.ProgramID, "PROGRAM_ID")
	setString(&c.Service.HTTPAddr, "HTTP_ADDR")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Solana.RPCEndpoint, "SOLANA_RPC_ENDPOINT")
	setString(&c.Solana.WSEndpoint, "SOLANA_WS_ENDPOINT")
	setString(&c.Storage.PostgresDSN, "POSTGRES_DSN")
	setString(&c.Storage.ClickHouseDSN, "CLICKHOUSE_DSN")
	setString(&c.Pricing.Mode, "PRICING_MODE")
	setString(&c.Pricing.Oracle.FeedID, "PRICE_FEED_ID")
	setString(&c.Pricing.Oracle.Source, "PRICE_SOURCE")

	if v := os.Getenv("FIXED_RATE"); v != "" {
		rate, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("FIXED_RATE: %w", err)
		}
		c.Pricing.FixedRate = rate
	}
	if v := os.Getenv("ORACLE_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ORACLE_MAX_AGE: %w", err)
		}
		c.Pricing.Oracle.MaxAge = d
	}
	if v := os.Getenv("USE_MEMORY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("USE_MEMORY: %w", err)
		}
		c.Storage.UseMemory = b
	}
	return nil
}

// Validate rejects inconsistent configurations.
func (c *Config) Validate() error {
	if _, err := domain.ParseIdentity(c.Service.ProgramID); err != nil {
		return fmt.Errorf("service.program_id: %w", err)
	}
	if c.Service.HTTPAddr == "" {
		return fmt.Errorf("service.http_addr is required")
	}

	switch c.Pricing.Mode {
	case PricingFixed:
		if c.Pricing.FixedRate == 0 {
			return fmt.Errorf("pricing.fixed_rate must be greater than 0")
		}
	case PricingOracle:
		if err := c.validateOracle(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("pricing.mode '%s' is invalid (want %s or %s)", c.Pricing.Mode, PricingFixed, PricingOracle)
	}

	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required unless storage.use_memory is set")
	}

	for i, s := range c.Custody.Native {
		if _, err := domain.ParseIdentity(s.Owner); err != nil {
			return fmt.Errorf("custody.native[%d].owner: %w", i, err)
		}
	}
	for i, s := range c.Custody.Tokens {
		if _, err := domain.ParseIdentity(s.Mint); err != nil {
			return fmt.Errorf("custody.tokens[%d].mint: %w", i, err)
		}
		if _, err := domain.ParseIdentity(s.Owner); err != nil {
			return fmt.Errorf("custody.tokens[%d].owner: %w", i, err)
		}
	}
	return nil
}

func (c *Config) validateOracle() error {
	o := c.Pricing.Oracle
	if o.FeedID == "" {
		return fmt.Errorf("pricing.oracle.feed_id is required in oracle mode")
	}
	if o.MaxAge <= 0 {
		return fmt.Errorf("pricing.oracle.max_age must be greater than 0")
	}

	switch o.Source {
	case SourceRPC:
		if c.Solana.RPCEndpoint == "" {
			return fmt.Errorf("solana.rpc_endpoint is required for the rpc price source")
		}
	case SourceStream:
		if c.Solana.WSEndpoint == "" || c.Solana.RPCEndpoint == "" {
			return fmt.Errorf("solana.ws_endpoint and solana.rpc_endpoint are required for the stream price source")
		}
	case SourceManual:
		for i, q := range o.Manual {
			if q.FeedID == "" {
				return fmt.Errorf("pricing.oracle.manual[%d].feed_id is required", i)
			}
		}
	default:
		return fmt.Errorf("pricing.oracle.source '%s' is invalid", o.Source)
	}

	switch o.Clock {
	case ClockSystem:
	case ClockChain:
		if c.Solana.RPCEndpoint == "" {
			return fmt.Errorf("solana.rpc_endpoint is required for the chain clock")
		}
	default:
		return fmt.Errorf("pricing.oracle.clock '%s' is invalid", o.Clock)
	}
	return nil
}
