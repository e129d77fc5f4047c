package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Reader   ReaderConfig   `yaml:"reader"`
	Route    RouteConfig    `yaml:"route"`
	Symbols  SymbolsConfig  `yaml:"symbols"`
	Settle   SettleConfig   `yaml:"settle"`
	Tax      TaxConfig      `yaml:"tax"`
	Journal  JournalConfig  `yaml:"journal"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Credentials never come from the file.
	Credentials Credentials `yaml:"-"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ExchangeConfig struct {
	BaseURL        string               `yaml:"base_url"`
	DepthLimit     int                  `yaml:"depth_limit"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type ReaderConfig struct {
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
}

// RateLimitConfig throttles reads by Binance request weight.
type RateLimitConfig struct {
	WeightPerMinute int `yaml:"weight_per_minute"`
	BurstSize       int `yaml:"burst_size"`
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

type RouteConfig struct {
	ReferenceAsset string `yaml:"reference_asset"`
	BridgeAsset    string `yaml:"bridge_asset"`
}

type SymbolsConfig struct {
	ExcludedPairs []string `yaml:"excluded_pairs"`
}

type SettleConfig struct {
	ReconcileTimeout time.Duration `yaml:"reconcile_timeout"`
}

type TaxConfig struct {
	ShortRate      decimal.Decimal `yaml:"short_rate"`
	LongRate       decimal.Decimal `yaml:"long_rate"`
	RoundIncrement decimal.Decimal `yaml:"round_increment"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Prefix  string `yaml:"prefix"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	UsedWeight bool             `yaml:"used_weight"`
	Trades     bool             `yaml:"trades"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// Credentials sign account and order requests.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Complete reports whether both halves of the key pair are present.
func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// Default returns the configuration used when no file is present and the
// base that file values are decoded over.
func Default() Config {
	return Config{
		App: AppConfig{Name: "gainstaker", Version: "dev"},
		Exchange: ExchangeConfig{
			BaseURL:    "https://api.binance.com",
			DepthLimit: 100,
			ConnectionPool: ConnectionPoolConfig{
				MaxIdleConns:    10,
				MaxConnsPerHost: 10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		Reader: ReaderConfig{
			Timeout:   10 * time.Second,
			RateLimit: RateLimitConfig{WeightPerMinute: 1200, BurstSize: 50},
			Retry: RetryConfig{
				MaxAttempts:       3,
				BaseDelay:         200 * time.Millisecond,
				MaxDelay:          2 * time.Second,
				BackoffMultiplier: 2,
			},
		},
		Route:   RouteConfig{ReferenceAsset: "USDC", BridgeAsset: "BTC"},
		Symbols: SymbolsConfig{ExcludedPairs: []string{"USDCBTC"}},
		Settle:  SettleConfig{ReconcileTimeout: 15 * time.Second},
		Tax: TaxConfig{
			ShortRate:      decimal.RequireFromString("0.30"),
			LongRate:       decimal.RequireFromString("0.16"),
			RoundIncrement: decimal.RequireFromString("0.001"),
		},
		Journal: JournalConfig{Dir: "journal", Prefix: "trades"},
		Metrics: MetricsConfig{
			UsedWeight: true,
			Trades:     true,
			CloudWatch: CloudWatchConfig{Namespace: "Gainstaker", Dashboard: "Gainstaker"},
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stderr"},
	}
}

// LoadConfig reads path over Default, applies environment overrides and
// validates the result. A missing file at the default location is not an
// error; any other read failure is.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	resolved := resolveEnvSpecificPath(path, DefaultPath, EnvPaths())
	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err) && (path == "" || path == DefaultPath):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyEnv(config *Config) {
	config.Credentials.APIKey = strings.TrimSpace(os.Getenv("BINANCE_API_KEY"))
	config.Credentials.APISecret = strings.TrimSpace(os.Getenv("BINANCE_API_SECRET"))
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		config.Exchange.BaseURL = strings.TrimSpace(v)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	config.Route.ReferenceAsset = strings.ToUpper(strings.TrimSpace(config.Route.ReferenceAsset))
	config.Route.BridgeAsset = strings.ToUpper(strings.TrimSpace(config.Route.BridgeAsset))
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if !strings.HasPrefix(cfg.Exchange.BaseURL, "http://") && !strings.HasPrefix(cfg.Exchange.BaseURL, "https://") {
		return fmt.Errorf("exchange.base_url must be an http(s) URL")
	}
	switch cfg.Exchange.DepthLimit {
	case 5, 10, 20, 50, 100, 500, 1000, 5000:
	default:
		return fmt.Errorf("exchange.depth_limit %d is not a depth Binance accepts", cfg.Exchange.DepthLimit)
	}

	if cfg.Reader.Timeout <= 0 {
		return fmt.Errorf("reader.timeout must be greater than 0")
	}
	if cfg.Reader.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("reader.retry.max_attempts must be greater than 0")
	}
	if cfg.Reader.RateLimit.WeightPerMinute <= 0 {
		return fmt.Errorf("reader.rate_limit.weight_per_minute must be greater than 0")
	}

	if cfg.Route.ReferenceAsset == "" || cfg.Route.BridgeAsset == "" {
		return fmt.Errorf("route.reference_asset and route.bridge_asset are required")
	}
	if cfg.Route.ReferenceAsset == cfg.Route.BridgeAsset {
		return fmt.Errorf("route.bridge_asset must differ from route.reference_asset")
	}

	if cfg.Settle.ReconcileTimeout <= 0 {
		return fmt.Errorf("settle.reconcile_timeout must be greater than 0")
	}

	if cfg.Tax.ShortRate.IsNegative() || cfg.Tax.LongRate.IsNegative() {
		return fmt.Errorf("tax rates must not be negative")
	}
	if !cfg.Tax.RoundIncrement.IsPositive() {
		return fmt.Errorf("tax.round_increment must be greater than 0")
	}

	if cfg.Journal.Enabled && cfg.Journal.Dir == "" && !cfg.Storage.S3.Enabled {
		return fmt.Errorf("journal.dir or storage.s3 is required when the journal is enabled")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
