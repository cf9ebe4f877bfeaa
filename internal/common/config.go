package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that unmarshals from TOML duration strings
// ("30s", "500ms"). go-toml decodes strings through encoding.TextUnmarshaler,
// which time.Duration itself does not implement.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a standard time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config represents the worker process configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Worker      WorkerConfig   `toml:"worker"`
	Crawler     CrawlerConfig  `toml:"crawler"`
	Browser     BrowserConfig  `toml:"browser"`
	Submit      SubmitConfig   `toml:"submit"`
	Storage     StorageConfig  `toml:"storage"`
	Campaigns   CampaignsDir   `toml:"campaigns"`
	Logging     LoggingConfig  `toml:"logging"`
}

// WorkerConfig controls the coordinator poll loop
type WorkerConfig struct {
	PollInterval Duration `toml:"poll_interval"` // how often the loop looks for pending domains
	BatchSize    int           `toml:"batch_size" validate:"min=1,max=32"` // concurrent processDomain calls per cycle
	// StuckThreshold is how long a domain may sit in processing before the
	// recovery sweep returns it to pending
	StuckThreshold Duration `toml:"stuck_threshold"`
	// SweepSchedule is a cron expression for the stuck-recovery watchdog
	SweepSchedule string `toml:"sweep_schedule"`
	ClaimRetries  int    `toml:"claim_retries" validate:"min=1,max=10"` // candidates tried per claim before giving up
}

// CrawlerConfig contains crawl engine bounds and timeouts
type CrawlerConfig struct {
	UserAgent      string        `toml:"user_agent"`
	MaxPages       int           `toml:"max_pages" validate:"min=1"` // default per-domain page cap
	MinDelay       Duration `toml:"min_delay"`                  // randomized per-request delay bounds
	MaxDelay       Duration `toml:"max_delay"`
	RequestsPerSec float64       `toml:"requests_per_sec"` // global ceiling across all concurrent crawls
	RobotsTimeout  Duration `toml:"robots_timeout"`
	SitemapTimeout Duration `toml:"sitemap_timeout"`
	PageTimeout    Duration `toml:"page_timeout"`
	MaxBodySize    int64         `toml:"max_body_size"` // response body read cap in bytes
}

// BrowserConfig contains browser automation pool settings
type BrowserConfig struct {
	MaxBrowsers int           `toml:"max_browsers" validate:"min=1,max=20"` // hard cap on browser processes
	MaxContexts int           `toml:"max_contexts"`                         // pooled contexts kept warm
	Headless    bool          `toml:"headless"`
	NoSandbox   bool          `toml:"no_sandbox"`
	NavTimeout  Duration `toml:"nav_timeout"`
	// Stealth forces a fresh fingerprint for every submission instead of
	// reusing pooled contexts
	Stealth bool `toml:"stealth"`
}

// SubmitConfig contains submission actor settings
type SubmitConfig struct {
	MaxAttempts int           `toml:"max_attempts" validate:"min=1,max=5"` // total attempts per submission (retry wrapper)
	RetryDelay  Duration `toml:"retry_delay"`
	SettleWait  Duration `toml:"settle_wait"` // wait after clicking submit before reading the result page
}

// StorageConfig contains durable store settings
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// CampaignsDir points at the directory of campaign seed files (YAML)
type CampaignsDir struct {
	Dir string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// DefaultConfig returns the configuration defaults applied before any file
// or environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Worker: WorkerConfig{
			PollInterval:   Duration(3 * time.Second),
			BatchSize:      4,
			StuckThreshold: Duration(10 * time.Minute),
			SweepSchedule:  "*/5 * * * *",
			ClaimRetries:   5,
		},
		Crawler: CrawlerConfig{
			UserAgent:      "OutreachBot/1.0",
			MaxPages:       25,
			MinDelay:       Duration(500 * time.Millisecond),
			MaxDelay:       Duration(2 * time.Second),
			RequestsPerSec: 4,
			RobotsTimeout:  Duration(10 * time.Second),
			SitemapTimeout: Duration(15 * time.Second),
			PageTimeout:    Duration(15 * time.Second),
			MaxBodySize:    5 * 1024 * 1024,
		},
		Browser: BrowserConfig{
			MaxBrowsers: 5,
			MaxContexts: 3,
			Headless:    true,
			NoSandbox:   false,
			NavTimeout:  Duration(45 * time.Second),
			Stealth:     false,
		},
		Submit: SubmitConfig{
			MaxAttempts: 2,
			RetryDelay:  Duration(2 * time.Second),
			SettleWait:  Duration(3 * time.Second),
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/outreach"},
		},
		Campaigns: CampaignsDir{Dir: "./campaigns"},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadConfig loads configuration in priority order: defaults -> TOML files
// (later files override earlier ones) -> environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies OUTREACH_* environment variables over the loaded
// configuration. Only the values operators commonly tune are exposed.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("OUTREACH_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("OUTREACH_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("OUTREACH_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Worker.BatchSize = n
		}
	}
	if v := os.Getenv("OUTREACH_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.Worker.PollInterval = Duration(d)
		}
	}
	if v := os.Getenv("OUTREACH_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Browser.Headless = b
		}
	}
}
