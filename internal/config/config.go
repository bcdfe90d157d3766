package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultUserAgent identifies the crawler to site operators.
const DefaultUserAgent = "WhitehatHubSpotCrawler/1.0 (+https://whitehat-seo.co.uk)"

// Config is the root configuration for hubcrawl.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"   yaml:"crawl"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Output  OutputConfig  `mapstructure:"output"  yaml:"output"`
	Block   BlockConfig   `mapstructure:"block"   yaml:"block"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CrawlConfig controls the worker pool and pacing.
type CrawlConfig struct {
	Concurrency      int           `mapstructure:"concurrency"       yaml:"concurrency"`
	Delay            time.Duration `mapstructure:"delay"             yaml:"delay"`
	Jitter           time.Duration `mapstructure:"jitter"            yaml:"jitter"`
	MaxPerDomain     int           `mapstructure:"max_per_domain"    yaml:"max_per_domain"`
	MaxRetries       int           `mapstructure:"max_retries"       yaml:"max_retries"`
	TryVariations    bool          `mapstructure:"try_variations"    yaml:"try_variations"`
	MaxVariations    int           `mapstructure:"max_variations"    yaml:"max_variations"`
	CheckpointPath   string        `mapstructure:"checkpoint_path"   yaml:"checkpoint_path"`
	ProgressInterval int           `mapstructure:"progress_interval" yaml:"progress_interval"`
	ProgressStyle    string        `mapstructure:"progress_style"    yaml:"progress_style"`
	Quiet            bool          `mapstructure:"quiet"             yaml:"quiet"`
}

// FetcherConfig controls the HTTP client and the optional render path.
type FetcherConfig struct {
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" yaml:"attempt_timeout"`
	MaxRedirects   int           `mapstructure:"max_redirects"   yaml:"max_redirects"`
	MaxBodySize    int64         `mapstructure:"max_body_size"   yaml:"max_body_size"`
	TLSInsecure    bool          `mapstructure:"tls_insecure"    yaml:"tls_insecure"`
	Render         bool          `mapstructure:"render"          yaml:"render"`
}

// OutputConfig controls the writer sinks.
type OutputConfig struct {
	Path         string `mapstructure:"path"          yaml:"path"`
	Format       string `mapstructure:"format"        yaml:"format"` // jsonl, csv, xlsx
	Pretty       bool   `mapstructure:"pretty"        yaml:"pretty"`
	FailuresPath string `mapstructure:"failures_path" yaml:"failures_path"`
}

// BlockConfig controls IP-block detection and the response policy.
type BlockConfig struct {
	Enabled    bool   `mapstructure:"enabled"     yaml:"enabled"`
	Threshold  int    `mapstructure:"threshold"   yaml:"threshold"`
	WindowSize int    `mapstructure:"window_size" yaml:"window_size"`
	Action     string `mapstructure:"action"      yaml:"action"` // pause, warn, abort
	AutoResume int    `mapstructure:"auto_resume" yaml:"auto_resume"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Preset is a named safety profile trading throughput against block risk.
type Preset struct {
	Name         string
	Concurrency  int
	Delay        time.Duration
	Jitter       time.Duration
	MaxPerDomain int
	Description  string
}

// Presets maps mode names to their pacing profiles. Ultra-conservative is
// the default; individual flags override single fields.
var Presets = map[string]Preset{
	"ultra-conservative": {
		Name: "ultra-conservative", Concurrency: 2, Delay: 3 * time.Second,
		Jitter: 1 * time.Second, MaxPerDomain: 1,
		Description: "Ultra-conservative (3-5 hrs/10k URLs, virtually zero block risk)",
	},
	"conservative": {
		Name: "conservative", Concurrency: 5, Delay: 1 * time.Second,
		Jitter: 300 * time.Millisecond, MaxPerDomain: 1,
		Description: "Conservative (35-40 min/10k URLs, minimal risk)",
	},
	"balanced": {
		Name: "balanced", Concurrency: 10, Delay: 500 * time.Millisecond,
		Jitter: 200 * time.Millisecond, MaxPerDomain: 2,
		Description: "Balanced (12-16 min/10k URLs, low-medium risk)",
	},
	"aggressive": {
		Name: "aggressive", Concurrency: 20, Delay: 0,
		Jitter: 0, MaxPerDomain: 5,
		Description: "Aggressive (8-10 min/10k URLs, HIGH risk)",
	},
}

// DefaultMode is applied when no --mode flag is given.
const DefaultMode = "ultra-conservative"

// DefaultConfig returns a Config with the ultra-conservative preset applied.
func DefaultConfig() *Config {
	preset := Presets[DefaultMode]
	return &Config{
		Crawl: CrawlConfig{
			Concurrency:      preset.Concurrency,
			Delay:            preset.Delay,
			Jitter:           preset.Jitter,
			MaxPerDomain:     preset.MaxPerDomain,
			MaxRetries:       3,
			MaxVariations:    4,
			ProgressInterval: 10,
			ProgressStyle:    "compact",
		},
		Fetcher: FetcherConfig{
			UserAgent:      DefaultUserAgent,
			RequestTimeout: 20 * time.Second,
			AttemptTimeout: 30 * time.Second,
			MaxRedirects:   10,
			MaxBodySize:    10 * 1024 * 1024, // 10MB
		},
		Output: OutputConfig{
			Format: "jsonl",
		},
		Block: BlockConfig{
			Enabled:    true,
			Threshold:  5,
			WindowSize: 20,
			Action:     "pause",
			AutoResume: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ApplyPreset overwrites the pacing fields from the named preset.
func (c *Config) ApplyPreset(p Preset) {
	c.Crawl.Concurrency = p.Concurrency
	c.Crawl.Delay = p.Delay
	c.Crawl.Jitter = p.Jitter
	c.Crawl.MaxPerDomain = p.MaxPerDomain
}
