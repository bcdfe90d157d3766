package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsUltraConservative(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Crawl.Concurrency != 2 {
		t.Errorf("concurrency = %d, want 2", cfg.Crawl.Concurrency)
	}
	if cfg.Crawl.Delay != 3*time.Second {
		t.Errorf("delay = %s, want 3s", cfg.Crawl.Delay)
	}
	if cfg.Crawl.Jitter != time.Second {
		t.Errorf("jitter = %s, want 1s", cfg.Crawl.Jitter)
	}
	if cfg.Crawl.MaxPerDomain != 1 {
		t.Errorf("max_per_domain = %d, want 1", cfg.Crawl.MaxPerDomain)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestApplyPreset(t *testing.T) {
	tests := []struct {
		mode         string
		concurrency  int
		delay        time.Duration
		jitter       time.Duration
		maxPerDomain int
	}{
		{"ultra-conservative", 2, 3 * time.Second, time.Second, 1},
		{"conservative", 5, time.Second, 300 * time.Millisecond, 1},
		{"balanced", 10, 500 * time.Millisecond, 200 * time.Millisecond, 2},
		{"aggressive", 20, 0, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ApplyPreset(Presets[tt.mode])
			if cfg.Crawl.Concurrency != tt.concurrency {
				t.Errorf("concurrency = %d, want %d", cfg.Crawl.Concurrency, tt.concurrency)
			}
			if cfg.Crawl.Delay != tt.delay {
				t.Errorf("delay = %s, want %s", cfg.Crawl.Delay, tt.delay)
			}
			if cfg.Crawl.Jitter != tt.jitter {
				t.Errorf("jitter = %s, want %s", cfg.Crawl.Jitter, tt.jitter)
			}
			if cfg.Crawl.MaxPerDomain != tt.maxPerDomain {
				t.Errorf("max_per_domain = %d, want %d", cfg.Crawl.MaxPerDomain, tt.maxPerDomain)
			}
		})
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Crawl.Concurrency = 0 }},
		{"negative delay", func(c *Config) { c.Crawl.Delay = -time.Second }},
		{"zero per-domain", func(c *Config) { c.Crawl.MaxPerDomain = 0 }},
		{"negative retries", func(c *Config) { c.Crawl.MaxRetries = -1 }},
		{"bad format", func(c *Config) { c.Output.Format = "parquet" }},
		{"xlsx without path", func(c *Config) { c.Output.Format = "xlsx"; c.Output.Path = "" }},
		{"bad progress style", func(c *Config) { c.Crawl.ProgressStyle = "fancy" }},
		{"bad block action", func(c *Config) { c.Block.Enabled = true; c.Block.Action = "retry" }},
		{"zero block threshold", func(c *Config) { c.Block.Enabled = true; c.Block.Threshold = 0 }},
		{"quiet with pause", func(c *Config) { c.Block.Enabled = true; c.Crawl.Quiet = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Crawl.Concurrency != 2 {
		t.Errorf("concurrency = %d, want default 2", cfg.Crawl.Concurrency)
	}
	if cfg.Fetcher.UserAgent != DefaultUserAgent {
		t.Errorf("user agent = %q", cfg.Fetcher.UserAgent)
	}
}
