package config

import (
	"fmt"
)

// Validate checks the configuration for invalid values. Errors here map to
// exit code 2 in the CLI.
func Validate(cfg *Config) error {
	if cfg.Crawl.Concurrency < 1 {
		return fmt.Errorf("crawl.concurrency must be >= 1, got %d", cfg.Crawl.Concurrency)
	}
	if cfg.Crawl.Delay < 0 {
		return fmt.Errorf("crawl.delay must be >= 0, got %s", cfg.Crawl.Delay)
	}
	if cfg.Crawl.Jitter < 0 {
		return fmt.Errorf("crawl.jitter must be >= 0, got %s", cfg.Crawl.Jitter)
	}
	if cfg.Crawl.MaxPerDomain < 1 {
		return fmt.Errorf("crawl.max_per_domain must be >= 1, got %d", cfg.Crawl.MaxPerDomain)
	}
	if cfg.Crawl.MaxRetries < 0 {
		return fmt.Errorf("crawl.max_retries must be >= 0, got %d", cfg.Crawl.MaxRetries)
	}
	if cfg.Crawl.MaxVariations < 0 {
		return fmt.Errorf("crawl.max_variations must be >= 0, got %d", cfg.Crawl.MaxVariations)
	}
	if cfg.Crawl.ProgressInterval < 1 {
		return fmt.Errorf("crawl.progress_interval must be >= 1, got %d", cfg.Crawl.ProgressInterval)
	}
	switch cfg.Crawl.ProgressStyle {
	case "compact", "detailed", "json":
	default:
		return fmt.Errorf("crawl.progress_style must be compact/detailed/json, got %q", cfg.Crawl.ProgressStyle)
	}

	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	switch cfg.Output.Format {
	case "jsonl", "csv", "xlsx":
	default:
		return fmt.Errorf("output.format %q is not supported (valid: jsonl, csv, xlsx)", cfg.Output.Format)
	}
	if cfg.Output.Format == "xlsx" && cfg.Output.Path == "" {
		return fmt.Errorf("output.format xlsx requires an output file path")
	}

	if cfg.Block.Enabled {
		if cfg.Block.Threshold < 1 {
			return fmt.Errorf("block.threshold must be >= 1, got %d", cfg.Block.Threshold)
		}
		if cfg.Block.WindowSize < 1 {
			return fmt.Errorf("block.window_size must be >= 1, got %d", cfg.Block.WindowSize)
		}
		switch cfg.Block.Action {
		case "pause", "warn", "abort":
		default:
			return fmt.Errorf("block.action must be pause/warn/abort, got %q", cfg.Block.Action)
		}
		if cfg.Block.AutoResume < 0 {
			return fmt.Errorf("block.auto_resume must be >= 0, got %d", cfg.Block.AutoResume)
		}
		if cfg.Crawl.Quiet && cfg.Block.Action == "pause" {
			return fmt.Errorf("block.action pause requires interactive mode and cannot be used with quiet; use warn or abort")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}
