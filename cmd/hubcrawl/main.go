package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/whitehat-seo/hubcrawl/internal/config"
	"github.com/whitehat-seo/hubcrawl/internal/crawler"
	"github.com/whitehat-seo/hubcrawl/internal/fetcher"
	"github.com/whitehat-seo/hubcrawl/internal/storage"
	"github.com/whitehat-seo/hubcrawl/internal/types"
)

var (
	cfgFile string
	verbose bool

	urlFlags     []string
	inputPath    string
	mode         string
	concurrency  int
	delay        time.Duration
	jitter       time.Duration
	maxPerDomain int
	render       bool
	insecure     bool
	userAgent    string
	outputPath   string
	outputFormat string
	pretty       bool
	maxRetries   int
	failuresPath string
	checkpoint   string
	tryVariation bool
	maxVariation int
	progInterval int
	progStyle    string
	quiet        bool

	blockDetection bool
	blockThreshold int
	blockWindow    int
	blockAction    string
	blockResume    int
)

// validationError marks CLI/parameter problems that exit with code 2.
type validationError struct{ err error }

func (e *validationError) Error() string { return e.err.Error() }
func (e *validationError) Unwrap() error { return e.err }

func invalidf(format string, args ...any) error {
	return &validationError{err: fmt.Errorf(format, args...)}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "hubcrawl",
		Short: "hubcrawl — polite high-volume HubSpot presence detector",
		Long: `hubcrawl fetches a list of target URLs and inspects each page's HTML,
sub-resources, and response headers for evidence of HubSpot: tracking
scripts, CMS hosting, forms, chat, CTAs, meetings, video, email tracking,
and cookies. One structured detection record is emitted per URL.

Built to process hundreds of thousands of URLs in a single run without
getting the source IP blocked:
  • Preset pacing modes (ultra-conservative default)
  • Per-domain concurrency caps with delay + jitter
  • Sliding-window IP-block detection with pause/warn/abort policy
  • Checkpoint-based resume and URL-variation fallback
  • JSONL, CSV, or XLSX output`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &validationError{err: err}
	})

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		var ve *validationError
		if errors.As(err, &ve) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl URLs and detect HubSpot presence",
		Long: `Crawl the given URLs (from --url flags and/or an --input file) and write
one detection record per URL.

Preset modes set concurrency, delay, jitter, and the per-domain cap;
individual flags override single fields:
  ultra-conservative  2 workers, 3s delay   (default, virtually zero block risk)
  conservative        5 workers, 1s delay
  balanced           10 workers, 0.5s delay
  aggressive         20 workers, no delay   (HIGH block risk)`,
		RunE: runCrawl,
	}

	cmd.Flags().StringArrayVarP(&urlFlags, "url", "u", nil, "URL to crawl (repeatable)")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input file: one URL per line, # comments ignored")
	cmd.Flags().StringVarP(&mode, "mode", "m", config.DefaultMode, "preset mode: ultra-conservative, conservative, balanced, aggressive")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "concurrent workers (overrides mode)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "delay between requests (overrides mode)")
	cmd.Flags().DurationVar(&jitter, "jitter", 0, "random jitter added to the delay (overrides mode)")
	cmd.Flags().IntVar(&maxPerDomain, "max-per-domain", 0, "max concurrent requests per domain (overrides mode)")
	cmd.Flags().BoolVar(&render, "render", false, "render pages in a headless browser and capture network requests")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "custom User-Agent string")
	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "output file path (default: stdout)")
	cmd.Flags().StringVarP(&outputFormat, "output-format", "f", "jsonl", "output format: jsonl, csv, xlsx")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSONL records")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "attempts per URL before it is recorded as failed")
	cmd.Flags().StringVar(&failuresPath, "failures", "", "mirror failure records to this JSONL file")
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "checkpoint file for resume (appended on every success)")
	cmd.Flags().BoolVar(&tryVariation, "try-variations", false, "try URL variations (www, scheme, trailing slash) when a URL fails")
	cmd.Flags().IntVar(&maxVariation, "max-variations", 4, "maximum URL variations to try")
	cmd.Flags().IntVar(&progInterval, "progress-interval", 10, "print progress every N completed URLs")
	cmd.Flags().StringVar(&progStyle, "progress-style", "compact", "progress style: compact, detailed, json")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")

	cmd.Flags().BoolVar(&blockDetection, "block-detection", true, "monitor attempt outcomes for IP-level blocking")
	cmd.Flags().IntVar(&blockThreshold, "block-threshold", 5, "blocking failures in the window before the detector trips")
	cmd.Flags().IntVar(&blockWindow, "block-window", 20, "sliding window size in attempts")
	cmd.Flags().StringVar(&blockAction, "block-action", "pause", "action on detection: pause, warn, abort")
	cmd.Flags().IntVar(&blockResume, "block-auto-resume", 300, "seconds to wait at the pause prompt before auto-resuming (0 = wait forever)")

	return cmd
}

// runCrawl executes the crawl command.
func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return invalidf("load config: %v", err)
	}
	if err := applyCLIOverrides(cmd, cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return invalidf("invalid parameters: %v", err)
	}

	logger := setupLogger(cfg)

	urls, err := collectURLs()
	if err != nil {
		return err
	}

	if !cfg.Crawl.Quiet {
		preset := config.Presets[mode]
		fmt.Fprintf(os.Stderr, "Using mode: %s — %s\n", preset.Name, preset.Description)
		fmt.Fprintf(os.Stderr, "Crawling %d URLs (concurrency=%d, delay=%s, jitter=%s, max-per-domain=%d)\n",
			len(urls), cfg.Crawl.Concurrency, cfg.Crawl.Delay, cfg.Crawl.Jitter, cfg.Crawl.MaxPerDomain)
	}

	logger.Info("starting crawl",
		"urls", len(urls),
		"mode", mode,
		"concurrency", cfg.Crawl.Concurrency,
		"render", cfg.Fetcher.Render,
		"output", cfg.Output.Path,
		"format", cfg.Output.Format,
	)

	httpFetcher, err := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer httpFetcher.Close()

	var fetch fetcher.Fetcher = httpFetcher
	if cfg.Fetcher.Render {
		browserFetcher, err := fetcher.NewBrowserFetcher(&cfg.Fetcher, httpFetcher, logger)
		if err != nil {
			logger.Warn("headless browser unavailable, using static fetcher", "error", err)
		} else {
			defer browserFetcher.Close()
			fetch = browserFetcher
		}
	}

	sink, err := storage.NewSink(cfg.Output.Format, cfg.Output.Path, cfg.Output.Pretty, logger)
	if err != nil {
		return invalidf("output: %v", err)
	}
	var failSink storage.Sink
	if cfg.Output.FailuresPath != "" {
		failSink, err = storage.NewJSONLSink(cfg.Output.FailuresPath, false, logger)
		if err != nil {
			return invalidf("failures output: %v", err)
		}
	}

	var cp *crawler.Checkpoint
	if cfg.Crawl.CheckpointPath != "" {
		cp, err = crawler.OpenCheckpoint(cfg.Crawl.CheckpointPath)
		if err != nil {
			return invalidf("checkpoint: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	c := crawler.New(cfg, fetch, sink, failSink, cp, logger)
	if err := c.Run(ctx, urls); err != nil {
		if errors.Is(err, types.ErrRunAborted) {
			logger.Error("run aborted by block detection policy")
			return err
		}
		return fmt.Errorf("crawl: %w", err)
	}
	return nil
}

// collectURLs merges --url flags with the --input file and removes
// duplicates while preserving first-seen order.
func collectURLs() ([]string, error) {
	urls := append([]string(nil), urlFlags...)
	if inputPath != "" {
		fromFile, err := crawler.LoadURLs(inputPath)
		if err != nil {
			return nil, invalidf("input: %v", err)
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return nil, &validationError{err: types.ErrNoInput}
	}

	urls, removed := crawler.DedupeURLs(urls)
	if removed > 0 && !quiet {
		fmt.Fprintf(os.Stderr, "Removed %d duplicate URLs\n", removed)
	}
	return urls, nil
}

// applyCLIOverrides layers the preset and the explicitly-set flags onto the
// config. A flag only overrides when the user actually passed it.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) error {
	preset, ok := config.Presets[mode]
	if !ok {
		return invalidf("unknown mode %q (valid: ultra-conservative, conservative, balanced, aggressive)", mode)
	}

	flags := cmd.Flags()
	// The preset only overrides config-file pacing when --mode was actually
	// passed; defaults already match the ultra-conservative preset.
	if flags.Changed("mode") {
		cfg.ApplyPreset(preset)
	}
	if flags.Changed("concurrency") {
		cfg.Crawl.Concurrency = concurrency
	}
	if flags.Changed("delay") {
		cfg.Crawl.Delay = delay
	}
	if flags.Changed("jitter") {
		cfg.Crawl.Jitter = jitter
	}
	if flags.Changed("max-per-domain") {
		cfg.Crawl.MaxPerDomain = maxPerDomain
	}
	if flags.Changed("max-retries") {
		cfg.Crawl.MaxRetries = maxRetries
	}
	if flags.Changed("try-variations") {
		cfg.Crawl.TryVariations = tryVariation
	}
	if flags.Changed("max-variations") {
		cfg.Crawl.MaxVariations = maxVariation
	}
	if flags.Changed("progress-interval") {
		cfg.Crawl.ProgressInterval = progInterval
	}
	if flags.Changed("progress-style") {
		cfg.Crawl.ProgressStyle = progStyle
	}
	if flags.Changed("quiet") {
		cfg.Crawl.Quiet = quiet
	}
	if checkpoint != "" {
		cfg.Crawl.CheckpointPath = checkpoint
	}

	if userAgent != "" {
		cfg.Fetcher.UserAgent = userAgent
	}
	if flags.Changed("insecure") {
		cfg.Fetcher.TLSInsecure = insecure
	}
	if flags.Changed("render") {
		cfg.Fetcher.Render = render
	}

	if flags.Changed("out") {
		cfg.Output.Path = outputPath
	}
	if flags.Changed("output-format") {
		cfg.Output.Format = outputFormat
	}
	if flags.Changed("pretty") {
		cfg.Output.Pretty = pretty
	}
	if failuresPath != "" {
		cfg.Output.FailuresPath = failuresPath
	}

	if flags.Changed("block-detection") {
		cfg.Block.Enabled = blockDetection
	}
	if flags.Changed("block-threshold") {
		cfg.Block.Threshold = blockThreshold
	}
	if flags.Changed("block-window") {
		cfg.Block.WindowSize = blockWindow
	}
	if flags.Changed("block-action") {
		cfg.Block.Action = blockAction
	}
	if flags.Changed("block-auto-resume") {
		cfg.Block.AutoResume = blockResume
	}
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hubcrawl %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Crawl:\n")
			fmt.Printf("  Concurrency:       %d\n", cfg.Crawl.Concurrency)
			fmt.Printf("  Delay:             %s\n", cfg.Crawl.Delay)
			fmt.Printf("  Jitter:            %s\n", cfg.Crawl.Jitter)
			fmt.Printf("  Max Per Domain:    %d\n", cfg.Crawl.MaxPerDomain)
			fmt.Printf("  Max Retries:       %d\n", cfg.Crawl.MaxRetries)
			fmt.Printf("  Try Variations:    %v\n", cfg.Crawl.TryVariations)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  User-Agent:        %s\n", cfg.Fetcher.UserAgent)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Max Redirects:     %d\n", cfg.Fetcher.MaxRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("  Render:            %v\n", cfg.Fetcher.Render)
			fmt.Printf("\nOutput:\n")
			fmt.Printf("  Format:            %s\n", cfg.Output.Format)
			fmt.Printf("  Path:              %s\n", orStdout(cfg.Output.Path))
			fmt.Printf("\nBlock Detection:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Block.Enabled)
			fmt.Printf("  Threshold:         %d\n", cfg.Block.Threshold)
			fmt.Printf("  Window Size:       %d\n", cfg.Block.WindowSize)
			fmt.Printf("  Action:            %s\n", cfg.Block.Action)
			fmt.Printf("  Auto Resume:       %ds\n", cfg.Block.AutoResume)
			return nil
		},
	}
}

func orStdout(path string) string {
	if path == "" {
		return "(stdout)"
	}
	return path
}

// setupLogger creates the structured logger from the logging config and the
// --verbose flag.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
