package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"golang.org/x/text/currency"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	CommandBuild = "build"
	CommandServe = "serve"
)

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Source configuration
	FeedURL      string `long:"feed-url" env:"FEED_URL" description:"Upstream product feed URL"`
	FeedFile     string `long:"feed-file" env:"FEED_FILE" default:"feed.xml" description:"Local feed file used when no feed URL is configured"`
	FetchTimeout int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"60" description:"Upstream fetch timeout in seconds"`
	UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"Catalog Comb/1.0" description:"User agent string for HTTP requests"`

	// Output configuration
	SiteBase         string `long:"site-base" env:"SITE_BASE" description:"Public base URL of the catalog site (e.g., https://shop.example.com)"`
	OutputDir        string `long:"output-dir" env:"OUTPUT_DIR" default:"." description:"Directory receiving the feed, sitemap and product pages"`
	TemplatePath     string `long:"template" env:"TEMPLATE_PATH" description:"Product page template (embedded template when empty)"`
	Profile          string `long:"profile" env:"PROFILE" default:"merchant" choice:"merchant" choice:"pages" description:"Built-in output profile"`
	ProfileFile      string `long:"profile-file" env:"PROFILE_FILE" description:"YAML file overriding the selected profile"`
	DefaultCurrency  string `long:"default-currency" env:"DEFAULT_CURRENCY" default:"SAR" description:"Currency used for bare price amounts"`
	SummaryLimit     int    `long:"summary-limit" env:"SUMMARY_LIMIT" default:"10" description:"Number of skip reasons printed in the run summary"`
	DescriptionWidth int    `long:"description-width" env:"DESCRIPTION_WIDTH" default:"280" description:"Display width of truncated descriptions"`

	// Summarizer configuration
	SummarizerKey   string `long:"summarizer-key" env:"OPENAI_API_KEY" description:"Credential enabling AI-shortened descriptions (optional)"`
	SummarizerURL   string `long:"summarizer-url" env:"SUMMARIZER_URL" default:"https://api.openai.com/v1/chat/completions" description:"Chat completions endpoint"`
	SummarizerModel string `long:"summarizer-model" env:"SUMMARIZER_MODEL" default:"gpt-4o-mini" description:"Chat completions model"`

	// Run history and preview server
	HistoryDB    string `long:"history-db" env:"HISTORY_DB" description:"SQLite file recording run reports (optional)"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"Preview server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the run history endpoints (optional)"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

type buildCommand struct{}

type serveCommand struct{}

var globalCfg *Cfg

// Load reads .env, environment variables and command-line flags. It
// returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg, err := LoadArgs(os.Args[1:])
	if err != nil || cfg == nil {
		return cfg, err
	}

	globalCfg = cfg

	return cfg, nil
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.SubcommandsOptional = true

	if _, err := parser.AddCommand(CommandBuild, "Build the feed and product pages",
		"Fetch the upstream feed and rebuild the product feed, sitemap and pages", &buildCommand{}); err != nil {
		return nil, err
	}
	if _, err := parser.AddCommand(CommandServe, "Preview the generated catalog",
		"Serve the output directory and the run history over HTTP", &serveCommand{}); err != nil {
		return nil, err
	}

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	command := CommandBuild
	if parser.Active != nil {
		command = parser.Active.Name
	}

	profile, err := LoadProfile(raw.Profile, raw.ProfileFile)
	if err != nil {
		return nil, err
	}

	cfg := &Cfg{
		Command:          command,
		FeedURL:          strings.TrimSpace(raw.FeedURL),
		FeedFile:         raw.FeedFile,
		FetchTimeout:     time.Duration(raw.FetchTimeout) * time.Second,
		UserAgent:        raw.UserAgent,
		SiteBase:         strings.TrimRight(strings.TrimSpace(raw.SiteBase), "/"),
		OutputDir:        raw.OutputDir,
		TemplatePath:     raw.TemplatePath,
		Profile:          profile,
		DefaultCurrency:  strings.ToUpper(strings.TrimSpace(raw.DefaultCurrency)),
		SummaryLimit:     raw.SummaryLimit,
		DescriptionWidth: raw.DescriptionWidth,
		SummarizerKey:    raw.SummarizerKey,
		SummarizerURL:    raw.SummarizerURL,
		SummarizerModel:  raw.SummarizerModel,
		HistoryDB:        raw.HistoryDB,
		Port:             raw.Port,
		APIAccessKey:     raw.APIAccessKey,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if cfg.Profile.Channel.Link == "" && cfg.SiteBase != "" {
		cfg.Profile.Channel.Link = cfg.SiteBase + "/"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	if cfg.Command == CommandBuild {
		if cfg.SiteBase == "" {
			return fmt.Errorf("site base URL is required (--site-base or SITE_BASE)")
		}
		if u, err := url.Parse(cfg.SiteBase); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid site base URL: %s", cfg.SiteBase)
		}
	}

	if cfg.FeedURL != "" {
		if u, err := url.Parse(cfg.FeedURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("invalid feed URL: %s", cfg.FeedURL)
		}
	}

	if _, err := currency.ParseISO(cfg.DefaultCurrency); err != nil {
		return fmt.Errorf("invalid default currency %q: %w", cfg.DefaultCurrency, err)
	}

	nonNegativeFields := map[string]int{
		"fetch timeout":     int(cfg.FetchTimeout),
		"summary limit":     cfg.SummaryLimit,
		"description width": cfg.DescriptionWidth,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}
