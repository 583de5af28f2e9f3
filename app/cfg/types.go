package cfg

import "time"

type Cfg struct {
	Command string

	// Source configuration
	FeedURL      string
	FeedFile     string
	FetchTimeout time.Duration
	UserAgent    string

	// Output configuration
	SiteBase         string
	OutputDir        string
	TemplatePath     string
	Profile          Profile
	DefaultCurrency  string
	SummaryLimit     int
	DescriptionWidth int

	// Summarizer configuration
	SummarizerKey   string
	SummarizerURL   string
	SummarizerModel string

	// Run history and preview server
	HistoryDB    string
	Port         string
	APIAccessKey string

	// Application metadata
	Debug   bool
	Version string
}

// Profile selects which fields a record needs to be kept and how the
// emitted channel describes itself.
type Profile struct {
	Name             string   `yaml:"-"`
	RequiredFields   []string `yaml:"required_fields"`
	DefaultCondition string   `yaml:"default_condition"`
	Channel          Channel  `yaml:"channel"`
}

type Channel struct {
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
}
