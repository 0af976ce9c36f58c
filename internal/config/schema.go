package config

import (
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPerQueryLimit     = 7
	DefaultInterMessageDelay = 3 * time.Second
	DefaultMaxMessageLength  = 4096
	DefaultHistoryPath       = "sent_jobs.log"
	DefaultSQLiteTable       = "sent_postings"
	DefaultEmailSubject      = "New job postings"
	DefaultTelegramParseMode = "Markdown"
)

// DefaultSites is the set of job boards queries are restricted to when the
// document does not name any.
var DefaultSites = []string{
	"linkedin.com/jobs",
	"naukri.com",
	"indeed.com",
	"glassdoor.co.in",
	"wellfound.com",
	"instahyre.com",
}

// Document represents the top-level structure of a jobwatch.yaml file
type Document struct {
	Search   SearchConfig   `yaml:"search"`
	History  HistoryConfig  `yaml:"history"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Trigger  TriggerConfig  `yaml:"trigger,omitempty"`
}

// SearchConfig controls the provider queries issued on every run.
type SearchConfig struct {
	Location      string   `yaml:"location"`
	Queries       []string `yaml:"queries"`
	PerQueryLimit int      `yaml:"per_query_limit,omitempty"`
	Sites         []string `yaml:"sites,omitempty"`
	// ResultsPerQuery is passed to the provider as the requested result count; 0 keeps the provider default.
	ResultsPerQuery int         `yaml:"results_per_query,omitempty"`
	Rule            *PostingRule `yaml:"rule,omitempty"`
}

// PostingRule is an expr-lang expression evaluated against each new posting.
type PostingRule struct {
	Name   string `yaml:"name"`
	Rule   string `yaml:"rule"`
	Result string `yaml:"result"` // "pass" or "drop"
}

type HistoryDriver string

const (
	HistoryDriverFile   HistoryDriver = "file"
	HistoryDriverSQLite HistoryDriver = "sqlite"
	HistoryDriverBadger HistoryDriver = "badger"
)

// HistoryConfig selects where delivered posting links are recorded.
type HistoryConfig struct {
	Driver HistoryDriver `yaml:"driver,omitempty"`
	Path   string        `yaml:"path,omitempty"`
	Table  string        `yaml:"table,omitempty"`
}

type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelEmail    ChannelType = "email"
)

// DeliveryConfig controls how batches reach the recipient.
type DeliveryConfig struct {
	Channel           ChannelType    `yaml:"channel,omitempty"`
	InterMessageDelay *Duration      `yaml:"inter_message_delay,omitempty"`
	MaxMessageLength  int            `yaml:"max_message_length,omitempty"`
	Telegram          TelegramConfig `yaml:"telegram,omitempty"`
	Email             EmailConfig    `yaml:"email,omitempty"`
}

type TelegramConfig struct {
	ParseMode      string `yaml:"parse_mode,omitempty"`
	DisablePreview *bool  `yaml:"disable_preview,omitempty"`
}

type EmailConfig struct {
	To      string `yaml:"to"`
	From    string `yaml:"from,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// TriggerConfig wraps different trigger types
type TriggerConfig struct {
	Cron *CronTrigger `yaml:"cron,omitempty"`
}

// CronTrigger defines a scheduled trigger
type CronTrigger struct {
	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone,omitempty"`
}

// LoadDocument reads, defaults and validates a document from disk.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseDocument(data)
}

// ParseDocument decodes, defaults and validates a YAML document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse jobwatch document: %w", err)
	}
	doc.ApplyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ApplyDefaults fills every optional field left empty in the document.
func (d *Document) ApplyDefaults() {
	if d.Search.PerQueryLimit == 0 {
		d.Search.PerQueryLimit = DefaultPerQueryLimit
	}
	if d.Search.Sites == nil {
		d.Search.Sites = append([]string(nil), DefaultSites...)
	}
	if d.History.Driver == "" {
		d.History.Driver = HistoryDriverFile
	}
	if d.History.Path == "" {
		d.History.Path = DefaultHistoryPath
	}
	if d.History.Driver == HistoryDriverSQLite && d.History.Table == "" {
		d.History.Table = DefaultSQLiteTable
	}
	if d.Delivery.Channel == "" {
		d.Delivery.Channel = ChannelTelegram
	}
	if d.Delivery.InterMessageDelay == nil {
		delay := Duration(DefaultInterMessageDelay)
		d.Delivery.InterMessageDelay = &delay
	}
	if d.Delivery.MaxMessageLength == 0 {
		d.Delivery.MaxMessageLength = DefaultMaxMessageLength
	}
	if d.Delivery.Telegram.ParseMode == "" {
		d.Delivery.Telegram.ParseMode = DefaultTelegramParseMode
	}
	if d.Delivery.Telegram.DisablePreview == nil {
		disable := true
		d.Delivery.Telegram.DisablePreview = &disable
	}
	if d.Delivery.Email.Subject == "" {
		d.Delivery.Email.Subject = DefaultEmailSubject
	}
}

// Validate performs validation on the jobwatch document
func (d *Document) Validate() error {
	if len(d.Search.Queries) == 0 {
		return fmt.Errorf("search: at least one query is required")
	}
	for i, query := range d.Search.Queries {
		if strings.TrimSpace(query) == "" {
			return fmt.Errorf("search: query %d is empty", i)
		}
	}
	if d.Search.PerQueryLimit < 1 {
		return fmt.Errorf("search: per_query_limit must be >= 1")
	}
	if d.Search.ResultsPerQuery < 0 {
		return fmt.Errorf("search: results_per_query must be >= 0")
	}
	for i, site := range d.Search.Sites {
		if strings.TrimSpace(site) == "" || strings.ContainsAny(site, " \t") {
			return fmt.Errorf("search: site %d (%q) must be a bare domain or path", i, site)
		}
	}
	if rule := d.Search.Rule; rule != nil {
		if rule.Name == "" || rule.Rule == "" {
			return fmt.Errorf("search rule: name and rule are required")
		}
		if rule.Result != "pass" && rule.Result != "drop" {
			return fmt.Errorf("search rule: result must be 'pass' or 'drop'")
		}
	}

	switch d.History.Driver {
	case HistoryDriverFile, HistoryDriverSQLite, HistoryDriverBadger:
	default:
		return fmt.Errorf("history: unsupported driver %q", d.History.Driver)
	}
	if strings.TrimSpace(d.History.Path) == "" {
		return fmt.Errorf("history: path is required")
	}

	switch d.Delivery.Channel {
	case ChannelTelegram:
	case ChannelEmail:
		if _, err := mail.ParseAddress(d.Delivery.Email.To); err != nil {
			return fmt.Errorf("delivery email: invalid to address")
		}
		if d.Delivery.Email.From != "" { // From is optional, but if provided must be valid
			if _, err := mail.ParseAddress(d.Delivery.Email.From); err != nil {
				return fmt.Errorf("delivery email: invalid from address")
			}
		}
	default:
		return fmt.Errorf("delivery: unsupported channel %q", d.Delivery.Channel)
	}
	if d.Delivery.InterMessageDelay != nil && d.Delivery.InterMessageDelay.Std() < 0 {
		return fmt.Errorf("delivery: inter_message_delay must be >= 0")
	}
	if d.Delivery.MaxMessageLength < 1 {
		return fmt.Errorf("delivery: max_message_length must be >= 1")
	}

	if cron := d.Trigger.Cron; cron != nil {
		if cron.Schedule == "" {
			return fmt.Errorf("trigger: cron schedule is required")
		}
		if cron.Timezone != "" {
			if _, err := time.LoadLocation(cron.Timezone); err != nil {
				return fmt.Errorf("trigger: invalid timezone: %w", err)
			}
		}
	}
	return nil
}

// Delay returns the configured pause between deliveries.
func (d DeliveryConfig) Delay() time.Duration {
	if d.InterMessageDelay == nil {
		return DefaultInterMessageDelay
	}
	return d.InterMessageDelay.Std()
}
