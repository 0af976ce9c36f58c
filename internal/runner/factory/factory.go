package factory

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bakkerme/jobwatch/internal/channel"
	"github.com/bakkerme/jobwatch/internal/channel/email"
	"github.com/bakkerme/jobwatch/internal/channel/telegram"
	"github.com/bakkerme/jobwatch/internal/config"
	"github.com/bakkerme/jobwatch/internal/fetcher"
	"github.com/bakkerme/jobwatch/internal/filter"
	"github.com/bakkerme/jobwatch/internal/history"
	"github.com/bakkerme/jobwatch/internal/notifier"
	"github.com/bakkerme/jobwatch/internal/runner"
	"github.com/bakkerme/jobwatch/internal/search"
	"github.com/bakkerme/jobwatch/internal/search/serper"
	"github.com/bakkerme/jobwatch/internal/trigger"
)

// Factory builds the components of a run from the document and environment.
// Fields set before Build take precedence over the ones built from env.
type Factory struct {
	Logger   *slog.Logger
	Env      config.EnvConfig
	Provider search.Provider
	Sender   channel.Sender
	Store    history.Store
}

func NewFromEnvConfig(logger *slog.Logger, env config.EnvConfig) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		Logger:   logger,
		Env:      env,
		Provider: serper.NewClient(env.Serper.HTTPTimeout, env.Serper.UserAgent, env.Serper.BaseURL, env.Serper.APIKey),
	}
}

// Build wires a Runner for doc. The returned store must be closed by the
// caller once the runner is no longer used.
func (f *Factory) Build(doc *config.Document) (*runner.Runner, history.Store, error) {
	if doc == nil {
		return nil, nil, fmt.Errorf("document is required")
	}
	provider := f.Provider
	if provider == nil {
		provider = serper.NewClient(f.Env.Serper.HTTPTimeout, f.Env.Serper.UserAgent, f.Env.Serper.BaseURL, f.Env.Serper.APIKey)
	}

	var rule *filter.Rule
	if doc.Search.Rule != nil {
		var err error
		rule, err = filter.NewRule(doc.Search.Rule)
		if err != nil {
			return nil, nil, err
		}
	}

	sender := f.Sender
	if sender == nil {
		var err error
		sender, err = f.NewSender(doc.Delivery)
		if err != nil {
			return nil, nil, err
		}
	}

	fetch, err := fetcher.New(doc.Search, provider, rule, f.Logger)
	if err != nil {
		return nil, nil, err
	}

	store := f.Store
	if store == nil {
		store, err = f.NewStore(doc.History)
		if err != nil {
			return nil, nil, err
		}
	}

	notify, err := notifier.New(doc.Delivery, sender, store, f.Logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	r, err := runner.New(runner.Options{
		Store:      store,
		Fetcher:    fetch,
		Notifier:   notify,
		ReportPath: f.Env.ReportPath,
	}, f.Logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return r, store, nil
}

func (f *Factory) NewSender(cfg config.DeliveryConfig) (channel.Sender, error) {
	switch cfg.Channel {
	case config.ChannelTelegram, "":
		disablePreview := true
		if cfg.Telegram.DisablePreview != nil {
			disablePreview = *cfg.Telegram.DisablePreview
		}
		sender, err := telegram.New(telegram.Options{
			Token:          f.Env.Telegram.Token,
			ChatID:         f.Env.Telegram.ChatID,
			APIEndpoint:    f.Env.Telegram.APIEndpoint,
			ParseMode:      cfg.Telegram.ParseMode,
			DisablePreview: disablePreview,
			Client:         &http.Client{Timeout: f.Env.Telegram.HTTPTimeout},
		})
		if err != nil {
			return nil, err
		}
		return sender, nil
	case config.ChannelEmail:
		sender, err := email.New(email.Options{
			Host:               f.Env.SMTP.Host,
			Port:               f.Env.SMTP.Port,
			Username:           f.Env.SMTP.User,
			Password:           f.Env.SMTP.Password,
			TLSMode:            f.Env.SMTP.TLSMode,
			InsecureSkipVerify: f.Env.SMTP.InsecureSkipVerify,
			From:               cfg.Email.From,
			To:                 cfg.Email.To,
			Subject:            cfg.Email.Subject,
		})
		if err != nil {
			return nil, err
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("unsupported delivery channel %q", cfg.Channel)
	}
}

func (f *Factory) NewStore(cfg config.HistoryConfig) (history.Store, error) {
	var (
		store history.Store
		err   error
	)
	switch cfg.Driver {
	case config.HistoryDriverFile, "":
		store, err = history.NewFileStore(cfg.Path)
	case config.HistoryDriverSQLite:
		store, err = history.NewSQLiteStore(cfg.Path, cfg.Table)
	case config.HistoryDriverBadger:
		store, err = history.NewBadgerStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported history driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s history: %w", cfg.Driver, err)
	}
	return store, nil
}

// NewTrigger returns the configured cron trigger, or nil when the document
// has none and the run should happen once.
func (f *Factory) NewTrigger(cfg config.TriggerConfig) runner.Trigger {
	if cfg.Cron == nil {
		return nil
	}
	return trigger.NewCron(*cfg.Cron)
}
