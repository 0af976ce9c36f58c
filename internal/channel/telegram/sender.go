// Package telegram delivers messages to a Telegram chat through the Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Options struct {
	Token  string
	ChatID int64
	// APIEndpoint is a format string taking the token and method; empty uses
	// the public Bot API.
	APIEndpoint    string
	ParseMode      string
	DisablePreview bool
	Client         tgbotapi.HTTPClient
}

type Sender struct {
	bot            *tgbotapi.BotAPI
	base           tgbotapi.HTTPClient
	chatID         int64
	parseMode      string
	disablePreview bool
}

// New builds a sender without contacting Telegram; credentials are first
// exercised by the initial Send.
func New(opts Options) (*Sender, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if opts.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := opts.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot := &tgbotapi.BotAPI{
		Token:  opts.Token,
		Client: client,
		Buffer: 100,
	}
	bot.SetAPIEndpoint(endpoint)

	return &Sender{
		bot:            bot,
		base:           client,
		chatID:         opts.ChatID,
		parseMode:      opts.ParseMode,
		disablePreview: opts.DisablePreview,
	}, nil
}

func (s *Sender) Name() string {
	return "telegram"
}

// Send posts text with sendMessage. Calls must not run concurrently on one
// Sender since the request context is bound per call.
func (s *Sender) Send(ctx context.Context, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = s.parseMode
	msg.DisableWebPagePreview = s.disablePreview

	s.bot.Client = contextClient{ctx: ctx, base: s.base}
	defer func() { s.bot.Client = s.base }()

	if _, err := s.bot.Send(msg); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return fmt.Errorf("telegram sendMessage failed (code %d): %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return nil
}

// contextClient attaches ctx to requests the Bot API library builds without one.
type contextClient struct {
	ctx  context.Context
	base tgbotapi.HTTPClient
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.base.Do(req.WithContext(c.ctx))
}
