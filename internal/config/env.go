package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bakkerme/jobwatch/internal/core"
	"github.com/joho/godotenv"
)

// ErrMissingCredentials is returned by RequireCredentials when a secret the
// configured provider or channel needs is absent from the environment.
var ErrMissingCredentials = fmt.Errorf("%w: missing credentials", core.ErrConfiguration)

type EnvConfig struct {
	ConfigPath string
	RunOnce    bool
	LogLevel   string
	// ReportPath, when set, receives a JSON report of every run.
	ReportPath string
	Serper     SerperEnvConfig
	Telegram   TelegramEnvConfig
	SMTP       SMTPEnvConfig
	OTel       OTelEnvConfig
}

type SerperEnvConfig struct {
	APIKey      string
	BaseURL     string
	HTTPTimeout time.Duration
	UserAgent   string
}

type TelegramEnvConfig struct {
	Token       string
	ChatID      int64
	RawChatID   string
	APIEndpoint string
	HTTPTimeout time.Duration
}

type SMTPEnvConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	TLSMode            string
	InsecureSkipVerify bool
}

type OTelEnvConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" or "http/protobuf"
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment. Variables already set win; a missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func LoadEnv() EnvConfig {
	otlpEndpoint := strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	rawChatID := envString("TELEGRAM_CHAT_ID", "")

	return EnvConfig{
		ConfigPath: envString("JOBWATCH_CONFIG", "jobwatch.yaml"),
		RunOnce:    envBool("RUN_ONCE", false),
		LogLevel:   strings.ToLower(envString("LOG_LEVEL", "info")),
		ReportPath: strings.TrimSpace(envString("JOBWATCH_REPORT_PATH", "")),
		Serper: SerperEnvConfig{
			APIKey:      envString("SERPER_API_KEY", ""),
			BaseURL:     envString("SERPER_BASE_URL", ""),
			HTTPTimeout: envDuration("SERPER_HTTP_TIMEOUT", 15*time.Second),
			UserAgent:   envString("SERPER_USER_AGENT", "jobwatch/0.1"),
		},
		Telegram: TelegramEnvConfig{
			Token:       envString("TELEGRAM_BOT_TOKEN", ""),
			ChatID:      parseChatID(rawChatID),
			RawChatID:   rawChatID,
			APIEndpoint: envString("TELEGRAM_API_ENDPOINT", ""),
			HTTPTimeout: envDuration("TELEGRAM_HTTP_TIMEOUT", 15*time.Second),
		},
		SMTP: SMTPEnvConfig{
			Host:               envString("SMTP_HOST", ""),
			Port:               envInt("SMTP_PORT", 587),
			User:               envString("SMTP_USER", ""),
			Password:           envString("SMTP_PASSWORD", ""),
			TLSMode:            envString("SMTP_TLS_MODE", ""),
			InsecureSkipVerify: envBool("SMTP_INSECURE_SKIP_VERIFY", false),
		},
		OTel: OTelEnvConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			ServiceName: strings.TrimSpace(envString("OTEL_SERVICE_NAME", "jobwatch")),
			Endpoint:    otlpEndpoint,
			Protocol:    strings.ToLower(strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			Headers:     parseHeaders(envString("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", defaultInsecure(otlpEndpoint)),
			SampleRatio: clamp01(envFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0)),
		},
	}
}

// RequireCredentials checks that every secret needed by the document's
// provider and channel is present. It never touches the network.
func RequireCredentials(doc *Document, env EnvConfig) error {
	var missing []string
	if env.Serper.APIKey == "" {
		missing = append(missing, "SERPER_API_KEY")
	}
	channel := ChannelTelegram
	if doc != nil && doc.Delivery.Channel != "" {
		channel = doc.Delivery.Channel
	}
	switch channel {
	case ChannelTelegram:
		if env.Telegram.Token == "" {
			missing = append(missing, "TELEGRAM_BOT_TOKEN")
		}
		if env.Telegram.ChatID == 0 {
			missing = append(missing, "TELEGRAM_CHAT_ID")
		}
	case ChannelEmail:
		if env.SMTP.Host == "" {
			missing = append(missing, "SMTP_HOST")
		}
	}
	if len(missing) == 0 {
		return nil
	}
	err := fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	if env.Telegram.RawChatID != "" && env.Telegram.ChatID == 0 {
		err = errors.Join(err, fmt.Errorf("TELEGRAM_CHAT_ID %q is not an integer", env.Telegram.RawChatID))
	}
	return err
}

func parseChatID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := parseDurationExtended(v)
	if err != nil {
		return fallback
	}
	return d
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func defaultInsecure(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return true
	}
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return u.Scheme == "http"
	}
	return strings.HasPrefix(endpoint, "localhost:") ||
		strings.HasPrefix(endpoint, "127.0.0.1:") ||
		strings.HasPrefix(endpoint, "0.0.0.0:")
}
