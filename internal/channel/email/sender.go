// Package email delivers messages over SMTP with a plain text body and an
// HTML alternative rendered from the same markdown.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"

	mail "github.com/wneessen/go-mail"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type Options struct {
	Host               string
	Port               int
	Username           string
	Password           string
	TLSMode            string
	InsecureSkipVerify bool

	From    string
	To      string
	Subject string
}

type Sender struct {
	opts      Options
	converter goldmark.Markdown
}

// TLSMode determines how the SMTP client should negotiate TLS.
type TLSMode string

const (
	// TLSModeAuto uses port-based defaults (implicit TLS on 465, STARTTLS otherwise).
	TLSModeAuto TLSMode = "auto"
	// TLSModeDisabled forces cleartext SMTP.
	TLSModeDisabled TLSMode = "disabled"
	// TLSModeStartTLS requires STARTTLS on the SMTP connection.
	TLSModeStartTLS TLSMode = "starttls"
	// TLSModeImplicit uses implicit TLS (SMTPS), typically on port 465.
	TLSModeImplicit TLSMode = "implicit"
)

// New validates the options and returns a sender. No connection is made.
func New(opts Options) (*Sender, error) {
	if strings.TrimSpace(opts.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("smtp port must be positive")
	}
	if strings.TrimSpace(opts.To) == "" {
		return nil, fmt.Errorf("email recipient is required")
	}
	if opts.From == "" {
		opts.From = opts.Username
	}
	if opts.From == "" {
		return nil, fmt.Errorf("email sender address is required")
	}
	if _, err := parseTLSMode(opts.TLSMode); err != nil {
		return nil, err
	}
	return &Sender{
		opts:      opts,
		converter: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}, nil
}

func (s *Sender) Name() string {
	return "email"
}

func (s *Sender) Send(ctx context.Context, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := s.buildMessage(text)
	if err != nil {
		return err
	}

	sendWithAuth := func(enableAuth bool) error {
		mode, modeErr := s.resolveTLSMode()
		if modeErr != nil {
			return modeErr
		}

		clientOpts := []mail.Option{
			mail.WithPort(s.opts.Port),
			// Allow self-signed or otherwise invalid TLS certs when explicitly configured.
			mail.WithTLSConfig(&tls.Config{
				ServerName:         s.opts.Host,
				MinVersion:         tls.VersionTLS12,
				InsecureSkipVerify: s.opts.InsecureSkipVerify,
			}),
		}

		switch mode {
		case TLSModeDisabled:
			clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
		case TLSModeStartTLS:
			clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
		case TLSModeImplicit:
			clientOpts = append(clientOpts, mail.WithSSL())
		default:
			return fmt.Errorf("unsupported smtp tls mode %q", mode)
		}

		if enableAuth && s.opts.Username != "" {
			clientOpts = append(
				clientOpts,
				mail.WithUsername(s.opts.Username),
				mail.WithPassword(s.opts.Password),
				mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
			)
		}

		client, err := mail.NewClient(s.opts.Host, clientOpts...)
		if err != nil {
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
		if err := client.DialAndSendWithContext(ctx, m); err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	}

	err = sendWithAuth(s.opts.Username != "")
	if err == nil {
		return nil
	}

	// Local SMTP sinks such as Mailpit do not support AUTH; retry without it
	// when credentials were configured anyway.
	if s.opts.Username != "" && isAuthUnsupported(err) && isLocalDevSMTPHost(s.opts.Host) {
		if retryErr := sendWithAuth(false); retryErr == nil {
			return nil
		}
	}
	return err
}

func (s *Sender) buildMessage(text string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.opts.From); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", s.opts.From, err)
	}
	if err := m.ToFromString(s.opts.To); err != nil {
		return nil, fmt.Errorf("invalid to address(es) %q: %w", s.opts.To, err)
	}
	if err := m.EnvelopeFrom(s.opts.From); err != nil {
		return nil, fmt.Errorf("invalid envelope from address %q: %w", s.opts.From, err)
	}
	m.Subject(s.opts.Subject)
	m.SetBodyString(mail.TypeTextPlain, plainText(text))

	html, err := s.renderHTML(text)
	if err != nil {
		return nil, fmt.Errorf("render email html: %w", err)
	}
	m.AddAlternativeString(mail.TypeTextHTML, html)
	return m, nil
}

// renderHTML converts the message markdown. Single newlines inside a posting
// are turned into hard breaks so title and link stay on separate lines.
func (s *Sender) renderHTML(text string) (string, error) {
	source := strings.ReplaceAll(text, "\n", "  \n")
	var buf bytes.Buffer
	if err := s.converter.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// plainText strips the markdown from a rendered message: emphasis markers are
// removed and escaped characters are written as themselves.
func plainText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	escaped := false
	for _, r := range text {
		switch {
		case escaped:
			if !strings.ContainsRune(markdownSpecials, r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*':
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteByte('\\')
	}
	return b.String()
}

const markdownSpecials = "_*`["

// resolveTLSMode returns the configured TLS behavior, falling back to port defaults.
func (s *Sender) resolveTLSMode() (TLSMode, error) {
	mode, err := parseTLSMode(s.opts.TLSMode)
	if err != nil {
		return "", err
	}
	if mode == TLSModeAuto {
		if s.opts.Port == 465 {
			return TLSModeImplicit, nil
		}
		return TLSModeStartTLS, nil
	}
	return mode, nil
}

func parseTLSMode(mode string) (TLSMode, error) {
	normalized := strings.TrimSpace(strings.ToLower(mode))
	if normalized == "" || normalized == string(TLSModeAuto) {
		return TLSModeAuto, nil
	}
	switch normalized {
	case "disabled", "off", "none":
		return TLSModeDisabled, nil
	case "starttls", "start_tls":
		return TLSModeStartTLS, nil
	case "implicit", "smtptls", "smtp_tls":
		return TLSModeImplicit, nil
	default:
		return "", fmt.Errorf("invalid smtp tls mode %q (expected: auto, disabled/off/none, starttls/start_tls, implicit/smtptls/smtp_tls)", mode)
	}
}

func isAuthUnsupported(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "server does not support SMTP AUTH") ||
		strings.Contains(msg, "SMTP Auth autodiscover was not able to detect a supported authentication mechanism")
}

func isLocalDevSMTPHost(host string) bool {
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return false
	}
	if host == "localhost" || host == "mailpit" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	return false
}
