package email

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLocalDevSMTPHost(t *testing.T) {
	cases := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"mailpit", true},
		{"smtp.example.com", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isLocalDevSMTPHost(tc.host); got != tc.want {
			t.Fatalf("isLocalDevSMTPHost(%q)=%v want %v", tc.host, got, tc.want)
		}
	}
}

func TestResolveTLSMode(t *testing.T) {
	cases := []struct {
		mode string
		port int
		want TLSMode
	}{
		{"", 465, TLSModeImplicit},
		{"auto", 587, TLSModeStartTLS},
		{"off", 25, TLSModeDisabled},
		{"START_TLS", 25, TLSModeStartTLS},
		{"smtps", 0, ""},
		{"smtp_tls", 587, TLSModeImplicit},
	}
	for _, tc := range cases {
		s := &Sender{opts: Options{TLSMode: tc.mode, Port: tc.port}}
		got, err := s.resolveTLSMode()
		if tc.want == "" {
			if err == nil {
				t.Fatalf("expected error for mode %q", tc.mode)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("resolveTLSMode(%q, %d)=%q, %v want %q", tc.mode, tc.port, got, err, tc.want)
		}
	}
}

func TestNewValidatesOptions(t *testing.T) {
	base := Options{Host: "localhost", Port: 1025, To: "me@example.com", From: "jobs@example.com"}

	_, err := New(base)
	require.NoError(t, err)

	noHost := base
	noHost.Host = ""
	_, err = New(noHost)
	assert.Error(t, err)

	noTo := base
	noTo.To = ""
	_, err = New(noTo)
	assert.Error(t, err)

	fromUser := base
	fromUser.From = ""
	fromUser.Username = "user@example.com"
	s, err := New(fromUser)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", s.opts.From)

	badTLS := base
	badTLS.TLSMode = "sometimes"
	_, err = New(badTLS)
	assert.Error(t, err)
}

func TestBuildMessageHasTextAndHTMLParts(t *testing.T) {
	s, err := New(Options{
		Host:    "localhost",
		Port:    1025,
		From:    "jobs@example.com",
		To:      "me@example.com",
		Subject: "New job postings",
	})
	require.NoError(t, err)

	m, err := s.buildMessage("*Go Developer*\nhttps://example.com/jobs/1")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	assert.Contains(t, raw, "Subject: New job postings")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "multipart/alternative")
}

func TestRenderHTMLKeepsLinesAndUnescapes(t *testing.T) {
	s, err := New(Options{Host: "localhost", Port: 25, From: "a@example.com", To: "b@example.com"})
	require.NoError(t, err)

	html, err := s.renderHTML("*senior\\_dev*\nhttps://example.com/a")
	require.NoError(t, err)
	assert.Contains(t, html, "<em>senior_dev</em>")
	assert.Contains(t, html, "<br")
}

func TestBuildMessageRejectsBadRecipient(t *testing.T) {
	s, err := New(Options{Host: "localhost", Port: 25, From: "a@example.com", To: "not an address"})
	require.NoError(t, err)
	_, err = s.buildMessage("hi")
	assert.Error(t, err)
}

func TestPlainTextDropsMarkdown(t *testing.T) {
	got := plainText("✨ *2 New Jobs for 'go\\_lang'*:\n\n*Go \\*Dev\\**\nhttps://example.com/a\\_b\n\nC:\\path")
	want := "✨ 2 New Jobs for 'go_lang':\n\nGo *Dev*\nhttps://example.com/a_b\n\nC:\\path"
	assert.Equal(t, want, got)
}

func TestBuildMessagePlainPartHasNoMarkdown(t *testing.T) {
	s, err := New(Options{Host: "localhost", Port: 25, From: "a@example.com", To: "b@example.com"})
	require.NoError(t, err)

	m, err := s.buildMessage("*senior\\_dev*\nhttps://example.com/a\\_b")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	assert.NotContains(t, raw, "\\_")
	assert.NotContains(t, raw, "*senior")
	assert.Contains(t, raw, "https://example.com/a_b")
}
