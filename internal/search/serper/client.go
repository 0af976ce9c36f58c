// Package serper queries the Serper.dev Google Search API.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bakkerme/jobwatch/internal/search"
)

const defaultBaseURL = "https://google.serper.dev/search"

type Client struct {
	client      *http.Client
	apiKey      string
	baseURL     string
	userAgent   string
	maxBodySize int64
}

func NewClient(timeout time.Duration, userAgent, baseURL, apiKey string) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = "jobwatch/0.1"
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		client:      &http.Client{Timeout: timeout},
		apiKey:      strings.TrimSpace(apiKey),
		baseURL:     baseURL,
		userAgent:   userAgent,
		maxBodySize: 10 << 20, // 10 MiB
	}
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
}

type searchResponse struct {
	Organic []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"organic"`
}

// Search sends a single request; there is no retry.
func (c *Client) Search(ctx context.Context, query search.Query) ([]search.Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("serper: missing api key (set SERPER_API_KEY)")
	}
	q := query.String()
	if strings.TrimSpace(q) == "" {
		return nil, fmt.Errorf("serper: query is empty")
	}

	payload, err := json.Marshal(searchRequest{Q: q, Num: query.Num})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("serper: read response: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("serper: response too large")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 512 {
			msg = msg[:512]
		}
		if msg != "" {
			msg = ": " + msg
		}
		return nil, fmt.Errorf("serper: status %d%s", resp.StatusCode, msg)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("serper: decode response: %w", err)
	}
	results := make([]search.Result, 0, len(parsed.Organic))
	for _, item := range parsed.Organic {
		results = append(results, search.Result{Title: item.Title, Link: item.Link})
	}
	return results, nil
}
