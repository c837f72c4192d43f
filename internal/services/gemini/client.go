// Package gemini wraps the Gemini generateContent API used to derive the
// final title.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"rebait/internal/services"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config captures the runtime settings required to talk to Gemini.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient constructs a Gemini client. httpClient may be nil; tests pass
// their own to reach an httptest server.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends the prompt and returns the raw response body plus the
// extracted text. The raw body is kept so the run can be inspected later.
func (c *Client) Generate(ctx context.Context, prompt string) (raw []byte, text string, err error) {
	if c.cfg.APIKey == "" {
		return nil, "", services.Wrap(services.ErrUnavailable, "gemini api key not configured", nil)
	}

	reqBody, _ := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	op := func() error {
		req, rerr := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(reqBody))
		if rerr != nil {
			return backoff.Permanent(rerr)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, rerr := c.httpClient.Do(req)
		if rerr != nil {
			return rerr
		}
		defer resp.Body.Close()
		raw, _ = io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return backoff.Permanent(services.Wrap(services.ErrRateLimited, "gemini", nil))
		case resp.StatusCode >= 500:
			return services.Wrap(services.ErrUnavailable, fmt.Sprintf("gemini: http %d", resp.StatusCode), nil)
		case resp.StatusCode >= 400:
			return backoff.Permanent(services.Wrap(services.ErrUnavailable, fmt.Sprintf("gemini: http %d: %s", resp.StatusCode, raw), nil))
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if services.Kind(err) == "error" {
			err = services.Wrap(services.ErrUnavailable, "gemini", err)
		}
		return raw, "", err
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return raw, "", services.Wrap(services.ErrInvalidResponse, "decode gemini response", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return raw, "", services.Wrap(services.ErrInvalidResponse, "gemini returned no candidates", nil)
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text = strings.TrimSpace(sb.String())
	if text == "" {
		return raw, "", services.Wrap(services.ErrInvalidResponse, "gemini returned empty text", nil)
	}
	return raw, text, nil
}
