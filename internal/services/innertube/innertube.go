// Package innertube holds the low-level YouTube Innertube primitives shared
// by the transcript and metadata clients: the ANDROID client context, the
// watch-page API key scrape, and retrying HTTP helpers.
package innertube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"

	"rebait/internal/services"
)

const (
	DefaultBaseURL = "https://www.youtube.com"

	androidVersion = "20.10.38"
	androidUA      = "com.google.android.youtube/" + androidVersion + " (Linux; U; Android 11) gzip"
)

var httpClient = &http.Client{Timeout: 12 * time.Second}

var apiKeyRE = regexp.MustCompile(`"INNERTUBE_API_KEY":\s*"([a-zA-Z0-9_-]+)"`)

type playerRequest struct {
	VideoID        string `json:"videoId"`
	Context        reqCtx `json:"context"`
	RacyCheckOk    bool   `json:"racyCheckOk"`
	ContentCheckOk bool   `json:"contentCheckOk"`
}

type reqCtx struct {
	Client reqClient `json:"client"`
}

type reqClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	Hl            string `json:"hl,omitempty"`
	Gl            string `json:"gl,omitempty"`
}

// PlayerResponse carries the /player fields both clients consume.
type PlayerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	VideoDetails struct {
		VideoID          string   `json:"videoId"`
		Title            string   `json:"title"`
		LengthSeconds    string   `json:"lengthSeconds"`
		ShortDescription string   `json:"shortDescription"`
		Author           string   `json:"author"`
		ChannelID        string   `json:"channelId"`
		Keywords         []string `json:"keywords"`
	} `json:"videoDetails"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []CaptionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type CaptionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// Client talks to the Innertube endpoints under one base URL. Tests point
// it at an httptest server.
type Client struct {
	baseURL string
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL}
}

// APIKey scrapes INNERTUBE_API_KEY from the watch page.
func (c *Client) APIKey(ctx context.Context, videoID string) (string, error) {
	body, err := c.Get(ctx, fmt.Sprintf("%s/watch?v=%s", c.baseURL, videoID))
	if err != nil {
		return "", err
	}
	m := apiKeyRE.FindSubmatch(body)
	if m == nil {
		return "", services.Wrap(services.ErrInvalidResponse, "watch page missing api key", nil)
	}
	return string(m[1]), nil
}

// Player calls /youtubei/v1/player with the ANDROID client context.
func (c *Client) Player(ctx context.Context, videoID, apiKey string) (PlayerResponse, error) {
	reqBody := playerRequest{
		VideoID: videoID,
		Context: reqCtx{Client: reqClient{
			ClientName:    "ANDROID",
			ClientVersion: androidVersion,
			Hl:            "en",
			Gl:            "US",
		}},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}
	data, _ := json.Marshal(reqBody)

	var out PlayerResponse
	endpoint := fmt.Sprintf("%s/youtubei/v1/player?key=%s", c.baseURL, apiKey)
	body, err := c.do(ctx, "POST", endpoint, data)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, services.Wrap(services.ErrInvalidResponse, "decode player response", err)
	}
	return out, nil
}

// Get fetches a raw URL (watch page, caption track) with the shared retry
// and status mapping.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.do(ctx, "GET", rawURL, nil)
}

// do runs one HTTP exchange with exponential backoff on transient failures.
// 4xx statuses are terminal and mapped onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 12 * time.Second

	var body []byte
	op := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", androidUA)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)

		if err := MapStatus(resp.StatusCode, url); err != nil {
			if resp.StatusCode >= 500 {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if kind := services.Kind(err); kind == "error" {
			return nil, services.Wrap(services.ErrUnavailable, url, err)
		}
		return nil, err
	}
	return body, nil
}

// MapStatus converts an HTTP status code into the shared error taxonomy.
func MapStatus(code int, op string) error {
	switch {
	case code < 400:
		return nil
	case code == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, op, nil)
	case code == http.StatusTooManyRequests:
		return services.Wrap(services.ErrRateLimited, op, nil)
	case code >= 500:
		return services.Wrap(services.ErrUnavailable, fmt.Sprintf("%s: http %d", op, code), nil)
	default:
		return services.Wrap(services.ErrUnavailable, fmt.Sprintf("%s: http %d", op, code), nil)
	}
}
