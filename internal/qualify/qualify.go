// Package qualify batch-classifies catalog video titles as clickbait. It
// pulls unqualified items from the catalog service, asks the model for the
// clickbait subset in one call, and pushes both partitions back.
package qualify

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

	"rebait/internal/logger"
	"rebait/internal/services"
)

const qualifyPrompt = `You are given a JSON list of YouTube videos, each with a youtube_id and a title.
Identify the videos whose titles are clickbait: exaggerated, misleading, withholding the key fact, or making promises the title itself cannot support.
Return ONLY a JSON array of the youtube_id values you judge to be clickbait. Return [] if none qualify.`

// Item is one unqualified catalog entry.
type Item struct {
	YouTubeID string `json:"youtube_id"`
	Title     string `json:"title"`
}

// LLMFunc is the single-call boundary to the model.
type LLMFunc func(ctx context.Context, prompt string) (string, error)

// Client talks to the catalog service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Prepare triggers catalog maintenance before qualification.
func (c *Client) Prepare(ctx context.Context) error {
	return c.doJSON(ctx, "GET", c.baseURL+"/api/maintenance/prepare", nil, nil)
}

// Unqualified returns the items that still need a clickbait verdict.
func (c *Client) Unqualified(ctx context.Context) ([]Item, error) {
	var resp struct {
		Data []Item `json:"data"`
	}
	if err := c.doJSON(ctx, "GET", c.baseURL+"/api/items/unqualified", nil, &resp); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(resp.Data))
	for _, it := range resp.Data {
		if it.YouTubeID != "" && it.Title != "" {
			items = append(items, it)
		}
	}
	return items, nil
}

// SetClickbait records the verdict for a batch of ids.
func (c *Client) SetClickbait(ctx context.Context, ids []string, clickbait bool) error {
	if len(ids) == 0 {
		return nil
	}
	payload := map[string]interface{}{
		"youtube_ids":  ids,
		"is_clickbait": clickbait,
	}
	return c.doJSON(ctx, "POST", c.baseURL+"/api/items/set-is-clickbait", payload, nil)
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload, target interface{}) error {
	var reqBody []byte
	if payload != nil {
		reqBody, _ = json.Marshal(payload)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	op := func() error {
		var reader io.Reader
		if reqBody != nil {
			reader = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode >= 500 {
			return services.Wrap(services.ErrUnavailable, fmt.Sprintf("catalog: http %d", resp.StatusCode), nil)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(services.Wrap(services.ErrUnavailable, fmt.Sprintf("catalog: http %d: %s", resp.StatusCode, body), nil))
		}
		if target != nil {
			if err := json.Unmarshal(body, target); err != nil {
				return backoff.Permanent(services.Wrap(services.ErrInvalidResponse, "decode catalog response", err))
			}
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if services.Kind(err) == "error" {
			return services.Wrap(services.ErrUnavailable, url, err)
		}
		return err
	}
	return nil
}

// Outcome is what a qualification run decided.
type Outcome struct {
	Items     []Item
	Clickbait map[string]bool
}

// Runner orchestrates one qualification pass.
type Runner struct {
	catalog *Client
	llm     LLMFunc
	log     *logger.Logger
}

func NewRunner(catalog *Client, llm LLMFunc, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.New()
	}
	return &Runner{catalog: catalog, llm: llm, log: log}
}

// Run fetches unqualified items, classifies them in a single model call
// and pushes both partitions back to the catalog.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	log := r.log.WithField("module", "qualify")

	if err := r.catalog.Prepare(ctx); err != nil {
		return Outcome{}, fmt.Errorf("catalog prepare: %w", err)
	}

	items, err := r.catalog.Unqualified(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch unqualified: %w", err)
	}
	log.WithField("items", len(items)).Info("fetched unqualified items")
	if len(items) == 0 {
		return Outcome{Clickbait: map[string]bool{}}, nil
	}

	videosJSON, _ := json.MarshalIndent(items, "", "  ")
	response, err := r.llm(ctx, qualifyPrompt+"\n\n"+string(videosJSON))
	if err != nil {
		return Outcome{}, fmt.Errorf("llm qualification: %w", err)
	}

	clickbaitIDs, err := ParseClickbaitIDs(response)
	if err != nil {
		return Outcome{}, err
	}

	yes, no := Partition(items, clickbaitIDs)
	log.WithField("clickbait", len(yes)).WithField("not_clickbait", len(no)).Info("classified items")

	if err := r.catalog.SetClickbait(ctx, yes, true); err != nil {
		return Outcome{}, fmt.Errorf("mark clickbait: %w", err)
	}
	if err := r.catalog.SetClickbait(ctx, no, false); err != nil {
		return Outcome{}, fmt.Errorf("mark not clickbait: %w", err)
	}

	out := Outcome{Items: items, Clickbait: make(map[string]bool, len(items))}
	flagged := make(map[string]bool, len(yes))
	for _, id := range yes {
		flagged[id] = true
	}
	for _, it := range items {
		out.Clickbait[it.YouTubeID] = flagged[it.YouTubeID]
	}
	return out, nil
}

// ParseClickbaitIDs extracts the JSON array of ids from the model response,
// tolerating surrounding prose or code fences.
func ParseClickbaitIDs(response string) ([]string, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, services.Wrap(services.ErrInvalidResponse, "llm response is not a JSON array", nil)
	}
	var ids []string
	if err := json.Unmarshal([]byte(response[start:end+1]), &ids); err != nil {
		return nil, services.Wrap(services.ErrInvalidResponse, "decode clickbait id array", err)
	}
	return ids, nil
}

// Partition splits item ids into clickbait and not-clickbait sets. Ids the
// model returned that are not in items are dropped.
func Partition(items []Item, clickbaitIDs []string) (clickbait, notClickbait []string) {
	flagged := make(map[string]bool, len(clickbaitIDs))
	for _, id := range clickbaitIDs {
		flagged[id] = true
	}
	for _, it := range items {
		if flagged[it.YouTubeID] {
			clickbait = append(clickbait, it.YouTubeID)
		} else {
			notClickbait = append(notClickbait, it.YouTubeID)
		}
	}
	return clickbait, notClickbait
}
