package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebait/internal/services"
	"rebait/internal/services/metadata"
)

func TestBuildPromptWithMetadata(t *testing.T) {
	md := &metadata.Video{
		Title:       "You WON'T Believe This!!",
		ChannelName: "SomeChannel",
		Description: "like and subscribe",
	}
	prompt := BuildPrompt("", md, "Hello world\nGoodbye")

	assert.Contains(t, prompt, "non-clickbait title")
	assert.Contains(t, prompt, "Title: You WON'T Believe This!!")
	assert.Contains(t, prompt, "Channel: SomeChannel")
	assert.Contains(t, prompt, "Description:\nlike and subscribe")
	assert.True(t, strings.HasSuffix(prompt, "Subtitles:\nHello world\nGoodbye"))
}

func TestBuildPromptWithoutMetadata(t *testing.T) {
	prompt := BuildPrompt("", nil, "Hello world")

	assert.NotContains(t, prompt, "Title:")
	assert.NotContains(t, prompt, "Channel:")
	assert.NotContains(t, prompt, "Description:")
	assert.Contains(t, prompt, "Subtitles:\nHello world")
}

func TestBuildPromptOmitsEmptyChannel(t *testing.T) {
	prompt := BuildPrompt("custom template", &metadata.Video{Title: "t"}, "text")

	assert.True(t, strings.HasPrefix(prompt, "custom template"))
	assert.Contains(t, prompt, "Title: t")
	assert.NotContains(t, prompt, "Channel:")
}

func TestGenerateExtractsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"  A Plain Title\n"}]}}]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	raw, text, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "A Plain Title", text)
	assert.Contains(t, string(raw), "candidates")
}

func TestGenerateNoCandidatesIsInvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	raw, _, err := c.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, services.ErrInvalidResponse)
	assert.NotEmpty(t, raw, "raw body is kept for inspection even on failure")
}

func TestGenerateRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())
	_, _, err := c.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, services.ErrRateLimited)
}

func TestGenerateWithoutKeyFailsFast(t *testing.T) {
	c := NewClient(Config{}, nil)
	_, _, err := c.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, services.ErrUnavailable)
}
