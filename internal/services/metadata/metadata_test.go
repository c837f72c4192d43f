package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebait/internal/services"
	"rebait/internal/services/innertube"
)

const watchPage = `<html><script>{"INNERTUBE_API_KEY": "testkey123"}</script></html>`

func newServer(t *testing.T, details map[string]interface{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, watchPage)
	})
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"playabilityStatus": map[string]string{"status": "OK"},
			"videoDetails":      details,
		})
	})
	return httptest.NewServer(mux)
}

func TestFetchMapsVideoDetails(t *testing.T) {
	srv := newServer(t, map[string]interface{}{
		"videoId":          "abc123",
		"title":            "Some Video",
		"lengthSeconds":    "245",
		"shortDescription": "about things",
		"author":           "SomeChannel",
		"channelId":        "UC123",
		"keywords":         []string{"go", "caching"},
	})
	defer srv.Close()

	v, err := NewClient(innertube.NewClient(srv.URL)).Fetch(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, Video{
		Title:           "Some Video",
		DurationSeconds: 245,
		Description:     "about things",
		ChannelName:     "SomeChannel",
		ChannelID:       "UC123",
		Keywords:        []string{"go", "caching"},
	}, v)
}

func TestFetchMissingDetailsIsInvalidResponse(t *testing.T) {
	srv := newServer(t, map[string]interface{}{})
	defer srv.Close()

	_, err := NewClient(innertube.NewClient(srv.URL)).Fetch(context.Background(), "abc123")
	assert.ErrorIs(t, err, services.ErrInvalidResponse)
}

func TestFetchUnavailableVideoIsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, watchPage)
	})
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"playabilityStatus": map[string]string{"status": "ERROR", "reason": "Video unavailable"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := NewClient(innertube.NewClient(srv.URL)).Fetch(context.Background(), "gone")
	assert.ErrorIs(t, err, services.ErrNotFound)
}
