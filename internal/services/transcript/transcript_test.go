package transcript

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

const watchPage = `<html><script>var cfg = {"INNERTUBE_API_KEY": "testkey123"};</script></html>`

func playerResponse(baseURL string, withCaptions bool) map[string]interface{} {
	resp := map[string]interface{}{
		"playabilityStatus": map[string]string{"status": "OK"},
		"videoDetails":      map[string]interface{}{"videoId": "abc123", "title": "t"},
	}
	if withCaptions {
		resp["captions"] = map[string]interface{}{
			"playerCaptionsTracklistRenderer": map[string]interface{}{
				"captionTracks": []map[string]string{
					{"baseUrl": baseURL + "/api/timedtext?lang=en&kind=asr", "languageCode": "en", "kind": "asr"},
					{"baseUrl": baseURL + "/api/timedtext?lang=en", "languageCode": "en"},
				},
			},
		}
	}
	return resp
}

func TestFetchParsesTimedText(t *testing.T) {
	var baseURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, watchPage)
	})
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "testkey123", r.URL.Query().Get("key"))
		json.NewEncoder(w).Encode(playerResponse(baseURL, true))
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		// The manual track must win over the asr one.
		assert.Empty(t, r.URL.Query().Get("kind"))
		fmt.Fprint(w, `<transcript><text start="0" dur="1">[Music]</text><text start="1.5" dur="2">&gt;&gt; Hello world</text></transcript>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	baseURL = srv.URL

	c := NewClient(innertube.NewClient(srv.URL))
	tr, err := c.Fetch(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "abc123", tr.VideoID)
	assert.Equal(t, "en", tr.Language)
	require.Len(t, tr.Lines, 2)
	assert.Equal(t, Line{Start: 0, Duration: 1, Text: "[Music]"}, tr.Lines[0])
	assert.Equal(t, Line{Start: 1.5, Duration: 2, Text: ">> Hello world"}, tr.Lines[1])
}

func TestFetchNoCaptionsIsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, watchPage)
	})
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(playerResponse("", false))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := NewClient(innertube.NewClient(srv.URL)).Fetch(context.Background(), "abc123")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestFetchUnplayableIsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, watchPage)
	})
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"playabilityStatus": map[string]string{"status": "LOGIN_REQUIRED", "reason": "Sign in to confirm"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := NewClient(innertube.NewClient(srv.URL)).Fetch(context.Background(), "abc123")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestFetchStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"missing video", http.StatusNotFound, services.ErrNotFound},
		{"throttled", http.StatusTooManyRequests, services.ErrRateLimited},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			_, err := NewClient(innertube.NewClient(srv.URL)).Fetch(context.Background(), "abc123")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPickTrackPrefersManual(t *testing.T) {
	tracks := []innertube.CaptionTrack{
		{BaseURL: "asr", LanguageCode: "en", Kind: "asr"},
		{BaseURL: "manual", LanguageCode: "en-US"},
		{BaseURL: "other", LanguageCode: "de"},
	}
	track := pickTrack(tracks, "en")
	require.NotNil(t, track)
	assert.Equal(t, "manual", track.BaseURL)

	onlyAuto := []innertube.CaptionTrack{{BaseURL: "asr", LanguageCode: "en", Kind: "asr"}}
	track = pickTrack(onlyAuto, "en")
	require.NotNil(t, track)
	assert.Equal(t, "asr", track.BaseURL)

	assert.Nil(t, pickTrack([]innertube.CaptionTrack{{LanguageCode: "de"}}, "en"))
}
