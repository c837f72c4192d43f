// Package transcript fetches YouTube caption tracks through the Innertube
// /player endpoint and parses the timedtext XML into ordered lines.
package transcript

import (
	"context"
	"encoding/xml"
	"strings"

	"rebait/internal/services"
	"rebait/internal/services/innertube"
)

// Line is one timed caption line.
type Line struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// Transcript is the cached transcript artifact.
type Transcript struct {
	VideoID  string `json:"video_id"`
	Language string `json:"language"`
	Lines    []Line `json:"lines"`
}

type Client struct {
	it *innertube.Client
}

func NewClient(it *innertube.Client) *Client {
	return &Client{it: it}
}

// Fetch returns the English transcript for a video. Unplayable videos and
// videos without an English track map to NotFound.
func (c *Client) Fetch(ctx context.Context, videoID string) (Transcript, error) {
	key, err := c.it.APIKey(ctx, videoID)
	if err != nil {
		return Transcript{}, err
	}

	player, err := c.it.Player(ctx, videoID, key)
	if err != nil {
		return Transcript{}, err
	}
	if ps := player.PlayabilityStatus; ps != nil && ps.Status != "OK" {
		return Transcript{}, services.Wrap(services.ErrNotFound, "video not playable: "+ps.Reason, nil)
	}
	if player.Captions == nil {
		return Transcript{}, services.Wrap(services.ErrNotFound, "no captions for "+videoID, nil)
	}

	track := pickTrack(player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, "en")
	if track == nil {
		return Transcript{}, services.Wrap(services.ErrNotFound, "no english caption track for "+videoID, nil)
	}

	body, err := c.it.Get(ctx, track.BaseURL)
	if err != nil {
		return Transcript{}, err
	}

	lines, err := parseTimedText(body)
	if err != nil {
		return Transcript{}, err
	}
	return Transcript{VideoID: videoID, Language: track.LanguageCode, Lines: lines}, nil
}

// pickTrack prefers a manual track in lang over an auto-generated ("asr") one.
func pickTrack(tracks []innertube.CaptionTrack, lang string) *innertube.CaptionTrack {
	var auto *innertube.CaptionTrack
	for i := range tracks {
		t := &tracks[i]
		if !strings.HasPrefix(t.LanguageCode, lang) {
			continue
		}
		if t.Kind != "asr" {
			return t
		}
		if auto == nil {
			auto = t
		}
	}
	return auto
}

type timedText struct {
	Texts []timedTextNode `xml:"text"`
}

type timedTextNode struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Body     string  `xml:",chardata"`
}

func parseTimedText(data []byte) ([]Line, error) {
	var doc timedText
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrInvalidResponse, "parse timedtext", err)
	}
	lines := make([]Line, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		lines = append(lines, Line{Start: t.Start, Duration: t.Duration, Text: unescape(t.Body)})
	}
	return lines, nil
}

// unescape handles the double-escaped entities timedtext bodies carry.
func unescape(s string) string {
	r := strings.NewReplacer(
		"&amp;#39;", "'",
		"&amp;quot;", `"`,
		"&#39;", "'",
		"&quot;", `"`,
		"&amp;", "&",
	)
	return r.Replace(s)
}
