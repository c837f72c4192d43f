// Package metadata fetches video details through the Innertube /player
// endpoint.
package metadata

import (
	"context"
	"strconv"

	"rebait/internal/services"
	"rebait/internal/services/innertube"
)

// Video is the cached metadata artifact.
type Video struct {
	Title           string   `json:"title"`
	DurationSeconds int      `json:"duration_seconds"`
	Description     string   `json:"description"`
	ChannelName     string   `json:"channel_name"`
	ChannelID       string   `json:"channel_id"`
	Keywords        []string `json:"keywords,omitempty"`
}

type Client struct {
	it *innertube.Client
}

func NewClient(it *innertube.Client) *Client {
	return &Client{it: it}
}

// Fetch returns the metadata for a video id.
func (c *Client) Fetch(ctx context.Context, videoID string) (Video, error) {
	key, err := c.it.APIKey(ctx, videoID)
	if err != nil {
		return Video{}, err
	}

	player, err := c.it.Player(ctx, videoID, key)
	if err != nil {
		return Video{}, err
	}
	if ps := player.PlayabilityStatus; ps != nil && ps.Status == "ERROR" {
		return Video{}, services.Wrap(services.ErrNotFound, "video unavailable: "+ps.Reason, nil)
	}

	d := player.VideoDetails
	if d.VideoID == "" && d.Title == "" {
		return Video{}, services.Wrap(services.ErrInvalidResponse, "player response missing videoDetails", nil)
	}

	seconds, _ := strconv.Atoi(d.LengthSeconds)
	return Video{
		Title:           d.Title,
		DurationSeconds: seconds,
		Description:     d.ShortDescription,
		ChannelName:     d.Author,
		ChannelID:       d.ChannelID,
		Keywords:        d.Keywords,
	}, nil
}
