package videoid

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	bareIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	pathRE   = regexp.MustCompile(`^/(embed|shorts)/([^/?#&]+)`)
)

// Extract pulls the canonical video id out of a YouTube URL. Supported
// shapes: a bare 11-character id, watch?v=, youtu.be/<id>, /embed/<id>
// and /shorts/<id>. Returns "" when no id can be extracted.
func Extract(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if bareIDRE.MatchString(value) {
		return value
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return ""
	}

	switch parsed.Hostname() {
	case "www.youtube.com", "youtube.com":
		if parsed.Path == "/watch" {
			return parsed.Query().Get("v")
		}
		if m := pathRE.FindStringSubmatch(parsed.Path); m != nil {
			return m[2]
		}
	case "youtu.be":
		return strings.TrimPrefix(parsed.Path, "/")
	}

	return ""
}
