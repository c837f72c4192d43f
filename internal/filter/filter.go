// Package filter reduces a raw transcript to the spoken-dialogue text fed
// into summarization.
package filter

import (
	"regexp"
	"strings"

	"rebait/internal/services/transcript"
)

// Flatten keeps transcript lines matching pattern, strips the matched
// prefix, and joins the survivors with newlines in original order. It is
// deterministic: identical lines and pattern always yield identical output.
//
// Note the cache key for the flattened artifact is the video id alone; the
// pattern is not part of it. A cached flattened text written under one
// pattern is served as-is to later runs with a different pattern.
func Flatten(lines []transcript.Line, pattern *regexp.Regexp) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		loc := pattern.FindStringIndex(line.Text)
		if loc == nil {
			continue
		}
		text := line.Text[:loc[0]] + line.Text[loc[1]:]
		kept = append(kept, strings.TrimRight(text, " \t"))
	}
	return strings.Join(kept, "\n")
}
