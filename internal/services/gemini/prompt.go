package gemini

import (
	"strings"

	"rebait/internal/services/metadata"
)

// defaultTemplate is used when no template override is configured.
const defaultTemplate = `You are given a YouTube video's metadata and its spoken subtitles.
Write one concise, accurate, non-clickbait title that describes what the video actually covers.
Return only the title text, nothing else.`

// BuildPrompt assembles the final prompt from the template, the optional
// metadata context and the flattened subtitles. Metadata sections are
// omitted when md is nil so a failed metadata fetch still produces a
// usable prompt.
func BuildPrompt(template string, md *metadata.Video, flattened string) string {
	if strings.TrimSpace(template) == "" {
		template = defaultTemplate
	}

	lines := []string{template, ""}
	if md != nil {
		lines = append(lines, "Title: "+md.Title)
		if md.ChannelName != "" {
			lines = append(lines, "Channel: "+md.ChannelName)
		}
		lines = append(lines, "Description:", md.Description, "")
	}
	lines = append(lines, "Subtitles:", flattened)

	return strings.Join(lines, "\n")
}
