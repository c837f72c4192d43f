package filter

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"rebait/internal/services/transcript"
)

var dialogue = regexp.MustCompile(`^\s*>>\s*`)

func lines(texts ...string) []transcript.Line {
	out := make([]transcript.Line, len(texts))
	for i, t := range texts {
		out[i] = transcript.Line{Start: float64(i), Duration: 1, Text: t}
	}
	return out
}

func TestFlattenKeepsDialogueAndStripsMarker(t *testing.T) {
	got := Flatten(lines("[Music]", ">> Hello world", ">> Goodbye"), dialogue)
	assert.Equal(t, "Hello world\nGoodbye", got)
}

func TestFlattenPreservesOrder(t *testing.T) {
	got := Flatten(lines(">> one", "[Applause]", ">> two", ">> three"), dialogue)
	assert.Equal(t, "one\ntwo\nthree", got)
}

func TestFlattenDeterministic(t *testing.T) {
	in := lines(">> a", "noise", "  >> b", ">>c")
	assert.Equal(t, Flatten(in, dialogue), Flatten(in, dialogue))
}

func TestFlattenLeadingWhitespaceBeforeMarker(t *testing.T) {
	got := Flatten(lines("   >>   spaced out"), dialogue)
	assert.Equal(t, "spaced out", got)
}

func TestFlattenNoMatches(t *testing.T) {
	got := Flatten(lines("[Music]", "plain narration"), dialogue)
	assert.Equal(t, "", got)
}

func TestFlattenEmptyTranscript(t *testing.T) {
	assert.Equal(t, "", Flatten(nil, dialogue))
}

func TestFlattenCustomPattern(t *testing.T) {
	speaker := regexp.MustCompile(`^SPEAKER \d+:\s*`)
	got := Flatten(lines("SPEAKER 1: hi there", "stage direction", "SPEAKER 2: bye"), speaker)
	assert.Equal(t, "hi there\nbye", got)
}
