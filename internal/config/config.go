package config

import (
	"os"
	"path/filepath"
)

// DefaultDialoguePattern marks spoken-dialogue lines in YouTube transcripts.
const DefaultDialoguePattern = `^\s*>>\s*`

// Config carries every environment-derived setting the pipeline and its
// service clients need. It is built once in main and passed into
// constructors; nothing in internal/ reads the environment directly.
type Config struct {
	CacheDir        string
	GeminiAPIKey    string
	GeminiModel     string
	CatalogURL      string
	DialoguePattern string
	Force           bool
}

// FromEnv builds a Config from the process environment. Flags may
// override individual fields afterwards.
func FromEnv() Config {
	return Config{
		CacheDir:        envOr("REBAIT_CACHE_DIR", filepath.Join(os.TempDir(), "rebait_cache")),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		CatalogURL:      envOr("CATALOG_URL", "http://localhost:5001"),
		DialoguePattern: envOr("REBAIT_DIALOGUE_PATTERN", DefaultDialoguePattern),
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
