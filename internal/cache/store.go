// Package cache maps a video id to a directory of named artifact files.
// Artifacts are independently present or absent; file presence is state the
// pipeline inspects, not just an optimization.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact names one cached output of a pipeline stage. Each kind has
// exactly one producing stage.
type Artifact string

const (
	ArtifactTranscript Artifact = "transcript"
	ArtifactMetadata   Artifact = "metadata"
	ArtifactFlattened  Artifact = "flattened_text"
	ArtifactPrompt     Artifact = "prompt"
	ArtifactAIResponse Artifact = "ai_response_raw"
	ArtifactTitle      Artifact = "final_title"
)

// Artifacts lists every kind in pipeline order.
var Artifacts = []Artifact{
	ArtifactTranscript,
	ArtifactMetadata,
	ArtifactFlattened,
	ArtifactPrompt,
	ArtifactAIResponse,
	ArtifactTitle,
}

// filenames keeps the on-disk names of the original implementation so
// existing cache directories stay readable.
var filenames = map[Artifact]string{
	ArtifactTranscript: "transcript.json",
	ArtifactMetadata:   "metadata.json",
	ArtifactFlattened:  "flattened.txt",
	ArtifactPrompt:     "final.txt",
	ArtifactAIResponse: "ai_response_raw.txt",
	ArtifactTitle:      "final_title.txt",
}

// ErrNotFound is returned by Read when the artifact is not cached.
var ErrNotFound = errors.New("artifact not cached")

// Store is a directory tree with one subdirectory per video id. It is safe
// for concurrent use across different artifact kinds; a single kind has a
// single writer by construction.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Dir returns the cache directory for a video id. It is not created until
// the first write.
func (s *Store) Dir(videoID string) string {
	return filepath.Join(s.root, videoID)
}

func (s *Store) path(videoID string, kind Artifact) string {
	return filepath.Join(s.root, videoID, filenames[kind])
}

// Exists reports whether the artifact file is present.
func (s *Store) Exists(videoID string, kind Artifact) bool {
	_, err := os.Stat(s.path(videoID, kind))
	return err == nil
}

// Read returns the artifact bytes, or ErrNotFound when absent.
func (s *Store) Read(videoID string, kind Artifact) ([]byte, error) {
	data, err := os.ReadFile(s.path(videoID, kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, videoID, kind)
		}
		return nil, fmt.Errorf("read %s/%s: %w", videoID, kind, err)
	}
	return data, nil
}

// Write replaces the artifact with data. The enclosing directory is created
// lazily; the file lands via write-then-rename so a killed run never leaves
// a truncated artifact behind.
func (s *Store) Write(videoID string, kind Artifact, data []byte) error {
	dir := s.Dir(videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, string(kind)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", videoID, kind, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s/%s: %w", videoID, kind, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s/%s: %w", videoID, kind, err)
	}
	if err := os.Rename(tmp.Name(), s.path(videoID, kind)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s/%s: %w", videoID, kind, err)
	}
	return nil
}

// ReadJSON decodes a JSON artifact into out.
func (s *Store) ReadJSON(videoID string, kind Artifact, out any) error {
	data, err := s.Read(videoID, kind)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", videoID, kind, err)
	}
	return nil
}

// WriteJSON encodes v and stores it, indented for easy inspection.
func (s *Store) WriteJSON(videoID string, kind Artifact, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", videoID, kind, err)
	}
	return s.Write(videoID, kind, data)
}

// Entry reports which artifacts exist for a video id, including partially
// populated directories.
type Entry struct {
	VideoID string            `json:"video_id"`
	Dir     string            `json:"dir"`
	Present map[Artifact]bool `json:"present"`
}

// Entry enumerates the cached state for a video id.
func (s *Store) Entry(videoID string) Entry {
	e := Entry{
		VideoID: videoID,
		Dir:     s.Dir(videoID),
		Present: make(map[Artifact]bool, len(Artifacts)),
	}
	for _, kind := range Artifacts {
		e.Present[kind] = s.Exists(videoID, kind)
	}
	return e
}
