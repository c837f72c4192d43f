// Package stage wraps one cache-backed unit of work: check the store,
// otherwise invoke the producer and persist, timing either path.
package stage

import (
	"time"

	"rebait/internal/cache"
	"rebait/internal/services"
)

// Origin says where a stage result came from.
type Origin string

const (
	OriginCache   Origin = "cache"
	OriginFetched Origin = "fetched"
)

// Result is the tagged outcome of one stage invocation. Duration is
// recorded on every path: cache hits still cost a filesystem read, and
// failed stages still report how long they ran.
type Result[T any] struct {
	Value    T
	Origin   Origin
	Duration time.Duration
	Err      error
}

// ErrKind returns the taxonomy name of the failure, or "" on success.
func (r Result[T]) ErrKind() string {
	return services.Kind(r.Err)
}

// RunJSON runs a stage whose artifact is JSON-serialized. On a cache hit
// the artifact is read and decoded; otherwise produce is called and its
// result persisted. force skips the cache read but still writes. Failed
// producers never write.
func RunJSON[T any](store *cache.Store, videoID string, kind cache.Artifact, force bool, produce func() (T, error)) Result[T] {
	start := time.Now()

	if !force && store.Exists(videoID, kind) {
		var v T
		if err := store.ReadJSON(videoID, kind, &v); err == nil {
			return Result[T]{Value: v, Origin: OriginCache, Duration: time.Since(start)}
		}
		// Unreadable cache entry: fall through and refetch.
	}

	v, err := produce()
	if err != nil {
		return Result[T]{Err: err, Origin: OriginFetched, Duration: time.Since(start)}
	}
	if err := store.WriteJSON(videoID, kind, v); err != nil {
		return Result[T]{Err: services.Wrap(services.ErrIO, "cache "+string(kind), err), Origin: OriginFetched, Duration: time.Since(start)}
	}
	return Result[T]{Value: v, Origin: OriginFetched, Duration: time.Since(start)}
}

// RunText is RunJSON for plain-text artifacts.
func RunText(store *cache.Store, videoID string, kind cache.Artifact, force bool, produce func() (string, error)) Result[string] {
	start := time.Now()

	if !force && store.Exists(videoID, kind) {
		if data, err := store.Read(videoID, kind); err == nil {
			return Result[string]{Value: string(data), Origin: OriginCache, Duration: time.Since(start)}
		}
	}

	text, err := produce()
	if err != nil {
		return Result[string]{Err: err, Origin: OriginFetched, Duration: time.Since(start)}
	}
	if err := store.Write(videoID, kind, []byte(text)); err != nil {
		return Result[string]{Err: services.Wrap(services.ErrIO, "cache "+string(kind), err), Origin: OriginFetched, Duration: time.Since(start)}
	}
	return Result[string]{Value: text, Origin: OriginFetched, Duration: time.Since(start)}
}
