// Package pipeline coordinates the cached stages for one video: transcript
// and metadata fetched concurrently, then filtering and summarization in
// sequence.
package pipeline

import (
	"context"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"rebait/internal/cache"
	"rebait/internal/filter"
	"rebait/internal/logger"
	"rebait/internal/services"
	"rebait/internal/services/gemini"
	"rebait/internal/services/metadata"
	"rebait/internal/services/transcript"
	"rebait/internal/stage"
)

// Producer function boundaries for the three external collaborators. Tests
// substitute fakes.
type (
	TranscriptFunc func(ctx context.Context, videoID string) (transcript.Transcript, error)
	MetadataFunc   func(ctx context.Context, videoID string) (metadata.Video, error)
	SummarizeFunc  func(ctx context.Context, prompt string) (raw []byte, title string, err error)
)

// Options wires a Pipeline.
type Options struct {
	Pattern        *regexp.Regexp
	PromptTemplate string
	Force          bool

	Transcript TranscriptFunc
	Metadata   MetadataFunc
	Summarize  SummarizeFunc
}

type Pipeline struct {
	store *cache.Store
	log   *logger.Logger
	opts  Options
}

func New(store *cache.Store, log *logger.Logger, opts Options) *Pipeline {
	if opts.Pattern == nil {
		opts.Pattern = regexp.MustCompile(`^\s*>>\s*`)
	}
	if log == nil {
		log = logger.New()
	}
	return &Pipeline{store: store, log: log, opts: opts}
}

// StageReport is the caller-visible slice of a stage result.
type StageReport struct {
	Origin   stage.Origin
	Duration time.Duration
	ErrKind  string
}

// Result aggregates every stage timing plus the final title, or the
// failing stage and its error. Timings of completed stages are present
// even when a later stage failed.
type Result struct {
	VideoID string
	Title   string

	Transcript StageReport
	Metadata   StageReport
	Filter     StageReport
	Summary    StageReport
	Total      time.Duration

	FailedStage string
	Err         error
}

func (r Result) Failed() bool { return r.Err != nil }

func report[T any](r stage.Result[T]) StageReport {
	return StageReport{Origin: r.Origin, Duration: r.Duration, ErrKind: r.ErrKind()}
}

// Run executes the pipeline for one video id.
func (p *Pipeline) Run(ctx context.Context, videoID string) Result {
	log := p.log.WithRun(videoID)
	start := time.Now()
	res := Result{VideoID: videoID}

	// Transcript and metadata share no data dependency; fetch them
	// concurrently and join on both.
	trCh := make(chan stage.Result[transcript.Transcript], 1)
	mdCh := make(chan stage.Result[metadata.Video], 1)
	go func() {
		trCh <- stage.RunJSON(p.store, videoID, cache.ArtifactTranscript, p.opts.Force, func() (transcript.Transcript, error) {
			return p.opts.Transcript(ctx, videoID)
		})
	}()
	go func() {
		mdCh <- stage.RunJSON(p.store, videoID, cache.ArtifactMetadata, p.opts.Force, func() (metadata.Video, error) {
			return p.opts.Metadata(ctx, videoID)
		})
	}()
	tr := <-trCh
	md := <-mdCh
	res.Transcript = report(tr)
	res.Metadata = report(md)

	logStage(log, "transcript", res.Transcript)
	logStage(log, "metadata", res.Metadata)

	// Transcript is the hard dependency. When both fetches fail the
	// transcript error is the one reported.
	if tr.Err != nil {
		res.FailedStage = "transcript"
		res.Err = tr.Err
		res.Total = time.Since(start)
		return res
	}
	if md.Err != nil {
		log.WithField("error", md.Err.Error()).Warn("metadata fetch failed, continuing without context")
	}

	fl := stage.RunText(p.store, videoID, cache.ArtifactFlattened, p.opts.Force, func() (string, error) {
		return filter.Flatten(tr.Value.Lines, p.opts.Pattern), nil
	})
	res.Filter = report(fl)
	logStage(log, "filter", res.Filter)
	if fl.Err != nil {
		res.FailedStage = "filter"
		res.Err = fl.Err
		res.Total = time.Since(start)
		return res
	}

	var mdCtx *metadata.Video
	if md.Err == nil {
		v := md.Value
		mdCtx = &v
	}

	sum := stage.RunText(p.store, videoID, cache.ArtifactTitle, p.opts.Force, func() (string, error) {
		return p.summarize(ctx, videoID, mdCtx, fl.Value)
	})
	res.Summary = report(sum)
	logStage(log, "summarize", res.Summary)
	if sum.Err != nil {
		res.FailedStage = "summarize"
		res.Err = sum.Err
		res.Total = time.Since(start)
		return res
	}

	res.Title = sum.Value
	res.Total = time.Since(start)
	log.WithField("title", res.Title).Info("pipeline done")
	return res
}

// summarize builds the prompt, persists it and the raw model response as
// inspectable artifacts, and returns the title. The raw response is only
// written once the call succeeded; failed calls leave no artifacts.
func (p *Pipeline) summarize(ctx context.Context, videoID string, md *metadata.Video, flattened string) (string, error) {
	prompt := gemini.BuildPrompt(p.opts.PromptTemplate, md, flattened)
	if err := p.store.Write(videoID, cache.ArtifactPrompt, []byte(prompt)); err != nil {
		return "", services.Wrap(services.ErrIO, "cache prompt", err)
	}

	raw, title, err := p.opts.Summarize(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := p.store.Write(videoID, cache.ArtifactAIResponse, raw); err != nil {
		return "", services.Wrap(services.ErrIO, "cache ai response", err)
	}
	return title, nil
}

func logStage(log *logrus.Entry, name string, r StageReport) {
	entry := log.WithFields(logrus.Fields{
		"stage":    name,
		"origin":   string(r.Origin),
		"duration": r.Duration.String(),
	})
	if r.ErrKind != "" {
		entry.WithField("err_kind", r.ErrKind).Warn("stage failed")
		return
	}
	entry.Info("stage complete")
}
