package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rebait/internal/cache"
	"rebait/internal/config"
	"rebait/internal/logger"
	"rebait/internal/pipeline"
	"rebait/internal/qualify"
	"rebait/internal/services/gemini"
	"rebait/internal/services/innertube"
	"rebait/internal/services/metadata"
	"rebait/internal/services/transcript"
	"rebait/internal/videoid"
)

func main() {
	_ = godotenv.Load() // loads .env

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	cacheDir  string
	geminiKey string
	pattern   string
	force     bool
}

func (f flags) apply(cfg config.Config) config.Config {
	if f.cacheDir != "" {
		cfg.CacheDir = f.cacheDir
	}
	if f.geminiKey != "" {
		cfg.GeminiAPIKey = f.geminiKey
	}
	if f.pattern != "" {
		cfg.DialoguePattern = f.pattern
	}
	if f.force {
		cfg.Force = true
	}
	return cfg
}

func newRootCmd() *cobra.Command {
	var fl flags

	root := &cobra.Command{
		Use:          "rebait <youtube-url-or-id>",
		Short:        "Derive a concise non-clickbait title for a YouTube video",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), fl.apply(config.FromEnv()), args[0])
		},
	}
	root.PersistentFlags().StringVar(&fl.cacheDir, "cache-dir", "", "cache directory (default $TMPDIR/rebait_cache)")
	root.Flags().StringVar(&fl.geminiKey, "gemini-key", "", "Gemini API key (default GEMINI_API_KEY env)")
	root.Flags().StringVar(&fl.pattern, "pattern", "", "dialogue line pattern (default "+config.DefaultDialoguePattern+")")
	root.Flags().BoolVarP(&fl.force, "force", "f", false, "refresh all cached artifacts")

	root.AddCommand(newStatusCmd(&fl), newQualifyCmd(&fl))
	return root
}

func newStatusCmd(fl *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <youtube-url-or-id>",
		Short: "Show which artifacts are cached for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := fl.apply(config.FromEnv())
			id := videoid.Extract(args[0])
			if id == "" {
				return fmt.Errorf("could not extract video id from %q", args[0])
			}
			entry := cache.NewStore(cfg.CacheDir).Entry(id)
			return printJSON(entry)
		},
	}
}

func newQualifyCmd(fl *flags) *cobra.Command {
	var reportPath string
	cmd := &cobra.Command{
		Use:   "qualify",
		Short: "Classify unqualified catalog titles as clickbait",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := fl.apply(config.FromEnv())
			log := logger.New()

			gem := gemini.NewClient(gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}, nil)
			llm := func(ctx context.Context, prompt string) (string, error) {
				_, text, err := gem.Generate(ctx, prompt)
				return text, err
			}

			runner := qualify.NewRunner(qualify.NewClient(cfg.CatalogURL, nil), llm, log)
			out, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			if reportPath != "" {
				if err := qualify.WriteReport(reportPath, out); err != nil {
					return err
				}
				log.WithField("report", reportPath).Info("wrote qualification report")
			}

			clickbait := 0
			for _, v := range out.Clickbait {
				if v {
					clickbait++
				}
			}
			return printJSON(map[string]interface{}{
				"items":         len(out.Items),
				"clickbait":     clickbait,
				"not_clickbait": len(out.Items) - clickbait,
			})
		},
	}
	cmd.Flags().StringVar(&reportPath, "report", "", "write an xlsx report to this path")
	return cmd
}

// output is the CLI-facing shape of a pipeline result, durations formatted
// the way the original tool printed them.
type output struct {
	VideoID            string `json:"video_id"`
	TranscriptDuration string `json:"transcript_duration"`
	TranscriptOrigin   string `json:"transcript_origin"`
	MetadataDuration   string `json:"metadata_duration"`
	MetadataOrigin     string `json:"metadata_origin"`
	FilterDuration     string `json:"filter_duration,omitempty"`
	GeminiDuration     string `json:"gemini_duration,omitempty"`
	TotalDuration      string `json:"total_duration"`
	Title              string `json:"title,omitempty"`
	FailedStage        string `json:"failed_stage,omitempty"`
	ErrorKind          string `json:"error_kind,omitempty"`
	Error              string `json:"error,omitempty"`
}

func runPipeline(ctx context.Context, cfg config.Config, arg string) error {
	log := logger.New()

	id := videoid.Extract(arg)
	if id == "" {
		return fmt.Errorf("could not extract video id from %q", arg)
	}
	pattern, err := regexp.Compile(cfg.DialoguePattern)
	if err != nil {
		return fmt.Errorf("invalid dialogue pattern: %w", err)
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("gemini API key must be provided via --gemini-key or GEMINI_API_KEY")
	}

	store := cache.NewStore(cfg.CacheDir)
	it := innertube.NewClient("")
	gem := gemini.NewClient(gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}, nil)

	p := pipeline.New(store, log, pipeline.Options{
		Pattern:    pattern,
		Force:      cfg.Force,
		Transcript: transcript.NewClient(it).Fetch,
		Metadata:   metadata.NewClient(it).Fetch,
		Summarize:  gem.Generate,
	})

	res := p.Run(ctx, id)

	out := output{
		VideoID:            res.VideoID,
		TranscriptDuration: formatDuration(res.Transcript.Duration),
		TranscriptOrigin:   string(res.Transcript.Origin),
		MetadataDuration:   formatDuration(res.Metadata.Duration),
		MetadataOrigin:     string(res.Metadata.Origin),
		TotalDuration:      formatDuration(res.Total),
		Title:              res.Title,
	}
	if res.Filter.Origin != "" {
		out.FilterDuration = formatDuration(res.Filter.Duration)
	}
	if res.Summary.Origin != "" {
		out.GeminiDuration = formatDuration(res.Summary.Duration)
	}
	if res.Failed() {
		out.FailedStage = res.FailedStage
		out.ErrorKind = failedKind(res)
		out.Error = res.Err.Error()
	}

	if err := printJSON(out); err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("%s stage failed: %w", res.FailedStage, res.Err)
	}
	return nil
}

func failedKind(res pipeline.Result) string {
	switch res.FailedStage {
	case "transcript":
		return res.Transcript.ErrKind
	case "metadata":
		return res.Metadata.ErrKind
	case "filter":
		return res.Filter.ErrKind
	default:
		return res.Summary.ErrKind
	}
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
