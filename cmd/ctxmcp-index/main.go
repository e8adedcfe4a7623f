package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ctxmcp/ctxmcp/internal/chunker"
	"github.com/ctxmcp/ctxmcp/internal/config"
	"github.com/ctxmcp/ctxmcp/internal/httplog"
	"github.com/ctxmcp/ctxmcp/internal/ignore"
	"github.com/ctxmcp/ctxmcp/internal/index"
	"github.com/ctxmcp/ctxmcp/internal/indexer"
	"github.com/ctxmcp/ctxmcp/internal/logging"
	"github.com/ctxmcp/ctxmcp/internal/pathloc"
	"github.com/ctxmcp/ctxmcp/internal/strategy"
	"github.com/ctxmcp/ctxmcp/internal/uploader"
	"github.com/ctxmcp/ctxmcp/internal/walker"
	"github.com/ctxmcp/ctxmcp/pkg/types"
)

// isTTY reports whether stderr is an interactive terminal, so progress
// output and color are skipped entirely when piped or redirected.
func isTTY() bool {
	return isatty.IsTerminal(os.Stderr.Fd())
}

func buildPipeline(cfg *config.Config, root string) (*indexer.Indexer, *pathloc.Locator, error) {
	loc, err := pathloc.Resolve(root)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve project root: %w", err)
	}

	log := logging.NewDefault(cfg.LogLevel)
	classifier := walker.DefaultClassifier()
	matcher, err := ignore.New(loc.Root, ".gitignore", config.DefaultExcludePatterns)
	if err != nil {
		return nil, nil, fmt.Errorf("load ignore rules: %w", err)
	}
	workers := index.NumCPUWorkers()
	w := walker.New(loc, classifier, matcher, types.MaxChunkBytes, workers, log)
	ck := chunker.New(cfg.MaxLinesPerChunk)
	store := index.NewStore(loc.IndexFilePath(), 0, log)
	var overrides strategy.Overrides
	if cfg.ConcurrencyOverride > 0 {
		c := cfg.ConcurrencyOverride
		overrides.Concurrency = &c
	}
	if cfg.TimeoutMsOverride > 0 {
		ms := cfg.TimeoutMsOverride
		overrides.TimeoutMs = &ms
	}
	strat := strategy.New(0, overrides, !cfg.DisableAdaptive, log)
	var reqLog *httplog.Logger
	if cfg.RequestLogEnabled {
		var err error
		reqLog, err = httplog.New(config.DefaultStateDir())
		if err != nil {
			log.Warn().Err(err).Msg("could not start HTTP request logging")
		}
	}
	up := uploader.New(uploader.NewHTTPClient(cfg.BaseURL, cfg.Token, reqLog), strat, log)
	fprint := index.ConfigFingerprint(cfg.MaxLinesPerChunk)

	return indexer.New(loc, w, ck, store, up, strat, fprint, workers, log), loc, nil
}

func newIndexCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Run one indexing pass over a project and upload what changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.DefaultYAMLPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ix, loc, err := buildPipeline(cfg, root)
			if err != nil {
				return err
			}

			if isTTY() {
				bar := progressbar.NewOptions(-1,
					progressbar.OptionSetDescription("indexing "+loc.Root),
					progressbar.OptionSpinnerType(14),
					progressbar.OptionSetWriter(os.Stderr),
				)
				done := make(chan struct{})
				defer func() { close(done); bar.Finish() }()
				go func() {
					ticker := time.NewTicker(100 * time.Millisecond)
					defer ticker.Stop()
					for {
						select {
						case <-done:
							return
						case <-ticker.C:
							bar.Add(1)
						}
					}
				}()
			}

			result, err := ix.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run indexer: %w", err)
			}

			statusColor := color.New(color.FgGreen)
			if result.Status != types.IndexingSuccess {
				statusColor = color.New(color.FgYellow)
			}
			statusColor.Fprintf(os.Stdout, "%s\n", result.Status)
			fmt.Printf("files indexed: %d, files skipped: %d, chunks uploaded: %d, chunks total: %d\n",
				result.FilesIndexed, result.FilesSkipped, result.ChunksUploaded, len(result.ChunkNames))
			if result.Err != nil {
				color.New(color.FgRed).Fprintf(os.Stderr, "partial failure: %v\n", result.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "project root to index")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last saved index for a project without indexing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.DefaultYAMLPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ix, loc, err := buildPipeline(cfg, root)
			if err != nil {
				return err
			}

			idx := ix.LoadIndex()
			chunkCount := 0
			for _, entry := range idx.Entries {
				chunkCount += len(entry.ChunkNames)
			}

			fmt.Printf("project: %s\n", loc.Root)
			fmt.Printf("schema version: %d\n", idx.SchemaVersion)
			fmt.Printf("files: %d\n", len(idx.Entries))
			fmt.Printf("chunks: %d\n", chunkCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "project root to inspect")
	return cmd
}

func main() {
	root := &cobra.Command{
		Use:   "ctxmcp-index",
		Short: "Exercise the ctxmcp indexing pipeline from the command line",
	}
	root.AddCommand(newIndexCmd(), newStatusCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
