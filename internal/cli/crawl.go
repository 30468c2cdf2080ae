package cli

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/docwalk"
	"github.com/meigma/docwalk/emit"
	"github.com/meigma/docwalk/internal/config"
	"github.com/meigma/docwalk/textstore"
)

// recordBuffer is the number of records a root may run ahead of the
// emitter while an earlier root is still being written.
const recordBuffer = 64

func newCrawlCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [roots...]",
		Short: "Walk storage roots and export one record per document",
		Long: `Walk one or more storage roots, unpack nested archives and write the
extracted records to the configured output. Roots default to the storage
list from the config file.

Examples:
  docwalk crawl
  docwalk crawl /srv/docs --output out/records.jsonl --format jsonl
  docwalk crawl a b c --parallel 3 --dedup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := crawl(cmd.Context(), a.cfg, rootsOrConfig(args, a.cfg), a.logger)
			if res != nil {
				printSummary(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	addWalkFlags(cmd)
	return cmd
}

// addWalkFlags registers the flags shared by crawl and watch.
func addWalkFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("output", "o", "output/extracted_data.csv", "output file")
	flags.StringP("format", "f", string(emit.FormatCSV), "output format: csv, jsonl")
	flags.Bool("dedup", false, "drop records whose content hash was already written")
	flags.String("store-dir", "", "also store extracted text in a content-addressed store")
	flags.Int64("store-max-bytes", 0, "fail the crawl once the text store would exceed this size (0 = unlimited)")
	flags.Int("max-depth", docwalk.DefaultMaxDepth, "archive nesting ceiling")
	flags.Int64("max-entry-size", docwalk.DefaultMaxEntrySize, "largest file or member to read, in bytes")
	flags.String("temp-dir", "", "parent directory for archive scratch space")
	flags.StringSlice("exclude", nil, "glob patterns of paths to skip")
	flags.Int("parallel", 1, "number of roots walked concurrently")
}

func rootsOrConfig(args []string, cfg *config.Config) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Storage
}

// crawlResult summarizes one crawl. StoreBytes is the compressed size of
// the text store, or -1 when none is configured.
type crawlResult struct {
	RunID      string
	Roots      []string
	Output     string
	Stats      docwalk.Snapshot
	Dropped    int
	StoreBytes int64
	Elapsed    time.Duration
}

// crawl walks roots and writes every record to the configured output.
// Roots are walked up to cfg.Walk.ParallelRoots at a time; records are
// written in root order. A bad root or output is reported before any
// traversal starts.
func crawl(ctx context.Context, cfg *config.Config, roots []string, logger *slog.Logger) (*crawlResult, error) {
	if len(roots) == 0 {
		return nil, errors.New("no storage roots given")
	}
	start := time.Now()
	res := &crawlResult{RunID: uuid.NewString(), Roots: roots, Output: cfg.Output.Path, StoreBytes: -1}
	logger = logger.With("run_id", res.RunID)

	stats := &docwalk.Stats{}
	opts := append(cfg.WalkerOptions(),
		docwalk.WithLogger(logger),
		docwalk.WithFailureHandler(stats.Failure),
		docwalk.WithSkipHandler(stats.Skip),
	)
	walker, err := docwalk.New(opts...)
	if err != nil {
		return nil, err
	}

	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	seqs := make([]iter.Seq[docwalk.Record], len(roots))
	for i, root := range roots {
		seq, err := walker.Walk(walkCtx, root)
		if err != nil {
			return nil, err
		}
		seqs[i] = seq
	}

	out, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("crawl started", "roots", len(roots), "output", cfg.Output.Path, "format", cfg.OutputFormat())

	chans := make([]chan docwalk.Record, len(seqs))
	for i := range chans {
		chans[i] = make(chan docwalk.Record, recordBuffer)
	}

	var g errgroup.Group
	g.SetLimit(cfg.Walk.ParallelRoots)
	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i, seq := range seqs {
			g.Go(func() error {
				defer close(chans[i])
				for rec := range seq {
					select {
					case chans[i] <- rec:
					case <-walkCtx.Done():
						return walkCtx.Err()
					}
				}
				return nil
			})
		}
	}()

	var emitErr error
	for _, ch := range chans {
		for rec := range ch {
			if emitErr != nil {
				continue
			}
			if err := out.Emit(rec); err != nil {
				emitErr = fmt.Errorf("write record %s: %w", rec.FileName, err)
				cancel()
				continue
			}
			stats.Record(rec)
		}
	}
	<-launched
	walkErr := g.Wait()

	closeErr := out.Close()
	res.Stats = stats.Snapshot()
	res.Dropped = out.dropped()
	res.StoreBytes = out.storeBytes()
	res.Elapsed = time.Since(start)

	switch {
	case emitErr != nil:
		return res, emitErr
	case ctx.Err() != nil:
		logger.Warn("crawl interrupted", "records", res.Stats.Records())
		return res, fmt.Errorf("crawl interrupted: %w", ctx.Err())
	case walkErr != nil:
		return res, walkErr
	case closeErr != nil:
		return res, fmt.Errorf("close output: %w", closeErr)
	}

	logger.Info("crawl finished",
		"records", res.Stats.Records(),
		"unsupported", res.Stats.Unsupported,
		"failures", res.Stats.TotalFailures(),
		"duplicates", res.Dropped,
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
	return res, nil
}

// output is the emitter chain of one crawl.
type output struct {
	emit.Emitter
	dedup *emit.Dedup
	store *textstore.Store
}

// openOutput builds the emitter chain for cfg: an optional dedup filter in
// front of the text store, then the output file. The store comes first so
// no row is written for text it refused.
func openOutput(cfg *config.Config) (*output, error) {
	file, err := emit.CreateFile(cfg.Output.Path, cfg.OutputFormat())
	if err != nil {
		return nil, err
	}
	out := &output{Emitter: file}
	if cfg.Store.Dir != "" {
		store, err := textstore.New(cfg.Store.Dir, textstore.WithMaxBytes(cfg.Store.MaxBytes))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("open text store: %w", err), file.Close())
		}
		out.store = store
		out.Emitter = emit.Multi(emit.NewStore(store), file)
	}
	if cfg.Output.Dedup {
		out.dedup = emit.NewDedup(out.Emitter)
		out.Emitter = out.dedup
	}
	return out, nil
}

// Close closes the chain and then the text store.
func (o *output) Close() error {
	err := o.Emitter.Close()
	if o.store != nil {
		err = errors.Join(err, o.store.Close())
	}
	return err
}

func (o *output) dropped() int {
	if o.dedup == nil {
		return 0
	}
	return o.dedup.Dropped()
}

func (o *output) storeBytes() int64 {
	if o.store == nil {
		return -1
	}
	return o.store.SizeBytes()
}

// ignoredPaths returns the absolute paths crawl writes to, so a watcher
// does not react to its own output.
func ignoredPaths(cfg *config.Config) []string {
	var paths []string
	for _, p := range []string{cfg.Output.Path, cfg.Store.Dir, cfg.Walk.TempDir} {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			paths = append(paths, abs)
		}
	}
	return paths
}
