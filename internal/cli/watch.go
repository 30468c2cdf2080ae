package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// DefaultDebounce is how long watch waits for the tree to settle before
// crawling again.
const DefaultDebounce = 2 * time.Second

func newWatchCommand(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [roots...]",
		Short: "Crawl, then crawl again whenever the storage changes",
		Long: `Crawl the roots once, then watch them for changes and run a fresh crawl
after the tree has been quiet for the debounce period. Each crawl rewrites
the output file. Stop with Ctrl-C.

Examples:
  docwalk watch
  docwalk watch /srv/docs --debounce 10s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			roots := rootsOrConfig(args, a.cfg)
			run := func() error {
				res, err := crawl(ctx, a.cfg, roots, a.logger)
				if res != nil {
					printSummary(cmd.OutOrStdout(), res)
				}
				return err
			}
			if err := run(); err != nil {
				return err
			}

			fsw, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer fsw.Close()
			for _, root := range roots {
				if err := addTree(fsw, root, a.logger); err != nil {
					return err
				}
			}

			a.logger.Info("watching for changes", "roots", len(roots), "debounce", debounce)
			err = watchLoop(ctx, fsw, debounce, ignoreUnder(ignoredPaths(a.cfg)), a.logger, func() error {
				err := run()
				if errors.Is(err, context.Canceled) {
					return err
				}
				if err != nil {
					a.logger.Error("crawl failed", "error", err)
				}
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	addWalkFlags(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", DefaultDebounce, "quiet period before re-crawling")
	return cmd
}

// addTree watches root and every directory below it.
func addTree(fsw *fsnotify.Watcher, root string, logger *slog.Logger) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			logger.Warn("cannot watch", "path", p, "error", err)
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(p); err != nil {
			logger.Warn("cannot watch", "path", p, "error", err)
		}
		return nil
	})
}

// ignoreUnder returns a filter matching paths equal to or below any of
// prefixes.
func ignoreUnder(prefixes []string) func(string) bool {
	return func(p string) bool {
		abs, err := filepath.Abs(p)
		if err != nil {
			return false
		}
		for _, prefix := range prefixes {
			if abs == prefix || strings.HasPrefix(abs, prefix+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}
}

// watchLoop calls trigger once the watched tree has seen no relevant event
// for debounce. New directories are added to the watcher as they appear.
// It returns when ctx is done, the watcher closes, or trigger fails.
func watchLoop(ctx context.Context, fsw *fsnotify.Watcher, debounce time.Duration, ignore func(string) bool, logger *slog.Logger, trigger func() error) error {
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ignore(ev.Name) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if err := addTree(fsw, ev.Name, logger); err != nil {
					logger.Debug("new entry not watchable", "path", ev.Name, "error", err)
				}
			}
			logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		case <-timer.C:
			if err := trigger(); err != nil {
				return err
			}
		}
	}
}
