// Package cli implements the docwalk command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/docwalk/internal/config"
)

// app is the state shared by all subcommands of one invocation.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

// NewRootCommand returns the docwalk command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	cmd := &cobra.Command{
		Use:   "docwalk",
		Short: "Extract text from document storage, including nested archives",
		Long: `docwalk walks document storage trees, unpacks nested archives up to a
depth ceiling, extracts text from Word, Excel and PDF files and writes one
record per document with a content hash for deduplication.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.bind(cmd); err != nil {
				return err
			}
			return a.load(cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default: ./docwalk.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")

	cmd.AddCommand(newCrawlCommand(a), newClassifyCommand(a), newWatchCommand(a))
	return cmd
}

// Execute runs the root command until it finishes or the process receives
// SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"output.path":         "output",
	"output.format":       "format",
	"output.dedup":        "dedup",
	"store.dir":           "store-dir",
	"store.max_bytes":     "store-max-bytes",
	"walk.max_depth":      "max-depth",
	"walk.max_entry_size": "max-entry-size",
	"walk.temp_dir":       "temp-dir",
	"walk.exclude":        "exclude",
	"walk.parallel_roots": "parallel",
	"log.level":           "log-level",
	"log.format":          "log-format",
}

// bind attaches the flags of the executing command to their config keys.
// A flag overrides the environment and the config file only when it was
// set explicitly.
func (a *app) bind(cmd *cobra.Command) error {
	for key, name := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := a.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func (a *app) load(logOut io.Writer) error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(logOut, cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}
