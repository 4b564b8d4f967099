package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/recera/rill/cmd/rill/internal/build"
	"github.com/recera/rill/cmd/rill/internal/ui"
	"github.com/recera/rill/cmd/rill/internal/watch"
	"github.com/recera/rill/internal/config"
	"github.com/recera/rill/pkg/compiler"
)

// reporter receives build events from the watch loop
type reporter interface {
	Started(paths []string)
	Finished(results []build.Result)
	Removed(paths []string)
}

// consoleReporter prints build events line by line
type consoleReporter struct{}

func (consoleReporter) Started(paths []string) {
	fmt.Printf("🔄 Rebuilding %d templates...\n", len(paths))
}

func (consoleReporter) Finished(results []build.Result) {
	printResults(results)
}

func (consoleReporter) Removed(paths []string) {
	for _, path := range paths {
		fmt.Printf("🗑️  Removed module for %s\n", path)
	}
}

func newWatchCommand() *cobra.Command {
	var flags projectFlags
	var noUI bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Recompile templates as they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			builder, closeCache := flags.newBuilder(cfg)
			defer closeCache()
			return runWatch(cfg, builder, noUI || !ui.IsTerminal())
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Print plain output instead of the dashboard")
	return cmd
}

func runWatch(cfg *config.Config, builder *build.Builder, plain bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if plain {
		fmt.Printf("👀 Watching %s for changes...\n", cfg.SourceDir)
		return watchTemplates(ctx, cfg, builder, consoleReporter{}, nil)
	}

	dashboard := ui.NewDashboard("rill watch", "watching "+cfg.SourceDir)
	return runWithDashboard(ctx, dashboard, func(ctx context.Context) error {
		return watchTemplates(ctx, cfg, builder, dashboard, nil)
	})
}

// runWithDashboard runs work alongside the dashboard. Quitting the dashboard
// cancels work; work failing quits the dashboard.
func runWithDashboard(ctx context.Context, dashboard *ui.Dashboard, work func(ctx context.Context) error) error {
	// Log lines would tear the alternate screen
	if verbosity == 0 {
		commonlog.Configure(-4, nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		err := work(ctx)
		dashboard.Quit()
		errc <- err
	}()

	if err := dashboard.Run(); err != nil {
		return err
	}
	cancel()
	return ignoreCanceled(<-errc)
}

// watchTemplates compiles every template, then recompiles changed ones until
// ctx is done. afterBatch, when set, runs after each rebuild.
func watchTemplates(ctx context.Context, cfg *config.Config, builder *build.Builder, r reporter, afterBatch func(results []build.Result, removed []string)) error {
	w, err := watch.New(cfg.SourceDir, watch.Options{
		Debounce: cfg.Debounce(),
		Ignored:  cfg.Ignored,
		Match:    compiler.IsTemplate,
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	paths, err := build.FindTemplates(cfg.SourceDir, cfg.Ignored)
	if err != nil {
		return err
	}
	if len(paths) > 0 {
		r.Started(paths)
		r.Finished(builder.Files(paths))
	}

	err = w.Run(ctx, func(paths []string) {
		results, removed := rebuild(builder, r, paths)
		if afterBatch != nil {
			afterBatch(results, removed)
		}
	})
	return ignoreCanceled(err)
}

// rebuild compiles the changed templates that still exist and removes the
// modules of deleted ones
func rebuild(builder *build.Builder, r reporter, paths []string) ([]build.Result, []string) {
	var changed, removed []string
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := builder.Remove(path); err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  Failed to remove module for %s: %v\n", path, err)
			}
			removed = append(removed, path)
			continue
		}
		changed = append(changed, path)
	}

	if len(removed) > 0 {
		r.Removed(removed)
	}
	if len(changed) == 0 {
		return nil, removed
	}
	r.Started(changed)
	results := builder.Files(changed)
	r.Finished(results)
	return results, removed
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
