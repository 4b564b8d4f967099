package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/rill/cmd/rill/internal/build"
	"github.com/recera/rill/cmd/rill/internal/devserver"
	"github.com/recera/rill/cmd/rill/internal/ui"
	"github.com/recera/rill/internal/config"
)

func newDevCommand() *cobra.Command {
	var flags projectFlags
	var port int
	var host string
	var root string
	var noUI bool

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long:  `Serves the project, recompiles templates as they change and reloads connected browsers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			// CLI takes precedence
			if port != 0 {
				cfg.Dev.Port = port
			}
			if host != "" {
				cfg.Dev.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			builder, closeCache := flags.newBuilder(cfg)
			defer closeCache()
			return runDev(cfg, builder, root, noUI || !ui.IsTerminal())
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run the dev server on (overrides config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind the dev server to (overrides config)")
	cmd.Flags().StringVar(&root, "root", ".", "Directory served over HTTP")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Print plain output instead of the dashboard")

	return cmd
}

func runDev(cfg *config.Config, builder *build.Builder, root string, plain bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := devserver.New(root)
	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: server.Handler(),
	}

	// Reload browsers once a batch compiled cleanly
	reload := func(results []build.Result, removed []string) {
		for _, r := range results {
			if r.Err != nil {
				server.Broadcast(devserver.Message{
					Type:  devserver.TypeError,
					File:  filepath.ToSlash(r.Source),
					Error: r.Err.Error(),
				})
				return
			}
		}
		var file string
		if len(results) == 1 {
			file = filepath.ToSlash(results[0].Source)
		}
		server.Broadcast(devserver.Message{Type: devserver.TypeReload, File: file})
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	work := func(ctx context.Context, r reporter) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		watchErr := make(chan error, 1)
		go func() { watchErr <- watchTemplates(ctx, cfg, builder, r, reload) }()

		select {
		case err, ok := <-serveErr:
			cancel()
			<-watchErr
			if ok {
				return fmt.Errorf("dev server failed: %w", err)
			}
			return nil
		case err := <-watchErr:
			return err
		}
	}

	url := fmt.Sprintf("http://%s", cfg.Address())
	if plain {
		fmt.Printf("✨ Dev server running at %s\n", url)
		fmt.Printf("👀 Watching %s for changes...\n", cfg.SourceDir)
		err := work(ctx, consoleReporter{})
		fmt.Println("\n🛑 Shutting down dev server...")
		return err
	}

	dashboard := ui.NewDashboard("rill dev", url+" • watching "+cfg.SourceDir)
	return runWithDashboard(ctx, dashboard, func(ctx context.Context) error {
		return work(ctx, dashboard)
	})
}
