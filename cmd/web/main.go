// Command web serves the Bright Bogotá storefront: server-rendered pages with
// htmx fragments for the cart drawer and the contact form.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bright-bogota/storefront/internal/config"
	"github.com/bright-bogota/storefront/internal/observability"
)

type serveOptions struct {
	addr      string
	templates string
	envFile   string
	dev       bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &serveOptions{}
	run := func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context(), opts)
	}

	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Bright Bogotá storefront web server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.addr, "addr", "", "HTTP listen address (default :$STOREFRONT_PORT)")
	flags.StringVar(&opts.templates, "templates", "", "templates directory on disk (default: embedded templates)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	flags.BoolVar(&opts.dev, "dev", false, "development mode: reload templates and content on change")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE:  run,
	})
	return root
}

func serve(ctx context.Context, opts *serveOptions) error {
	cfg, err := config.Load(ctx, config.WithEnvFile(opts.envFile))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.dev {
		cfg.DevMode = true
	}
	if opts.templates != "" {
		if !dirExists(opts.templates) {
			return fmt.Errorf("templates directory %q not found", opts.templates)
		}
		cfg.Templates = opts.templates
	}
	addr := cfg.Addr()
	if opts.addr != "" {
		addr = opts.addr
	}

	level := cfg.LogLevel
	if cfg.DevMode && level == "info" {
		level = "debug"
	}
	logger, err := observability.NewLogger(level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("storefront listening",
			zap.String("addr", addr),
			zap.String("env", cfg.Env),
			zap.Bool("dev", cfg.DevMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	if a.watchDir != "" {
		g.Go(func() error {
			// watcher failures are logged and never stop the server
			if err := a.views.watch(gctx, a.watchDir); err != nil {
				logger.Warn("template reload disabled", zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}
