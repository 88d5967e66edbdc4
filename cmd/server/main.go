package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nssnepal/membership/internal/config"
	"github.com/nssnepal/membership/internal/db"
	"github.com/nssnepal/membership/internal/services"
	"github.com/nssnepal/membership/internal/web"
)

var (
	rootCmd = &cobra.Command{
		Use:           "membership",
		Short:         "NSS membership and revenue tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging()
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		RunE:  runServe,
	}
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", config.Conf.GetString("dbPath"), "sqlite database file")
	_ = config.Conf.BindPFlag("dbPath", rootCmd.PersistentFlags().Lookup("db"))

	serveCmd.Flags().String("addr", config.Conf.GetString("addr"), "listen address")
	_ = config.Conf.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd, migrateCmd, createSuperuserCmd, importCmd, resyncCmd)
}

// setupLogging installs the default slog handler: text while debugging, JSON otherwise.
func setupLogging() {
	var h slog.Handler
	if config.Conf.GetBool("debug") {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(h).With("app", config.Conf.GetString("appName")))
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := db.Init(config.Conf.GetString("dbPath")); err != nil {
		return errors.Wrap(err, "db init")
	}

	addr := config.Conf.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           web.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		purgeSessionsLoop(gctx)
		return nil
	})
	return g.Wait()
}

// purgeSessionsLoop drops expired login sessions once an hour until ctx ends.
func purgeSessionsLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := services.PurgeSessions(db.Conn().WithContext(ctx))
			if err != nil {
				slog.Warn("session purge failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("expired sessions purged", "count", n)
			}
		}
	}
}
