package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/recera/patchview/internal/metrics"
	"github.com/recera/patchview/pkg/live"
)

func newServeCommand(a *app) *cobra.Command {
	var port int
	var host string
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the live server",
		Long: `Serves live explorer sessions over WebSocket. Each connection gets its own
position, drag controller and refresh cycle; the signal files are shared and
reloaded when they change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// CLI takes precedence
			if port != 0 {
				a.cfg.Server.Port = port
			}
			if host != "" {
				a.cfg.Server.Host = host
			}
			if noWatch {
				watch := false
				a.cfg.Data.Watch = &watch
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides server.port)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (overrides server.host)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the signal files when they change")

	return cmd
}

func runServe(ctx context.Context, a *app) error {
	log := a.log
	m := metrics.New(true)

	loader := a.loader()
	if err := loader.Load(); err != nil {
		// Sessions render the empty figure until the files appear
		log.Warn("Signal data not loaded", zap.Error(err))
	}

	exOpts := a.cfg.ExplorerOptions()
	exOpts.DragObserver = m
	exOpts.RefreshObserver = m

	liveServer := live.NewServer(&live.Options{
		Path:            a.cfg.Server.LivePath,
		Explorer:        exOpts,
		Data:            loader,
		RefreshInterval: time.Duration(a.cfg.Data.RefreshInterval),
		Logger:          log,
		Observer:        m,
	})
	defer liveServer.Close()

	mux := http.NewServeMux()
	mux.HandleFunc(liveServer.Path(), liveServer.HandleWebSocket)
	if p := a.cfg.Server.MetricsPath; p != "" {
		mux.Handle(p, m.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %d sessions\n", liveServer.SessionCount())
	})

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Live server listening",
			zap.String("addr", srv.Addr),
			zap.String("live", liveServer.Path()),
			zap.String("metrics", a.cfg.Server.MetricsPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if *a.cfg.Data.Watch {
		g.Go(func() error {
			if err := loader.Watch(ctx); err != nil {
				log.Warn("File watching disabled", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		liveServer.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
