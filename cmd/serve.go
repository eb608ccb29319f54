package cmd

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
	"golang.org/x/sync/errgroup"

	"github.com/pable/s2-analytics/internal/api"
	"github.com/pable/s2-analytics/internal/metrics"
	"github.com/pable/s2-analytics/internal/storage"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve summaries, correlations and usage trends over HTTP",
	Long: `Start a read-only JSON API over the database.

Routes:
  GET /health
  GET /metrics
  GET /api/v1/summary
  GET /api/v1/matches?limit=50
  GET /api/v1/correlations?map=ctf_ash
  GET /api/v1/correlations/maps
  GET /api/v1/correlations/tags/{tag}?min_samples=20
  GET /api/v1/tags/counts?map=ctf_ash&outcome=true
  GET /api/v1/usage?weapons=Barrett,MP5&window=10&min_days=5&days=30`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", "", "listen address (default serve.addr)")
	f.Float64("rate-limit", 0, "requests per second across all clients, 0 disables")
	f.Int("burst", 0, "rate limiter burst")
	bindFlag("serve.addr", f.Lookup("addr"))
	bindFlag("serve.rate_limit", f.Lookup("rate-limit"))
	bindFlag("serve.burst", f.Lookup("burst"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	db, err := storage.Open(dbPath())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	router := api.NewRouter(api.Config{
		Store:       db,
		Logger:      logger,
		Metrics:     metrics.New(),
		CORSOrigins: settings.Serve.CORSOrigins,
		Weapons:     settings.Weapons.Primary,
		Trend:       settings.Trend,
		RateLimit:   settings.Serve.RateLimit,
		Burst:       settings.Serve.Burst,
	})
	srv := &http.Server{
		Addr:              settings.Serve.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Infow("api shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
