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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/abhisek/skillcert/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the audit and session sweep jobs and expose metrics",
	Long: `Resume timers for live test sessions, then run the daily audit and the
periodic sweep of expired sessions until interrupted. Prometheus metrics are
served on SKILLCERT_METRICS_ADDR (empty disables the endpoint).`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.engine.Resume(ctx); err != nil {
		return fmt.Errorf("resume sessions: %w", err)
	}

	sched, err := scheduler.New(scheduler.Options{
		Auditor:       a.auditor,
		Sweeper:       a.engine,
		AuditSchedule: a.cfg.AuditSchedule,
		SweepInterval: a.cfg.SweepInterval,
		Location:      a.cfg.Location(),
		Logger:        a.log.WithField("component", "scheduler"),
	})
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	var srv *http.Server
	errc := make(chan error, 1)
	if a.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
		srv = &http.Server{
			Addr:              a.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.log.WithField("addr", a.cfg.MetricsAddr).Info("metrics listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.log.Info("shutting down")
	case err = <-errc:
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			a.log.WithError(serr).Warn("metrics server shutdown")
		}
	}
	return err
}
