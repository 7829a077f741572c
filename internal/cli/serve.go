package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/credit-guardian/internal/metrics"
	"github.com/ogulcanaydogan/credit-guardian/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the credits API",
	Long: `Start the HTTP API. The scheduler posts cost snapshots to
/api/v1/credits/exhaustion; Prometheus scrapes /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Listen address (overrides server.listen)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	listen, _ := cmd.Flags().GetString("listen")
	if listen == "" {
		listen = e.cfg.Server.Listen
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(reg)
	proc, err := e.processor(collector)
	if err != nil {
		return err
	}

	api := server.NewServer(server.Options{
		Processor:   proc,
		Credits:     e.limitManager(),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Errors:      collector,
		MaxBodySize: e.cfg.Server.MaxBodySize,
		Logger:      e.logger,
	})

	srv := &http.Server{
		Addr:         listen,
		Handler:      api.Handler(),
		ReadTimeout:  e.cfg.Server.ReadTimeout,
		WriteTimeout: e.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("guardian started", "listen", listen, "default_limit_usd", e.limits.Default())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		e.logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
