// Command viewer serves saved research results over HTTP.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/marutilai/open-deep-research/internal/config"
	"github.com/marutilai/open-deep-research/internal/http"
	"github.com/marutilai/open-deep-research/internal/http/middleware"
	"github.com/marutilai/open-deep-research/internal/observability"
	"github.com/marutilai/open-deep-research/internal/report"
)

const shutdownTimeout = 10 * time.Second

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server, logger *zap.Logger) error {
		defer func() { _ = logger.Sync() }()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Viewer failed: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(newRegistry); err != nil {
		log.Fatalf("Failed to provide metrics registry: %v", err)
	}
	if err := container.Provide(middleware.NewMetrics); err != nil {
		log.Fatalf("Failed to provide metrics: %v", err)
	}

	// Storage
	if err := container.Provide(func(cfg *config.ResearchConfig) *report.Store {
		return report.NewStore(cfg.OutputDir)
	}); err != nil {
		log.Fatalf("Failed to provide report store: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

type registryResult struct {
	dig.Out

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// newRegistry builds a private registry with the process and Go runtime collectors.
func newRegistry() registryResult {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registryResult{Registerer: reg, Gatherer: reg}
}
