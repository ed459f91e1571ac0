// Command research runs M&A deep research for one company against a local
// agent service and saves the results under the output directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/marutilai/open-deep-research/internal/agent"
	"github.com/marutilai/open-deep-research/internal/cache/file"
	"github.com/marutilai/open-deep-research/internal/cache/redis"
	"github.com/marutilai/open-deep-research/internal/config"
	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/observability"
	"github.com/marutilai/open-deep-research/internal/pricing"
	"github.com/marutilai/open-deep-research/internal/provider/openai"
	"github.com/marutilai/open-deep-research/internal/report"
	"github.com/marutilai/open-deep-research/internal/stream"
	"github.com/marutilai/open-deep-research/internal/tokenizer"
)

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	container := buildContainer(opts)
	err = container.Invoke(func(app *application, logger *zap.Logger) error {
		defer func() { _ = logger.Sync() }()
		return app.run(ctx)
	})
	stop()

	if err != nil {
		log.Fatalf("Research failed: %v", err)
	}
}

func buildContainer(opts *cliOptions) *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(func() *cliOptions { return opts }); err != nil {
		log.Fatalf("Failed to provide options: %v", err)
	}
	if err := container.Provide(func() *config.Config {
		cfg := config.Load()
		opts.apply(cfg)
		return cfg
	}); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(func() domain.EventPublisher {
		return observability.NewEventBus()
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Agent
	if err := container.Provide(func() *stream.Reader {
		return stream.NewReader()
	}); err != nil {
		log.Fatalf("Failed to provide stream reader: %v", err)
	}
	if err := container.Provide(func(cfg *config.AgentConfig, reader *stream.Reader) domain.AgentClient {
		return agent.NewClient(cfg, reader)
	}); err != nil {
		log.Fatalf("Failed to provide agent client: %v", err)
	}

	// Cost accounting
	if err := container.Provide(func(cfg *config.ResearchConfig) (*domain.PricingTable, error) {
		return pricing.LoadOrDefault(cfg.PricingFile)
	}); err != nil {
		log.Fatalf("Failed to provide pricing table: %v", err)
	}
	if err := container.Provide(func() domain.TokenEstimator {
		return tokenizer.New()
	}); err != nil {
		log.Fatalf("Failed to provide token estimator: %v", err)
	}

	// Domain Services
	if err := container.Provide(newResearchService); err != nil {
		log.Fatalf("Failed to provide research service: %v", err)
	}

	// Output
	if err := container.Provide(func(cfg *config.ResearchConfig) *report.Writer {
		return report.NewWriter(cfg.OutputDir)
	}); err != nil {
		log.Fatalf("Failed to provide report writer: %v", err)
	}
	if err := container.Provide(newApplication); err != nil {
		log.Fatalf("Failed to provide application: %v", err)
	}

	return container
}

type serviceParams struct {
	dig.In

	Agent     domain.AgentClient
	Estimator domain.TokenEstimator
	Pricing   *domain.PricingTable
	Events    domain.EventPublisher
	AgentCfg  *config.AgentConfig
	Research  *config.ResearchConfig
	Redis     *config.RedisConfig
	OpenAI    *openai.Config
	Logger    *zap.Logger
}

// newResearchService picks the optional cache and summarizer from config.
func newResearchService(p serviceParams) (*domain.ResearchService, error) {
	ctx := context.Background()

	cache, err := newResultCache(ctx, p.Research, p.Redis)
	if err != nil {
		return nil, err
	}

	var summarizer domain.Summarizer
	if p.OpenAI.Enabled() {
		s, err := openai.NewSummarizer(*p.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("failed to create summarizer: %w", err)
		}
		summarizer = s
		p.Logger.Info("LLM summaries enabled", observability.String("model", s.Model()))
	}

	return domain.NewResearchService(p.Agent, cache, p.Estimator, p.Pricing, summarizer, p.Events,
		domain.ResearchOptions{
			SearchAPI: p.AgentCfg.SearchAPI,
			Pace:      p.Research.Pace(),
			Timeout:   p.AgentCfg.RequestTimeout(),
		}), nil
}

func newResultCache(
	ctx context.Context,
	research *config.ResearchConfig,
	redisCfg *config.RedisConfig,
) (domain.ResultCache, error) {
	switch research.CacheBackend {
	case "file", "":
		return file.NewResultCache(research.CacheDir), nil
	case "redis":
		client, err := redis.NewClient(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		return redis.NewResultCache(client, redisCfg.TTL()), nil
	case "none":
		return nil, nil //nolint:nilnil // no cache is a valid choice
	default:
		return nil, fmt.Errorf("unknown cache backend %q", research.CacheBackend)
	}
}
