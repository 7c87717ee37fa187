package container

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/anime-shed/comicvault-grader/internal/analyzer"
	"github.com/anime-shed/comicvault-grader/internal/config"
	"github.com/anime-shed/comicvault-grader/internal/factory"
	"github.com/anime-shed/comicvault-grader/internal/grading"
	"github.com/anime-shed/comicvault-grader/internal/logger"
	"github.com/anime-shed/comicvault-grader/internal/observer"
	"github.com/anime-shed/comicvault-grader/internal/preprocess"
	"github.com/anime-shed/comicvault-grader/internal/report"
	"github.com/anime-shed/comicvault-grader/internal/repository"
	"github.com/anime-shed/comicvault-grader/internal/service"
	"github.com/anime-shed/comicvault-grader/internal/storage"
	"github.com/anime-shed/comicvault-grader/internal/transport"
	"github.com/anime-shed/comicvault-grader/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config   *config.Config
	registry *prometheus.Registry
	store    storage.BlobStore
	index    repository.GradingIndex
	provider grading.OpinionProvider
	service  service.GradingService
	handler  http.Handler
}

// NewContainer builds the dependency graph from cfg
func NewContainer(cfg *config.Config) (*Container, error) {
	postures, err := cfg.ParsedPostures()
	if err != nil {
		return nil, err
	}

	components := factory.NewComponentFactory(analyzer.NewFeatureScorer())

	opinionProvider, err := components.ProviderFactory.CreateProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create opinion provider: %w", err)
	}

	store, err := components.StorageFactory.CreateStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	if dir := filepath.Dir(cfg.Storage.IndexDSN); cfg.Storage.IndexDSN != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}
	index, err := repository.OpenSQLiteIndex(cfg.Storage.IndexDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open grading index: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observer.NewMetricsObserver(registry)
	if err != nil {
		index.Close()
		return nil, err
	}

	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	aggregator, err := grading.NewAggregator(grading.AggregatorOptions{
		Postures:  postures,
		OnOpinion: service.OpinionEventHook(events),
	})
	if err != nil {
		index.Close()
		return nil, err
	}

	var preprocessor preprocess.Preprocessor
	if cfg.Preprocess.Enabled {
		preprocessor = preprocess.New(preprocess.Options{
			MaxDimension:    cfg.Preprocess.MaxDimension,
			ContrastPercent: cfg.Preprocess.ContrastPercent,
			JPEGQuality:     cfg.Preprocess.JPEGQuality,
		})
	}

	urlValidator := validation.NewURLValidator()
	if len(cfg.Server.AllowedImageHosts) > 0 {
		urlValidator = validation.NewURLValidatorWithOptions([]string{"http", "https"}, cfg.Server.AllowedImageHosts)
	}

	svc, err := service.NewGradingService(service.Dependencies{
		Aggregator:   aggregator,
		Provider:     opinionProvider,
		Store:        store,
		Results:      repository.NewBlobResultRepository(store, cfg.Storage.ResultCacheTTL),
		Index:        index,
		Renderer:     report.NewPDFRenderer(),
		Preprocessor: preprocessor,
		Fetcher: storage.NewHTTPImageFetcher(storage.HTTPFetcherOptions{
			Timeout:  cfg.Server.ImageFetchTimeout,
			MaxBytes: cfg.Server.MaxRequestBodySize,
		}),
		URLValidator: urlValidator,
		Events:       events,
		Logger:       logger.Logger,
	})
	if err != nil {
		index.Close()
		return nil, err
	}

	handler := transport.NewHandler(svc, transport.Options{
		MaxRequestBodySize: cfg.Server.MaxRequestBodySize,
		RequestTimeout:     cfg.Server.RequestTimeout,
		CORSOrigins:        cfg.Server.CORSOrigins,
		Gatherer:           registry,
	})

	return &Container{
		config:   cfg,
		registry: registry,
		store:    store,
		index:    index,
		provider: opinionProvider,
		service:  svc,
		handler:  handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the grading service
func (c *Container) Service() service.GradingService {
	return c.service
}

// ProviderName identifies the configured opinion source
func (c *Container) ProviderName() string {
	return c.provider.Name()
}

// StoreName identifies the configured storage backend
func (c *Container) StoreName() string {
	return c.store.Name()
}

// Close releases the grading index
func (c *Container) Close() error {
	return c.index.Close()
}
