package factory

import (
	"fmt"
	"os"

	"github.com/anime-shed/comicvault-grader/internal/analyzer"
	"github.com/anime-shed/comicvault-grader/internal/config"
	"github.com/anime-shed/comicvault-grader/internal/grading"
	"github.com/anime-shed/comicvault-grader/internal/provider"
	"github.com/anime-shed/comicvault-grader/internal/storage"
)

// ProviderType represents the available opinion sources
type ProviderType string

const (
	// RemoteProvider asks a hosted vision model
	RemoteProvider ProviderType = "remote"
	// HeuristicProvider derives opinions from image statistics
	HeuristicProvider ProviderType = "heuristic"
	// FixtureProvider replays canned opinions from a file
	FixtureProvider ProviderType = "fixture"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// ProviderFactory creates opinion providers
type ProviderFactory interface {
	CreateProvider(cfg config.Provider) (grading.OpinionProvider, error)
}

// StorageFactory creates blob stores
type StorageFactory interface {
	CreateStorage(cfg config.Storage) (storage.BlobStore, error)
}

type providerFactory struct {
	scorer analyzer.FeatureScorer
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(scorer analyzer.FeatureScorer) ProviderFactory {
	return &providerFactory{scorer: scorer}
}

// CreateProvider builds the configured provider wrapped with its timeout and retry policy
func (f *providerFactory) CreateProvider(cfg config.Provider) (grading.OpinionProvider, error) {
	var inner grading.OpinionProvider

	switch ProviderType(cfg.Kind) {
	case RemoteProvider:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("remote provider requires an API key")
		}
		inner = provider.NewRemote(provider.RemoteOptions{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
		})
	case HeuristicProvider:
		inner = provider.NewHeuristic(f.scorer)
	case FixtureProvider:
		file, err := os.Open(cfg.FixturePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open fixture: %w", err)
		}
		defer file.Close()
		fixture, err := provider.LoadFixture(file)
		if err != nil {
			return nil, err
		}
		inner = fixture
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Kind)
	}

	return provider.NewResilient(inner, provider.ResilientOptions{
		Timeout:    cfg.Timeout,
		Retries:    cfg.Retries,
		RetryDelay: cfg.RetryDelay,
	}), nil
}

type storageFactory struct{}

// NewStorageFactory creates a new storage factory
func NewStorageFactory() StorageFactory {
	return &storageFactory{}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(cfg config.Storage) (storage.BlobStore, error) {
	switch StorageType(cfg.Backend) {
	case LocalStorage:
		return storage.NewLocalStore(cfg.Root)
	case AzureStorage:
		return storage.NewAzureStore(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Backend)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	ProviderFactory ProviderFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(scorer analyzer.FeatureScorer) *ComponentFactory {
	return &ComponentFactory{
		ProviderFactory: NewProviderFactory(scorer),
		StorageFactory:  NewStorageFactory(),
	}
}
