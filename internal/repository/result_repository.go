package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"

	"github.com/anime-shed/comicvault-grader/internal/storage"
	"github.com/anime-shed/comicvault-grader/pkg/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BlobResultRepository writes analysis documents through a BlobStore and
// serves repeated reads from memory
type BlobResultRepository struct {
	store storage.BlobStore
	cache *cache.Cache
}

// NewBlobResultRepository creates a repository; a ttl of zero disables caching
func NewBlobResultRepository(store storage.BlobStore, ttl time.Duration) *BlobResultRepository {
	r := &BlobResultRepository{store: store}
	if ttl > 0 {
		r.cache = cache.New(ttl, 2*ttl)
	}
	return r
}

func (r *BlobResultRepository) Save(ctx context.Context, record *models.GradingRecord) (string, error) {
	if record == nil || record.UserID == "" || record.ComicID == "" {
		return "", ErrInvalidRecord
	}
	loc, err := storage.NewLocation(record.UserID, record.ComicID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode grading: %w", err)
	}

	handle, err := r.store.Put(ctx, loc.Analysis(), data, "application/json")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}

	if r.cache != nil {
		r.cache.Set(loc.Analysis(), record.Clone(), cache.DefaultExpiration)
	}
	return handle, nil
}

func (r *BlobResultRepository) Get(ctx context.Context, userID, comicID string) (*models.GradingRecord, error) {
	loc, err := storage.NewLocation(userID, comicID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGradingNotFound, err)
	}
	key := loc.Analysis()

	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			return cached.(*models.GradingRecord).Clone(), nil
		}
	}

	data, err := r.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrGradingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}

	var record models.GradingRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode grading %s: %w", key, err)
	}

	if r.cache != nil {
		r.cache.Set(key, record.Clone(), cache.DefaultExpiration)
	}
	return &record, nil
}
