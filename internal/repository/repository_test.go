package repository

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anime-shed/comicvault-grader/internal/storage"
	"github.com/anime-shed/comicvault-grader/pkg/models"
)

// countingStore counts reads hitting the backing store
type countingStore struct {
	storage.BlobStore
	gets atomic.Int32
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets.Add(1)
	return c.BlobStore.Get(ctx, key)
}

func sampleRecord(user, comic string, final float64, at time.Time) *models.GradingRecord {
	return &models.GradingRecord{
		UserID:    user,
		ComicID:   comic,
		Provider:  "fixture",
		CreatedAt: at,
		Result: models.GradingResult{
			Subgrades: models.SubgradeSet{
				models.Corners: 8.4, models.Spine: 8.05, models.Surface: 9, models.Centering: 5.7, models.Color: 8,
			},
			Final:        final,
			Confidence:   0.67,
			Flags:        models.Flags{RestorationSuspected: true},
			OpinionCount: 2,
		},
	}
}

func newStore(t *testing.T) *countingStore {
	t.Helper()
	local, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return &countingStore{BlobStore: local}
}

func TestBlobResultRepository_SaveGet(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store := newStore(t)
	repo := NewBlobResultRepository(store, 0)

	rec := sampleRecord("u1", "c1", 8.1, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	handle, err := repo.Save(ctx, rec)
	rq.NoError(err)
	rq.True(strings.HasSuffix(handle, filepath.Join("users", "u1", "comics", "c1", "analysis", "grading_result.json")), handle)

	got, err := repo.Get(ctx, "u1", "c1")
	rq.NoError(err)
	rq.Equal(8.1, got.Result.Final)
	rq.Equal(8.05, got.Result.Subgrades[models.Spine])
	rq.True(got.Result.Flags.RestorationSuspected)
	rq.True(rec.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.Get(ctx, "u1", "c2")
	rq.ErrorIs(err, ErrGradingNotFound)

	_, err = repo.Get(ctx, "..", "c1")
	rq.ErrorIs(err, ErrGradingNotFound)

	_, err = repo.Save(ctx, &models.GradingRecord{UserID: "u1"})
	rq.ErrorIs(err, ErrInvalidRecord)
}

func TestBlobResultRepository_Cache(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store := newStore(t)

	writer := NewBlobResultRepository(store, 0)
	_, err := writer.Save(ctx, sampleRecord("u1", "c1", 7.5, time.Now()))
	rq.NoError(err)

	cached := NewBlobResultRepository(store, time.Minute)
	for i := 0; i < 3; i++ {
		got, err := cached.Get(ctx, "u1", "c1")
		rq.NoError(err)
		rq.Equal(7.5, got.Result.Final)
		got.Result.Final = 0
	}
	rq.EqualValues(1, store.gets.Load())

	// saved records are served without a read
	_, err = cached.Save(ctx, sampleRecord("u1", "c2", 6.0, time.Now()))
	rq.NoError(err)
	_, err = cached.Get(ctx, "u1", "c2")
	rq.NoError(err)
	rq.EqualValues(1, store.gets.Load())
}

func TestBlobResultRepository_CacheIsolation(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := NewBlobResultRepository(newStore(t), time.Minute)

	rec := sampleRecord("u1", "c1", 8.1, time.Now())
	rec.Result.Postures = []models.Posture{models.PostureStrict, models.PostureLenient}
	_, err := repo.Save(ctx, rec)
	rq.NoError(err)

	// the caller keeps ownership of what it saved
	rec.Result.Subgrades[models.Spine] = 1
	rec.Result.Postures[0] = "mutated"

	got, err := repo.Get(ctx, "u1", "c1")
	rq.NoError(err)
	rq.Equal(8.05, got.Result.Subgrades[models.Spine])
	rq.Equal(models.PostureStrict, got.Result.Postures[0])

	// and readers cannot change the cached entry
	got.Result.Subgrades[models.Corners] = 2
	got.Result.Postures[1] = "mutated"

	again, err := repo.Get(ctx, "u1", "c1")
	rq.NoError(err)
	rq.Equal(8.4, again.Result.Subgrades[models.Corners])
	rq.Equal(models.PostureLenient, again.Result.Postures[1])
}

func TestSQLiteIndex(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	idx, err := OpenSQLiteIndex(filepath.Join(t.TempDir(), "index.db"))
	rq.NoError(err)
	defer idx.Close()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, comic := range []string{"a", "b", "c"} {
		rec := sampleRecord("u1", comic, float64(5+i), base.Add(time.Duration(i)*time.Hour))
		rec.AnalysisPath = "analysis/" + comic
		rq.NoError(idx.Record(ctx, rec.Summary()))
	}
	rq.NoError(idx.Record(ctx, sampleRecord("u2", "z", 9, base).Summary()))

	list, err := idx.ListByUser(ctx, "u1", 0)
	rq.NoError(err)
	rq.Len(list, 3)
	rq.Equal([]string{"c", "b", "a"}, []string{list[0].ComicID, list[1].ComicID, list[2].ComicID})
	rq.Equal(7.0, list[0].Final)
	rq.True(list[0].RestorationSuspected)
	rq.True(base.Add(2 * time.Hour).Equal(list[0].CreatedAt))

	limited, err := idx.ListByUser(ctx, "u1", 2)
	rq.NoError(err)
	rq.Len(limited, 2)

	empty, err := idx.ListByUser(ctx, "nobody", 10)
	rq.NoError(err)
	rq.NotNil(empty)
	rq.Empty(empty)

	// re-grading replaces the row
	again := sampleRecord("u1", "a", 9.5, base.Add(5*time.Hour))
	again.Result.Flags.RestorationSuspected = false
	rq.NoError(idx.Record(ctx, again.Summary()))
	got, err := idx.Get(ctx, "u1", "a")
	rq.NoError(err)
	rq.Equal(9.5, got.Final)
	rq.False(got.RestorationSuspected)

	_, err = idx.Get(ctx, "u1", "missing")
	rq.True(errors.Is(err, ErrGradingNotFound))

	rq.ErrorIs(idx.Record(ctx, models.GradingSummary{UserID: "u1"}), ErrInvalidRecord)
}

func TestSQLiteIndex_InMemory(t *testing.T) {
	rq := require.New(t)
	idx, err := OpenSQLiteIndex(":memory:")
	rq.NoError(err)
	defer idx.Close()

	rq.NoError(idx.Record(context.Background(), sampleRecord("u", "c", 8, time.Time{}).Summary()))
	got, err := idx.Get(context.Background(), "u", "c")
	rq.NoError(err)
	rq.False(got.CreatedAt.IsZero())
}
