package provider

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/anime-shed/comicvault-grader/internal/grading"
	"github.com/anime-shed/comicvault-grader/pkg/models"
)

// DefaultFixtureKey selects the opinion used for postures without their own entry
const DefaultFixtureKey models.Posture = "default"

// Fixture replays canned opinions. It backs tests and offline CLI runs.
type Fixture struct {
	opinions map[models.Posture]models.Opinion
	err      error
	delay    time.Duration
	calls    atomic.Int64
}

// NewFixture creates a fixture provider answering from opinions
func NewFixture(opinions map[models.Posture]models.Opinion) *Fixture {
	return &Fixture{opinions: opinions}
}

// LoadFixture reads a JSON object keyed by posture (or "default")
func LoadFixture(r io.Reader) (*Fixture, error) {
	var opinions map[models.Posture]models.Opinion
	if err := json.NewDecoder(r).Decode(&opinions); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	if len(opinions) == 0 {
		return nil, fmt.Errorf("fixture holds no opinions")
	}
	return NewFixture(opinions), nil
}

// WithError makes every request fail with err
func (f *Fixture) WithError(err error) *Fixture {
	f.err = err
	return f
}

// WithDelay makes every request wait d before answering
func (f *Fixture) WithDelay(d time.Duration) *Fixture {
	f.delay = d
	return f
}

// Calls reports how many opinions have been requested
func (f *Fixture) Calls() int64 {
	return f.calls.Load()
}

func (f *Fixture) Name() string {
	return "fixture"
}

func (f *Fixture) RequestOpinion(ctx context.Context, _ models.ImagePair, posture models.Posture) (models.Opinion, error) {
	f.calls.Add(1)

	if f.delay > 0 {
		timer := time.NewTimer(f.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return models.Opinion{}, ctx.Err()
		}
	}
	if f.err != nil {
		return models.Opinion{}, f.err
	}

	if op, ok := f.opinions[posture]; ok {
		return op, nil
	}
	if op, ok := f.opinions[DefaultFixtureKey]; ok {
		return op, nil
	}
	return models.Opinion{}, fmt.Errorf("%w: no fixture for posture %q", grading.ErrMalformedOpinion, posture)
}
