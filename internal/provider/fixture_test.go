package provider_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anime-shed/comicvault-grader/internal/grading"
	"github.com/anime-shed/comicvault-grader/internal/provider"
	"github.com/anime-shed/comicvault-grader/pkg/models"
)

const fixtureJSON = `{
  "strict":  {"corners": 7, "spine": 6, "surface": 8, "centering": 5, "color": 7, "pressing_benefit": "low", "notes": "spine stress"},
  "default": {"corners": 9, "spine": 8, "surface": 10, "centering": 7, "color": 9, "restoration_suspected": true, "page_color": "cream"}
}`

func TestLoadFixture(t *testing.T) {
	rq := require.New(t)

	f, err := provider.LoadFixture(strings.NewReader(fixtureJSON))
	rq.NoError(err)

	strict, err := f.RequestOpinion(context.Background(), models.ImagePair{}, models.PostureStrict)
	rq.NoError(err)
	rq.Equal(6.0, strict.Scores[models.Spine])
	rq.Equal(models.PressingLow, strict.PressingBenefit)
	rq.Equal("spine stress", strict.Notes)

	lenient, err := f.RequestOpinion(context.Background(), models.ImagePair{}, models.PostureLenient)
	rq.NoError(err)
	rq.True(lenient.RestorationSuspected)
	rq.Equal(models.PageCream, lenient.PageColor)

	rq.EqualValues(2, f.Calls())
}

func TestLoadFixture_Invalid(t *testing.T) {
	_, err := provider.LoadFixture(strings.NewReader(`[1, 2]`))
	require.Error(t, err)

	_, err = provider.LoadFixture(strings.NewReader(`{}`))
	require.Error(t, err)
}

func TestFixture_MissingPosture(t *testing.T) {
	f := provider.NewFixture(map[models.Posture]models.Opinion{
		models.PostureStrict: provider.DeriveOpinion(5, 5),
	})

	_, err := f.RequestOpinion(context.Background(), models.ImagePair{}, models.PostureLenient)
	require.ErrorIs(t, err, grading.ErrMalformedOpinion)
}

func TestFixture_ErrorAndDelay(t *testing.T) {
	rq := require.New(t)

	boom := errors.New("boom")
	_, err := provider.NewFixture(nil).WithError(boom).RequestOpinion(context.Background(), models.ImagePair{}, models.PostureStrict)
	rq.ErrorIs(err, boom)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = provider.NewFixture(nil).WithDelay(time.Second).RequestOpinion(ctx, models.ImagePair{}, models.PostureStrict)
	rq.ErrorIs(err, context.DeadlineExceeded)
}
