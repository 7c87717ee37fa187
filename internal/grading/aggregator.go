package grading

import (
	"context"
	"errors"
	"fmt"

	"github.com/anime-shed/comicvault-grader/pkg/models"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// AggregatorOptions configures an Aggregator
type AggregatorOptions struct {
	// Postures lists the independent opinions to request, one per entry, in merge order
	Postures []models.Posture

	// OnOpinion, when set, is called once per finished opinion request.
	// Requests abandoned through cancellation are not reported.
	OnOpinion func(ctx context.Context, event OpinionEvent)
}

// DefaultAggregatorOptions requests a strict and a lenient opinion
func DefaultAggregatorOptions() AggregatorOptions {
	return AggregatorOptions{
		Postures: models.DefaultPostures(),
	}
}

// Aggregator turns an ensemble of provider opinions into one GradingResult.
// It holds no mutable state and may be shared between goroutines.
type Aggregator struct {
	postures  []models.Posture
	onOpinion func(ctx context.Context, event OpinionEvent)
}

// NewAggregator creates an aggregator from options
func NewAggregator(opts AggregatorOptions) (*Aggregator, error) {
	if len(opts.Postures) == 0 {
		return nil, ErrNoPostures
	}
	return &Aggregator{
		postures:  append([]models.Posture(nil), opts.Postures...),
		onOpinion: opts.OnOpinion,
	}, nil
}

// Postures returns the configured ensemble in merge order
func (a *Aggregator) Postures() []models.Posture {
	return append([]models.Posture(nil), a.postures...)
}

// Grade requests one opinion per posture concurrently and aggregates them.
// The call is all-or-nothing: if any opinion fails, no result is returned and
// the error wraps ErrProviderTimeout or ErrMalformedOpinion, or context.Canceled
// when ctx is canceled first.
func (a *Aggregator) Grade(ctx context.Context, images models.ImagePair, provider OpinionProvider) (*models.GradingResult, error) {
	opinions := make([]models.Opinion, len(a.postures))

	g, gctx := errgroup.WithContext(ctx)
	for i, posture := range a.postures {
		g.Go(func() error {
			op, err := provider.RequestOpinion(gctx, images, posture)
			if err == nil {
				err = ValidateOpinion(op)
			}
			if err != nil {
				err = classify(err)
			}
			// canceled requests come from the caller or from a failed sibling
			if a.onOpinion != nil && !errors.Is(err, context.Canceled) {
				a.onOpinion(ctx, OpinionEvent{Provider: provider.Name(), Posture: posture, Err: err})
			}
			if err != nil {
				return fmt.Errorf("%s opinion from %s: %w", posture, provider.Name(), err)
			}
			opinions[i] = op
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result, err := Aggregate(opinions)
	if err != nil {
		return nil, err
	}
	result.Postures = a.Postures()
	return result, nil
}

// Aggregate averages the raw opinions per dimension, normalizes the average
// once, measures agreement across the raw opinions and merges their
// qualitative fields. Booleans are OR-ed; enums and notes take the first
// non-empty value in list order.
func Aggregate(opinions []models.Opinion) (*models.GradingResult, error) {
	if len(opinions) == 0 {
		return nil, ErrNoOpinions
	}

	raw := lo.Map(opinions, func(o models.Opinion, _ int) models.SubgradeSet { return o.Scores })

	averaged := make(models.SubgradeSet, len(models.Dimensions))
	for _, d := range models.Dimensions {
		var sum float64
		for _, s := range raw {
			sum += s.Value(d)
		}
		averaged[d] = sum / float64(len(raw))
	}

	normalized := Normalize(averaged)

	return &models.GradingResult{
		Subgrades:  normalized.Subgrades,
		Final:      normalized.Final,
		Confidence: ConfidenceOf(raw),
		Flags: models.Flags{
			RestorationSuspected: lo.SomeBy(opinions, func(o models.Opinion) bool { return o.RestorationSuspected }),
			PressingBenefit: lo.CoalesceOrEmpty(lo.Map(opinions, func(o models.Opinion, _ int) models.PressingBenefit {
				return o.PressingBenefit
			})...),
			PageColor: lo.CoalesceOrEmpty(lo.Map(opinions, func(o models.Opinion, _ int) models.PageColor {
				return o.PageColor
			})...),
		},
		Notes:        lo.CoalesceOrEmpty(lo.Map(opinions, func(o models.Opinion, _ int) string { return o.Notes })...),
		OpinionCount: len(opinions),
	}, nil
}

// classify maps a provider failure onto one of the two opinion error kinds.
// Cancellation is not a provider failure and passes through unchanged.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrProviderTimeout), errors.Is(err, ErrMalformedOpinion), errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedOpinion, err)
	}
}
