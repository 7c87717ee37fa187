package grading

import (
	"context"
	"errors"

	"github.com/anime-shed/comicvault-grader/pkg/models"
)

var (
	// ErrMalformedOpinion indicates a provider response that is not a usable opinion
	ErrMalformedOpinion = errors.New("malformed opinion")

	// ErrProviderTimeout indicates a provider that did not answer within its deadline
	ErrProviderTimeout = errors.New("opinion provider timed out")

	// ErrNoPostures indicates an aggregator configured with an empty ensemble
	ErrNoPostures = errors.New("at least one posture is required")

	// ErrNoOpinions indicates aggregation over an empty opinion list
	ErrNoOpinions = errors.New("at least one opinion is required")
)

// OpinionProvider produces one raw opinion for an image pair.
// Implementations must be safe for concurrent use and must honour ctx.
type OpinionProvider interface {
	// RequestOpinion grades the pair under the given posture
	RequestOpinion(ctx context.Context, images models.ImagePair, posture models.Posture) (models.Opinion, error)

	// Name identifies the provider in logs and metrics
	Name() string
}

// OpinionEvent reports the outcome of a single opinion request
type OpinionEvent struct {
	Provider string
	Posture  models.Posture
	Err      error
}
