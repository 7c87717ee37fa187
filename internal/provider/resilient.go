package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anime-shed/comicvault-grader/internal/grading"
	"github.com/anime-shed/comicvault-grader/internal/logger"
	"github.com/anime-shed/comicvault-grader/pkg/models"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/sirupsen/logrus"
)

const (
	// MaxRetries bounds how often a failed opinion request is repeated
	MaxRetries = 1

	defaultOpinionTimeout = 60 * time.Second
	defaultRetryDelay     = time.Second
)

// ResilientOptions configures the timeout and retry wrapper
type ResilientOptions struct {
	// Timeout bounds each individual attempt
	Timeout time.Duration
	// Retries is the number of extra attempts, capped at MaxRetries
	Retries int
	// RetryDelay is the pause before a retry
	RetryDelay time.Duration
}

// Resilient wraps a provider with a per-attempt timeout and a bounded retry.
// Attempts that run out of time surface as grading.ErrProviderTimeout.
type Resilient struct {
	inner      grading.OpinionProvider
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
}

// NewResilient wraps inner
func NewResilient(inner grading.OpinionProvider, opts ResilientOptions) *Resilient {
	r := &Resilient{
		inner:      inner,
		timeout:    opts.Timeout,
		retries:    max(0, min(opts.Retries, MaxRetries)),
		retryDelay: opts.RetryDelay,
	}
	if r.timeout <= 0 {
		r.timeout = defaultOpinionTimeout
	}
	if r.retryDelay <= 0 {
		r.retryDelay = defaultRetryDelay
	}
	return r
}

func (r *Resilient) Name() string {
	return r.inner.Name()
}

func (r *Resilient) RequestOpinion(ctx context.Context, images models.ImagePair, posture models.Posture) (models.Opinion, error) {
	t := timeout.New[models.Opinion](timeout.Config{
		DefaultTimeout: r.timeout,
	})

	attempts := 0
	var lastErr error
	attempt := func(ctx context.Context) (models.Opinion, error) {
		attempts++
		start := time.Now()
		op, err := t.Execute(ctx, r.timeout, func(ctx context.Context) (models.Opinion, error) {
			return r.inner.RequestOpinion(ctx, images, posture)
		})
		if err == nil {
			return op, nil
		}
		if errors.Is(err, context.Canceled) {
			lastErr = err
			return models.Opinion{}, err
		}
		if attempts <= r.retries {
			logger.WithError(err).WithFields(logrus.Fields{
				"provider": r.inner.Name(),
				"posture":  posture,
				"attempt":  attempts,
			}).Warn("Opinion request failed, retrying")
		}
		if !errors.Is(err, grading.ErrMalformedOpinion) && !errors.Is(err, grading.ErrProviderTimeout) &&
			(errors.Is(err, context.DeadlineExceeded) || time.Since(start) >= r.timeout) {
			err = fmt.Errorf("%w after %s: %v", grading.ErrProviderTimeout, r.timeout, err)
		}
		lastErr = err
		return models.Opinion{}, err
	}

	if r.retries == 0 {
		return attempt(ctx)
	}

	rt := retry.New[models.Opinion](retry.Config{
		MaxAttempts:   1 + r.retries,
		InitialDelay:  r.retryDelay,
		BackoffPolicy: retry.BackoffExponential,
	})
	op, err := rt.Do(ctx, attempt)
	if err != nil && lastErr != nil {
		// keep the classified attempt error rather than the retry summary
		return models.Opinion{}, lastErr
	}
	return op, err
}
