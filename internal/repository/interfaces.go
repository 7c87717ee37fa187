package repository

import (
	"context"

	"github.com/anime-shed/comicvault-grader/pkg/models"
)

// ResultRepository stores the analysis document of each graded comic
type ResultRepository interface {
	// Save persists the record and returns the storage handle of the document
	Save(ctx context.Context, record *models.GradingRecord) (string, error)

	// Get retrieves a stored record
	Get(ctx context.Context, userID, comicID string) (*models.GradingRecord, error)
}

// GradingIndex keeps a queryable summary of every grading
type GradingIndex interface {
	// Record inserts or replaces the summary row of a comic
	Record(ctx context.Context, summary models.GradingSummary) error

	// Get returns the summary of one comic
	Get(ctx context.Context, userID, comicID string) (models.GradingSummary, error)

	// ListByUser returns a user's gradings, newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]models.GradingSummary, error)

	Close() error
}
