package repository

import "errors"

var (
	// ErrGradingNotFound indicates no grading is stored for the comic
	ErrGradingNotFound = errors.New("grading not found")

	// ErrInvalidRecord indicates a record that is missing its identifiers
	ErrInvalidRecord = errors.New("invalid grading record")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
