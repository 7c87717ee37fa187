package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrNotFound indicates that no object exists under the requested key
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey indicates a key or key segment that would escape the layout
	ErrInvalidKey = errors.New("invalid storage key")
)

// BlobStore persists opaque objects under slash-separated keys
type BlobStore interface {
	// Put stores data under key and returns a handle describing where it landed
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Get returns the object stored under key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Name identifies the backend in logs
	Name() string
}

// Side names one face of the graded item
type Side string

const (
	Front Side = "front"
	Back  Side = "back"
)

const maxSegmentLength = 128

// Location is the per-comic key prefix users/<user>/comics/<comic>
type Location struct {
	UserID  string
	ComicID string
}

// NewLocation validates both ids as single path segments
func NewLocation(userID, comicID string) (Location, error) {
	if err := ValidateSegment(userID); err != nil {
		return Location{}, fmt.Errorf("user id: %w", err)
	}
	if err := ValidateSegment(comicID); err != nil {
		return Location{}, fmt.Errorf("comic id: %w", err)
	}
	return Location{UserID: userID, ComicID: comicID}, nil
}

// Prefix returns the directory holding every artifact of the comic
func (l Location) Prefix() string {
	return path.Join("users", l.UserID, "comics", l.ComicID)
}

// Original is the key of an uploaded photograph, kept under its client filename.
// Long names keep their tail so the side prefix and extension both fit one segment.
func (l Location) Original(side Side, filename string) string {
	prefix := string(side) + "_"
	name := trimToBytes(SanitizeFilename(filename, string(side)+".jpg"), maxSegmentLength-len(prefix))
	return path.Join(l.Prefix(), "original", prefix+name)
}

// Processed is the key of the preprocessed photograph that was graded
func (l Location) Processed(side Side) string {
	return path.Join(l.Prefix(), "processed", string(side)+".jpg")
}

// Analysis is the key of the stored grading result document
func (l Location) Analysis() string {
	return path.Join(l.Prefix(), "analysis", "grading_result.json")
}

// Report is the key of the rendered PDF report
func (l Location) Report() string {
	return path.Join(l.Prefix(), "reports", "grading_report.pdf")
}

// ValidateSegment rejects ids that are empty, too long, contain separators
// or control characters, or are relative path elements
func ValidateSegment(s string) error {
	switch {
	case s == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case len(s) > maxSegmentLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidKey, maxSegmentLength)
	case s == "." || s == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKey, s)
	case strings.ContainsAny(s, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, s)
	case strings.IndexFunc(s, unicode.IsControl) >= 0:
		return fmt.Errorf("%w: contains control characters", ErrInvalidKey)
	}
	return nil
}

// SanitizeFilename reduces a client supplied name to a safe base name
func SanitizeFilename(name, fallback string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._-", r) {
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." || name == ".." || name == "/" || strings.Trim(name, "._") == "" {
		return fallback
	}
	return trimToBytes(name, maxSegmentLength)
}

// trimToBytes keeps the last limit bytes of s without splitting a rune
func trimToBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	s = s[len(s)-limit:]
	for len(s) > 0 && !utf8.RuneStart(s[0]) {
		s = s[1:]
	}
	return s
}

// validateKey checks every segment of a slash-separated key
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if err := ValidateSegment(seg); err != nil {
			return err
		}
	}
	return nil
}
