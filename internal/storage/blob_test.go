package storage

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLocationLayout(t *testing.T) {
	loc, err := NewLocation("user-1", "comic-9")
	if err != nil {
		t.Fatalf("NewLocation() error = %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"prefix", loc.Prefix(), "users/user-1/comics/comic-9"},
		{"original front", loc.Original(Front, "scan.png"), "users/user-1/comics/comic-9/original/front_scan.png"},
		{"original back default", loc.Original(Back, ""), "users/user-1/comics/comic-9/original/back_back.jpg"},
		{"processed", loc.Processed(Front), "users/user-1/comics/comic-9/processed/front.jpg"},
		{"analysis", loc.Analysis(), "users/user-1/comics/comic-9/analysis/grading_result.json"},
		{"report", loc.Report(), "users/user-1/comics/comic-9/reports/grading_report.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestNewLocation_Invalid(t *testing.T) {
	tests := []struct {
		user, comic string
	}{
		{"", "c"},
		{"u", ""},
		{"..", "c"},
		{"u/../x", "c"},
		{"u", `c\d`},
		{"u\x00", "c"},
		{strings.Repeat("u", maxSegmentLength+1), "c"},
	}
	for _, tt := range tests {
		if _, err := NewLocation(tt.user, tt.comic); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("NewLocation(%q, %q) error = %v, want ErrInvalidKey", tt.user, tt.comic, err)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"front.jpg", "front.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\photos\my cover.png`, "my_cover.png"},
		{"", "fallback.jpg"},
		{"..", "fallback.jpg"},
		{"...", "fallback.jpg"},
		{"  spaced.jpg  ", "spaced.jpg"},
		{strings.Repeat("a", 200) + ".png", strings.Repeat("a", maxSegmentLength-4) + ".png"},
		{"é" + strings.Repeat("a", maxSegmentLength-1), strings.Repeat("a", maxSegmentLength-1)},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in, "fallback.jpg"); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLocationOriginal_LongFilename(t *testing.T) {
	loc, err := NewLocation("user-1", "comic-9")
	if err != nil {
		t.Fatalf("NewLocation() error = %v", err)
	}

	names := []string{
		strings.Repeat("x", 129) + ".jpg",
		strings.Repeat("é", 100) + ".jpg",
		strings.Repeat("界", 60) + ".png",
	}
	for _, name := range names {
		for _, side := range []Side{Front, Back} {
			key := loc.Original(side, name)
			if err := validateKey(key); err != nil {
				t.Errorf("Original(%s, %d-byte name) = %q: %v", side, len(name), key, err)
			}
			base := path.Base(key)
			if !strings.HasPrefix(base, string(side)+"_") {
				t.Errorf("Original(%s) lost its side prefix: %q", side, base)
			}
			if path.Ext(base) != path.Ext(name) {
				t.Errorf("Original(%s) lost the extension: %q", side, base)
			}
			if !utf8.ValidString(base) {
				t.Errorf("Original(%s) split a rune: %q", side, base)
			}
		}
	}
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	key := "users/u/comics/c/analysis/grading_result.json"
	handle, err := store.Put(ctx, key, []byte(`{"final":8.1}`), "application/json")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if handle != filepath.Join(store.Root(), filepath.FromSlash(key)) {
		t.Errorf("Put() handle = %q", handle)
	}
	if _, err := os.Stat(handle); err != nil {
		t.Errorf("stored file missing: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"final":8.1}` {
		t.Errorf("Get() = %s", got)
	}

	// overwrite in place
	if _, err := store.Put(ctx, key, []byte("{}"), ""); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}
	got, _ = store.Get(ctx, key)
	if string(got) != "{}" {
		t.Errorf("Get() after overwrite = %s", got)
	}

	entries, _ := os.ReadDir(filepath.Dir(handle))
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestLocalStore_Errors(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	if _, err := store.Get(ctx, "users/u/comics/missing/analysis/grading_result.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() missing error = %v, want ErrNotFound", err)
	}

	for _, key := range []string{"", "/abs/path", "users/../../escape", "a//b"} {
		if _, err := store.Put(ctx, key, []byte("x"), ""); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := store.Put(canceled, "a/b", []byte("x"), ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Put() with canceled context error = %v", err)
	}
}
