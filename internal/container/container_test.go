package container

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anime-shed/comicvault-grader/internal/config"
)

func TestNewContainer(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadFromMap(map[string]string{
		"STORAGE_ROOT": filepath.Join(dir, "blobs"),
		"INDEX_DSN":    filepath.Join(dir, "db", "index.db"),
	})
	if err != nil {
		t.Fatalf("LoadFromMap() error = %v", err)
	}

	c, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}
	defer c.Close()

	if c.ProviderName() != "heuristic" || c.StoreName() != "local" {
		t.Errorf("unexpected wiring: provider=%s store=%s", c.ProviderName(), c.StoreName())
	}
	if c.Service() == nil || c.Config() != cfg {
		t.Error("container did not expose its service and config")
	}

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Errorf("metrics endpoint returned %d", w.Code)
	}

	w = httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/nobody/comics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("history endpoint returned %d: %s", w.Code, w.Body.String())
	}
}

func TestNewContainer_BadFixture(t *testing.T) {
	cfg, err := config.LoadFromMap(map[string]string{
		"OPINION_PROVIDER": "fixture",
		"OPINION_FIXTURE":  filepath.Join(t.TempDir(), "missing.json"),
		"STORAGE_ROOT":     t.TempDir(),
		"INDEX_DSN":        ":memory:",
	})
	if err != nil {
		t.Fatalf("LoadFromMap() error = %v", err)
	}
	if _, err := NewContainer(cfg); err == nil {
		t.Error("expected missing fixture to fail")
	}
}
