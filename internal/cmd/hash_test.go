package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justrnr500/pathfilter/internal/config"
	"github.com/justrnr500/pathfilter/internal/filter"
	"github.com/justrnr500/pathfilter/internal/storage"
)

func envMap(m map[string]string) config.LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func newTestHasher(t *testing.T) (*hasher, string) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/backend/main.go":   "package main",
		"src/frontend/app.ts":   "export {}",
		"node_modules/x/y.js":   "ignored",
		".hashes/placeholder.x": "",
	})
	return &hasher{
		root:     root,
		excludes: []string{"node_modules/**"},
		cache:    storage.NewCache(filepath.Join(root, ".hashes")),
	}, root
}

func TestHashFiltersUsesCacheWhenUnchanged(t *testing.T) {
	h, _ := newTestHasher(t)
	set := mustSet(t, testFilters)

	if err := h.cache.Put("backend", "cached-backend"); err != nil {
		t.Fatal(err)
	}

	results, err := h.hashFilters(set, false, envMap(map[string]string{
		"FILTER_BACKEND":  "false",
		"FILTER_FRONTEND": "True",
	}))
	if err != nil {
		t.Fatalf("hashFilters() error: %v", err)
	}

	if !results[0].Cached || results[0].Hash != "cached-backend" {
		t.Errorf("backend = %+v, want cached value", results[0])
	}
	if results[1].Cached {
		t.Error("frontend changed and should be recomputed")
	}

	fp := &filter.Fingerprinter{Root: h.root, Missing: filter.MissingFail}
	want, err := fp.Fingerprint(set.Filters[1], []string{"src/frontend/app.ts"})
	if err != nil {
		t.Fatal(err)
	}
	if results[1].Hash != want {
		t.Errorf("frontend hash = %s, want %s", results[1].Hash, want)
	}

	cached, ok, err := h.cache.Get("frontend")
	if err != nil || !ok || cached != want {
		t.Errorf("frontend not persisted: %q %v %v", cached, ok, err)
	}
}

func TestHashFiltersComputesWhenNotCached(t *testing.T) {
	h, _ := newTestHasher(t)
	set := mustSet(t, testFilters)

	results, err := h.hashFilters(set, false, envMap(map[string]string{
		"FILTER_BACKEND":  "false",
		"FILTER_FRONTEND": "false",
	}))
	if err != nil {
		t.Fatalf("hashFilters() error: %v", err)
	}
	for _, r := range results {
		if r.Cached {
			t.Errorf("%s: nothing was cached yet", r.Name)
		}
		if r.Hash == "" || r.Hash == filter.EmptyFingerprint {
			t.Errorf("%s: hash = %q", r.Name, r.Hash)
		}
	}
	if !h.listed {
		t.Error("repository should have been walked")
	}
}

func TestHashFiltersAllIgnoresFlags(t *testing.T) {
	h, _ := newTestHasher(t)
	set := mustSet(t, testFilters)
	if err := h.cache.Put("backend", "stale"); err != nil {
		t.Fatal(err)
	}

	results, err := h.hashFilters(set, true, envMap(nil))
	if err != nil {
		t.Fatalf("hashFilters() error: %v", err)
	}
	if results[0].Hash == "stale" || results[0].Cached {
		t.Errorf("--all should recompute, got %+v", results[0])
	}
}

func TestHashFiltersMissingFlag(t *testing.T) {
	h, _ := newTestHasher(t)
	set := mustSet(t, testFilters)

	_, err := h.hashFilters(set, false, envMap(map[string]string{"FILTER_BACKEND": "true"}))
	if !errors.Is(err, config.ErrMissing) {
		t.Fatalf("hashFilters() error = %v, want ErrMissing", err)
	}
	if !strings.Contains(err.Error(), "FILTER_FRONTEND") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestHashFiltersExcludes(t *testing.T) {
	h, _ := newTestHasher(t)
	set := mustSet(t, `
- name: everything
  files:
    - .*
`)

	results, err := h.hashFilters(set, true, envMap(nil))
	if err != nil {
		t.Fatal(err)
	}

	fp := &filter.Fingerprinter{Root: h.root, Missing: filter.MissingFail}
	want, err := fp.Fingerprint(set.Filters[0], []string{
		".hashes/placeholder.x",
		"src/backend/main.go",
		"src/frontend/app.ts",
	})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Hash != want {
		t.Errorf("hash = %s, want %s (node_modules excluded)", results[0].Hash, want)
	}
}

func TestHashFiltersSymlinkedDirectory(t *testing.T) {
	h, root := newTestHasher(t)
	if err := os.Symlink("backend", filepath.Join(root, "src", "backend-link")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	set := mustSet(t, `
- name: src
  files:
    - src/
`)

	results, err := h.hashFilters(set, true, envMap(nil))
	if err != nil {
		t.Fatalf("hashFilters() error: %v", err)
	}

	fp := &filter.Fingerprinter{Root: root, Missing: filter.MissingFail}
	want, err := fp.Fingerprint(set.Filters[0], []string{"src/backend/main.go", "src/frontend/app.ts"})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Hash != want {
		t.Errorf("hash = %s, want %s (linked directory not followed)", results[0].Hash, want)
	}
}

func TestPrintHashes(t *testing.T) {
	var buf bytes.Buffer
	printHashes(&buf, []hashResult{
		{Name: "backend", Hash: "abc", Cached: true},
		{Name: "frontend", Hash: "def"},
	})
	got := buf.String()
	if !strings.Contains(got, "✓ backend  abc (cached)") || !strings.Contains(got, "✓ frontend  def") {
		t.Errorf("unexpected output:\n%s", got)
	}
}
