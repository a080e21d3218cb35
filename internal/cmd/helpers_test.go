package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/justrnr500/pathfilter/internal/actions"
	"github.com/justrnr500/pathfilter/internal/filter"
)

func mustSet(t *testing.T, doc string) *filter.Set {
	t.Helper()
	set, err := filter.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse filters: %v", err)
	}
	return set
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// testSinks writes file commands into a temp dir.
type testSinks struct {
	*sinks
	output, env, summary string
}

func newTestSinks(t *testing.T) *testSinks {
	t.Helper()
	dir := t.TempDir()
	ts := &testSinks{
		output:  filepath.Join(dir, "output"),
		env:     filepath.Join(dir, "env"),
		summary: filepath.Join(dir, "summary.md"),
	}
	ts.sinks = &sinks{
		output:  actions.NewFileSink("GITHUB_OUTPUT", ts.output, true),
		env:     actions.NewFileSink("GITHUB_ENV", ts.env, true),
		summary: actions.NewSummary(ts.summary),
	}
	return ts
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
