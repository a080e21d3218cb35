package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justrnr500/pathfilter/internal/config"
	"github.com/justrnr500/pathfilter/internal/storage"
)

func validateConfig(t *testing.T, root, filters string) *config.Config {
	t.Helper()
	c := config.Default()
	writeFiles(t, root, map[string]string{c.FilterFile: filters})
	c.Resolve(root)
	return c
}

func findCheck(t *testing.T, checks []CheckResult, prefix string) CheckResult {
	t.Helper()
	for _, c := range checks {
		if strings.HasPrefix(c.Name, prefix) {
			return c
		}
	}
	t.Fatalf("no check named %q in %+v", prefix, checks)
	return CheckResult{}
}

func TestRunChecksAllGood(t *testing.T) {
	root := t.TempDir()
	c := validateConfig(t, root, testFilters)

	checks := runChecks(c, root)
	for _, check := range checks {
		if !check.Passed {
			t.Errorf("%s failed: %v", check.Name, check.Issues)
		}
	}
	if got := findCheck(t, checks, "Filter file loads").Name; got != "Filter file loads (2 filters)" {
		t.Errorf("name = %q", got)
	}
}

func TestRunChecksInvalidPattern(t *testing.T) {
	root := t.TempDir()
	c := validateConfig(t, root, `
- name: broken
  files:
    - src/(
`)

	check := findCheck(t, runChecks(c, root), "All patterns compile")
	if check.Passed {
		t.Fatal("expected pattern check to fail")
	}
	if len(check.Issues) != 1 || !strings.HasPrefix(check.Issues[0], "broken:") {
		t.Errorf("issues = %v", check.Issues)
	}
}

func TestRunChecksBadFilterFile(t *testing.T) {
	root := t.TempDir()
	c := validateConfig(t, root, "name: not-a-list\n")

	checks := runChecks(c, root)
	if findCheck(t, checks, "Filter file loads").Passed {
		t.Error("expected load to fail")
	}
	for _, check := range checks {
		if check.Name == "All patterns compile" {
			t.Error("pattern check should be skipped when the file does not load")
		}
	}
}

func TestCheckConfigValidity(t *testing.T) {
	root := t.TempDir()
	if !checkConfigValidity(root).Passed {
		t.Error("missing config should pass")
	}

	os.WriteFile(filepath.Join(root, config.ConfigFile), []byte("exclude: {"), 0644)
	if checkConfigValidity(root).Passed {
		t.Error("invalid config should fail")
	}
}

func TestCheckCache(t *testing.T) {
	dir := t.TempDir()
	cache := storage.NewCache(dir)
	cache.Put("backend", "abc")

	check := checkCache(cache)
	if !check.Passed || check.Name != "Fingerprint cache readable (1 entries)" {
		t.Errorf("check = %+v", check)
	}
}

func TestCheckWorkflowCoverage(t *testing.T) {
	root := t.TempDir()
	wf := filepath.Join(root, "ci.yml")
	os.WriteFile(wf, []byte("jobs:\n  build-backend: {}\n  lint: {}\n"), 0644)

	set := mustSet(t, `
- name: backend
  files: [src/backend/]
- name: frontend
  files: [src/frontend/]
`)
	check := checkWorkflowCoverage(set, wf)
	if check.Passed {
		t.Fatal("frontend owns no job, expected failure")
	}
	if len(check.Issues) != 1 || !strings.HasPrefix(check.Issues[0], "frontend matches no job") {
		t.Errorf("issues = %v", check.Issues)
	}
}

func TestPrintChecks(t *testing.T) {
	var buf bytes.Buffer
	printChecks(&buf, []CheckResult{
		{Name: "one", Passed: true},
		{Name: "two", Issues: []string{"bad"}},
	})
	if got := buf.String(); got != "✓ one\n✗ two\n    bad\n" {
		t.Errorf("output = %q", got)
	}
}
