package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/justrnr500/pathfilter/internal/actions"
	"github.com/justrnr500/pathfilter/internal/changes"
	"github.com/justrnr500/pathfilter/internal/config"
)

func TestResolveRootExplicit(t *testing.T) {
	dir := t.TempDir()
	got, err := resolveRoot(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Errorf("resolveRoot() = %q, want %q", got, dir)
	}

	if _, err := resolveRoot(filepath.Join(dir, "missing")); err == nil {
		t.Error("missing root should fail")
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte("filter_file: from-config.yaml\nbase_ref: origin/config\n"), 0644)

	oldRoot, oldLookup, oldEnvFile := flagRoot, lookupEnv, flagEnvFile
	t.Cleanup(func() { flagRoot, lookupEnv, flagEnvFile = oldRoot, oldLookup, oldEnvFile })
	flagRoot, flagEnvFile = dir, ""
	lookupEnv = envMap(map[string]string{
		"BASE_REF":          "origin/env",
		"GITHUB_REPOSITORY": "octo/widgets",
	})

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&flagBaseRef, "base-ref", "", "")
	if err := cmd.Flags().Set("base-ref", "origin/flag"); err != nil {
		t.Fatal(err)
	}

	c, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if c.FilterFile != filepath.Join(dir, "from-config.yaml") {
		t.Errorf("FilterFile = %q", c.FilterFile)
	}
	if c.BaseRef != "origin/flag" {
		t.Errorf("BaseRef = %q, flag should win", c.BaseRef)
	}
	if c.GitHub.Repository != "octo/widgets" {
		t.Errorf("Repository = %q", c.GitHub.Repository)
	}
	if c.HashDir != filepath.Join(dir, config.DefaultHashDir) {
		t.Errorf("HashDir = %q", c.HashDir)
	}
}

func TestChangeSourcesOrder(t *testing.T) {
	c := config.Default()
	c.GitHub.Token = "tok"
	sources := changeSources(c, "/repo")
	if len(sources) != 2 {
		t.Fatalf("got %d sources", len(sources))
	}
	if _, ok := sources[0].(*changes.PullRequestSource); !ok {
		t.Errorf("first source = %T, want pull request", sources[0])
	}
	git, ok := sources[1].(*changes.GitSource)
	if !ok || git.BaseRef != config.DefaultBaseRef || git.Root != "/repo" {
		t.Errorf("second source = %+v", sources[1])
	}
}

func TestNewSinksRequired(t *testing.T) {
	c := config.Default()
	s := newSinks(c, true)
	if err := s.output.Set("a", "b"); !errors.Is(err, actions.ErrSinkNotConfigured) {
		t.Errorf("Set() error = %v, want ErrSinkNotConfigured", err)
	}
	if err := s.summary.Write("x"); err != nil {
		t.Errorf("summary without a path should be a no-op: %v", err)
	}

	if err := newSinks(c, false).env.Set("a", "b"); err != nil {
		t.Errorf("optional sink error: %v", err)
	}
}

func TestSetupLogging(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		if err := setupLogging(level); err != nil {
			t.Errorf("setupLogging(%q) error: %v", level, err)
		}
	}
	if err := setupLogging("chatty"); err == nil {
		t.Error("unknown level should fail")
	}
	setupLogging("info")
}
