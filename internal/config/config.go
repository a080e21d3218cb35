// Package config handles pathfilter configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFile is the name of the optional repository config file.
	ConfigFile = ".pathfilter.yaml"
	// EnvFile is the name of the dotenv file loaded at startup.
	EnvFile = ".env"
	// GitDir marks a repository root.
	GitDir = ".git"
	// DefaultFilterFile is where filter definitions live unless configured.
	DefaultFilterFile = ".github/path-filters.yaml"
	// DefaultBaseRef is the revision changes are compared against.
	DefaultBaseRef = "origin/main"
	// DefaultHashDir is the fingerprint cache directory.
	DefaultHashDir = ".hashes"
	// GitIgnoreFile is the name of the gitignore file.
	GitIgnoreFile = ".gitignore"
)

// ErrMissing is returned when a required setting has no value.
var ErrMissing = errors.New("missing required setting")

// Config represents the pathfilter configuration.
type Config struct {
	FilterFile   string          `yaml:"filter_file"`
	WorkflowFile string          `yaml:"workflow_file,omitempty"`
	BaseRef      string          `yaml:"base_ref"`
	HashDir      string          `yaml:"hash_dir"`
	Exclude      []string        `yaml:"exclude,omitempty"`
	LogLevel     string          `yaml:"log_level,omitempty"`
	Artifacts    ArtifactsConfig `yaml:"artifacts,omitempty"`

	// GitHub is only ever read from the environment.
	GitHub GitHubConfig `yaml:"-"`
}

// ArtifactsConfig selects where job artifacts are stored.
type ArtifactsConfig struct {
	StorageAccount string `yaml:"storage_account,omitempty"`
	Container      string `yaml:"container,omitempty"`
	// Dir stores artifacts on the local filesystem instead of Azure.
	Dir string `yaml:"dir,omitempty"`
}

// GitHubConfig holds the GitHub Actions runtime environment.
type GitHubConfig struct {
	Token       string
	Ref         string
	Repository  string
	EventName   string
	APIURL      string
	Output      string
	Env         string
	StepSummary string
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		FilterFile: DefaultFilterFile,
		BaseRef:    DefaultBaseRef,
		HashDir:    DefaultHashDir,
		LogLevel:   "info",
	}
}

// Load reads the configuration from a file. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// LookupFunc reads one environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(&c.FilterFile, "FILTER_FILE")
	set(&c.WorkflowFile, "WORKFLOW_FILE")
	set(&c.BaseRef, "BASE_REF")
	set(&c.HashDir, "HASH_DIR")
	set(&c.LogLevel, "PATHFILTER_LOG_LEVEL")
	set(&c.Artifacts.StorageAccount, "AZURE_STORAGE_ACCOUNT")
	set(&c.Artifacts.Container, "AZURE_STORAGE_CONTAINER")
	set(&c.Artifacts.Dir, "ARTIFACT_DIR")

	set(&c.GitHub.Token, "GITHUB_TOKEN")
	set(&c.GitHub.Ref, "GITHUB_REF")
	set(&c.GitHub.Repository, "GITHUB_REPOSITORY")
	set(&c.GitHub.EventName, "GITHUB_EVENT_NAME")
	set(&c.GitHub.APIURL, "GITHUB_API_URL")
	set(&c.GitHub.Output, "GITHUB_OUTPUT")
	set(&c.GitHub.Env, "GITHUB_ENV")
	set(&c.GitHub.StepSummary, "GITHUB_STEP_SUMMARY")
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.FilterFile == "" {
		return fmt.Errorf("%w: filter file (--filter-file or FILTER_FILE)", ErrMissing)
	}
	if c.HashDir == "" {
		return fmt.Errorf("%w: hash directory (--hash-dir or HASH_DIR)", ErrMissing)
	}
	return nil
}

// RequireWorkflow checks the workflow file is configured.
func (c *Config) RequireWorkflow() error {
	if c.WorkflowFile == "" {
		return fmt.Errorf("%w: workflow file (--workflow-file or WORKFLOW_FILE)", ErrMissing)
	}
	return nil
}

// RequireArtifacts checks an artifact store is configured.
func (c *Config) RequireArtifacts() error {
	if c.Artifacts.Dir != "" {
		return nil
	}
	if c.Artifacts.StorageAccount == "" {
		return fmt.Errorf("%w: storage account (--storage-account or AZURE_STORAGE_ACCOUNT)", ErrMissing)
	}
	if c.Artifacts.Container == "" {
		return fmt.Errorf("%w: container (--container or AZURE_STORAGE_CONTAINER)", ErrMissing)
	}
	return nil
}

// RecomputeAll reports whether the triggering event invalidates every
// cached fingerprint, as after a merge or a manual run.
func (c *Config) RecomputeAll() bool {
	switch c.GitHub.EventName {
	case "push", "workflow_dispatch":
		return true
	}
	return false
}

// Resolve makes relative file settings relative to root.
func (c *Config) Resolve(root string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(root, filepath.FromSlash(p))
	}
	c.FilterFile = abs(c.FilterFile)
	c.WorkflowFile = abs(c.WorkflowFile)
	c.HashDir = abs(c.HashDir)
	c.Artifacts.Dir = abs(c.Artifacts.Dir)
}

// LoadDotEnv loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// FlagKey is the environment variable carrying a filter's changed flag
// between steps. filterKey is the filter's Key, e.g. BACKEND gives
// FILTER_BACKEND.
func FlagKey(filterKey string) string {
	return "FILTER_" + filterKey
}

// FindRoot searches for a .git entry starting from the given path
// and walking up the directory tree.
func FindRoot(startPath string) (string, error) {
	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	current := absPath
	for {
		// .git is a file in worktrees and submodules.
		if _, err := os.Stat(filepath.Join(current, GitDir)); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("not a git repository (or any parent): %s", startPath)
		}
		current = parent
	}
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ConfigFile))
	return err == nil && !info.IsDir()
}
