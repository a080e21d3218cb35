package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/justrnr500/pathfilter/internal/actions"
	"github.com/justrnr500/pathfilter/internal/artifacts"
	"github.com/justrnr500/pathfilter/internal/changes"
	"github.com/justrnr500/pathfilter/internal/config"
	"github.com/justrnr500/pathfilter/internal/filter"
	"github.com/justrnr500/pathfilter/internal/repo"
	"github.com/justrnr500/pathfilter/internal/storage"
)

// Resolved once per invocation by setup.
var (
	cfg  *config.Config
	root string
)

// Flags shared by several commands. Each is bound by the add*Flag helpers.
var (
	flagBaseRef        string
	flagHashDir        string
	flagWorkflowFile   string
	flagStorageAccount string
	flagContainer      string
	flagArtifactDir    string
	flagExclude        []string
)

func addBaseRefFlag(c *cobra.Command) {
	c.Flags().StringVar(&flagBaseRef, "base-ref", "", "Revision to diff against when not in a pull request (env BASE_REF, default origin/main)")
}

func addHashFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagHashDir, "hash-dir", "", "Fingerprint cache directory (env HASH_DIR, default .hashes)")
	c.Flags().StringSliceVar(&flagExclude, "exclude", nil, "Glob of repository paths to leave out of fingerprints (repeatable)")
}

func addArtifactFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagStorageAccount, "storage-account", "", "Azure storage account (env AZURE_STORAGE_ACCOUNT)")
	c.Flags().StringVar(&flagContainer, "container", "", "Azure blob container (env AZURE_STORAGE_CONTAINER)")
	c.Flags().StringVar(&flagArtifactDir, "artifact-dir", "", "Store artifacts in a local directory instead of Azure (env ARTIFACT_DIR)")
}

// lookupEnv reads the process environment; tests replace it.
var lookupEnv config.LookupFunc = os.LookupEnv

// loadConfig resolves the repository root and builds the configuration from,
// in increasing precedence: defaults, .pathfilter.yaml, .env, the
// environment and command-line flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	r, err := resolveRoot(flagRoot)
	if err != nil {
		return nil, err
	}
	root = r

	envPath := flagEnvFile
	if envPath != "" && !filepath.IsAbs(envPath) {
		envPath = filepath.Join(root, envPath)
	}
	if envPath != "" {
		if err := config.LoadDotEnv(envPath); err != nil {
			return nil, err
		}
	}

	c := config.Default()
	if config.Exists(root) {
		c, err = config.Load(filepath.Join(root, config.ConfigFile))
		if err != nil {
			return nil, err
		}
	}
	c.ApplyEnv(lookupEnv)

	flags := cmd.Flags()
	override := func(dst *string, name, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	override(&c.FilterFile, "filter-file", flagFilterFile)
	override(&c.LogLevel, "log-level", flagLogLevel)
	override(&c.BaseRef, "base-ref", flagBaseRef)
	override(&c.HashDir, "hash-dir", flagHashDir)
	override(&c.WorkflowFile, "workflow-file", flagWorkflowFile)
	override(&c.Artifacts.StorageAccount, "storage-account", flagStorageAccount)
	override(&c.Artifacts.Container, "container", flagContainer)
	override(&c.Artifacts.Dir, "artifact-dir", flagArtifactDir)
	if flags.Changed("exclude") {
		c.Exclude = flagExclude
	}

	c.Resolve(root)
	return c, nil
}

// resolveRoot returns the explicit root, else the enclosing repository, else
// the working directory.
func resolveRoot(explicit string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("resolve root: %w", err)
		}
		if !repo.Exists(abs) {
			return "", fmt.Errorf("root %s is not a directory", explicit)
		}
		return abs, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	if r, err := config.FindRoot(cwd); err == nil {
		return r, nil
	}
	log.Debug("No repository found, using working directory", "dir", cwd)
	return cwd, nil
}

// loadFilters validates the configuration and loads the filter file.
func loadFilters(c *config.Config) (*filter.Set, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	set, err := filter.LoadFile(c.FilterFile)
	if err != nil {
		return nil, err
	}
	log.Info("Loaded filters", "file", c.FilterFile, "filters", set.Names())
	return set, nil
}

func changeSources(c *config.Config, root string) []changes.Source {
	return []changes.Source{
		&changes.PullRequestSource{
			Token:      c.GitHub.Token,
			Ref:        c.GitHub.Ref,
			Repository: c.GitHub.Repository,
			APIURL:     c.GitHub.APIURL,
		},
		&changes.GitSource{
			Root:    root,
			BaseRef: c.BaseRef,
		},
	}
}

func discoverChanges(ctx context.Context, c *config.Config, root string) ([]string, string, error) {
	return changes.Discover(ctx, changeSources(c, root)...)
}

func openCache(c *config.Config) *storage.Cache {
	return storage.NewCache(c.HashDir)
}

// openArtifactStore prefers a local artifact directory over Azure.
func openArtifactStore(ctx context.Context, c *config.Config) (artifacts.Store, error) {
	if err := c.RequireArtifacts(); err != nil {
		return nil, err
	}
	if c.Artifacts.Dir != "" {
		log.Debug("Using local artifact store", "dir", c.Artifacts.Dir)
		return &artifacts.DirStore{Root: c.Artifacts.Dir}, nil
	}

	api, err := artifacts.NewAzureBlobAPI(c.Artifacts.StorageAccount)
	if err != nil {
		return nil, err
	}
	return artifacts.NewAzureStore(ctx, api, c.Artifacts.Container)
}

// sinks are the GitHub Actions file commands a command writes to.
type sinks struct {
	output  *actions.FileSink
	env     *actions.FileSink
	summary *actions.Summary
}

// newSinks builds the file command sinks. GITHUB_OUTPUT and GITHUB_ENV are
// required unless results go to stdout instead.
func newSinks(c *config.Config, required bool) *sinks {
	return &sinks{
		output:  actions.NewFileSink("GITHUB_OUTPUT", c.GitHub.Output, required),
		env:     actions.NewFileSink("GITHUB_ENV", c.GitHub.Env, required),
		summary: actions.NewSummary(c.GitHub.StepSummary),
	}
}
