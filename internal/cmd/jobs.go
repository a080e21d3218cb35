package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/justrnr500/pathfilter/internal/actions"
	"github.com/justrnr500/pathfilter/internal/artifacts"
	"github.com/justrnr500/pathfilter/internal/changes"
	"github.com/justrnr500/pathfilter/internal/filter"
	"github.com/justrnr500/pathfilter/internal/workflow"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Check which workflow jobs already have artifacts",
	Long: `Work out, for every job of a workflow, the fingerprint of the files it
depends on and whether an artifact for that fingerprint already exists.

Each job is owned by the first filter whose name, read as a regular
expression, matches the job ID. Jobs without a filter are ignored. On push and
workflow_dispatch events every fingerprint is recomputed; otherwise jobs whose
filter did not match the change reuse their cached fingerprint.

Artifacts are looked up as <owner>/<repo>/<job>_<hash>/artifacts.zip.
Outputs jobs=<json> to GITHUB_OUTPUT.

Examples:
  pathfilter jobs --workflow-file .github/workflows/ci.yml --storage-account acct --container builds
  pathfilter jobs --workflow-file ci.yml --artifact-dir /tmp/artifacts --json`,
	RunE: runJobs,
}

var jobsJSON bool

func init() {
	rootCmd.AddCommand(jobsCmd)
	addBaseRefFlag(jobsCmd)
	addHashFlags(jobsCmd)
	addArtifactFlags(jobsCmd)
	jobsCmd.Flags().StringVarP(&flagWorkflowFile, "workflow-file", "w", "", "Workflow whose jobs are checked (env WORKFLOW_FILE)")
	jobsCmd.Flags().BoolVar(&jobsJSON, "json", false, "Print results as JSON instead of writing GitHub outputs")
}

// jobInfo is the artifact state of one workflow job.
type jobInfo struct {
	HashChangedFiles bool   `json:"hash_changed_files"`
	Hash             string `json:"hash"`
	ArtifactKey      string `json:"artifact_key"`
	ArtifactExists   bool   `json:"artifact_exists"`
}

// jobsReport lists job results in workflow order.
type jobsReport struct {
	Order []string
	Jobs  map[string]jobInfo
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := cfg.RequireWorkflow(); err != nil {
		return err
	}
	owner, repoName, ok := changes.SplitRepository(cfg.GitHub.Repository)
	if !ok {
		return fmt.Errorf("GITHUB_REPOSITORY must be owner/repo, got %q", cfg.GitHub.Repository)
	}

	set, err := loadFilters(cfg)
	if err != nil {
		return err
	}
	jobNames, err := workflow.LoadJobs(cfg.WorkflowFile)
	if err != nil {
		return err
	}
	store, err := openArtifactStore(ctx, cfg)
	if err != nil {
		return err
	}

	// nil means unknown: every job is treated as changed.
	var changed []string
	if cfg.RecomputeAll() {
		log.Info("Recomputing all fingerprints", "event", cfg.GitHub.EventName)
	} else {
		changed, _, err = discoverChanges(ctx, cfg, root)
		if err != nil {
			return err
		}
		if changed == nil {
			changed = []string{}
		}
	}

	checker := &jobChecker{
		hasher: &hasher{root: root, excludes: cfg.Exclude, cache: openCache(cfg)},
		store:  store,
		owner:  owner,
		repo:   repoName,
	}
	report, err := checker.check(ctx, set, jobNames, changed)
	if err != nil {
		return err
	}

	if jobsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report.Jobs)
	}

	if err := publishJobs(newSinks(cfg, true), changed, report); err != nil {
		return err
	}
	printJobs(cmd.OutOrStdout(), report)
	return nil
}

// jobChecker resolves fingerprints and artifact keys for workflow jobs.
type jobChecker struct {
	hasher *hasher
	store  artifacts.Store
	owner  string
	repo   string
}

// check evaluates every job in order. changed lists the changed files, or is
// nil when they are unknown.
func (c *jobChecker) check(ctx context.Context, set *filter.Set, jobNames []string, changed []string) (*jobsReport, error) {
	report := &jobsReport{Jobs: map[string]jobInfo{}}
	// A filter owning several jobs is fingerprinted once.
	computed := map[*filter.Filter]string{}

	for _, job := range jobNames {
		f, err := ownerFilter(set, job)
		if err != nil {
			return nil, err
		}
		if f == nil {
			log.Info("No filter for job", "job", job)
			continue
		}

		hasChanges := true
		if changed != nil {
			hasChanges, err = f.Matches(changed)
			if err != nil {
				return nil, err
			}
		}

		hash, err := c.jobHash(f, job, hasChanges, computed)
		if err != nil {
			return nil, err
		}
		if err := c.hasher.cache.Put(job, hash); err != nil {
			return nil, err
		}

		key := artifacts.Key(c.owner, c.repo, job, hash)
		exists, err := c.store.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		log.Info("Checked job", "job", job, "filter", f.Name, "changed", hasChanges, "hash", hash, "artifact", exists)

		report.Order = append(report.Order, job)
		report.Jobs[job] = jobInfo{
			HashChangedFiles: hasChanges,
			Hash:             hash,
			ArtifactKey:      key,
			ArtifactExists:   exists,
		}
	}

	return report, nil
}

func (c *jobChecker) jobHash(f *filter.Filter, job string, hasChanges bool, computed map[*filter.Filter]string) (string, error) {
	if !hasChanges {
		hash, ok, err := c.hasher.cache.Get(job)
		if err != nil {
			return "", err
		}
		if ok {
			log.Debug("Using cached fingerprint", "job", job, "hash", hash)
			return hash, nil
		}
	}

	if hash, ok := computed[f]; ok {
		log.Debug("Fingerprint already computed", "filter", f.Name, "hash", hash)
		return hash, nil
	}
	hash, err := c.hasher.compute(f)
	if err != nil {
		return "", err
	}
	computed[f] = hash
	return hash, nil
}

// ownerFilter returns the first filter whose name matches job, or nil.
func ownerFilter(set *filter.Set, job string) (*filter.Filter, error) {
	for _, f := range set.Filters {
		ok, err := f.MatchesName(job)
		if err != nil {
			return nil, err
		}
		if ok {
			return f, nil
		}
	}
	return nil, nil
}

func publishJobs(s *sinks, changed []string, report *jobsReport) error {
	data, err := json.Marshal(report.Jobs)
	if err != nil {
		return fmt.Errorf("encode jobs: %w", err)
	}
	if err := s.output.Set("jobs", string(data)); err != nil {
		return err
	}

	rows := make([][]string, 0, len(report.Order))
	for _, job := range report.Order {
		info := report.Jobs[job]
		rows = append(rows, []string{
			job,
			strconv.FormatBool(info.HashChangedFiles),
			info.Hash,
			info.ArtifactKey,
			strconv.FormatBool(info.ArtifactExists),
		})
	}

	pretty, err := json.MarshalIndent(report.Jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode jobs: %w", err)
	}

	summary := actions.Heading("Calculate results") +
		actions.ChangedFiles(changed, actions.ChangedFilesLimit) +
		actions.Table([]string{"Job", "Has Changed Files", "Hash", "Artifact Key", "Artifact Exists"}, rows) +
		actions.Details("result JSON", "json", string(pretty))
	return s.summary.Write(summary)
}

func printJobs(w io.Writer, report *jobsReport) {
	for _, job := range report.Order {
		info := report.Jobs[job]
		mark := "✗"
		if info.ArtifactExists {
			mark = "✓"
		}
		fmt.Fprintf(w, "%s %s  %s\n", mark, job, info.ArtifactKey)
	}
}
