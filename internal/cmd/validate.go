package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/justrnr500/pathfilter/internal/config"
	"github.com/justrnr500/pathfilter/internal/filter"
	"github.com/justrnr500/pathfilter/internal/storage"
	"github.com/justrnr500/pathfilter/internal/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check filter definitions",
	Long: `Run checks on the filter file and related settings.

Checks:
  - Config valid (.pathfilter.yaml parses, if present)
  - Filter file loads (structure, required fields, unique names)
  - All patterns compile
  - Fingerprint cache readable
  - Every filter owns a workflow job (only with --workflow-file)`,
	Aliases: []string{"doctor"},
	RunE:    runValidate,
}

var validateJSON bool

func init() {
	rootCmd.AddCommand(validateCmd)
	addHashFlags(validateCmd)
	validateCmd.Flags().StringVarP(&flagWorkflowFile, "workflow-file", "w", "", "Also check filters against this workflow's jobs (env WORKFLOW_FILE)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output as JSON")
}

// CheckResult represents the result of a single check.
type CheckResult struct {
	Name   string   `json:"name"`
	Passed bool     `json:"passed"`
	Issues []string `json:"issues,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	checks := runChecks(cfg, root)

	if validateJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(checks); err != nil {
			return err
		}
	} else {
		printChecks(cmd.OutOrStdout(), checks)
	}

	for _, c := range checks {
		if !c.Passed {
			return fmt.Errorf("some checks failed")
		}
	}
	return nil
}

func runChecks(c *config.Config, root string) []CheckResult {
	checks := []CheckResult{checkConfigValidity(root)}

	set, load := checkFilterFile(c)
	checks = append(checks, load)
	if set != nil {
		checks = append(checks, checkPatterns(set))
	}

	checks = append(checks, checkCache(storage.NewCache(c.HashDir)))

	if c.WorkflowFile != "" && set != nil {
		checks = append(checks, checkWorkflowCoverage(set, c.WorkflowFile))
	}
	return checks
}

func printChecks(w io.Writer, checks []CheckResult) {
	for _, c := range checks {
		if c.Passed {
			fmt.Fprintf(w, "✓ %s\n", c.Name)
		} else {
			fmt.Fprintf(w, "✗ %s\n", c.Name)
			for _, issue := range c.Issues {
				fmt.Fprintf(w, "    %s\n", issue)
			}
		}
	}
}

func checkConfigValidity(root string) CheckResult {
	name := "Config valid"

	if !config.Exists(root) {
		return CheckResult{Name: name + " (no " + config.ConfigFile + ", using defaults)", Passed: true}
	}
	if _, err := config.Load(filepath.Join(root, config.ConfigFile)); err != nil {
		return CheckResult{Name: name, Passed: false, Issues: []string{err.Error()}}
	}
	return CheckResult{Name: name, Passed: true}
}

func checkFilterFile(c *config.Config) (*filter.Set, CheckResult) {
	name := "Filter file loads"

	if err := c.Validate(); err != nil {
		return nil, CheckResult{Name: name, Passed: false, Issues: []string{err.Error()}}
	}
	set, err := filter.LoadFile(c.FilterFile)
	if err != nil {
		return nil, CheckResult{Name: name, Passed: false, Issues: []string{err.Error()}}
	}
	return set, CheckResult{Name: fmt.Sprintf("Filter file loads (%d filters)", len(set.Filters)), Passed: true}
}

func checkPatterns(set *filter.Set) CheckResult {
	name := "All patterns compile"

	var issues []string
	for _, f := range set.Filters {
		if err := f.Compile(); err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", f.Name, err))
		}
	}
	if len(issues) > 0 {
		return CheckResult{Name: name, Passed: false, Issues: issues}
	}
	return CheckResult{Name: name, Passed: true}
}

func checkCache(cache *storage.Cache) CheckResult {
	name := "Fingerprint cache readable"

	entries, err := cache.All()
	if err != nil {
		return CheckResult{Name: name, Passed: false, Issues: []string{err.Error()}}
	}
	return CheckResult{Name: fmt.Sprintf("Fingerprint cache readable (%d entries)", len(entries)), Passed: true}
}

func checkWorkflowCoverage(set *filter.Set, workflowFile string) CheckResult {
	name := "Every filter owns a workflow job"

	jobs, err := workflow.LoadJobs(workflowFile)
	if err != nil {
		return CheckResult{Name: name, Passed: false, Issues: []string{err.Error()}}
	}

	owned := map[*filter.Filter]bool{}
	for _, job := range jobs {
		f, err := ownerFilter(set, job)
		if err != nil {
			return CheckResult{Name: name, Passed: false, Issues: []string{err.Error()}}
		}
		if f != nil {
			owned[f] = true
		}
	}

	var issues []string
	for _, f := range set.Filters {
		if !owned[f] {
			issues = append(issues, fmt.Sprintf("%s matches no job in %s", f.Name, workflowFile))
		}
	}
	if len(issues) > 0 {
		return CheckResult{Name: name, Passed: false, Issues: issues}
	}
	return CheckResult{Name: name, Passed: true}
}
