package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/justrnr500/pathfilter/internal/actions"
	"github.com/justrnr500/pathfilter/internal/config"
	"github.com/justrnr500/pathfilter/internal/filter"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match the current change against every filter",
	Long: `Discover the files changed by the current pull request (or by the working
tree against --base-ref), then report for each filter whether it matched and a
fingerprint over its matching changed files.

Outputs per filter:
  GITHUB_OUTPUT  <name>=true|false, <name>_fingerprint=<sha1>
  GITHUB_ENV     FILTER_<NAME>=true|false  (read by 'pathfilter hash')

Examples:
  pathfilter match
  pathfilter match --base-ref origin/develop
  pathfilter match --json`,
	RunE: runMatch,
}

var matchJSON bool

func init() {
	rootCmd.AddCommand(matchCmd)
	addBaseRefFlag(matchCmd)
	matchCmd.Flags().BoolVar(&matchJSON, "json", false, "Print results as JSON instead of writing GitHub outputs")
}

// matchReport is the outcome of one match run.
type matchReport struct {
	Source  string          `json:"source"`
	Files   []string        `json:"files"`
	Filters []filter.Result `json:"filters"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	set, err := loadFilters(cfg)
	if err != nil {
		return err
	}

	files, source, err := discoverChanges(cmd.Context(), cfg, root)
	if err != nil {
		return err
	}

	report, err := matchChanges(set, root, files)
	if err != nil {
		return err
	}
	report.Source = source

	if matchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if err := publishMatch(newSinks(cfg, true), report); err != nil {
		return err
	}
	printMatch(cmd.OutOrStdout(), report)
	return nil
}

// matchChanges evaluates every filter against the changed files. Files are
// sorted first so the fingerprint does not depend on discovery order; files
// deleted by the change contribute their path only.
func matchChanges(set *filter.Set, root string, files []string) (*matchReport, error) {
	sorted := slices.Clone(files)
	slices.Sort(sorted)

	ev := &filter.Evaluator{
		Set:           set,
		Fingerprinter: filter.Fingerprinter{Root: root, Missing: filter.MissingPathOnly},
		Fingerprints:  true,
	}
	results, err := ev.Evaluate(sorted)
	if err != nil {
		return nil, err
	}

	if sorted == nil {
		sorted = []string{}
	}
	return &matchReport{Files: sorted, Filters: results}, nil
}

func publishMatch(s *sinks, report *matchReport) error {
	rows := make([][]string, 0, len(report.Filters))
	for _, r := range report.Filters {
		matched := strconv.FormatBool(r.Matched)
		if err := s.output.Set(r.Name, matched); err != nil {
			return err
		}
		if err := s.output.Set(r.Name+"_fingerprint", r.Fingerprint); err != nil {
			return err
		}
		if err := s.env.Set(config.FlagKey(r.Key), matched); err != nil {
			return err
		}
		rows = append(rows, []string{r.Name, matched, r.Fingerprint})
	}

	summary := actions.Heading("Path filter results") +
		fmt.Sprintf("Changes from: %s\n\n", report.Source) +
		actions.ChangedFiles(report.Files, actions.ChangedFilesLimit) +
		actions.Table([]string{"Filter", "Matched", "Fingerprint"}, rows)
	return s.summary.Write(summary)
}

func printMatch(w io.Writer, report *matchReport) {
	for _, r := range report.Filters {
		if r.Matched {
			fmt.Fprintf(w, "✓ %s  %s\n", r.Name, r.Fingerprint)
		} else {
			fmt.Fprintf(w, "✗ %s\n", r.Name)
		}
	}
	fmt.Fprintf(w, "\n%d changed file(s) from %s\n", len(report.Files), report.Source)
}
