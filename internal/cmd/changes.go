package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "List the files changed by the current revision",
	Long: `List the changed files pathfilter would match filters against.

Changes come from the pull request files API when GITHUB_TOKEN, GITHUB_REF and
GITHUB_REPOSITORY describe a pull request, and from the git diff against
--base-ref otherwise.

Examples:
  pathfilter changes
  pathfilter changes --base-ref HEAD~1
  pathfilter changes --json`,
	Aliases: []string{"ls"},
	RunE:    runChanges,
}

var changesJSON bool

func init() {
	rootCmd.AddCommand(changesCmd)
	addBaseRefFlag(changesCmd)
	changesCmd.Flags().BoolVar(&changesJSON, "json", false, "Output as JSON")
}

func runChanges(cmd *cobra.Command, args []string) error {
	files, source, err := discoverChanges(cmd.Context(), cfg, root)
	if err != nil {
		return err
	}
	return printChanges(cmd.OutOrStdout(), files, source, changesJSON)
}

func printChanges(w io.Writer, files []string, source string, asJSON bool) error {
	if files == nil {
		files = []string{}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"source": source,
			"files":  files,
			"count":  len(files),
		})
	}

	if len(files) == 0 {
		fmt.Fprintf(w, "No changed files (%s).\n", source)
		return nil
	}
	for _, f := range files {
		fmt.Fprintln(w, f)
	}
	return nil
}
