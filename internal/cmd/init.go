package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justrnr500/pathfilter/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up pathfilter in a repository",
	Long: `Set up pathfilter in the repository root.

This creates:
  - .pathfilter.yaml           Configuration file
  - the filter file            An example filter (default .github/path-filters.yaml)
  - .gitignore entry for .env`,
	RunE: runInit,
}

var initQuiet bool

const exampleFilters = `# Each filter is a name and a list of regular expressions matched against the
# start of repository paths. A change matches a filter when a changed file
# matches one of its files patterns, unless every changed file also matches
# one of the skip-if patterns.
- name: backend
  files:
    - src/backend/
    - common/
  skip-if:
    all-files-match-any:
      - .*\.md$
`

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initQuiet, "quiet", "q", false, "Suppress output")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	say := func(format string, a ...interface{}) {
		if !initQuiet {
			fmt.Fprintf(out, format, a...)
		}
	}

	if config.Exists(root) {
		say("Already initialized in %s\n", filepath.Join(root, config.ConfigFile))
		return nil
	}

	// Stored paths stay relative to the repository root.
	c := config.Default()
	if err := c.Save(filepath.Join(root, config.ConfigFile)); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	say("✓ Created %s\n", config.ConfigFile)

	filterPath := filepath.Join(root, filepath.FromSlash(c.FilterFile))
	if _, err := os.Stat(filterPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(filterPath), 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", filepath.Dir(filterPath), err)
		}
		if err := os.WriteFile(filterPath, []byte(exampleFilters), 0644); err != nil {
			return fmt.Errorf("write filter file: %w", err)
		}
		say("✓ Created %s\n", c.FilterFile)
	}

	// Ensure .env is in repo root .gitignore
	ensureGitignoreEntry(filepath.Join(root, config.GitIgnoreFile), config.EnvFile)

	say("\nReady. Try:\n")
	say("  pathfilter validate\n")
	say("  pathfilter match --base-ref %s\n", c.BaseRef)
	return nil
}

// ensureGitignoreEntry ensures that the given entry exists in the gitignore file
// at path. If the file does not exist, it is created. If the entry already
// exists (compared after trimming whitespace), no changes are made.
func ensureGitignoreEntry(path, entry string) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == entry {
			return
		}
	}

	content := string(data)
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += entry + "\n"

	os.WriteFile(path, []byte(content), 0644)
}
