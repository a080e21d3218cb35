package actions

import (
	"fmt"
	"strings"
)

// ChangedFilesLimit is how many changed files the summary lists before eliding.
const ChangedFilesLimit = 10

// Heading renders a level-2 markdown heading.
func Heading(title string) string {
	return fmt.Sprintf("\n\n## %s\n\n", title)
}

// ChangedFiles renders the changed-file section of the summary. A nil slice
// means the changes could not be determined.
func ChangedFiles(files []string, limit int) string {
	if files == nil {
		return "Unable to determine changed files - assuming all files may have changed and recomputing hashes\n"
	}

	var sb strings.Builder
	sb.WriteString("Changed files:\n")
	switch {
	case len(files) == 0:
		sb.WriteString("\nNone\n\n")
	case limit > 0 && len(files) > limit:
		sb.WriteString("\n- " + strings.Join(files[:limit], "\n- ") + "\n- ...\n\n")
	default:
		sb.WriteString("\n- " + strings.Join(files, "\n- ") + "\n\n")
	}
	return sb.String()
}

// Table renders a markdown table. Pipes inside cells are escaped.
func Table(headers []string, rows [][]string) string {
	var sb strings.Builder

	sb.WriteString("|" + strings.Join(headers, "|") + "|\n")
	sb.WriteString(strings.Repeat("|---", len(headers)) + "|\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		sb.WriteString("|" + strings.Join(cells, "|") + "|\n")
	}
	return sb.String()
}

// Details renders a collapsible block around a fenced code block.
func Details(summary, lang, body string) string {
	return fmt.Sprintf("\n<details>\n<summary>%s</summary>\n\n```%s\n%s\n```\n</details>\n", summary, lang, body)
}
