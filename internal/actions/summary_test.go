package actions

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangedFiles(t *testing.T) {
	many := make([]string, 12)
	for i := range many {
		many[i] = fmt.Sprintf("f%02d", i)
	}

	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{
			name:  "unknown",
			files: nil,
			want:  "Unable to determine changed files - assuming all files may have changed and recomputing hashes\n",
		},
		{
			name:  "none",
			files: []string{},
			want:  "Changed files:\n\nNone\n\n",
		},
		{
			name:  "few",
			files: []string{"a.txt", "b.txt"},
			want:  "Changed files:\n\n- a.txt\n- b.txt\n\n",
		},
		{
			name:  "elided",
			files: many,
			want:  "Changed files:\n\n- f00\n- f01\n- f02\n- f03\n- f04\n- f05\n- f06\n- f07\n- f08\n- f09\n- ...\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChangedFiles(tt.files, ChangedFilesLimit))
		})
	}
}

func TestTable(t *testing.T) {
	got := Table([]string{"Filter", "Matched"}, [][]string{{"a|b", "true"}, {"c", "false"}})
	want := "|Filter|Matched|\n|---|---|\n|a\\|b|true|\n|c|false|\n"
	assert.Equal(t, want, got)
}

func TestDetails(t *testing.T) {
	got := Details("result JSON", "json", "{}")
	assert.Equal(t, "\n<details>\n<summary>result JSON</summary>\n\n```json\n{}\n```\n</details>\n", got)
}

func TestHeading(t *testing.T) {
	assert.Equal(t, "\n\n## Calculate results\n\n", Heading("Calculate results"))
}
