// Package actions writes results to the GitHub Actions file commands:
// step outputs, exported environment variables and the job summary.
package actions

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrSinkNotConfigured is returned when a required file command path is unset.
var ErrSinkNotConfigured = errors.New("file command path is not set")

// FileSink appends key/value pairs to a GitHub Actions file command such as
// $GITHUB_OUTPUT or $GITHUB_ENV.
type FileSink struct {
	name     string
	path     string
	required bool
}

// NewFileSink returns a sink writing to path. name is the environment
// variable the path came from and is only used in errors.
// A required sink with an empty path fails on write; an optional one
// silently drops values.
func NewFileSink(name, path string, required bool) *FileSink {
	return &FileSink{name: name, path: path, required: required}
}

// Path returns the file the sink appends to.
func (s *FileSink) Path() string {
	return s.path
}

// Set appends key=value, or the heredoc form for multi-line values.
func (s *FileSink) Set(key, value string) error {
	if s.path == "" {
		if s.required {
			return fmt.Errorf("%w: %s", ErrSinkNotConfigured, s.name)
		}
		return nil
	}

	return appendFile(s.path, formatEntry(key, value))
}

func formatEntry(key, value string) string {
	if !strings.Contains(value, "\n") {
		return fmt.Sprintf("%s=%s\n", key, value)
	}

	delimiter := "EOF"
	for strings.Contains(value, delimiter) {
		delimiter += "_"
	}
	return fmt.Sprintf("%s<<%s\n%s\n%s\n", key, delimiter, value, delimiter)
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Summary appends markdown to $GITHUB_STEP_SUMMARY. An empty path makes every
// write a no-op.
type Summary struct {
	path string
}

// NewSummary returns a summary writer for path.
func NewSummary(path string) *Summary {
	return &Summary{path: path}
}

// Write appends content to the job summary.
func (s *Summary) Write(content string) error {
	if s.path == "" {
		return nil
	}
	return appendFile(s.path, content)
}
