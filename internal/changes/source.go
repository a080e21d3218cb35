// Package changes discovers the files changed by the revision under test.
package changes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	// ErrUnavailable is returned by a Source whose prerequisites are absent.
	// Discover moves on to the next source.
	ErrUnavailable = errors.New("change source unavailable")

	// ErrNoSource is returned by Discover when every source was unavailable.
	ErrNoSource = errors.New("no change source available")
)

// Source supplies the ordered list of changed file paths.
type Source interface {
	Name() string
	Changes(ctx context.Context) ([]string, error)
}

// Discover returns the changes from the first available source.
// ErrUnavailable falls through to the next source; any other error is returned.
func Discover(ctx context.Context, sources ...Source) ([]string, string, error) {
	for _, s := range sources {
		log.Debug("Loading changes", "source", s.Name())

		files, err := s.Changes(ctx)
		if errors.Is(err, ErrUnavailable) {
			log.Info("Change source unavailable", "source", s.Name(), "reason", err)
			continue
		}
		if err != nil {
			return nil, s.Name(), fmt.Errorf("load changes from %s: %w", s.Name(), err)
		}

		log.Info("Loaded changes", "source", s.Name(), "files", len(files))
		return files, s.Name(), nil
	}
	return nil, "", ErrNoSource
}

// ParsePullRequestRef extracts the pull request number from a ref of the
// form refs/pull/<number>/merge.
func ParsePullRequestRef(ref string) (int, bool) {
	rest, ok := strings.CutPrefix(ref, "refs/pull/")
	if !ok {
		return 0, false
	}

	num, _, _ := strings.Cut(rest, "/")
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SplitRepository splits "owner/repo".
func SplitRepository(repository string) (owner, repo string, ok bool) {
	owner, repo, ok = strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}
	return owner, repo, true
}
