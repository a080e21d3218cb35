// Package repo lists the files of a repository checkout.
package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// GitDir is always left out of the listing.
const GitDir = ".git"

// ListFiles returns every regular file under root, symlinks to regular files
// included, as a slash-separated path relative to root, sorted so fingerprints
// over the result are reproducible.
// Paths matching any of the exclude globs (doublestar syntax, ** matches any
// depth) are left out; an excluded directory is not descended into.
func ListFiles(root string, excludes []string) ([]string, error) {
	for _, g := range excludes {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid exclude pattern %q", g)
		}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == GitDir || Excluded(rel, excludes) {
				return filepath.SkipDir
			}
			return nil
		}
		if Excluded(rel, excludes) {
			return nil
		}
		if !d.Type().IsRegular() {
			regular, err := resolvesToFile(path)
			if err != nil {
				return err
			}
			if !regular {
				return nil
			}
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files in %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// resolvesToFile reports whether a non-regular entry, typically a symlink,
// ends at a regular file. Links to directories are not followed and dangling
// links are left out.
func resolvesToFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Excluded reports whether path matches any of the globs.
func Excluded(path string, globs []string) bool {
	if path == "" || len(globs) == 0 {
		return false
	}

	for _, g := range globs {
		matched, err := doublestar.Match(g, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// Exists reports whether root is an existing directory.
func Exists(root string) bool {
	info, err := os.Stat(root)
	return err == nil && info.IsDir()
}
