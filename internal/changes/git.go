package changes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/samber/lo"
)

// DefaultBaseRef is the revision changes are compared against by default.
const DefaultBaseRef = "origin/main"

// GitSource lists the files that differ between a base revision and the
// current checkout, like `git diff --name-only <base>`: committed changes
// since base, with tracked files that are dirty in the worktree compared
// against base directly.
type GitSource struct {
	// Root is any directory inside the repository.
	Root string
	// BaseRef is the revision to compare against, e.g. origin/main.
	BaseRef string
	// IgnoreWorktree leaves uncommitted changes to tracked files out.
	IgnoreWorktree bool
}

// Name implements Source.
func (s *GitSource) Name() string {
	return "git"
}

// Changes implements Source. The result is sorted and free of duplicates.
func (s *GitSource) Changes(ctx context.Context) ([]string, error) {
	base := s.BaseRef
	if base == "" {
		base = DefaultBaseRef
	}

	repo, err := git.PlainOpenWithOptions(s.Root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	baseTree, err := revisionTree(repo, plumbing.Revision(base))
	if err != nil {
		return nil, fmt.Errorf("resolve base %s: %w", base, err)
	}
	headTree, err := revisionTree(repo, plumbing.Revision(plumbing.HEAD))
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	diff, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, &object.DiffTreeOptions{})
	if err != nil {
		return nil, fmt.Errorf("diff %s..HEAD: %w", base, err)
	}

	changed := map[string]bool{}
	for _, c := range diff {
		if c.From.Name != "" {
			changed[c.From.Name] = true
		}
		if c.To.Name != "" {
			changed[c.To.Name] = true
		}
	}
	log.Debug("Committed changes", "base", base, "files", len(changed))

	if !s.IgnoreWorktree {
		dirty, wtRoot, err := worktreeChanges(repo)
		if err != nil {
			return nil, err
		}
		// The worktree copy of a dirty file decides, as with git diff <base>.
		for _, path := range dirty {
			differs, err := differsFromBase(baseTree, wtRoot, path)
			if err != nil {
				return nil, err
			}
			changed[path] = differs
		}
	}

	files := lo.Keys(lo.PickBy(changed, func(_ string, v bool) bool { return v }))
	sort.Strings(files)
	return files, nil
}

func revisionTree(repo *git.Repository, rev plumbing.Revision) (*object.Tree, error) {
	hash, err := repo.ResolveRevision(rev)
	if err != nil {
		return nil, err
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}

// worktreeChanges returns tracked files modified in the index or working tree
// and the worktree root. Untracked files are not reported, matching git diff.
func worktreeChanges(repo *git.Repository) ([]string, string, error) {
	wt, err := repo.Worktree()
	if err == git.ErrIsBareRepository {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("open worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, "", fmt.Errorf("worktree status: %w", err)
	}

	var files []string
	for path, st := range status {
		if st.Worktree == git.Untracked && st.Staging == git.Untracked {
			continue
		}
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		files = append(files, path)
	}
	log.Debug("Uncommitted changes", "files", len(files))
	return files, wt.Filesystem.Root(), nil
}

// differsFromBase compares the worktree copy of path with its blob in the
// base tree. Only content is compared; mode changes are ignored.
func differsFromBase(base *object.Tree, root, path string) (bool, error) {
	data, present, err := worktreeBlob(filepath.Join(root, filepath.FromSlash(path)))
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	entry, err := base.FindEntry(path)
	if errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return present, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up %s in base: %w", path, err)
	}
	if !present {
		return true, nil
	}
	return plumbing.ComputeHash(plumbing.BlobObject, data) != entry.Hash, nil
}

// worktreeBlob returns the content git would store for the file at full: the
// link target for a symlink, the bytes otherwise.
func worktreeBlob(full string) ([]byte, bool, error) {
	info, err := os.Lstat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(full)
		if err != nil {
			return nil, false, err
		}
		return []byte(filepath.ToSlash(target)), true, nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
