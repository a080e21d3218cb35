package repo

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func makeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(f), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root,
		"b.txt",
		"a/z.txt",
		"a.txt",
		"a/b/c.txt",
		".git/HEAD",
		".git/objects/ab/cdef",
		".github/workflows/ci.yaml",
	)

	got, err := ListFiles(root, nil)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}

	want := []string{
		".github/workflows/ci.yaml",
		"a.txt",
		"a/b/c.txt",
		"a/z.txt",
		"b.txt",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListFiles = %v, want %v", got, want)
	}
}

func TestListFilesExcludes(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root,
		"src/main.go",
		"src/vendor/lib.go",
		".hashes/src.hash",
		"node_modules/x/index.js",
		"docs/readme.md",
	)

	got, err := ListFiles(root, []string{".hashes/**", "node_modules", "**/vendor/**", "**/*.md"})
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}

	want := []string{"src/main.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListFiles = %v, want %v", got, want)
	}
}

func TestListFilesSymlinks(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, "src/real/a.go", "src/b.go")

	links := map[string]string{
		"src/link":      "real",
		"src/b_link.go": "b.go",
		"src/dangling":  "missing.go",
	}
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(root, filepath.FromSlash(name))); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
	}

	got, err := ListFiles(root, nil)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}

	want := []string{"src/b.go", "src/b_link.go", "src/real/a.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListFiles = %v, want %v", got, want)
	}
}

func TestListFilesInvalidExclude(t *testing.T) {
	if _, err := ListFiles(t.TempDir(), []string{"[unclosed"}); err == nil {
		t.Error("ListFiles accepted an invalid exclude glob")
	}
}

func TestListFilesMissingRoot(t *testing.T) {
	if _, err := ListFiles(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Error("ListFiles on a missing root returned no error")
	}
}

func TestExcluded(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		globs []string
		want  bool
	}{
		{name: "doublestar nested", path: "a/b/c.md", globs: []string{"**/*.md"}, want: true},
		{name: "directory subtree", path: ".hashes/x.hash", globs: []string{".hashes/**"}, want: true},
		{name: "no match", path: "src/a.go", globs: []string{"docs/**"}, want: false},
		{name: "empty globs", path: "src/a.go", globs: nil, want: false},
		{name: "empty path", path: "", globs: []string{"**"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Excluded(tt.path, tt.globs); got != tt.want {
				t.Errorf("Excluded(%q, %v) = %v, want %v", tt.path, tt.globs, got, tt.want)
			}
		})
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if !Exists(dir) {
		t.Error("Exists() = false for a directory")
	}

	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if Exists(file) {
		t.Error("Exists() = true for a file")
	}
	if Exists(filepath.Join(dir, "missing")) {
		t.Error("Exists() = true for a missing path")
	}
}
