package artifacts

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/samber/lo"
)

// ErrNoFiles is returned by Pack when no path matched.
var ErrNoFiles = errors.New("no files matched artifact paths")

// Pack writes a zip archive of the files under root selected by paths.
// A path is a file, a directory (added recursively) or a doublestar glob,
// relative to root. It returns the number of files archived.
func Pack(w io.Writer, root string, paths []string) (int, error) {
	fsys := os.DirFS(root)

	var files []string
	for _, p := range paths {
		p = path.Clean(filepath.ToSlash(p))
		matches, err := doublestar.Glob(fsys, p)
		if err != nil {
			return 0, fmt.Errorf("expand %s: %w", p, err)
		}
		if len(matches) == 0 {
			log.Warn("artifact path matched nothing", "path", p)
		}
		for _, m := range matches {
			found, err := collect(fsys, m)
			if err != nil {
				return 0, err
			}
			files = append(files, found...)
		}
	}

	files = lo.Uniq(files)
	if len(files) == 0 {
		return 0, ErrNoFiles
	}
	sort.Strings(files)

	zw := zip.NewWriter(w)
	for _, name := range files {
		if err := addFile(zw, fsys, name); err != nil {
			zw.Close()
			return 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finish archive: %w", err)
	}
	return len(files), nil
}

func collect(fsys fs.FS, name string) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, name, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", name, err)
	}
	return files, nil
}

func addFile(zw *zip.Writer, fsys fs.FS, name string) error {
	f, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header %s: %w", name, err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("compress %s: %w", name, err)
	}
	return nil
}

// Unpack extracts a zip archive into dest. Entry names are cleaned as if
// rooted at dest, so no entry is written outside it. It returns the number of
// files written.
func Unpack(r io.ReaderAt, size int64, dest string) (int, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}

	n := 0
	for _, zf := range zr.File {
		target, err := entryPath(dest, zf.Name)
		if err != nil {
			return n, err
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return n, fmt.Errorf("create %s: %w", zf.Name, err)
			}
			continue
		}
		if err := extract(zf, target); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func entryPath(dest, name string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(name, `\`, "/"))
	if clean == "/" {
		return "", fmt.Errorf("invalid archive entry %q", name)
	}
	target := filepath.Join(dest, filepath.FromSlash(clean[1:]))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

func extract(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", zf.Name, err)
	}

	src, err := zf.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", zf.Name, err)
	}
	defer src.Close()

	mode := zf.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", zf.Name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("extract %s: %w", zf.Name, err)
	}
	return dst.Close()
}
