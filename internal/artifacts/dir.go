package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DirStore keeps artifacts under a local directory, laid out like the blob
// container: <root>/<key>/artifacts.zip.
type DirStore struct {
	Root string
}

func (s *DirStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.Root, filepath.FromSlash(BlobName(key))), nil
}

// Exists reports whether the archive for key is present.
func (s *DirStore) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("check artifact %s: %w", key, err)
	}
	return true, nil
}

// Upload stores body as the archive for key.
func (s *DirStore) Upload(_ context.Context, key string, body io.Reader) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("upload artifact %s: %w", key, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("upload artifact %s: %w", key, err)
	}
	return f.Close()
}

// Download copies the archive for key into w.
func (s *DirStore) Download(_ context.Context, key string, w io.Writer) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("download artifact %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("read artifact %s: %w", key, err)
	}
	return nil
}
