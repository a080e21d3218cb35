// Package artifacts names job artifacts after their filter fingerprint and
// moves them in and out of blob storage.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// FileName is the name of the archive stored under every artifact key.
const FileName = "artifacts.zip"

var (
	// ErrNotFound is returned when downloading an artifact that does not exist.
	ErrNotFound = errors.New("artifact not found")
	// ErrContainerNotFound is returned when the storage container is missing.
	ErrContainerNotFound = errors.New("artifact container not found")
	// ErrInvalidKey is returned for keys that cannot name a blob.
	ErrInvalidKey = errors.New("invalid artifact key")
)

// Store holds artifact archives by key.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Upload(ctx context.Context, key string, body io.Reader) error
	Download(ctx context.Context, key string, w io.Writer) error
}

// Key builds the artifact key for a job from its fingerprint:
// <owner>/<repo>/<job>_<hash>.
func Key(owner, repo, job, hash string) string {
	return fmt.Sprintf("%s/%s/%s_%s", owner, repo, job, hash)
}

// BlobName is the blob path of the archive for key.
func BlobName(key string) string {
	return key + "/" + FileName
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
