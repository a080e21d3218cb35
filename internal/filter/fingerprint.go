package filter

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// chunkSize is the read size used when streaming file content into the hash.
const chunkSize = 4096

// EmptyFingerprint is the fingerprint of a filter with no matching files.
const EmptyFingerprint = "da39a3ee5e6b4b0d3255bfef95601890afd80709"

// MissingPolicy decides what happens when a matching file cannot be found.
type MissingPolicy int

const (
	// MissingFail aborts the fingerprint with an error.
	MissingFail MissingPolicy = iota
	// MissingWarn logs a warning and leaves the file out of the fingerprint.
	MissingWarn
	// MissingPathOnly logs a warning and hashes the path without content, so
	// removing a file still changes the fingerprint.
	MissingPathOnly
)

// String returns the policy name.
func (m MissingPolicy) String() string {
	switch m {
	case MissingFail:
		return "fail"
	case MissingWarn:
		return "warn"
	case MissingPathOnly:
		return "path-only"
	default:
		return fmt.Sprintf("MissingPolicy(%d)", int(m))
	}
}

// Fingerprinter hashes the files covered by a filter.
type Fingerprinter struct {
	// Root is the directory relative paths are resolved against.
	Root string
	// Missing controls handling of files that do not exist on disk.
	Missing MissingPolicy
}

// Fingerprint returns the hex SHA-1 over the path and content of every file
// in files that matches one of the filter's include patterns.
//
// Files are hashed in the order given; callers wanting a reproducible
// fingerprint must supply a stable order (e.g. a sorted repository walk).
func (fp *Fingerprinter) Fingerprint(f *Filter, files []string) (string, error) {
	h := sha1.New()
	buf := make([]byte, chunkSize)

	for _, file := range files {
		p, err := f.MatchingPattern(file)
		if err != nil {
			return "", err
		}
		if p == nil {
			continue
		}

		err = fp.hashFile(h, buf, file)
		if errors.Is(err, fs.ErrNotExist) {
			switch fp.Missing {
			case MissingWarn:
				log.Warn("file not found, leaving it out of fingerprint", "filter", f.Name, "file", file)
				continue
			case MissingPathOnly:
				log.Warn("file not found, hashing its path only", "filter", f.Name, "file", file)
				io.WriteString(h, file)
				continue
			}
		}
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", f.Name, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func (fp *Fingerprinter) hashFile(h io.Writer, buf []byte, file string) error {
	full := file
	if fp.Root != "" && !filepath.IsAbs(file) {
		full = filepath.Join(fp.Root, filepath.FromSlash(file))
	}

	// Open before writing the path so a missing file leaves no trace in the hash.
	fh, err := os.Open(full)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer fh.Close()

	if _, err := io.WriteString(h, file); err != nil {
		return err
	}
	if _, err := io.CopyBuffer(h, onlyReader{fh}, buf); err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	return nil
}

// onlyReader hides WriterTo/ReaderFrom so CopyBuffer uses the fixed buffer.
type onlyReader struct {
	io.Reader
}
