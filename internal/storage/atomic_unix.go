//go:build !windows

package storage

import (
	"os"

	"github.com/google/renameio/v2"
)

// writeFileAtomic writes via temp file + rename so readers never see a
// truncated hash.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
