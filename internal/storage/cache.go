// Package storage persists fingerprints between CI runs.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDir is the cache directory restored by the CI cache step.
	DefaultDir = ".hashes"
	// Ext is the extension of one cached fingerprint file.
	Ext = ".hash"
)

// Cache stores one fingerprint per key as <dir>/<key>.hash.
type Cache struct {
	baseDir string
}

// NewCache creates a cache rooted at the given directory. The directory is
// created on first write.
func NewCache(baseDir string) *Cache {
	return &Cache{baseDir: baseDir}
}

// PathFor returns the file holding the fingerprint for key.
func (c *Cache) PathFor(key string) string {
	return filepath.Join(c.baseDir, key+Ext)
}

// Get returns the cached fingerprint for key. ok is false when nothing is cached.
func (c *Cache) Get(key string) (hash string, ok bool, err error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(c.PathFor(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cached hash: %w", err)
	}

	hash = strings.TrimSpace(string(data))
	if hash == "" {
		return "", false, nil
	}
	return hash, true, nil
}

// Put stores the fingerprint for key, replacing any previous value atomically.
func (c *Cache) Put(key, hash string) error {
	if err := validKey(key); err != nil {
		return err
	}

	if err := os.MkdirAll(c.baseDir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	if err := writeFileAtomic(c.PathFor(key), []byte(hash), 0644); err != nil {
		return fmt.Errorf("write cached hash: %w", err)
	}
	return nil
}

// All returns every cached fingerprint keyed by name.
func (c *Cache) All() (map[string]string, error) {
	hashes := make(map[string]string)

	entries, err := os.ReadDir(c.baseDir)
	if os.IsNotExist(err) {
		return hashes, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list cache directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		key := strings.TrimSuffix(e.Name(), Ext)
		hash, ok, err := c.Get(key)
		if err != nil {
			return nil, err
		}
		if ok {
			hashes[key] = hash
		}
	}

	return hashes, nil
}

func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid cache key %q", key)
	}
	return nil
}
