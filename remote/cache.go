package remote

import (
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fortio.org/log"
)

// --- Cached response shapes ---

// CachedRepo is the part of a repository lookup worth keeping.
type CachedRepo struct {
	Found         bool
	DefaultBranch string
}

// CachedTreeEntry is one blob of a recursive tree listing.
type CachedTreeEntry struct {
	Path string
	SHA  string
}

// CachedTree is a recursive tree listing, blobs only.
type CachedTree struct {
	Entries   []CachedTreeEntry
	Truncated bool
}

// CachedBlob is raw file content, keyed by its blob SHA.
type CachedBlob struct {
	Data []byte
}

// Cache stores API responses as JSON files, one per request.
type Cache struct {
	dir     string
	enabled bool
}

// NewCache prepares the cache directory. An empty dir means
// <user cache dir>/leandeps_cache. A disabled cache never touches disk.
func NewCache(dir string, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{}, nil
	}
	if dir == "" {
		userCacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user cache directory: %w", err)
		}
		dir = filepath.Join(userCacheDir, "leandeps_cache")
	}
	log.LogVf("Using cache directory: %s", dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, enabled: true}, nil
}

// Dir is the cache directory, empty when disabled.
func (c *Cache) Dir() string {
	return c.dir
}

// Clear removes every cached response and recreates the directory.
func (c *Cache) Clear() error {
	if !c.enabled {
		return errors.New("cache directory not initialized")
	}
	log.Infof("Clearing cache directory: %s", c.dir)
	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// key names the cache file for a request.
func (c *Cache) key(parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		_, _ = io.WriteString(h, p)
		_, _ = io.WriteString(h, "|")
	}
	return filepath.Join(c.dir, fmt.Sprintf("%x.json", h.Sum(nil)))
}

// read loads a cached response into target. A miss, or an entry that no
// longer decodes, returns false with no error.
func (c *Cache) read(key string, target any) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	data, err := os.ReadFile(key)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("error reading cache file %s: %w", key, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		log.Warnf("Error unmarshaling cache file %s, ignoring cache: %v", key, err)
		return false, nil
	}
	return true, nil
}

// write stores a response.
func (c *Cache) write(key string, data any) error {
	if !c.enabled {
		return nil
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data for cache key %s: %w", key, err)
	}
	if err := os.WriteFile(key, jsonData, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", key, err)
	}
	log.LogVf("Cache write: %s", key)
	return nil
}
