// Package cache holds synthesized audio bytes in a bounded in-memory
// LRU so identical scene content never re-invokes the backend.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity bounds the number of cached clips when the config
// leaves it zero.
const DefaultCapacity = 64

// Key derives the deterministic cache key for one synthesis request.
// It is a pure function of its inputs, stable across runs.
func Key(prompt, voice, langCode string) string {
	sum := sha256.Sum256([]byte(prompt + "_" + voice + "_" + langCode))
	return hex.EncodeToString(sum[:])
}

// AudioCache is a fixed-size LRU over immutable audio byte slices.
// Entries are never mutated in place, so concurrent reads are safe.
type AudioCache struct {
	entries *lru.Cache[string, []byte]
	dir     string
}

// New creates a cache of the given capacity materializing files under dir.
func New(capacity int, dir string) (*AudioCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio cache dir: %w", err)
	}
	entries, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, err
	}
	return &AudioCache{entries: entries, dir: dir}, nil
}

// Get returns the cached bytes for a key.
func (c *AudioCache) Get(key string) ([]byte, bool) {
	return c.entries.Get(key)
}

// Put stores synthesized bytes under a key.
func (c *AudioCache) Put(key string, data []byte) {
	c.entries.Add(key, data)
}

// Materialize writes the clip to a stable per-key file for playback and
// returns its path. An existing file for the key is reused.
func (c *AudioCache) Materialize(key string, data []byte) (string, error) {
	path := filepath.Join(c.dir, fmt.Sprintf("audio_%s.mp3", key))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return path, nil
}
