// Package cache stores generated modules keyed by the template source and
// the options it was compiled with, so unchanged templates are not
// recompiled across runs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("rill.cache")

// indexVersion changes whenever generated output for the same key may differ
const indexVersion = 1

const indexFile = "index.cbor"

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Cache is a directory of generated modules with a CBOR index
type Cache struct {
	mu         sync.Mutex
	dir        string
	maxEntries int
	index      *Index
	stats      Stats
}

// Index tracks all cached entries
type Index struct {
	Version int               `cbor:"1,keyasint"`
	Entries map[string]*Entry `cbor:"2,keyasint"`
}

// Entry describes one cached module
type Entry struct {
	Hash       [32]byte `cbor:"1,keyasint"` // hash of the stored module
	Source     string   `cbor:"2,keyasint,omitempty"`
	Size       int64    `cbor:"3,keyasint"`
	Created    int64    `cbor:"4,keyasint"` // unix nanoseconds
	LastAccess int64    `cbor:"5,keyasint"` // unix nanoseconds
}

// Stats tracks cache performance
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

// Config holds cache configuration
type Config struct {
	Dir        string // Cache directory (default: user cache dir + /rill)
	MaxEntries int    // Least recently used entries beyond this are evicted; 0 is unlimited
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return Config{
		Dir:        filepath.Join(dir, "rill"),
		MaxEntries: 4096,
	}
}

// New opens or creates a cache. A missing or unreadable index starts empty.
func New(config Config) (*Cache, error) {
	if config.Dir == "" {
		config.Dir = DefaultConfig().Dir
	}
	if err := os.MkdirAll(filepath.Join(config.Dir, "modules"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{dir: config.Dir, maxEntries: config.MaxEntries}
	if err := c.loadIndex(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warning("discarding cache index", "dir", c.dir, "error", err)
		}
		c.index = newIndex()
	}
	c.stats.Entries = len(c.index.Entries)
	return c, nil
}

func newIndex() *Index {
	return &Index{Version: indexVersion, Entries: make(map[string]*Entry)}
}

// Get returns the module stored under key
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(c.modulePath(key))
	if err != nil || sha256.Sum256(data) != entry.Hash {
		// Missing or corrupted
		c.deleteLocked(key)
		c.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now().UnixNano()
	c.stats.Hits++
	return data, true
}

// Put stores data under key. source names the template for diagnostics.
func (c *Cache) Put(key, source string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := sha256.Sum256(data)
	if existing, ok := c.index.Entries[key]; ok && existing.Hash == hash {
		return nil
	}

	if err := os.WriteFile(c.modulePath(key), data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now().UnixNano()
	c.index.Entries[key] = &Entry{
		Hash:       hash,
		Source:     source,
		Size:       int64(len(data)),
		Created:    now,
		LastAccess: now,
	}
	c.evictLocked()
	c.stats.Entries = len(c.index.Entries)
	return nil
}

// Delete removes an entry
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(key)
}

func (c *Cache) deleteLocked(key string) {
	if _, ok := c.index.Entries[key]; !ok {
		return
	}
	delete(c.index.Entries, key)
	c.removeFile(c.modulePath(key))
	c.stats.Entries = len(c.index.Entries)
}

// evictLocked drops least recently used entries beyond maxEntries
func (c *Cache) evictLocked() {
	if c.maxEntries <= 0 {
		return
	}
	for len(c.index.Entries) > c.maxEntries {
		var oldestKey string
		var oldest int64
		for key, entry := range c.index.Entries {
			if oldestKey == "" || entry.LastAccess < oldest || (entry.LastAccess == oldest && key < oldestKey) {
				oldestKey = key
				oldest = entry.LastAccess
			}
		}
		c.deleteLocked(oldestKey)
		c.stats.Evictions++
	}
}

// Clear removes all cached entries
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	modules := filepath.Join(c.dir, "modules")
	if err := os.RemoveAll(modules); err != nil {
		return fmt.Errorf("failed to clear modules: %w", err)
	}
	if err := os.MkdirAll(modules, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	c.index = newIndex()
	c.stats.Entries = 0
	return c.saveIndexLocked()
}

// Stats returns cache statistics
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close writes the index to disk
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveIndexLocked()
}

// Key derives a cache key from inputs. Inputs are length-prefixed so
// ("ab", "c") and ("a", "bc") differ.
func Key(inputs ...string) string {
	h := sha256.New()
	for _, input := range inputs {
		fmt.Fprintf(h, "%d:", len(input))
		h.Write([]byte(input))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) modulePath(key string) string {
	return filepath.Join(c.dir, "modules", key+".js")
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, indexFile))
	if err != nil {
		return err
	}

	var index Index
	if err := cbor.Unmarshal(data, &index); err != nil {
		return fmt.Errorf("failed to decode index: %w", err)
	}
	if index.Version != indexVersion {
		return fmt.Errorf("index version %d, want %d", index.Version, indexVersion)
	}
	if index.Entries == nil {
		index.Entries = make(map[string]*Entry)
	}
	c.index = &index
	return nil
}

func (c *Cache) saveIndexLocked() error {
	data, err := encMode.Marshal(c.index)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return os.WriteFile(filepath.Join(c.dir, indexFile), data, 0644)
}

func (c *Cache) removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warning("failed to remove cache file", "path", path, "error", err)
	}
}
