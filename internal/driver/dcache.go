package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"tpcheck/internal/tparams"
)

// Current schema version - increment when CachedReport format changes
const diskCacheSchemaVersion uint16 = 1

// CacheKey identifies a report by file content, tool version and exclusion set.
type CacheKey [32]byte

// String returns the key in hex.
func (k CacheKey) String() string { return hex.EncodeToString(k[:]) }

// MakeCacheKey hashes the inputs that determine a FileReport.
func MakeCacheKey(content []byte, toolVersion string, exclusion tparams.ExclusionSet) CacheKey {
	h := sha256.New()
	_, _ = h.Write([]byte(toolVersion))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strings.Join(exclusion.Names(), ",")))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(content)
	var out CacheKey
	copy(out[:], h.Sum(nil))
	return out
}

// DiskCache stores resolved file reports on disk, one msgpack file per key.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedReport is the on-disk payload.
type CachedReport struct {
	// Schema version for safe invalidation when format changes
	Schema uint16
	Report FileReport
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt opens a cache rooted at dir, creating it if needed.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key CacheKey) string {
	return filepath.Join(c.dir, "reports", key.String()+".mp")
}

// Put serializes and writes a report to the disk cache.
func (c *DiskCache) Put(key CacheKey, report *FileReport) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	payload := CachedReport{Schema: diskCacheSchemaVersion, Report: *report}
	payload.Report.Cached = false
	if err = msgpack.NewEncoder(f).Encode(&payload); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), p)
}

// Get reads a report from the disk cache. A missing entry or one written
// with another schema is a miss.
func (c *DiskCache) Get(key CacheKey) (*FileReport, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() { _ = f.Close() }()

	var payload CachedReport
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false, err
	}
	if payload.Schema != diskCacheSchemaVersion {
		return nil, false, nil
	}
	payload.Report.Cached = true
	return &payload.Report, true, nil
}

// DropAll removes every cached report.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "reports"))
}
