package driver

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"shade/internal/diag"
	"shade/internal/irbin"
)

// cacheSchema changes whenever CacheEntry or the pipeline's output changes
// shape; entries with another schema are ignored.
const cacheSchema uint16 = 1

// Digest identifies one (input, target, options) combination.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// CacheKey hashes the input bytes together with everything that affects the
// pipeline's result for them.
func CacheKey(content []byte, target Target, variant string) Digest {
	h := sha256.New()
	var hdr [5]byte
	binary.LittleEndian.PutUint16(hdr[:2], cacheSchema)
	binary.LittleEndian.PutUint16(hdr[2:4], irbin.SchemaVersion)
	hdr[4] = byte(target)
	_, _ = h.Write(hdr[:])
	_, _ = h.Write([]byte(variant))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(content)
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Cache stores pipeline results on disk as msgpack files. Safe for
// concurrent use; a nil Cache stores nothing.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// CacheEntry is what a cache hit restores.
type CacheEntry struct {
	Schema      uint16
	Output      []byte
	Diagnostics []CachedDiagnostic
}

type CachedNode struct {
	Kind uint8
	ID   int32
	Path string
}

type CachedNote struct {
	Node CachedNode
	Msg  string
}

type CachedDiagnostic struct {
	Severity uint8
	Code     uint16
	Message  string
	Primary  CachedNode
	Notes    []CachedNote
}

func toCachedNode(n diag.Node) CachedNode {
	return CachedNode{Kind: uint8(n.Kind), ID: n.ID, Path: n.Path}
}

func (n CachedNode) node() diag.Node {
	return diag.Node{Kind: diag.NodeKind(n.Kind), ID: n.ID, Path: n.Path}
}

func newCacheEntry(output []byte, bag *diag.Bag) *CacheEntry {
	e := &CacheEntry{Schema: cacheSchema, Output: output}
	for _, d := range bag.Items() {
		if d.Code == diag.ObsTimings {
			continue
		}
		cd := CachedDiagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Primary:  toCachedNode(d.Primary),
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{Node: toCachedNode(n.Node), Msg: n.Msg})
		}
		e.Diagnostics = append(e.Diagnostics, cd)
	}
	return e
}

func (e *CacheEntry) valid() bool {
	for _, cd := range e.Diagnostics {
		if !diag.Severity(cd.Severity).Valid() {
			return false
		}
	}
	return true
}

// restore replays the cached diagnostics into bag.
func (e *CacheEntry) restore(bag *diag.Bag) {
	for _, cd := range e.Diagnostics {
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code), cd.Primary.node(), cd.Message)
		for _, n := range cd.Notes {
			d = d.WithNote(n.Node.node(), n.Msg)
		}
		bag.Add(d)
	}
}

// OpenCache opens $XDG_CACHE_HOME/<app>, falling back to ~/.cache/<app>.
func OpenCache(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewCache(filepath.Join(base, app))
}

// NewCache opens a cache rooted at dir, creating it if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Digest) string {
	s := key.String()
	return filepath.Join(c.dir, "results", s[:2], s+".mp")
}

// Put writes e atomically under key.
func (c *Cache) Put(key Digest, e *CacheEntry) (err error) {
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
	if err = msgpack.NewEncoder(f).Encode(e); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get loads the entry for key. Missing, corrupt and stale entries are
// misses; only other I/O failures are returned as errors.
func (c *Cache) Get(key Digest) (*CacheEntry, bool, error) {
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
	defer f.Close()
	var e CacheEntry
	if derr := msgpack.NewDecoder(f).Decode(&e); derr != nil || e.Schema != cacheSchema || !e.valid() {
		return nil, false, nil
	}
	return &e, true, nil
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	old := fmt.Sprintf("%s.old-%d", c.dir, time.Now().UnixNano())
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
