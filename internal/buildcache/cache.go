// Package buildcache implements the incremental build cache: rendered
// artifacts keyed by a deterministic fingerprint over section content, mode,
// output format and format options. The cache is purely an optimization;
// lookups must be byte-identical to a fresh render.
package buildcache

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/zeebo/blake3"
)

// Fingerprint identifies one renderable unit.
type Fingerprint string

// Compute derives the fingerprint for a section render. Options are folded
// in sorted key order so map iteration order cannot leak into the key.
func Compute(sectionHash, modeName, format string, options map[string]string) Fingerprint {
	h := blake3.New()
	io.WriteString(h, sectionHash)
	io.WriteString(h, "\x1f")
	io.WriteString(h, modeName)
	io.WriteString(h, "\x1f")
	io.WriteString(h, format)

	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "\x1f%s=%s", k, options[k])
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// Cache is a thread-safe artifact cache shared across concurrent builds.
// An optional SQLStore mirrors entries across process restarts; in-memory
// state stays authoritative.
type Cache struct {
	mu      sync.RWMutex
	entries map[Fingerprint][]byte
	byDoc   map[string]map[Fingerprint]struct{}
	docOf   map[Fingerprint]string
	store   *SQLStore
}

func New() *Cache {
	return &Cache{
		entries: make(map[Fingerprint][]byte),
		byDoc:   make(map[string]map[Fingerprint]struct{}),
		docOf:   make(map[Fingerprint]string),
	}
}

// AttachStore loads persisted entries and mirrors future writes to s.
func (c *Cache) AttachStore(s *SQLStore) error {
	rows, err := s.LoadAll()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = s
	for _, row := range rows {
		c.putLocked(row.DocumentPath, row.Fingerprint, row.Artifact)
	}
	return nil
}

// Lookup returns the cached artifact for fp, if any.
func (c *Cache) Lookup(fp Fingerprint) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	artifact, ok := c.entries[fp]
	return artifact, ok
}

// Store records an artifact for fp, attributed to the document it derives
// from so Invalidate can drop it later.
func (c *Cache) Store(documentPath string, fp Fingerprint, artifact []byte) {
	c.mu.Lock()
	c.putLocked(documentPath, fp, artifact)
	store := c.store
	c.mu.Unlock()

	if store != nil {
		if err := store.Put(documentPath, fp, artifact); err != nil {
			slog.Warn("cache persist failed", slog.String("path", documentPath), slog.Any("error", err))
		}
	}
}

func (c *Cache) putLocked(documentPath string, fp Fingerprint, artifact []byte) {
	c.entries[fp] = artifact
	c.docOf[fp] = documentPath
	if c.byDoc[documentPath] == nil {
		c.byDoc[documentPath] = make(map[Fingerprint]struct{})
	}
	c.byDoc[documentPath][fp] = struct{}{}
}

// Invalidate drops every entry derived from documentPath. Used for forced
// rebuilds, outside the normal fingerprint comparison.
func (c *Cache) Invalidate(documentPath string) {
	c.mu.Lock()
	for fp := range c.byDoc[documentPath] {
		delete(c.entries, fp)
		delete(c.docOf, fp)
	}
	delete(c.byDoc, documentPath)
	store := c.store
	c.mu.Unlock()

	if store != nil {
		if err := store.DeleteByDocument(documentPath); err != nil {
			slog.Warn("cache purge failed", slog.String("path", documentPath), slog.Any("error", err))
		}
	}
}

// Len returns the number of cached artifacts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
