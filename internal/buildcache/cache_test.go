package buildcache

import (
	"bytes"
	"testing"

	"github.com/lxcxjxhx/HOS-M2F/internal/storage"
)

func TestCompute_Deterministic(t *testing.T) {
	a := Compute("hash1", "paper", "html", map[string]string{"toc": "true", "css": "dark"})
	b := Compute("hash1", "paper", "html", map[string]string{"css": "dark", "toc": "true"})
	if a != b {
		t.Error("option map order must not change the fingerprint")
	}
}

func TestCompute_EveryInputMatters(t *testing.T) {
	base := Compute("hash1", "paper", "html", nil)
	variants := []Fingerprint{
		Compute("hash2", "paper", "html", nil),
		Compute("hash1", "patent", "html", nil),
		Compute("hash1", "paper", "latex", nil),
		Compute("hash1", "paper", "html", map[string]string{"toc": "true"}),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d: fingerprint must differ from base", i)
		}
	}
}

func TestCache_StoreLookupInvalidate(t *testing.T) {
	c := New()
	fp := Compute("h", "paper", "md", nil)

	if _, ok := c.Lookup(fp); ok {
		t.Fatal("empty cache must miss")
	}
	c.Store("doc.md", fp, []byte("artifact"))
	got, ok := c.Lookup(fp)
	if !ok || !bytes.Equal(got, []byte("artifact")) {
		t.Fatalf("expected cached artifact, got %q ok=%v", got, ok)
	}

	c.Invalidate("doc.md")
	if _, ok := c.Lookup(fp); ok {
		t.Error("invalidation must drop the document's entries")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestCache_InvalidateIsPerDocument(t *testing.T) {
	c := New()
	fpA := Compute("a", "paper", "md", nil)
	fpB := Compute("b", "paper", "md", nil)
	c.Store("a.md", fpA, []byte("A"))
	c.Store("b.md", fpB, []byte("B"))

	c.Invalidate("a.md")
	if _, ok := c.Lookup(fpA); ok {
		t.Error("a.md entry must be gone")
	}
	if _, ok := c.Lookup(fpB); !ok {
		t.Error("b.md entry must survive")
	}
}

func TestSQLStore_PersistsAcrossCaches(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store, err := NewSQLStore(db)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}

	first := New()
	if err := first.AttachStore(store); err != nil {
		t.Fatalf("attach: %v", err)
	}
	fp := Compute("h", "book", "html", nil)
	first.Store("book.md", fp, []byte("rendered"))

	// A fresh cache over the same store sees the entry.
	second := New()
	if err := second.AttachStore(store); err != nil {
		t.Fatalf("attach second: %v", err)
	}
	got, ok := second.Lookup(fp)
	if !ok || !bytes.Equal(got, []byte("rendered")) {
		t.Fatalf("persisted entry not reloaded: %q ok=%v", got, ok)
	}

	// Invalidation reaches the store too.
	second.Invalidate("book.md")
	third := New()
	if err := third.AttachStore(store); err != nil {
		t.Fatalf("attach third: %v", err)
	}
	if _, ok := third.Lookup(fp); ok {
		t.Error("invalidated entry must not be reloaded")
	}
}

func TestCache_SurvivesStoreFailure(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	store, err := NewSQLStore(db)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	c := New()
	if err := c.AttachStore(store); err != nil {
		t.Fatalf("attach: %v", err)
	}
	db.Close()

	fp := Compute("h", "sop", "md", nil)
	c.Store("sop.md", fp, []byte("steps"))
	got, ok := c.Lookup(fp)
	if !ok || !bytes.Equal(got, []byte("steps")) {
		t.Fatalf("in-memory entry must survive a failed persist: %q ok=%v", got, ok)
	}

	c.Invalidate("sop.md")
	if _, ok := c.Lookup(fp); ok {
		t.Error("invalidation must drop the entry even when the store is down")
	}
}
