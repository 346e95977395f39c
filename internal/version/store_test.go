package version

import (
	"errors"
	"sync"
	"testing"

	"github.com/lxcxjxhx/HOS-M2F/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	return s
}

func TestRecord_NoOpOnUnchangedHash(t *testing.T) {
	s := newTestStore(t)

	v1, created, err := s.Record("doc.md", "hash-a", "first build")
	if err != nil || !created {
		t.Fatalf("expected new version, got %v created=%v", err, created)
	}
	v2, created, err := s.Record("doc.md", "hash-a", "rebuild")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("identical tree hash must not create a new version")
	}
	if v2.ID != v1.ID {
		t.Errorf("no-op record must return the latest version, got %d want %d", v2.ID, v1.ID)
	}

	_, created, err = s.Record("doc.md", "hash-b", "edit")
	if err != nil || !created {
		t.Fatalf("changed hash must create a version: %v created=%v", err, created)
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	s.Record("doc.md", "h1", "")
	s.Record("doc.md", "h2", "")
	s.Record("other.md", "x", "")

	history, err := s.History("doc.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 versions for doc.md, got %d", len(history))
	}
	if history[0].TreeHash != "h2" || history[1].TreeHash != "h1" {
		t.Errorf("history must be newest first: %v", history)
	}
}

func TestRevert_AppendsNewVersion(t *testing.T) {
	s := newTestStore(t)
	v1, _, _ := s.Record("doc.md", "h1", "")
	s.Record("doc.md", "h2", "")

	reverted, err := s.Revert("doc.md", v1.ID)
	if err != nil {
		t.Fatalf("revert failed: %v", err)
	}
	if reverted.TreeHash != "h1" {
		t.Errorf("revert must point at the old hash, got %q", reverted.TreeHash)
	}
	if reverted.ID <= v1.ID {
		t.Errorf("revert must append, not rewrite: id %d", reverted.ID)
	}

	history, _ := s.History("doc.md")
	if len(history) != 3 {
		t.Errorf("history must keep all versions, got %d", len(history))
	}

	latest, err := s.Latest("doc.md")
	if err != nil {
		t.Fatal(err)
	}
	if latest.TreeHash != "h1" {
		t.Errorf("latest after revert must be h1, got %q", latest.TreeHash)
	}
}

func TestRevert_UnknownVersion(t *testing.T) {
	s := newTestStore(t)
	s.Record("doc.md", "h1", "")

	if _, err := s.Revert("doc.md", 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLatest_Empty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Latest("never-built.md"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRecord_ConcurrentUnchangedHash(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.Record("doc.md", "hash-a", "first build"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.Record("doc.md", "hash-a", "rebuild"); err != nil {
				t.Errorf("record: %v", err)
			}
		}()
	}
	wg.Wait()

	history, err := s.History("doc.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Errorf("concurrent unchanged builds must not append versions, history has %d", len(history))
	}
}
