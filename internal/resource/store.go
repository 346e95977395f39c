// Package resource implements the content-addressed store for extracted
// document resources. Resources are deduplicated by (kind, content hash) and
// receive deterministic per-kind sequential ids at first occurrence.
package resource

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
)

// Kind classifies a stored resource.
type Kind string

const (
	KindImage   Kind = "image"
	KindCode    Kind = "code"
	KindDiagram Kind = "diagram"
)

// idPrefix maps a kind to its id prefix; ids look like img_000, code_001,
// mermaid_002.
var idPrefix = map[Kind]string{
	KindImage:   "img",
	KindCode:    "code",
	KindDiagram: "mermaid",
}

// State tracks whether a resource's payload has been materialized.
type State string

const (
	StateResolved State = "resolved"
	StatePending  State = "pending"
)

// Resource is a deduplicated payload owned by the Store. Document trees
// reference it through placeholder nodes carrying its ID.
type Resource struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Hash     string `json:"hash"`
	Src      string `json:"src,omitempty"`
	Alt      string `json:"alt,omitempty"`
	Language string `json:"language,omitempty"`
	Body     string `json:"body,omitempty"`
	Data     []byte `json:"-"`
	State    State  `json:"state"`
}

type key struct {
	kind Kind
	hash string
}

// Store is a thread-safe content-addressed resource cache shared across
// concurrently processed documents. Lookup and insertion are atomic per key,
// so two documents extracting an identical resource converge on one entry.
type Store struct {
	mu       sync.Mutex
	byKey    map[key]*Resource
	byID     map[string]*Resource
	order    []*Resource
	counters map[Kind]int
}

func NewStore() *Store {
	return &Store{
		byKey:    make(map[key]*Resource),
		byID:     make(map[string]*Resource),
		counters: make(map[Kind]int),
	}
}

// Sum returns the hex-encoded BLAKE3 digest of data.
func Sum(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumText hashes text after newline and edge-whitespace normalization, so
// that trailing whitespace or CRLF line endings do not defeat deduplication.
func SumText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return Sum([]byte(strings.TrimSpace(s)))
}

// GetOrInsert returns the resource stored under (kind, hash), inserting one
// built by init when absent. The check-then-insert is a single critical
// section; init must not block.
func (s *Store) GetOrInsert(kind Kind, hash string, init func(id string) *Resource) (*Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{kind: kind, hash: hash}
	if res, ok := s.byKey[k]; ok {
		return res, false
	}

	id := fmt.Sprintf("%s_%03d", idPrefix[kind], s.counters[kind])
	s.counters[kind]++

	res := init(id)
	res.ID = id
	res.Kind = kind
	res.Hash = hash

	s.byKey[k] = res
	s.byID[id] = res
	s.order = append(s.order, res)
	return res, true
}

// Get returns the resource stored under (kind, hash), if any.
func (s *Store) Get(kind Kind, hash string) (*Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.byKey[key{kind: kind, hash: hash}]
	return res, ok
}

// ByID returns the resource with the given placeholder id.
func (s *Store) ByID(id string) (*Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.byID[id]
	return res, ok
}

// SetPayload records resolved payload bytes for an existing resource. Used
// after the external resolver returns, outside the insert critical section.
func (s *Store) SetPayload(kind Kind, hash string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.byKey[key{kind: kind, hash: hash}]; ok {
		res.Data = data
		res.State = StateResolved
	}
}

// Len returns the number of stored resources.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byKey)
}

// List returns stored resources in first-occurrence order.
func (s *Store) List() []*Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Resource, len(s.order))
	copy(out, s.order)
	return out
}
