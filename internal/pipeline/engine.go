// Package pipeline wires the compilation layers together: structural parse,
// resource extraction, canonical reconstruction, mode validation and
// incremental rendering.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lxcxjxhx/HOS-M2F/internal/buildcache"
	"github.com/lxcxjxhx/HOS-M2F/internal/canonical"
	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
	"github.com/lxcxjxhx/HOS-M2F/internal/extract"
	"github.com/lxcxjxhx/HOS-M2F/internal/mode"
	"github.com/lxcxjxhx/HOS-M2F/internal/parser"
	"github.com/lxcxjxhx/HOS-M2F/internal/render"
	"github.com/lxcxjxhx/HOS-M2F/internal/resource"
	"github.com/lxcxjxhx/HOS-M2F/internal/validate"
	"github.com/lxcxjxhx/HOS-M2F/internal/version"
)

// Source is one input document to compile.
type Source struct {
	Path   string
	Format parser.Format
	Data   []byte
}

// Compilation is the result of running a source through the three layers.
type Compilation struct {
	Document *doctree.Document
	Tree     *canonical.Tree
	Findings []doctree.Finding
}

// BuildRequest asks for a rendered artifact of one document.
type BuildRequest struct {
	Source  Source
	Mode    string
	Format  string
	Options render.Options
	Message string
}

// BuildResult carries the artifact plus everything observable about the
// build: validation outcome, parse findings, cache behavior and the version
// recorded for the canonical tree.
type BuildResult struct {
	Artifact   []byte            `json:"-"`
	Extension  string            `json:"extension"`
	Mode       string            `json:"mode"`
	Format     string            `json:"format"`
	TreeHash   string            `json:"tree_hash"`
	Sections   int               `json:"sections"`
	CacheHits  int               `json:"cache_hits"`
	Validation validate.Result   `json:"validation"`
	Findings   []doctree.Finding `json:"findings,omitempty"`
	Version    *version.Version  `json:"version,omitempty"`
}

// Engine owns the shared state of the compiler: the mode registry, the
// content-addressed resource store, the build cache and (optionally) the
// version history and resource resolver.
type Engine struct {
	modes    *mode.Registry
	store    *resource.Store
	cache    *buildcache.Cache
	resolver extract.Resolver
	versions *version.Store
	log      *slog.Logger

	batchLimit int
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver supplies the collaborator used to fetch image payloads and
// render diagrams. Without it those resources stay pending.
func WithResolver(r extract.Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithVersions enables version recording on every build.
func WithVersions(s *version.Store) Option {
	return func(e *Engine) { e.versions = s }
}

// WithCache replaces the default in-memory cache, e.g. with one attached to
// a persistent store.
func WithCache(c *buildcache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithBatchLimit caps concurrent document builds in BuildBatch.
func WithBatchLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchLimit = n
		}
	}
}

func NewEngine(modes *mode.Registry, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		modes:      modes,
		store:      resource.NewStore(),
		cache:      buildcache.New(),
		log:        log,
		batchLimit: 4,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Resources exposes the shared resource store.
func (e *Engine) Resources() *resource.Store { return e.store }

// Cache exposes the build cache.
func (e *Engine) Cache() *buildcache.Cache { return e.cache }

// Versions returns the version store, nil when history is disabled.
func (e *Engine) Versions() *version.Store { return e.versions }

// Compile runs layers 1 through 3 on a source: parse into the typed tree,
// extract and deduplicate resources, then fold into the canonical section
// tree. Findings from parsing and extraction are merged in order.
func (e *Engine) Compile(ctx context.Context, src Source) (*Compilation, error) {
	format := src.Format
	if format == "" {
		format = parser.Detect(src.Path)
	}
	p, err := parser.ForFormat(format)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(src.Data, src.Path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Path, err)
	}

	findings := append([]doctree.Finding{}, doc.Findings...)

	ex := extract.New(e.store, e.resolver, e.log)
	extFindings, err := ex.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	findings = append(findings, extFindings...)

	tree := canonical.Build(doc)
	return &Compilation{Document: doc, Tree: tree, Findings: findings}, nil
}

// Check compiles a source and validates it against a mode without
// rendering. An empty mode name falls back to the document's front matter.
func (e *Engine) Check(ctx context.Context, src Source, modeName string) (*Compilation, validate.Result, error) {
	comp, err := e.Compile(ctx, src)
	if err != nil {
		return nil, validate.Result{}, err
	}
	resolved, err := e.resolveMode(modeName, comp.Document)
	if err != nil {
		return nil, validate.Result{}, err
	}
	return comp, validate.Validate(comp.Tree, resolved), nil
}

// Build compiles, validates and renders one document. Sections whose
// fingerprint is already cached are served from the cache; only changed
// sections are re-rendered. Validation errors do not block rendering, the
// result reports them alongside the artifact.
func (e *Engine) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	r, err := render.ForFormat(req.Format)
	if err != nil {
		return nil, &mode.ConfigError{Code: mode.CodeUnsupportedFormat, Detail: req.Format}
	}

	comp, err := e.Compile(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	resolved, err := e.resolveMode(req.Mode, comp.Document)
	if err != nil {
		return nil, err
	}

	res := &BuildResult{
		Extension:  r.Extension(),
		Mode:       resolved.Name,
		Format:     req.Format,
		TreeHash:   comp.Tree.Hash(),
		Validation: validate.Validate(comp.Tree, resolved),
		Findings:   comp.Findings,
	}

	if render.WholeDocument(req.Format) {
		err = e.renderWhole(comp, resolved.Name, req, r, res)
	} else {
		err = e.renderSections(comp, resolved.Name, req, r, res)
	}
	if err != nil {
		return nil, err
	}

	if e.versions != nil {
		v, _, err := e.versions.Record(comp.Tree.DocumentPath, res.TreeHash, req.Message)
		if err != nil {
			return nil, fmt.Errorf("record version: %w", err)
		}
		res.Version = v
	}
	return res, nil
}

// renderSections renders per section with fingerprint lookups and
// concatenates the artifacts in preorder.
func (e *Engine) renderSections(comp *Compilation, modeName string, req BuildRequest, r render.Renderer, res *BuildResult) error {
	flat := comp.Tree.Flatten()
	res.Sections = len(flat)

	var buf bytes.Buffer
	for _, s := range flat {
		fp := buildcache.Compute(s.ContentHash(), modeName, req.Format, req.Options)
		if artifact, ok := e.cache.Lookup(fp); ok {
			res.CacheHits++
			buf.Write(artifact)
			continue
		}
		artifact, err := r.RenderSection(s, e.store, req.Options)
		if err != nil {
			return fmt.Errorf("render section %s: %w", s.PathString(), err)
		}
		e.cache.Store(comp.Tree.DocumentPath, fp, artifact)
		buf.Write(artifact)
	}
	res.Artifact = buf.Bytes()
	return nil
}

// renderWhole handles container formats that cannot be concatenated: one
// fingerprint over the whole tree, one cached artifact.
func (e *Engine) renderWhole(comp *Compilation, modeName string, req BuildRequest, r render.Renderer, res *BuildResult) error {
	dr, ok := r.(render.DocumentRenderer)
	if !ok {
		return fmt.Errorf("format %s: %w", req.Format, render.ErrUnsupportedFormat)
	}
	res.Sections = len(comp.Tree.Flatten())

	fp := buildcache.Compute(comp.Tree.Hash(), modeName, req.Format, req.Options)
	if artifact, ok := e.cache.Lookup(fp); ok {
		res.CacheHits = 1
		res.Artifact = artifact
		return nil
	}
	artifact, err := dr.RenderDocument(comp.Tree, e.store, req.Options)
	if err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	e.cache.Store(comp.Tree.DocumentPath, fp, artifact)
	res.Artifact = artifact
	return nil
}

// BuildBatch builds several documents concurrently. Results keep request
// order; the first error cancels the remaining builds.
func (e *Engine) BuildBatch(ctx context.Context, reqs []BuildRequest) ([]*BuildResult, error) {
	results := make([]*BuildResult, len(reqs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchLimit)
	for i, req := range reqs {
		g.Go(func() error {
			r, err := e.Build(gctx, req)
			if err != nil {
				return fmt.Errorf("build %s: %w", req.Source.Path, err)
			}
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Invalidate drops all cached artifacts for one document path.
func (e *Engine) Invalidate(documentPath string) {
	e.cache.Invalidate(documentPath)
	e.log.Debug("cache invalidated", "path", documentPath)
}

// resolveMode picks the effective mode: an explicit request wins, otherwise
// the document front matter, otherwise the unknown-mode error surfaces.
func (e *Engine) resolveMode(name string, doc *doctree.Document) (mode.Resolved, error) {
	if name == "" {
		name = doc.Meta.Mode
	}
	if name == "" {
		return mode.Resolved{}, &mode.ConfigError{Code: mode.CodeUnknownMode, Detail: "no mode requested and none in front matter"}
	}
	return e.modes.Resolve(name)
}
