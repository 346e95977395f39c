// Package extract implements the resource extraction layer: it walks a
// document tree in order, moves embeddable payloads into the shared resource
// store, and replaces their nodes with placeholder references.
package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lxcxjxhx/HOS-M2F/internal/doctree"
	"github.com/lxcxjxhx/HOS-M2F/internal/resource"
)

// Resolver is the external collaborator that materializes resource payloads.
// It may be slow or networked; failures degrade to warnings, never aborts.
type Resolver interface {
	ResolveImage(ctx context.Context, src string) ([]byte, error)
	RenderDiagram(ctx context.Context, language, source string) ([]byte, error)
}

// Extractor replaces Image, CodeBlock and DiagramBlock nodes with
// placeholder references backed by the store.
type Extractor struct {
	store    *resource.Store
	resolver Resolver
	log      *slog.Logger
}

// New creates an Extractor. resolver may be nil, in which case image and
// diagram payloads stay pending.
func New(store *resource.Store, resolver Resolver, log *slog.Logger) *Extractor {
	return &Extractor{store: store, resolver: resolver, log: log}
}

// Extract mutates doc in place. Ids are assigned in document order at first
// occurrence, so identical inputs yield identical ids. On cancellation the
// walk stops between resources; the store never holds a partial resource.
func (e *Extractor) Extract(ctx context.Context, doc *doctree.Document) ([]doctree.Finding, error) {
	var findings []doctree.Finding
	err := e.walk(ctx, doc.Root, &findings)
	return findings, err
}

func (e *Extractor) walk(ctx context.Context, n *doctree.Node, findings *[]doctree.Finding) error {
	for _, c := range n.Children {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch c.Kind {
		case doctree.KindImage:
			e.extractImage(ctx, c, findings)
		case doctree.KindCode:
			e.extractCode(c)
		case doctree.KindDiagram:
			e.extractDiagram(ctx, c, findings)
		default:
			if err := e.walk(ctx, c, findings); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Extractor) extractImage(ctx context.Context, n *doctree.Node, findings *[]doctree.Finding) {
	src, alt := n.Src, n.Alt
	hash := resource.SumText(src)
	res, inserted := e.store.GetOrInsert(resource.KindImage, hash, func(id string) *resource.Resource {
		return &resource.Resource{Src: src, Alt: alt, State: resource.StatePending}
	})
	replace(n, res)

	if !inserted || e.resolver == nil {
		return
	}
	// Resolution happens outside the store's critical section: no lock is
	// held across the network boundary.
	data, err := e.resolver.ResolveImage(ctx, src)
	if err != nil {
		e.log.Warn("image fetch failed", "src", src, "error", err)
		*findings = append(*findings, doctree.Finding{
			Severity: doctree.SeverityWarning,
			Code:     "image_fetch",
			Message:  fmt.Sprintf("image %s could not be fetched: %v", src, err),
		})
		return
	}
	e.store.SetPayload(resource.KindImage, hash, data)
}

func (e *Extractor) extractCode(n *doctree.Node) {
	hash := resource.SumText(n.Language + "\n" + n.Body)
	lang, body := n.Language, n.Body
	res, _ := e.store.GetOrInsert(resource.KindCode, hash, func(id string) *resource.Resource {
		return &resource.Resource{Language: lang, Body: body, State: resource.StateResolved}
	})
	replace(n, res)
}

func (e *Extractor) extractDiagram(ctx context.Context, n *doctree.Node, findings *[]doctree.Finding) {
	hash := resource.SumText(n.Body)
	lang, body := n.Language, n.Body
	res, inserted := e.store.GetOrInsert(resource.KindDiagram, hash, func(id string) *resource.Resource {
		return &resource.Resource{Language: lang, Body: body, State: resource.StatePending}
	})
	replace(n, res)

	if !inserted || e.resolver == nil {
		return
	}
	data, err := e.resolver.RenderDiagram(ctx, lang, body)
	if err != nil {
		e.log.Warn("diagram render failed", "language", lang, "error", err)
		*findings = append(*findings, doctree.Finding{
			Severity: doctree.SeverityWarning,
			Code:     "diagram_render",
			Message:  fmt.Sprintf("%s diagram could not be rendered: %v", lang, err),
		})
		return
	}
	e.store.SetPayload(resource.KindDiagram, hash, data)
}

// replace rewrites n in place as a placeholder reference.
func replace(n *doctree.Node, res *resource.Resource) {
	*n = doctree.Node{
		Kind:    doctree.KindPlaceholder,
		RefKind: string(res.Kind),
		RefID:   res.ID,
	}
}
