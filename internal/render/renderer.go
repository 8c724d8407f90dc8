// Package render abstracts the rendering collaborator: the capability that
// turns a search query into a queryable document structure. The pipeline
// never assumes a specific engine; Browser (chromedp) and FileRenderer
// (saved HTML) both satisfy Renderer.
package render

import (
	"context"
	"strings"
	"time"
)

// Node is an immutable snapshot of one matched document node.
type Node struct {
	Label string            `json:"label"` // accessible label (aria-label)
	Text  string            `json:"text"`  // visible text
	Attrs map[string]string `json:"attrs"`
}

// Attr returns the named attribute value, or "" when absent.
func (n Node) Attr(name string) string {
	return n.Attrs[name]
}

// LabelOrText returns the accessible label when present, falling back to
// the visible text.
func (n Node) LabelOrText() string {
	if s := strings.TrimSpace(n.Label); s != "" {
		return s
	}
	return strings.TrimSpace(n.Text)
}

// Document exposes the queryable structure of one rendered result page.
type Document interface {
	// WaitReady blocks until any of the marker selectors is present, up to
	// timeout. A timeout is reported as an error; callers treat it as
	// best-effort and proceed.
	WaitReady(ctx context.Context, selectors []string, timeout time.Duration) error

	// Select returns snapshots of the nodes matching a selector expression,
	// in document-encounter order. A selector matching nothing returns an
	// empty slice, not an error.
	Select(ctx context.Context, selector string) ([]Node, error)

	// Activate triggers the index-th node matching the selector (a click),
	// revealing more document structure.
	Activate(ctx context.Context, selector string, index int) error

	// HTML returns the current serialized document, for debug snapshots.
	HTML(ctx context.Context) (string, error)
}

// ReleaseFunc tears down the session that produced a Document. It must be
// called on every exit path and is safe to call after a task is abandoned.
type ReleaseFunc func()

// Renderer opens one isolated document session per query. Sessions are
// never shared across concurrent tasks.
type Renderer interface {
	Open(ctx context.Context, query string) (Document, ReleaseFunc, error)
}
