package render

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// StaticDocument is a goquery-backed Document over pre-rendered HTML. It
// powers offline runs and extractor tests; the structure is fixed, so
// Activate is unsupported and callers fall through to defaults.
type StaticDocument struct {
	doc *goquery.Document
}

// NewStaticDocument parses HTML into a queryable document.
func NewStaticDocument(r io.Reader) (*StaticDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "render: parse html")
	}
	return &StaticDocument{doc: doc}, nil
}

// NewStaticDocumentFromString parses an HTML string, for tests.
func NewStaticDocumentFromString(html string) (*StaticDocument, error) {
	return NewStaticDocument(strings.NewReader(html))
}

func (d *StaticDocument) WaitReady(_ context.Context, selectors []string, _ time.Duration) error {
	for _, sel := range selectors {
		if d.doc.Find(sel).Length() > 0 {
			return nil
		}
	}
	return eris.New("render: no ready marker in static document")
}

func (d *StaticDocument) Select(_ context.Context, selector string) ([]Node, error) {
	var nodes []Node
	d.doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxNodesPerSelect {
			return false
		}
		nodes = append(nodes, nodeFromSelection(s))
		return true
	})
	return nodes, nil
}

func (d *StaticDocument) Activate(_ context.Context, selector string, index int) error {
	return eris.Errorf("render: static document cannot activate %q[%d]", selector, index)
}

func (d *StaticDocument) HTML(_ context.Context) (string, error) {
	html, err := d.doc.Html()
	if err != nil {
		return "", eris.Wrap(err, "render: serialize static document")
	}
	return html, nil
}

func nodeFromSelection(s *goquery.Selection) Node {
	attrs := map[string]string{}
	if len(s.Nodes) > 0 {
		for _, a := range s.Nodes[0].Attr {
			attrs[a.Key] = a.Val
		}
	}
	return Node{
		Label: attrs["aria-label"],
		Text:  strings.TrimSpace(s.Text()),
		Attrs: attrs,
	}
}

// FileRenderer serves saved pages from a directory, keyed by query slug.
// It satisfies Renderer for offline runs: a query "Aurora Inn IL" opens
// <dir>/aurora-inn-il.html.
type FileRenderer struct {
	dir string
}

// NewFileRenderer creates a FileRenderer rooted at dir.
func NewFileRenderer(dir string) *FileRenderer {
	return &FileRenderer{dir: dir}
}

func (r *FileRenderer) Open(_ context.Context, query string) (Document, ReleaseFunc, error) {
	path := filepath.Join(r.dir, Slug(query)+".html")
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "render: open saved page for %q", query)
	}
	defer f.Close()

	doc, err := NewStaticDocument(f)
	if err != nil {
		return nil, nil, err
	}
	return doc, func() {}, nil
}

// Slug normalizes a query into a file-name-safe key: lowercase, runs of
// non-alphanumerics collapsed to single hyphens.
func Slug(query string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(query) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
