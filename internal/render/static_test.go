package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticDocument_Select(t *testing.T) {
	d, err := NewStaticDocumentFromString(`<html><body>
		<span class="MW4etd" aria-label="4.5 stars" data-idx="7">4.5</span>
		<span class="MW4etd">3.0</span>
	</body></html>`)
	require.NoError(t, err)

	nodes, err := d.Select(context.Background(), "span.MW4etd")
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, "4.5 stars", nodes[0].Label)
	assert.Equal(t, "4.5", nodes[0].Text)
	assert.Equal(t, "7", nodes[0].Attr("data-idx"))
	assert.Equal(t, "4.5 stars", nodes[0].LabelOrText())

	assert.Empty(t, nodes[1].Label)
	assert.Equal(t, "3.0", nodes[1].LabelOrText())
}

func TestStaticDocument_SelectNoMatch(t *testing.T) {
	d, err := NewStaticDocumentFromString(`<html><body></body></html>`)
	require.NoError(t, err)

	nodes, err := d.Select(context.Background(), "div.missing")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestStaticDocument_WaitReady(t *testing.T) {
	d, err := NewStaticDocumentFromString(`<html><body><div role="feed"></div></body></html>`)
	require.NoError(t, err)

	err = d.WaitReady(context.Background(), []string{`div[role="article"]`, `div[role="feed"]`}, time.Second)
	assert.NoError(t, err)

	err = d.WaitReady(context.Background(), []string{`div[role="article"]`}, time.Second)
	assert.Error(t, err)
}

func TestStaticDocument_ActivateUnsupported(t *testing.T) {
	d, err := NewStaticDocumentFromString(`<html><body><div role="article"></div></body></html>`)
	require.NoError(t, err)

	assert.Error(t, d.Activate(context.Background(), `div[role="article"]`, 0))
}

func TestFileRenderer(t *testing.T) {
	dir := t.TempDir()
	html := `<html><body><span class="MW4etd">4.1</span></body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aurora-inn-il.html"), []byte(html), 0o644))

	r := NewFileRenderer(dir)

	doc, release, err := r.Open(context.Background(), "Aurora Inn IL")
	require.NoError(t, err)
	defer release()

	nodes, err := doc.Select(context.Background(), "span.MW4etd")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "4.1", nodes[0].Text)
}

func TestFileRenderer_MissingPage(t *testing.T) {
	r := NewFileRenderer(t.TempDir())

	_, _, err := r.Open(context.Background(), "Nowhere Hotel")
	assert.Error(t, err)
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Aurora Inn IL", "aurora-inn-il"},
		{"  The   Grand  Palace ", "the-grand-palace"},
		{"café & spa", "café-spa"},
		{"B&B #12", "b-b-12"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), "slug of %q", tt.in)
	}
}
