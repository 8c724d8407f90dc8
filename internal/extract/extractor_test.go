package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ratings-cli/internal/render"
)

func testExtractor(t *testing.T) *Extractor {
	t.Helper()
	sel, err := DefaultSelectors()
	require.NoError(t, err)
	return New(sel)
}

func doc(t *testing.T, html string) render.Document {
	t.Helper()
	d, err := render.NewStaticDocumentFromString(html)
	require.NoError(t, err)
	return d
}

func TestExtract_RatingAndAdjacentReviews(t *testing.T) {
	e := testExtractor(t)
	d := doc(t, `<html><body>
		<div class="F7nice"><span aria-label="4.6 stars 1,204 Reviews"></span></div>
	</body></html>`)

	f := e.Extract(context.Background(), d, "Aurora Inn")
	assert.Equal(t, 4.6, f.Rating)
	assert.True(t, f.RatingResolved)
	// The same matched text carried the review count: no separate scan needed.
	assert.Equal(t, 1204, f.Reviews)
	assert.True(t, f.ReviewsResolved)
}

func TestExtract_SelectorPriorityOrder(t *testing.T) {
	e := testExtractor(t)
	// Both a specific and a generic selector match; the higher-ranked one wins.
	d := doc(t, `<html><body>
		<div class="F7nice"><span aria-label="4.2 stars"></span></div>
		<div aria-label="Rated 3.1 out of 5"></div>
	</body></html>`)

	f := e.Extract(context.Background(), d, "Aurora Inn")
	assert.Equal(t, 4.2, f.Rating)
	assert.True(t, f.RatingResolved)
}

func TestExtract_MetaFallback(t *testing.T) {
	e := testExtractor(t)
	d := doc(t, `<html><head>
		<meta itemprop="ratingValue" content="4.3">
	</head><body></body></html>`)

	f := e.Extract(context.Background(), d, "Aurora Inn")
	assert.Equal(t, 4.3, f.Rating)
	assert.True(t, f.RatingResolved)
	assert.False(t, f.ReviewsResolved)
	assert.Equal(t, 0, f.Reviews)
}

func TestExtract_LeadingTokenFallback(t *testing.T) {
	e := testExtractor(t)
	// A bare numeric span with no scale phrase: only the leading-token
	// probe can resolve it.
	d := doc(t, `<html><body><span class="MW4etd">4.4</span></body></html>`)

	f := e.Extract(context.Background(), d, "Aurora Inn")
	assert.Equal(t, 4.4, f.Rating)
	assert.True(t, f.RatingResolved)
}

func TestExtract_ReviewRescan(t *testing.T) {
	e := testExtractor(t)
	d := doc(t, `<html><body>
		<meta itemprop="ratingValue" content="3.9">
		<span class="OEwtMc">(2,351)</span>
	</body></html>`)

	f := e.Extract(context.Background(), d, "Aurora Inn")
	assert.Equal(t, 3.9, f.Rating)
	assert.Equal(t, 2351, f.Reviews)
	assert.True(t, f.ReviewsResolved)
}

func TestExtract_ReviewFromAriaLabel(t *testing.T) {
	e := testExtractor(t)
	d := doc(t, `<html><body>
		<span aria-label="1,523 reviews"></span>
	</body></html>`)

	f := e.Extract(context.Background(), d, "Aurora Inn")
	assert.Equal(t, 1523, f.Reviews)
	assert.True(t, f.ReviewsResolved)
	assert.False(t, f.RatingResolved)
}

func TestExtract_NothingRecoverable(t *testing.T) {
	e := testExtractor(t)
	d := doc(t, `<html><body><p>No structured data here.</p></body></html>`)

	f := e.Extract(context.Background(), d, "Aurora Inn")
	assert.Equal(t, Fields{}, f)
}

func TestExtract_Idempotent(t *testing.T) {
	e := testExtractor(t)
	d := doc(t, `<html><body>
		<div class="F7nice"><span aria-label="4.6 stars 1,204 Reviews"></span></div>
		<span class="OEwtMc">(99)</span>
	</body></html>`)

	first := e.Extract(context.Background(), d, "Aurora Inn")
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, e.Extract(context.Background(), d, "Aurora Inn"))
	}
}

func TestDefaultSelectors(t *testing.T) {
	sel, err := DefaultSelectors()
	require.NoError(t, err)
	assert.NotEmpty(t, sel.Ready)
	assert.NotEmpty(t, sel.Rating)
	assert.NotEmpty(t, sel.RatingMeta)
	assert.NotEmpty(t, sel.RatingText)
	assert.NotEmpty(t, sel.Reviews)
	assert.NotEmpty(t, sel.Reveal)
}
