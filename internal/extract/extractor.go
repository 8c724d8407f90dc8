// Package extract recovers rating and review-count fields from noisy,
// semi-structured result pages. Probes are tried in priority order and the
// first success wins per field; any internal failure degrades to omission
// of that field, never an error to the caller.
package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/ratings-cli/internal/render"
)

// Fields is the extractor's output. Unresolved fields keep their zero
// defaults; the Resolved flags record which were actually observed.
type Fields struct {
	Rating          float64
	RatingResolved  bool
	Reviews         int
	ReviewsResolved bool
}

var (
	// A numeric followed by a scale phrase, e.g. "4.6 stars", "4 out of 5".
	ratingPhrase = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:stars?|out of 5|/\s*5|rating|rated)`)
	// A count followed by a "reviews" token, thousands separators allowed.
	reviewPhrase = regexp.MustCompile(`(?i)\(?([\d,]+)\)?\s*reviews?`)
	// First decimal-or-integer run at the start of a text node.
	leadingNumber = regexp.MustCompile(`^\(?\s*(\d+(?:\.\d+)?)`)
	// Any decimal-or-integer run.
	numberRun = regexp.MustCompile(`\d+(?:\.\d+)?`)
	// Any integer run with optional thousands separators.
	countRun = regexp.MustCompile(`\d[\d,]*`)
)

// Extractor applies the layered fallback chain over a rendered document.
type Extractor struct {
	sel SelectorTable
}

// New creates an Extractor with the given selector policy.
func New(sel SelectorTable) *Extractor {
	return &Extractor{sel: sel}
}

// Extract runs the chain. Given identical document structure the result is
// identical: selector-priority order first, node-encounter order within a
// selector.
func (e *Extractor) Extract(ctx context.Context, doc render.Document, hotelName string) Fields {
	var f Fields
	log := zap.L().With(zap.String("component", "extract"), zap.String("hotel", hotelName))

	probes := []struct {
		name string
		run  func(context.Context, render.Document, *Fields, *zap.Logger)
	}{
		{"rating_labels", e.ratingFromLabels},
		{"rating_meta", e.ratingFromMeta},
		{"rating_leading_token", e.ratingFromLeadingToken},
	}
	for _, p := range probes {
		if f.RatingResolved {
			break
		}
		p.run(ctx, doc, &f, log)
	}

	if !f.ReviewsResolved {
		e.reviewsFromSelectors(ctx, doc, &f, log)
	}

	return f
}

// ratingFromLabels scans the ranked rating selectors for a node whose
// accessible label or text carries a scale phrase. The same matched text is
// opportunistically mined for an adjacent review count, short-circuiting
// the separate review scan.
func (e *Extractor) ratingFromLabels(ctx context.Context, doc render.Document, f *Fields, log *zap.Logger) {
	for _, sel := range e.sel.Rating {
		nodes, err := doc.Select(ctx, sel)
		if err != nil {
			log.Debug("extract: rating selector failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		for _, n := range nodes {
			text := n.LabelOrText()
			m := ratingPhrase.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			f.Rating = v
			f.RatingResolved = true

			if !f.ReviewsResolved {
				if rm := reviewPhrase.FindStringSubmatch(text); rm != nil {
					if n, err := parseCount(rm[1]); err == nil {
						f.Reviews = n
						f.ReviewsResolved = true
					}
				}
			}
			return
		}
	}
}

// ratingFromMeta falls back to a metadata attribute carrying a canonical
// rating value.
func (e *Extractor) ratingFromMeta(ctx context.Context, doc render.Document, f *Fields, log *zap.Logger) {
	for _, sel := range e.sel.RatingMeta {
		nodes, err := doc.Select(ctx, sel)
		if err != nil {
			log.Debug("extract: meta selector failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		for _, n := range nodes {
			m := numberRun.FindString(n.Attr("content"))
			if m == "" {
				continue
			}
			v, err := strconv.ParseFloat(m, 64)
			if err != nil {
				continue
			}
			f.Rating = v
			f.RatingResolved = true
			return
		}
	}
}

// ratingFromLeadingToken parses the leading numeric token of specific known
// text nodes (bare "4.4" spans with no scale phrase).
func (e *Extractor) ratingFromLeadingToken(ctx context.Context, doc render.Document, f *Fields, log *zap.Logger) {
	for _, sel := range e.sel.RatingText {
		nodes, err := doc.Select(ctx, sel)
		if err != nil {
			log.Debug("extract: text selector failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		for _, n := range nodes {
			m := leadingNumber.FindStringSubmatch(strings.TrimSpace(n.Text))
			if m == nil {
				continue
			}
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			f.Rating = v
			f.RatingResolved = true
			return
		}
	}
}

// reviewsFromSelectors rescans review-specific selectors for the first
// numeric run in matched text or label.
func (e *Extractor) reviewsFromSelectors(ctx context.Context, doc render.Document, f *Fields, log *zap.Logger) {
	for _, sel := range e.sel.Reviews {
		nodes, err := doc.Select(ctx, sel)
		if err != nil {
			log.Debug("extract: review selector failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		for _, n := range nodes {
			m := countRun.FindString(n.LabelOrText())
			if m == "" {
				continue
			}
			count, err := parseCount(m)
			if err != nil {
				continue
			}
			f.Reviews = count
			f.ReviewsResolved = true
			return
		}
	}
}

func parseCount(s string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(s, ",", ""))
}
