// Package query builds normalized search queries for the rendering
// collaborator. Building is pure: no network or I/O side effects.
package query

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/ratings-cli/internal/config"
)

// Builder constructs search queries from hotel identity fields.
type Builder struct {
	keyword    string
	categories []string
	region     string
}

// NewBuilder creates a Builder from query configuration.
func NewBuilder(cfg config.QueryConfig) *Builder {
	cats := make([]string, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			cats = append(cats, c)
		}
	}
	return &Builder{
		keyword:    strings.TrimSpace(cfg.Keyword),
		categories: cats,
		region:     strings.TrimSpace(cfg.Region),
	}
}

// Build returns the plain search query for a hotel. The category keyword is
// appended only when the name carries none of the known category terms; a
// locality token is appended when the address has enough comma-separated
// segments; the region qualifier is appended when not already present.
func (b *Builder) Build(name, address string) string {
	q := collapseSpaces(foldDiacritics(name))

	if b.keyword != "" && !b.hasCategory(q) {
		q += " " + b.keyword
	}

	if tok := localityToken(address); tok != "" {
		q += " " + foldDiacritics(tok)
	}

	if b.region != "" && !strings.Contains(strings.ToLower(q), strings.ToLower(b.region)) {
		q += " " + b.region
	}

	return q
}

// Encode percent-encodes a query for use in a URL path or query string.
func Encode(q string) string {
	return url.QueryEscape(q)
}

func (b *Builder) hasCategory(q string) bool {
	lower := strings.ToLower(q)
	for _, c := range b.categories {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

// localityToken picks the second-to-last comma segment of an address
// ("1 Main St, Springfield, IL, USA" -> "IL"). Addresses with fewer than
// three segments carry no usable locality and yield nothing.
func localityToken(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 3 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-2])
}

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldDiacritics(s string) string {
	out, _, err := transform.String(foldChain, s)
	if err != nil {
		return s
	}
	return out
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
