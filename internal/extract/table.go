package extract

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var selectorsYAML []byte

// SelectorTable is the ranked fallback-selector policy. Keeping it as data
// makes the chain testable against any document source and tunable without
// touching the extraction code.
type SelectorTable struct {
	// Ready marks content-ready: presence of any entry means the page has
	// rendered enough structure to probe.
	Ready []string `yaml:"ready"`
	// Rating selectors whose label/text should carry a 0-5 scale phrase.
	Rating []string `yaml:"rating"`
	// RatingMeta selectors for metadata nodes carrying a canonical value.
	RatingMeta []string `yaml:"rating_meta"`
	// RatingText selectors whose visible text leads with a bare numeric.
	RatingText []string `yaml:"rating_text"`
	// Reviews selectors for review-count nodes.
	Reviews []string `yaml:"reviews"`
	// Reveal selectors for result candidates worth activating.
	Reveal []string `yaml:"reveal"`
}

// DefaultSelectors parses the embedded selector table.
func DefaultSelectors() (SelectorTable, error) {
	var t SelectorTable
	if err := yaml.Unmarshal(selectorsYAML, &t); err != nil {
		return SelectorTable{}, eris.Wrap(err, "extract: parse selector table")
	}
	return t, nil
}
