package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Hotel is the unit of work: one property whose rating and review count are
// sought. ID is stable across runs and keys the progress ledger; Name and
// Address are immutable inputs used only to build search queries.
type Hotel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Validate checks the loader contract: id and name must be non-empty.
func (h Hotel) Validate() error {
	if strings.TrimSpace(h.ID) == "" {
		return eris.New("hotel: empty id")
	}
	if strings.TrimSpace(h.Name) == "" {
		return eris.Errorf("hotel %s: empty name", h.ID)
	}
	return nil
}
