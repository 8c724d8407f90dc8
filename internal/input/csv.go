// Package input loads the hotel roster. A malformed roster is fatal to the
// whole run: there is nothing to process.
package input

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ratings-cli/internal/model"
)

// Load reads hotels from a CSV file. The header must carry a "name" (or
// "hotel_name") column; "id" and "address" are optional. A missing id falls
// back to a normalized form of the name. Duplicate ids keep the first row.
func Load(path string) ([]model.Hotel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: open %s", path)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads hotels from CSV content.
func Parse(r io.Reader) ([]model.Hotel, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "input: read header")
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	nameIdx, ok := cols["name"]
	if !ok {
		nameIdx, ok = cols["hotel_name"]
	}
	if !ok {
		return nil, eris.New(`input: csv must contain a "name" or "hotel_name" column`)
	}
	idIdx, hasID := cols["id"]
	addrIdx, hasAddr := cols["address"]

	var hotels []model.Hotel
	seen := make(map[string]struct{})
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "input: read row %d", line)
		}

		h := model.Hotel{Name: strings.TrimSpace(field(row, nameIdx))}
		if hasID {
			h.ID = strings.TrimSpace(field(row, idIdx))
		}
		if h.ID == "" {
			h.ID = normalizeID(h.Name)
		}
		if hasAddr {
			h.Address = strings.TrimSpace(field(row, addrIdx))
		}

		if err := h.Validate(); err != nil {
			return nil, eris.Wrapf(err, "input: row %d", line)
		}

		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}
		hotels = append(hotels, h)
	}

	if len(hotels) == 0 {
		return nil, eris.New("input: no hotels in roster")
	}
	return hotels, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func normalizeID(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = strings.Join(strings.Fields(id), "-")
	return id
}
