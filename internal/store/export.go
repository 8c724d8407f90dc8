package store

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
)

// ExportCSV writes the full result set to a CSV file for the presentation
// collaborator. Records are written in the order given (the ledger returns
// them hotel-id sorted).
func ExportCSV(path string, recs []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "store: create export %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"hotel_id", "name", "address", "rating", "review_count", "status"}); err != nil {
		return eris.Wrap(err, "store: write export header")
	}

	for _, rec := range recs {
		r := rec.Result
		row := []string{
			r.HotelID,
			r.Name,
			r.Address,
			strconv.FormatFloat(r.Rating, 'f', 1, 64),
			strconv.Itoa(r.ReviewCount),
			string(r.Status),
		}
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "store: write export row %s", r.HotelID)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "store: flush export")
	}
	return nil
}
