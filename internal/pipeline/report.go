package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ratings-cli/internal/model"
)

// Summarize aggregates results and durations into a run summary. Pure: it
// only counts and sorts. Durations come out hotel-id sorted; abandoned
// tasks keep Known=false rather than a fake number.
func Summarize(results []model.RatingResult, durations []model.TaskDuration, wall time.Duration) *model.RunSummary {
	s := &model.RunSummary{
		Total:         len(results),
		TotalDuration: wall,
	}
	for _, r := range results {
		switch r.Status {
		case model.StatusSuccess:
			s.Succeeded++
		case model.StatusPartialFailure:
			s.Partial++
		case model.StatusTimeout:
			s.TimedOut++
		case model.StatusError:
			s.Failed++
		}
	}

	sorted := append([]model.TaskDuration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].HotelID < sorted[j].HotelID })
	s.Durations = sorted

	return s
}

// Reporter renders human-readable run reports. The response counter is
// scoped to one Reporter (one run) and never persisted.
type Reporter struct {
	counter atomic.Int64
	now     func() time.Time
}

// NewReporter creates a Reporter.
func NewReporter() *Reporter {
	return &Reporter{now: time.Now}
}

// WriteText appends one report block: header with response number and
// timestamp, name-sorted result lines, and the per-hotel duration table
// with "unknown" markers for abandoned tasks.
func (r *Reporter) WriteText(w io.Writer, results []model.RatingResult, summary *model.RunSummary) error {
	n := r.counter.Add(1)
	rule := strings.Repeat("=", 50)

	var b strings.Builder
	fmt.Fprintf(&b, "\nResponse %d (%s)\n", n, r.now().Format("2006-01-02 15:04:05"))
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Total time taken: %.2f seconds\n", summary.TotalDuration.Seconds())

	byName := append([]model.RatingResult(nil), results...)
	sort.Slice(byName, func(i, j int) bool { return byName[i].Name < byName[j].Name })
	for _, res := range byName {
		fmt.Fprintf(&b, "%s: %.1f/5, %d reviews\n", res.Name, res.Rating, res.ReviewCount)
	}

	fmt.Fprintf(&b, "Succeeded: %d, partial: %d, timed out: %d, failed: %d\n",
		summary.Succeeded, summary.Partial, summary.TimedOut, summary.Failed)

	if len(summary.Durations) > 0 {
		b.WriteString("Durations:\n")
		for _, d := range summary.Durations {
			if d.Known {
				fmt.Fprintf(&b, "  %s: %.2f seconds\n", d.HotelID, d.Duration.Seconds())
			} else {
				fmt.Fprintf(&b, "  %s: unknown\n", d.HotelID)
			}
		}
	}
	b.WriteString(rule + "\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "report: write")
	}
	return nil
}
