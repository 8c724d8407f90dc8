package store

import (
	"context"
	"time"

	"github.com/sells-group/ratings-cli/internal/model"
)

// Record is one appended ledger entry: a result plus its measured duration.
// DurationKnown is false for abandoned tasks.
type Record struct {
	Result        model.RatingResult
	Duration      time.Duration
	DurationKnown bool
	RunID         string
}

// Ledger is the resumable progress store. Completed feeds the resume set
// before a run; Append is called exactly once per resolved task, immediately
// on resolution — that append is the unit of durability. A hotel id appears
// at most once in the ledger across runs.
type Ledger interface {
	// Completed returns the set of hotel ids already processed.
	Completed(ctx context.Context) (map[string]struct{}, error)

	// Append durably records one result. Appending an id that is already
	// present is a no-op, keeping resume idempotent at-least-once.
	Append(ctx context.Context, rec Record) error

	// Results reads back the full ledger, ordered by hotel id.
	Results(ctx context.Context) ([]Record, error)

	// StartRun opens a run bookkeeping row and returns its id.
	StartRun(ctx context.Context) (string, error)

	// FinishRun closes a run with its summary counts.
	FinishRun(ctx context.Context, runID string, summary *model.RunSummary) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
