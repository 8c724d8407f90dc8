package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ratings-cli/internal/model"
	"github.com/sells-group/ratings-cli/internal/store"
)

type fakeProber struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, h model.Hotel) model.ProbeOutcome
}

func (p *fakeProber) Run(ctx context.Context, h model.Hotel) model.ProbeOutcome {
	p.mu.Lock()
	p.calls = append(p.calls, h.ID)
	p.mu.Unlock()
	if p.fn != nil {
		return p.fn(ctx, h)
	}
	return instantOutcome(h)
}

func instantOutcome(h model.Hotel) model.ProbeOutcome {
	res, _ := model.NewRatingResult(h, 4.0, true, 10, true)
	return model.ProbeOutcome{Result: res, Duration: 5 * time.Millisecond, DurationKnown: true}
}

type fakeLedger struct {
	mu        sync.Mutex
	done      map[string]struct{}
	appended  []store.Record
	appendErr error
	finished  bool
}

func newFakeLedger(doneIDs ...string) *fakeLedger {
	done := make(map[string]struct{}, len(doneIDs))
	for _, id := range doneIDs {
		done[id] = struct{}{}
	}
	return &fakeLedger{done: done}
}

func (l *fakeLedger) Completed(context.Context) (map[string]struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]struct{}, len(l.done))
	for id := range l.done {
		out[id] = struct{}{}
	}
	return out, nil
}

func (l *fakeLedger) Append(_ context.Context, rec store.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return l.appendErr
	}
	if _, dup := l.done[rec.Result.HotelID]; dup {
		return nil
	}
	l.done[rec.Result.HotelID] = struct{}{}
	l.appended = append(l.appended, rec)
	return nil
}

func (l *fakeLedger) Results(context.Context) ([]store.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]store.Record(nil), l.appended...), nil
}

func (l *fakeLedger) StartRun(context.Context) (string, error) { return "run-1", nil }

func (l *fakeLedger) FinishRun(context.Context, string, *model.RunSummary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished = true
	return nil
}

func (l *fakeLedger) Migrate(context.Context) error { return nil }
func (l *fakeLedger) Close() error                  { return nil }

func hotels(ids ...string) []model.Hotel {
	hs := make([]model.Hotel, len(ids))
	for i, id := range ids {
		hs[i] = model.Hotel{ID: id, Name: "Hotel " + id}
	}
	return hs
}

func TestRun_ResumeSkipsCompleted(t *testing.T) {
	prober := &fakeProber{}
	ledger := newFakeLedger("A", "C")
	orch := NewOrchestrator(prober, ledger, Config{Concurrency: 2, TaskTimeout: time.Second})

	results, summary, err := orch.Run(context.Background(), hotels("A", "B", "C", "D"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"B", "D"}, prober.calls)
	require.Len(t, results, 2)
	assert.Equal(t, "B", results[0].HotelID)
	assert.Equal(t, "D", results[1].HotelID)
	assert.Equal(t, 2, summary.Total)
	assert.True(t, ledger.finished)
}

func TestRun_TimeoutTaskDoesNotBlockOthers(t *testing.T) {
	prober := &fakeProber{
		fn: func(ctx context.Context, h model.Hotel) model.ProbeOutcome {
			if h.ID == "3" {
				// Never resolves within its budget. The extra sleep keeps the
				// outcome channel empty while the deadline branch fires.
				<-ctx.Done()
				time.Sleep(20 * time.Millisecond)
				return instantOutcome(h)
			}
			return instantOutcome(h)
		},
	}
	ledger := newFakeLedger()
	orch := NewOrchestrator(prober, ledger, Config{Concurrency: 2, TaskTimeout: 50 * time.Millisecond})

	results, summary, err := orch.Run(context.Background(), hotels("1", "2", "3", "4", "5"))
	require.NoError(t, err)

	require.Len(t, results, 5)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 1, summary.TimedOut)

	var unknown int
	for _, d := range summary.Durations {
		if !d.Known {
			unknown++
			assert.Equal(t, "3", d.HotelID)
		}
	}
	assert.Equal(t, 1, unknown)

	// The abandoned task is persisted like any other outcome.
	done, err := ledger.Completed(context.Background())
	require.NoError(t, err)
	assert.Contains(t, done, "3")
}

func TestRun_IdentityMismatchReplaced(t *testing.T) {
	prober := &fakeProber{
		fn: func(_ context.Context, h model.Hotel) model.ProbeOutcome {
			out := instantOutcome(h)
			out.Result.HotelID = "someone-else"
			out.Result.Name = "Wrong Hotel"
			return out
		},
	}
	ledger := newFakeLedger()
	orch := NewOrchestrator(prober, ledger, Config{Concurrency: 1, TaskTimeout: time.Second})

	results, summary, err := orch.Run(context.Background(), hotels("X"))
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "X", results[0].HotelID)
	assert.Equal(t, "Hotel X", results[0].Name)
	assert.Equal(t, model.StatusError, results[0].Status)
	assert.Equal(t, 0.0, results[0].Rating)
	assert.Equal(t, 1, summary.Failed)

	// Nothing was ever persisted under the mismatched identity.
	for _, rec := range ledger.appended {
		assert.NotEqual(t, "someone-else", rec.Result.HotelID)
	}
}

func TestRun_PersistenceErrorIsFatal(t *testing.T) {
	prober := &fakeProber{}
	ledger := newFakeLedger()
	ledger.appendErr = eris.New("disk full")
	orch := NewOrchestrator(prober, ledger, Config{Concurrency: 2, TaskTimeout: time.Second})

	_, _, err := orch.Run(context.Background(), hotels("A", "B"))
	assert.Error(t, err)
}

func TestRun_ResultsSortedByID(t *testing.T) {
	prober := &fakeProber{
		fn: func(_ context.Context, h model.Hotel) model.ProbeOutcome {
			// Stagger completion so collection order differs from input order.
			if h.ID == "a" {
				time.Sleep(30 * time.Millisecond)
			}
			return instantOutcome(h)
		},
	}
	ledger := newFakeLedger()
	orch := NewOrchestrator(prober, ledger, Config{Concurrency: 3, TaskTimeout: time.Second})

	results, _, err := orch.Run(context.Background(), hotels("c", "a", "b"))
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].HotelID)
	assert.Equal(t, "b", results[1].HotelID)
	assert.Equal(t, "c", results[2].HotelID)
}

func TestRun_DeadlineSynthesizesTimeouts(t *testing.T) {
	prober := &fakeProber{
		fn: func(ctx context.Context, h model.Hotel) model.ProbeOutcome {
			<-ctx.Done()
			time.Sleep(20 * time.Millisecond)
			return instantOutcome(h)
		},
	}
	ledger := newFakeLedger()
	orch := NewOrchestrator(prober, ledger, Config{
		Concurrency: 1,
		TaskTimeout: time.Minute,
		RunDeadline: 50 * time.Millisecond,
	})

	results, summary, err := orch.Run(context.Background(), hotels("1", "2"))
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, 2, summary.TimedOut)
	for _, r := range results {
		assert.Equal(t, model.StatusTimeout, r.Status)
	}
}
