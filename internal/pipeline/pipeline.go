// Package pipeline schedules probes with bounded concurrency, classifies
// their outcomes, and drives incremental persistence so an interrupted run
// can resume without redoing completed work.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ratings-cli/internal/model"
	"github.com/sells-group/ratings-cli/internal/store"
)

// Prober runs one end-to-end probe for a hotel.
type Prober interface {
	Run(ctx context.Context, h model.Hotel) model.ProbeOutcome
}

// Config bounds the run.
type Config struct {
	Concurrency int
	TaskTimeout time.Duration
	RunDeadline time.Duration
}

// Orchestrator fans hotels out to probes and writes each outcome through
// the ledger as it resolves.
type Orchestrator struct {
	prober Prober
	ledger store.Ledger
	cfg    Config
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(prober Prober, ledger store.Ledger, cfg Config) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = time.Hour
	}
	return &Orchestrator{prober: prober, ledger: ledger, cfg: cfg}
}

// Run processes every hotel not already in the ledger. Collection order is
// completion order; the returned results are re-sorted by hotel id so
// callers get a deterministic view. Only a ledger failure is fatal —
// entity-level failures become classified results.
func (o *Orchestrator) Run(ctx context.Context, hotels []model.Hotel) ([]model.RatingResult, *model.RunSummary, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	start := time.Now()

	done, err := o.ledger.Completed(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: read completed set")
	}

	pending := make([]model.Hotel, 0, len(hotels))
	for _, h := range hotels {
		if _, ok := done[h.ID]; ok {
			continue
		}
		pending = append(pending, h)
	}

	log.Info("pipeline: starting run",
		zap.Int("input", len(hotels)),
		zap.Int("already_done", len(hotels)-len(pending)),
		zap.Int("pending", len(pending)),
		zap.Int("concurrency", o.cfg.Concurrency),
	)

	runID, err := o.ledger.StartRun(ctx)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: start run")
	}

	runCtx := ctx
	if o.cfg.RunDeadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.RunDeadline)
		defer cancel()
	}

	var (
		mu         sync.Mutex
		results    []model.RatingResult
		durations  []model.TaskDuration
		persistErr error
	)

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Concurrency)

	for _, h := range pending {
		h := h
		g.Go(func() error {
			outcome := o.runOne(runCtx, h)

			// Appends are serialized: the ledger is the single shared
			// mutable resource. The parent context is used so results of
			// deadline-expired tasks still persist.
			mu.Lock()
			defer mu.Unlock()
			if persistErr != nil {
				return nil
			}
			rec := store.Record{
				Result:        outcome.Result,
				Duration:      outcome.Duration,
				DurationKnown: outcome.DurationKnown,
				RunID:         runID,
			}
			if err := o.ledger.Append(ctx, rec); err != nil {
				persistErr = eris.Wrapf(err, "pipeline: append result %s", h.ID)
				log.Error("pipeline: ledger append failed", zap.String("hotel_id", h.ID), zap.Error(err))
				return nil
			}
			results = append(results, outcome.Result)
			durations = append(durations, model.TaskDuration{
				HotelID:  h.ID,
				Duration: outcome.Duration,
				Known:    outcome.DurationKnown,
			})
			return nil
		})
	}
	_ = g.Wait()

	if persistErr != nil {
		return nil, nil, persistErr
	}

	sort.Slice(results, func(i, j int) bool { return results[i].HotelID < results[j].HotelID })

	summary := Summarize(results, durations, time.Since(start))
	if err := o.ledger.FinishRun(ctx, runID, summary); err != nil {
		log.Warn("pipeline: run bookkeeping failed", zap.Error(err))
	}

	log.Info("pipeline: run complete",
		zap.Int("processed", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("partial", summary.Partial),
		zap.Int("timed_out", summary.TimedOut),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.TotalDuration),
	)
	return results, summary, nil
}

// runOne drives a single probe under the per-task budget and verifies the
// returned identity before accepting the payload.
func (o *Orchestrator) runOne(ctx context.Context, h model.Hotel) model.ProbeOutcome {
	taskCtx, cancel := context.WithTimeout(ctx, o.cfg.TaskTimeout)
	defer cancel()

	outcomeCh := make(chan model.ProbeOutcome, 1)
	go func() {
		outcomeCh <- o.prober.Run(taskCtx, h)
	}()

	var outcome model.ProbeOutcome
	select {
	case outcome = <-outcomeCh:
	case <-taskCtx.Done():
		// Abandoned. The probe goroutine keeps running and releases its
		// own session; no partial result from it is ever merged.
		zap.L().Warn("pipeline: task abandoned at deadline", zap.String("hotel_id", h.ID))
		return model.ProbeOutcome{Result: model.DefaultResult(h, model.StatusTimeout)}
	}

	// A payload for a different hotel is corruption: keep the requested
	// identity and record an error instead of trusting it.
	if outcome.Result.HotelID != h.ID || outcome.Result.Name != h.Name {
		zap.L().Error("pipeline: identity mismatch in probe result",
			zap.String("requested", h.ID),
			zap.String("returned", outcome.Result.HotelID),
		)
		return model.ProbeOutcome{
			Result:        model.DefaultResult(h, model.StatusError),
			Duration:      outcome.Duration,
			DurationKnown: outcome.DurationKnown,
		}
	}
	return outcome
}
