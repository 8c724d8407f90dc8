// Package probe owns one document-fetch lifecycle per hotel: acquire an
// isolated rendering session, navigate, wait for content, extract, and
// release the session on every exit path.
package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/ratings-cli/internal/extract"
	"github.com/sells-group/ratings-cli/internal/model"
	"github.com/sells-group/ratings-cli/internal/query"
	"github.com/sells-group/ratings-cli/internal/render"
	"github.com/sells-group/ratings-cli/internal/resilience"
)

// Config bounds one probe.
type Config struct {
	// ReadyTimeout caps the content-ready wait; a miss is best-effort, not fatal.
	ReadyTimeout time.Duration
	// MaxReveal caps the "activate a result candidate" interactions tried
	// when the landing structure yields nothing.
	MaxReveal int
	// DebugDir, when set, receives HTML snapshots of pages that yielded no
	// fields at all.
	DebugDir string
}

// Runner executes probes against the rendering collaborator.
type Runner struct {
	renderer  render.Renderer
	extractor *extract.Extractor
	queries   *query.Builder
	sel       extract.SelectorTable
	cfg       Config
	navRetry  resilience.RetryConfig
}

// NewRunner wires a Runner.
func NewRunner(renderer render.Renderer, extractor *extract.Extractor, queries *query.Builder, sel extract.SelectorTable, cfg Config) *Runner {
	return &Runner{
		renderer:  renderer,
		extractor: extractor,
		queries:   queries,
		sel:       sel,
		cfg:       cfg,
		navRetry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Second,
		},
	}
}

type session struct {
	doc     render.Document
	release render.ReleaseFunc
}

// Run executes one end-to-end probe. Every exit path returns an outcome
// carrying an identity-tagged result; failures are classified, never
// propagated.
func (r *Runner) Run(ctx context.Context, h model.Hotel) model.ProbeOutcome {
	start := time.Now()
	log := zap.L().With(zap.String("hotel_id", h.ID), zap.String("hotel", h.Name))

	q := r.queries.Build(h.Name, h.Address)
	log.Debug("probe: starting", zap.String("query", q))

	sess, err := resilience.DoVal(ctx, r.navRetry, func(ctx context.Context) (session, error) {
		doc, release, err := r.renderer.Open(ctx, q)
		return session{doc: doc, release: release}, err
	})
	if err != nil {
		log.Warn("probe: could not open document", zap.Error(err))
		return model.ProbeOutcome{
			Result:        model.DefaultResult(h, model.StatusError),
			Duration:      time.Since(start),
			DurationKnown: true,
			Err:           err,
		}
	}
	defer sess.release()

	if err := sess.doc.WaitReady(ctx, r.sel.Ready, r.cfg.ReadyTimeout); err != nil {
		log.Debug("probe: proceeding without content-ready signal", zap.Error(err))
	}

	fields := r.extractor.Extract(ctx, sess.doc, h.Name)

	// Landing structure gave nothing: activate result candidates in turn,
	// re-extracting after each, stopping as soon as any field resolves.
	for i := 0; i < r.cfg.MaxReveal && !fields.RatingResolved && !fields.ReviewsResolved; i++ {
		if ctx.Err() != nil {
			break
		}
		if err := r.activateCandidate(ctx, sess.doc, i); err != nil {
			log.Debug("probe: reveal candidate failed", zap.Int("candidate", i), zap.Error(err))
			continue
		}
		fields = r.extractor.Extract(ctx, sess.doc, h.Name)
	}

	if !fields.RatingResolved && !fields.ReviewsResolved {
		r.dumpDebugHTML(ctx, sess.doc, h, log)
	}

	result, err := model.NewRatingResult(h, fields.Rating, fields.RatingResolved, fields.Reviews, fields.ReviewsResolved)
	if err != nil {
		log.Warn("probe: rejecting implausible extraction", zap.Error(err))
		return model.ProbeOutcome{
			Result:        model.DefaultResult(h, model.StatusError),
			Duration:      time.Since(start),
			DurationKnown: true,
			Err:           err,
		}
	}

	elapsed := time.Since(start)
	log.Info("probe: complete",
		zap.Float64("rating", result.Rating),
		zap.Int("reviews", result.ReviewCount),
		zap.String("status", string(result.Status)),
		zap.Duration("elapsed", elapsed),
	)
	return model.ProbeOutcome{Result: result, Duration: elapsed, DurationKnown: true}
}

// activateCandidate tries the reveal selectors in rank order for the
// index-th candidate. A failure on one selector falls through to the next.
func (r *Runner) activateCandidate(ctx context.Context, doc render.Document, index int) error {
	var lastErr error
	for _, sel := range r.sel.Reveal {
		err := doc.Activate(ctx, sel, index)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (r *Runner) dumpDebugHTML(ctx context.Context, doc render.Document, h model.Hotel, log *zap.Logger) {
	if r.cfg.DebugDir == "" {
		return
	}
	html, err := doc.HTML(ctx)
	if err != nil {
		log.Debug("probe: debug snapshot failed", zap.Error(err))
		return
	}
	name := fmt.Sprintf("debug_%s_%s.html", render.Slug(h.Name), time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(r.cfg.DebugDir, name)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		log.Debug("probe: debug snapshot write failed", zap.Error(err))
		return
	}
	log.Info("probe: wrote debug snapshot", zap.String("path", path))
}
