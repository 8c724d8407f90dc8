package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Status classifies the outcome of one probe.
type Status string

const (
	// StatusSuccess means the task completed and at least one field resolved.
	StatusSuccess Status = "success"
	// StatusPartialFailure means the task completed but no field resolved;
	// the record carries defaults.
	StatusPartialFailure Status = "partial_failure"
	// StatusTimeout means the task exceeded its budget and was abandoned.
	StatusTimeout Status = "timeout"
	// StatusError means the probe could not produce a usable document at all.
	StatusError Status = "error"
)

// RatingResult is the single record produced per hotel per run attempt.
// Rating and ReviewCount always carry safe defaults (0.0 / 0) when
// unrecoverable; the Resolved flags distinguish "observed zero" from
// "could not extract".
type RatingResult struct {
	HotelID         string  `json:"hotel_id"`
	Name            string  `json:"name"`
	Address         string  `json:"address,omitempty"`
	Rating          float64 `json:"rating"`
	ReviewCount     int     `json:"review_count"`
	RatingResolved  bool    `json:"rating_resolved"`
	ReviewsResolved bool    `json:"reviews_resolved"`
	Status          Status  `json:"status"`
}

// maxPlausibleRating bounds what we accept as a recoverable parse artifact.
// Values beyond it are treated as extraction corruption, not clamped.
const maxPlausibleRating = 10.0

// NewRatingResult builds a completed-task result, clamping mild range
// violations into [0,5] and rejecting wildly invalid ratings as corruption.
// Status is derived from the resolved flags: any resolved field is a
// success, none is a partial failure.
func NewRatingResult(h Hotel, rating float64, ratingResolved bool, reviews int, reviewsResolved bool) (RatingResult, error) {
	if rating < 0 || rating > maxPlausibleRating {
		return RatingResult{}, eris.Errorf("result %s: implausible rating %.2f", h.ID, rating)
	}
	if rating > 5 {
		rating = 5
	}
	if reviews < 0 {
		reviews = 0
	}

	status := StatusPartialFailure
	if ratingResolved || reviewsResolved {
		status = StatusSuccess
	}

	return RatingResult{
		HotelID:         h.ID,
		Name:            h.Name,
		Address:         h.Address,
		Rating:          rating,
		ReviewCount:     reviews,
		RatingResolved:  ratingResolved,
		ReviewsResolved: reviewsResolved,
		Status:          status,
	}, nil
}

// DefaultResult returns a default-valued result tagged with the hotel's
// identity, used for timeouts, navigation failures, and corruption
// replacement. Failed tasks are never silently dropped.
func DefaultResult(h Hotel, status Status) RatingResult {
	return RatingResult{
		HotelID: h.ID,
		Name:    h.Name,
		Address: h.Address,
		Status:  status,
	}
}

// ProbeOutcome is the transient value a probe hands back to the
// orchestrator. It is consumed immediately and never persisted as-is.
type ProbeOutcome struct {
	Result        RatingResult
	Duration      time.Duration
	DurationKnown bool
	Err           error
}

// TaskDuration is one row of the run's per-hotel duration table. Known is
// false for abandoned tasks, which have no measured duration.
type TaskDuration struct {
	HotelID  string        `json:"hotel_id"`
	Duration time.Duration `json:"duration"`
	Known    bool          `json:"known"`
}

// RunSummary aggregates a completed (or deadline-bounded) run. Read-only
// once emitted; Durations is sorted by hotel id.
type RunSummary struct {
	Total         int            `json:"total"`
	Succeeded     int            `json:"succeeded"`
	Partial       int            `json:"partial"`
	TimedOut      int            `json:"timed_out"`
	Failed        int            `json:"failed"`
	TotalDuration time.Duration  `json:"total_duration"`
	Durations     []TaskDuration `json:"durations"`
}
