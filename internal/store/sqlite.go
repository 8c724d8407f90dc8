package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ratings-cli/internal/model"
)

// SQLiteLedger implements Ledger using modernc.org/sqlite.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteLedger{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME,
	total_ms    INTEGER,
	succeeded   INTEGER,
	partial     INTEGER,
	timed_out   INTEGER,
	failed      INTEGER
);

CREATE TABLE IF NOT EXISTS results (
	hotel_id         TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	address          TEXT,
	rating           REAL NOT NULL DEFAULT 0,
	review_count     INTEGER NOT NULL DEFAULT 0,
	rating_resolved  INTEGER NOT NULL DEFAULT 0,
	reviews_resolved INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL,
	duration_ms      INTEGER,
	run_id           TEXT,
	scraped_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_results_status ON results(status);
CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id);
`

func (s *SQLiteLedger) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

func (s *SQLiteLedger) Completed(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hotel_id FROM results`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query completed ids")
	}
	defer rows.Close()

	done := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan completed id")
		}
		done[id] = struct{}{}
	}
	return done, eris.Wrap(rows.Err(), "sqlite: iterate completed ids")
}

func (s *SQLiteLedger) Append(ctx context.Context, rec Record) error {
	var durationMS sql.NullInt64
	if rec.DurationKnown {
		durationMS = sql.NullInt64{Int64: rec.Duration.Milliseconds(), Valid: true}
	}

	r := rec.Result
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results
		   (hotel_id, name, address, rating, review_count, rating_resolved, reviews_resolved, status, duration_ms, run_id, scraped_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(hotel_id) DO NOTHING`,
		r.HotelID, r.Name, r.Address, r.Rating, r.ReviewCount,
		boolToInt(r.RatingResolved), boolToInt(r.ReviewsResolved),
		string(r.Status), durationMS, rec.RunID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: append result %s", r.HotelID)
}

func (s *SQLiteLedger) Results(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hotel_id, name, address, rating, review_count, rating_resolved, reviews_resolved, status, duration_ms, run_id
		 FROM results ORDER BY hotel_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query results")
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			rec             Record
			address, runID  sql.NullString
			ratingResolved  int
			reviewsResolved int
			durationMS      sql.NullInt64
		)
		err := rows.Scan(
			&rec.Result.HotelID, &rec.Result.Name, &address,
			&rec.Result.Rating, &rec.Result.ReviewCount,
			&ratingResolved, &reviewsResolved,
			&rec.Result.Status, &durationMS, &runID,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		rec.Result.Address = address.String
		rec.Result.RatingResolved = ratingResolved != 0
		rec.Result.ReviewsResolved = reviewsResolved != 0
		rec.RunID = runID.String
		if durationMS.Valid {
			rec.Duration = time.Duration(durationMS.Int64) * time.Millisecond
			rec.DurationKnown = true
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: iterate results")
}

func (s *SQLiteLedger) StartRun(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert run")
	}
	return id, nil
}

func (s *SQLiteLedger) FinishRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total_ms = ?, succeeded = ?, partial = ?, timed_out = ?, failed = ?
		 WHERE id = ?`,
		time.Now().UTC(), summary.TotalDuration.Milliseconds(),
		summary.Succeeded, summary.Partial, summary.TimedOut, summary.Failed,
		runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
