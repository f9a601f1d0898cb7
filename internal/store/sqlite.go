package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/talent-matcher/internal/model"
	"github.com/sells-group/talent-matcher/internal/similarity"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
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
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reviewers (
	id               TEXT PRIMARY KEY,
	city             TEXT NOT NULL DEFAULT '',
	experience_years INTEGER NOT NULL DEFAULT 0,
	budget_min       REAL NOT NULL DEFAULT 0,
	budget_max       REAL NOT NULL DEFAULT 0,
	rating           REAL NOT NULL DEFAULT 0,
	skills           TEXT NOT NULL DEFAULT '',
	profile          TEXT NOT NULL,
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS match_runs (
	id         TEXT PRIMARY KEY,
	algorithm  TEXT NOT NULL,
	stability  TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS matches (
	run_id              TEXT NOT NULL REFERENCES match_runs(id),
	proposer_id         TEXT NOT NULL,
	reviewer_id         TEXT NOT NULL,
	score               INTEGER NOT NULL,
	rank                INTEGER NOT NULL,
	match_type          TEXT NOT NULL,
	stability_verified  INTEGER NOT NULL DEFAULT 0,
	breakdown           TEXT NOT NULL,
	PRIMARY KEY (run_id, proposer_id, reviewer_id)
);

CREATE INDEX IF NOT EXISTS idx_reviewers_city ON reviewers(city);
CREATE INDEX IF NOT EXISTS idx_matches_run_id ON matches(run_id);
CREATE INDEX IF NOT EXISTS idx_matches_proposer ON matches(proposer_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.MatchRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO match_runs (id, algorithm, stability, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Result.Metadata.Algorithm, string(run.Result.Metadata.Stability), string(payload), run.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	for _, m := range run.Result.Matches {
		breakdown, err := json.Marshal(m.Score)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal breakdown")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO matches (run_id, proposer_id, reviewer_id, score, rank, match_type, stability_verified, breakdown)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, m.ProposerID, m.ReviewerID, m.Score.Total, m.Rank, string(m.MatchType), m.StabilityVerified, string(breakdown),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert match %s/%s", m.ProposerID, m.ReviewerID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.MatchRun, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM match_runs WHERE id = ?`, runID,
	).Scan(&payload)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("sqlite: run %s not found", runID)
		}
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}

	var run model.MatchRun
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal run %s", runID)
	}
	return &run, nil
}

func (s *SQLiteStore) ListMatches(ctx context.Context, filter MatchFilter) ([]model.Match, error) {
	query := `SELECT proposer_id, reviewer_id, rank, match_type, stability_verified, breakdown FROM matches WHERE 1=1`
	var args []any

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.ProposerID != "" {
		query += ` AND proposer_id = ?`
		args = append(args, filter.ProposerID)
	}
	if filter.MinScore > 0 {
		query += ` AND score >= ?`
		args = append(args, filter.MinScore)
	}
	query += ` ORDER BY rank ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list matches")
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		var breakdown string
		if err := rows.Scan(&m.ProposerID, &m.ReviewerID, &m.Rank, &m.MatchType, &m.StabilityVerified, &breakdown); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match")
		}
		if err := json.Unmarshal([]byte(breakdown), &m.Score); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal breakdown")
		}
		matches = append(matches, m)
	}
	return matches, eris.Wrap(rows.Err(), "sqlite: iterate matches")
}

func (s *SQLiteStore) UpsertReviewers(ctx context.Context, reviewers []model.Reviewer) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	var n int
	for i := range reviewers {
		r := &reviewers[i]
		profile, err := json.Marshal(r)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal reviewer %s", r.ID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO reviewers (id, city, experience_years, budget_min, budget_max, rating, skills, profile, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   city = excluded.city,
			   experience_years = excluded.experience_years,
			   budget_min = excluded.budget_min,
			   budget_max = excluded.budget_max,
			   rating = excluded.rating,
			   skills = excluded.skills,
			   profile = excluded.profile,
			   updated_at = excluded.updated_at`,
			r.ID, r.City, r.ExperienceYears, r.Budget.Min, r.Budget.Max, r.Rating,
			skillsIndex(r.Skills), string(profile), time.Now().UTC(),
		)
		if err != nil {
			return n, eris.Wrapf(err, "sqlite: upsert reviewer %s", r.ID)
		}
		n++
	}

	return n, eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) ListReviewers(ctx context.Context, q ReviewerQuery) ([]model.Reviewer, error) {
	query := `SELECT profile FROM reviewers WHERE 1=1`
	var args []any

	if q.City != "" {
		query += ` AND city = ? COLLATE NOCASE`
		args = append(args, q.City)
	}
	if q.MinExperience > 0 {
		query += ` AND experience_years >= ?`
		args = append(args, q.MinExperience)
	}
	if q.BudgetMax > 0 {
		query += ` AND budget_min <= ?`
		args = append(args, q.BudgetMax)
	}
	if q.Category != "" {
		query += ` AND skills LIKE ?`
		args = append(args, "%"+similarity.NormalizeTag(q.Category)+"%")
	}
	query += ` ORDER BY rating DESC, id ASC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviewers")
	}
	defer rows.Close()

	var out []model.Reviewer
	for rows.Next() {
		var profile string
		if err := rows.Scan(&profile); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan reviewer")
		}
		var r model.Reviewer
		if err := json.Unmarshal([]byte(profile), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal reviewer")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate reviewers")
}

// skillsIndex flattens skill tags into a normalized search column.
func skillsIndex(skills []string) string {
	return strings.Join(similarity.NormalizeTags(skills), ",")
}
