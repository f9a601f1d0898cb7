package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/talent-matcher/internal/model"
	"github.com/sells-group/talent-matcher/internal/similarity"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies
// it for unit tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reviewers (
	id               TEXT PRIMARY KEY,
	city             TEXT NOT NULL DEFAULT '',
	experience_years INTEGER NOT NULL DEFAULT 0,
	budget_min       DOUBLE PRECISION NOT NULL DEFAULT 0,
	budget_max       DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating           DOUBLE PRECISION NOT NULL DEFAULT 0,
	skills           TEXT NOT NULL DEFAULT '',
	profile          JSONB NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS match_runs (
	id         TEXT PRIMARY KEY,
	algorithm  TEXT NOT NULL,
	stability  TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS matches (
	run_id              TEXT NOT NULL REFERENCES match_runs(id),
	proposer_id         TEXT NOT NULL,
	reviewer_id         TEXT NOT NULL,
	score               INTEGER NOT NULL,
	rank                INTEGER NOT NULL,
	match_type          TEXT NOT NULL,
	stability_verified  BOOLEAN NOT NULL DEFAULT false,
	breakdown           JSONB NOT NULL,
	PRIMARY KEY (run_id, proposer_id, reviewer_id)
);

CREATE INDEX IF NOT EXISTS idx_reviewers_city ON reviewers(city);
CREATE INDEX IF NOT EXISTS idx_matches_run_id ON matches(run_id);
CREATE INDEX IF NOT EXISTS idx_matches_proposer ON matches(proposer_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.MatchRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run")
	}

	// The run row and its match rows commit together or not at all.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save run")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO match_runs (id, algorithm, stability, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Result.Metadata.Algorithm, string(run.Result.Metadata.Stability), payload, run.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert run")
	}

	for _, m := range run.Result.Matches {
		breakdown, err := json.Marshal(m.Score)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal breakdown")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO matches (run_id, proposer_id, reviewer_id, score, rank, match_type, stability_verified, breakdown)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			run.ID, m.ProposerID, m.ReviewerID, m.Score.Total, m.Rank, string(m.MatchType), m.StabilityVerified, breakdown,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert match %s/%s", m.ProposerID, m.ReviewerID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit run")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.MatchRun, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM match_runs WHERE id = $1`, runID,
	).Scan(&payload)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: run %s not found", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	var run model.MatchRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal run %s", runID)
	}
	return &run, nil
}

func (s *PostgresStore) ListMatches(ctx context.Context, filter MatchFilter) ([]model.Match, error) {
	query := `SELECT proposer_id, reviewer_id, rank, match_type, stability_verified, breakdown FROM matches WHERE true`
	var args []any
	argNum := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(" AND run_id = $%d", argNum)
		args = append(args, filter.RunID)
		argNum++
	}
	if filter.ProposerID != "" {
		query += fmt.Sprintf(" AND proposer_id = $%d", argNum)
		args = append(args, filter.ProposerID)
		argNum++
	}
	if filter.MinScore > 0 {
		query += fmt.Sprintf(" AND score >= $%d", argNum)
		args = append(args, filter.MinScore)
		argNum++
	}
	query += " ORDER BY rank ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list matches")
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		var breakdown []byte
		if err := rows.Scan(&m.ProposerID, &m.ReviewerID, &m.Rank, &m.MatchType, &m.StabilityVerified, &breakdown); err != nil {
			return nil, eris.Wrap(err, "postgres: scan match")
		}
		if err := json.Unmarshal(breakdown, &m.Score); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal breakdown")
		}
		matches = append(matches, m)
	}
	return matches, eris.Wrap(rows.Err(), "postgres: iterate matches")
}

func (s *PostgresStore) UpsertReviewers(ctx context.Context, reviewers []model.Reviewer) (int, error) {
	var n int
	for i := range reviewers {
		r := &reviewers[i]
		profile, err := json.Marshal(r)
		if err != nil {
			return n, eris.Wrapf(err, "postgres: marshal reviewer %s", r.ID)
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO reviewers (id, city, experience_years, budget_min, budget_max, rating, skills, profile, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET
			   city = EXCLUDED.city,
			   experience_years = EXCLUDED.experience_years,
			   budget_min = EXCLUDED.budget_min,
			   budget_max = EXCLUDED.budget_max,
			   rating = EXCLUDED.rating,
			   skills = EXCLUDED.skills,
			   profile = EXCLUDED.profile,
			   updated_at = EXCLUDED.updated_at`,
			r.ID, r.City, r.ExperienceYears, r.Budget.Min, r.Budget.Max, r.Rating,
			skillsIndex(r.Skills), profile, time.Now().UTC(),
		)
		if err != nil {
			return n, eris.Wrapf(err, "postgres: upsert reviewer %s", r.ID)
		}
		n++
	}
	return n, nil
}

func (s *PostgresStore) ListReviewers(ctx context.Context, q ReviewerQuery) ([]model.Reviewer, error) {
	query := `SELECT profile FROM reviewers WHERE true`
	var args []any
	argNum := 1

	if q.City != "" {
		query += fmt.Sprintf(" AND lower(city) = lower($%d)", argNum)
		args = append(args, q.City)
		argNum++
	}
	if q.MinExperience > 0 {
		query += fmt.Sprintf(" AND experience_years >= $%d", argNum)
		args = append(args, q.MinExperience)
		argNum++
	}
	if q.BudgetMax > 0 {
		query += fmt.Sprintf(" AND budget_min <= $%d", argNum)
		args = append(args, q.BudgetMax)
		argNum++
	}
	if q.Category != "" {
		// The skills column is built from normalized tags; normalize the
		// filter the same way or a capitalized category matches nothing.
		query += fmt.Sprintf(" AND skills LIKE $%d", argNum)
		args = append(args, "%"+similarity.NormalizeTag(q.Category)+"%")
		argNum++
	}
	query += " ORDER BY rating DESC, id ASC"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, q.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviewers")
	}
	defer rows.Close()

	var out []model.Reviewer
	for rows.Next() {
		var profile []byte
		if err := rows.Scan(&profile); err != nil {
			return nil, eris.Wrap(err, "postgres: scan reviewer")
		}
		var r model.Reviewer
		if err := json.Unmarshal(profile, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal reviewer")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate reviewers")
}
