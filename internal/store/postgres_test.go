package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/talent-matcher/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresSaveRun(t *testing.T) {
	st, mock := newMockStore(t)
	run := sampleRun()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO match_runs").
		WithArgs(run.ID, "stable", "guaranteed", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for _, m := range run.Result.Matches {
		mock.ExpectExec("INSERT INTO matches").
			WithArgs(run.ID, m.ProposerID, m.ReviewerID, m.Score.Total, m.Rank,
				string(m.MatchType), m.StabilityVerified, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, st.SaveRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveRunRollsBackOnMatchInsertFailure(t *testing.T) {
	st, mock := newMockStore(t)
	run := sampleRun()
	first := run.Result.Matches[0]

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO match_runs").
		WithArgs(run.ID, "stable", "guaranteed", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO matches").
		WithArgs(run.ID, first.ProposerID, first.ReviewerID, first.Score.Total, first.Rank,
			string(first.MatchType), first.StabilityVerified, pgxmock.AnyArg()).
		WillReturnError(eris.New("connection reset"))
	// No commit: the run row must not outlive its match rows.
	mock.ExpectRollback()

	err := st.SaveRun(context.Background(), run)
	require.Error(t, err)
	assert.ErrorContains(t, err, "insert match")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRun(t *testing.T) {
	st, mock := newMockStore(t)
	run := sampleRun()
	payload, err := json.Marshal(run)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT payload FROM match_runs").
		WithArgs(run.ID).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	require.Len(t, got.Result.Matches, 2)
	assert.Equal(t, run.Result.Matches[0].Score, got.Result.Matches[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRunNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT payload FROM match_runs").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}))

	_, err := st.GetRun(context.Background(), "missing")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListMatches(t *testing.T) {
	st, mock := newMockStore(t)
	breakdown, err := json.Marshal(model.ScoreBreakdown{Factors: map[string]float64{}, Total: 88, Algorithm: "hybrid"})
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"proposer_id", "reviewer_id", "rank", "match_type", "stability_verified", "breakdown"}).
		AddRow("gig-1", "rev-1", 1, "stable", true, breakdown)

	mock.ExpectQuery("SELECT proposer_id, reviewer_id, rank, match_type, stability_verified, breakdown FROM matches").
		WithArgs("run-1", 80.0).
		WillReturnRows(rows)

	got, err := st.ListMatches(context.Background(), MatchFilter{RunID: "run-1", MinScore: 80})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rev-1", got[0].ReviewerID)
	assert.Equal(t, 88, got[0].Score.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertReviewers(t *testing.T) {
	st, mock := newMockStore(t)
	reviewers := []model.Reviewer{
		{ID: "rev-1", City: "Austin", ExperienceYears: 7, Budget: model.BudgetRange{Min: 2000, Max: 4000}, Skills: []string{"Photography"}, Rating: 4.8},
	}

	mock.ExpectExec("INSERT INTO reviewers").
		WithArgs("rev-1", "Austin", 7, 2000.0, 4000.0, 4.8, "photography", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := st.UpsertReviewers(context.Background(), reviewers)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListReviewers(t *testing.T) {
	st, mock := newMockStore(t)
	profile, err := json.Marshal(model.Reviewer{ID: "rev-1", City: "Austin", Rating: 4.8})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT profile FROM reviewers").
		WithArgs("Austin").
		WillReturnRows(pgxmock.NewRows([]string{"profile"}).AddRow(profile))

	got, err := st.ListReviewers(context.Background(), ReviewerQuery{City: "Austin"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rev-1", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListReviewersCategoryIsNormalized(t *testing.T) {
	st, mock := newMockStore(t)
	profile, err := json.Marshal(model.Reviewer{ID: "rev-1", Skills: []string{"Photography"}})
	require.NoError(t, err)

	// The skills column holds lowercased tags; a capitalized filter must
	// hit the same rows.
	mock.ExpectQuery("SELECT profile FROM reviewers").
		WithArgs("%photography%").
		WillReturnRows(pgxmock.NewRows([]string{"profile"}).AddRow(profile))

	got, err := st.ListReviewers(context.Background(), ReviewerQuery{Category: " Photography "})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rev-1", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS reviewers").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	assert.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
