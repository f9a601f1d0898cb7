package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const poolYAML = `
reviewers:
  - id: rev-1
    city: Austin
    experience_years: 7
    budget: {min: 2000, max: 4000}
    skills: [wedding photography, editing]
    rating: 4.8
  - id: rev-2
    city: Dallas
    alt_cities: [Austin]
    experience_years: 3
    budget: {min: 1000, max: 2500}
    skills: [portrait photography]
    rating: 4.0
  - id: rev-3
    city: Seattle
    experience_years: 12
    budget: {min: 5000, max: 9000}
    skills: [videography]
    rating: 4.9
  - id: rev-1
    city: Duplicate
  - id: ""
    city: Anonymous
`

func writePool(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(poolYAML), 0o644))
	return path
}

func TestFileSourceFetchAll(t *testing.T) {
	src := NewFileSource(writePool(t))

	got, err := src.Fetch(context.Background(), Criteria{})
	require.NoError(t, err)

	// Duplicate and empty ids are dropped; output sorted by id.
	require.Len(t, got, 3)
	assert.Equal(t, "rev-1", got[0].ID)
	assert.Equal(t, "rev-2", got[1].ID)
	assert.Equal(t, "rev-3", got[2].ID)
}

func TestFileSourceCityIncludesAltCities(t *testing.T) {
	src := NewFileSource(writePool(t))

	got, err := src.Fetch(context.Background(), Criteria{City: "Austin"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "rev-1", got[0].ID)
	assert.Equal(t, "rev-2", got[1].ID)
}

func TestFileSourceHardFilters(t *testing.T) {
	src := NewFileSource(writePool(t))
	ctx := context.Background()

	byExp, err := src.Fetch(ctx, Criteria{MinExperience: 10})
	require.NoError(t, err)
	require.Len(t, byExp, 1)
	assert.Equal(t, "rev-3", byExp[0].ID)

	// BudgetMax excludes reviewers whose floor is above the gig budget.
	byBudget, err := src.Fetch(ctx, Criteria{BudgetMax: 3000})
	require.NoError(t, err)
	require.Len(t, byBudget, 2)

	byCategory, err := src.Fetch(ctx, Criteria{Category: "photography"})
	require.NoError(t, err)
	require.Len(t, byCategory, 2)
}

func TestFileSourceLimitTruncates(t *testing.T) {
	src := NewFileSource(writePool(t))

	got, err := src.Fetch(context.Background(), Criteria{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFileSourceBareListForm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: solo\n  city: Austin\n"), 0o644))

	got, err := NewFileSource(path).Fetch(context.Background(), Criteria{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "solo", got[0].ID)
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := NewFileSource("/does/not/exist.yaml").Fetch(context.Background(), Criteria{})
	assert.Error(t, err)
}

func TestFileSourceCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileSource(writePool(t)).Fetch(ctx, Criteria{})
	assert.Error(t, err)
}
