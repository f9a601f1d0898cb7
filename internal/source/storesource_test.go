package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/talent-matcher/internal/model"
	"github.com/sells-group/talent-matcher/internal/store"
)

func seededStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	_, err = st.UpsertReviewers(ctx, []model.Reviewer{
		{ID: "rev-1", City: "Austin", ExperienceYears: 7, Budget: model.BudgetRange{Min: 2000, Max: 4000}, Skills: []string{"wedding photography"}, Rating: 4.8},
		{ID: "rev-2", City: "Dallas", AltCities: []string{"Austin"}, ExperienceYears: 3, Budget: model.BudgetRange{Min: 1000, Max: 2500}, Skills: []string{"portrait photography"}, Rating: 4.0},
		{ID: "rev-3", City: "Seattle", ExperienceYears: 12, Budget: model.BudgetRange{Min: 5000, Max: 9000}, Skills: []string{"videography"}, Rating: 4.9},
	})
	require.NoError(t, err)
	return st
}

func TestStoreSourceFetchAll(t *testing.T) {
	src := NewStoreSource(seededStore(t))

	got, err := src.Fetch(context.Background(), Criteria{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Sanitized output is sorted by id.
	assert.Equal(t, "rev-1", got[0].ID)
	assert.Equal(t, "rev-3", got[2].ID)
}

func TestStoreSourceCityUsesAltCities(t *testing.T) {
	src := NewStoreSource(seededStore(t))

	got, err := src.Fetch(context.Background(), Criteria{City: "Austin"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "rev-1", got[0].ID)
	assert.Equal(t, "rev-2", got[1].ID)
}

func TestStoreSourceFiltersAndLimit(t *testing.T) {
	src := NewStoreSource(seededStore(t))
	ctx := context.Background()

	byCategory, err := src.Fetch(ctx, Criteria{Category: "photography"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	byExp, err := src.Fetch(ctx, Criteria{MinExperience: 5})
	require.NoError(t, err)
	assert.Len(t, byExp, 2)

	limited, err := src.Fetch(ctx, Criteria{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
