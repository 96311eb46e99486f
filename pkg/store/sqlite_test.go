package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinograph/kino/pkg/models"
	"github.com/kinograph/kino/pkg/store"
)

func setupSQLiteStore(t *testing.T) store.Store {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return st
}

func seedMovies(t *testing.T, st store.Store) {
	t.Helper()

	ctx := context.Background()
	records := []models.MovieRecord{
		{ID: 1, Title: "Toy Story (1995)", Genre: "Adventure Animation Children Comedy Fantasy", AvgRating: 3.9},
		{ID: 2, Title: "Jumanji (1995)", Genre: "Adventure Children Fantasy", AvgRating: 3.4},
		{ID: 6, Title: "Heat (1995)", Genre: "Action Crime Thriller", AvgRating: 3.9},
		{ID: 296, Title: "Pulp Fiction (1994)", Genre: "Comedy Crime Drama Thriller", AvgRating: 4.2},
		{ID: 999, Title: "Obscure Short", Genre: "", AvgRating: 0},
	}
	for _, rec := range records {
		require.NoError(t, st.Put(ctx, rec))
	}
}

func TestSQLitePutGet(t *testing.T) {
	st := setupSQLiteStore(t)
	ctx := context.Background()

	rec := models.MovieRecord{ID: 1, Title: "Toy Story (1995)", Genre: "Animation Comedy", AvgRating: 3.5}
	require.NoError(t, st.Put(ctx, rec))

	got, err := st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	t.Run("Overwrite", func(t *testing.T) {
		rec.AvgRating = 4.0
		require.NoError(t, st.Put(ctx, rec))

		got, err := st.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 4.0, got.AvgRating)
	})

	t.Run("Not found", func(t *testing.T) {
		_, err := st.Get(ctx, 42)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSQLiteSearch(t *testing.T) {
	st := setupSQLiteStore(t)
	seedMovies(t, st)
	ctx := context.Background()

	t.Run("Substring match is case-insensitive", func(t *testing.T) {
		records, err := st.Search(ctx, models.SearchParams{Term: "toy"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Toy Story (1995)", records[0].Title)
	})

	t.Run("Partial word matches", func(t *testing.T) {
		records, err := st.Search(ctx, models.SearchParams{Term: "man"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 2, records[0].ID)
	})

	t.Run("Genre filter keeps only tagged movies", func(t *testing.T) {
		records, err := st.Search(ctx, models.SearchParams{Genre: "Crime"})
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, rec := range records {
			assert.True(t, rec.HasGenre("Crime"), "movie %d not tagged Crime", rec.ID)
		}
	})

	t.Run("Genre filter matches whole tags only", func(t *testing.T) {
		// "Children" must not match a "Child" filter
		records, err := st.Search(ctx, models.SearchParams{Genre: "Child"})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Term and genre combine", func(t *testing.T) {
		records, err := st.Search(ctx, models.SearchParams{Term: "1995", Genre: "Action"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 6, records[0].ID)
	})

	t.Run("Limit caps results", func(t *testing.T) {
		records, err := st.Search(ctx, models.SearchParams{Term: "1995", Limit: 2})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("No match", func(t *testing.T) {
		records, err := st.Search(ctx, models.SearchParams{Term: "zzzzz"})
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestSQLiteTop(t *testing.T) {
	st := setupSQLiteStore(t)
	seedMovies(t, st)
	ctx := context.Background()

	records, err := st.Top(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, 296, records[0].ID) // highest rated first
	for i := 1; i < len(records); i++ {
		assert.GreaterOrEqual(t, records[i-1].AvgRating, records[i].AvgRating)
	}

	t.Run("Unrated movies sort last", func(t *testing.T) {
		all, err := st.Top(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, 999, all[len(all)-1].ID)
	})
}

func TestSQLiteFlushAndCount(t *testing.T) {
	st := setupSQLiteStore(t)
	seedMovies(t, st)
	ctx := context.Background()

	count, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	require.NoError(t, st.Flush(ctx))

	count, err = st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestFactory(t *testing.T) {
	t.Run("Registered types", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"redis", "sqlite"}, store.List())
	})

	t.Run("SQLite via factory", func(t *testing.T) {
		st, err := store.New("sqlite", map[string]interface{}{"db_path": ":memory:"})
		require.NoError(t, err)
		defer st.Close()

		info := st.(store.InfoProvider).Info()
		assert.Equal(t, "sqlite", info.Type)
	})

	t.Run("Unknown type", func(t *testing.T) {
		_, err := store.New("cassandra", nil)
		assert.Error(t, err)
	})
}
