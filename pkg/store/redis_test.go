package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinograph/kino/pkg/models"
)

func TestParseSearchReply(t *testing.T) {
	// FT.SEARCH reply shape: total count, then alternating key and
	// field-value array
	reply := []interface{}{
		int64(2),
		"movie:1",
		[]interface{}{"title", "Toy Story (1995)", "genre", "Animation Comedy", "avg_rating", "3.9"},
		"movie:296",
		[]interface{}{"title", "Pulp Fiction (1994)", "genre", "Crime Drama", "avg_rating", "4.2"},
	}

	records, err := parseSearchReply(reply)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.MovieRecord{
		ID:        1,
		Title:     "Toy Story (1995)",
		Genre:     "Animation Comedy",
		AvgRating: 3.9,
	}, records[0])
	assert.Equal(t, 296, records[1].ID)

	t.Run("Empty result set", func(t *testing.T) {
		records, err := parseSearchReply([]interface{}{int64(0)})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Malformed reply", func(t *testing.T) {
		_, err := parseSearchReply("OK")
		assert.Error(t, err)
	})
}

func TestFilterRecords(t *testing.T) {
	records := []models.MovieRecord{
		{ID: 1, Title: "Toy Story (1995)", Genre: "Animation Comedy"},
		{ID: 2, Title: "Jumanji (1995)", Genre: "Adventure Children"},
		{ID: 3, Title: "Story of a Story", Genre: "Drama"},
	}

	t.Run("Case-insensitive substring", func(t *testing.T) {
		got := filterRecords(records, models.SearchParams{Term: "STORY"})
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].ID)
		assert.Equal(t, 3, got[1].ID)
	})

	t.Run("Genre filter", func(t *testing.T) {
		got := filterRecords(records, models.SearchParams{Genre: "Comedy"})
		require.Len(t, got, 1)
		assert.Equal(t, 1, got[0].ID)
	})

	t.Run("Limit", func(t *testing.T) {
		got := filterRecords(records, models.SearchParams{Term: "story", Limit: 1})
		assert.Len(t, got, 1)
	})

	t.Run("No filters returns everything", func(t *testing.T) {
		got := filterRecords(records, models.SearchParams{})
		assert.Len(t, got, 3)
	})
}

func TestRecordFromFields(t *testing.T) {
	rec := recordFromFields(7, map[string]string{
		"title":      "Heat (1995)",
		"genre":      "Action Crime Thriller",
		"avg_rating": "3.85",
	})

	assert.Equal(t, 7, rec.ID)
	assert.Equal(t, 3.85, rec.AvgRating)

	t.Run("Missing rating parses as zero", func(t *testing.T) {
		rec := recordFromFields(8, map[string]string{"title": "x"})
		assert.Equal(t, 0.0, rec.AvgRating)
	})
}
