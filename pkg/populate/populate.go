// Package populate implements the offline batch job that loads the CSV
// dataset into the graph database and the movie record store. It is a
// one-shot pipeline: a failed run is rerun from scratch.
package populate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kinograph/kino/pkg/dataset"
	"github.com/kinograph/kino/pkg/models"
	"github.com/kinograph/kino/pkg/store"
)

// GraphWriter is the write surface of the graph database used by the
// pipeline. *graph.Store satisfies it.
type GraphWriter interface {
	Clear(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
	ImportGenres(ctx context.Context, genres []string) error
	ImportMovies(ctx context.Context, movies []models.Movie, batchSize int) error
	ImportUsers(ctx context.Context, userIDs []int) error
	ImportRatings(ctx context.Context, ratings []models.Rating, batchSize int) error
	ComputeStatistics(ctx context.Context) error
	Counts(ctx context.Context) (nodes, edges int, err error)
}

// Options controls a population run
type Options struct {
	MoviesCSV       string
	RatingsCSV      string
	MovieBatchSize  int
	RatingBatchSize int

	// FlushStore erases existing movie records before writing. Off by
	// default: population overwrites records it knows about but leaves
	// stale keys behind, so operators clean the store manually after a
	// dataset shrinks (see README).
	FlushStore bool
}

// Run executes the full pipeline: wipe and rebuild the graph, then write one
// cache record per movie with the mean rating computed from the source table.
func Run(ctx context.Context, opts Options, gw GraphWriter, st store.Store, logger zerolog.Logger) (models.PopulationSummary, error) {
	var summary models.PopulationSummary

	movies, err := dataset.LoadMovies(opts.MoviesCSV)
	if err != nil {
		return summary, err
	}
	ratings, err := dataset.LoadRatings(opts.RatingsCSV)
	if err != nil {
		return summary, err
	}

	genres := collectGenres(movies)
	users := dataset.UniqueUsers(ratings)

	logger.Info().
		Int("movies", len(movies)).
		Int("ratings", len(ratings)).
		Int("users", len(users)).
		Int("genres", len(genres)).
		Msg("Dataset loaded")

	// Graph: full erase and rebuild
	if err := gw.Clear(ctx); err != nil {
		return summary, err
	}
	if err := gw.EnsureSchema(ctx); err != nil {
		return summary, err
	}
	if err := gw.ImportGenres(ctx, genres); err != nil {
		return summary, err
	}
	if err := gw.ImportMovies(ctx, movies, opts.MovieBatchSize); err != nil {
		return summary, err
	}
	if err := gw.ImportUsers(ctx, users); err != nil {
		return summary, err
	}
	if err := gw.ImportRatings(ctx, ratings, opts.RatingBatchSize); err != nil {
		return summary, err
	}
	if err := gw.ComputeStatistics(ctx); err != nil {
		return summary, err
	}

	// Store: one hash per movie with the mean rating from the source table
	if opts.FlushStore {
		if err := st.Flush(ctx); err != nil {
			return summary, fmt.Errorf("failed to flush store: %w", err)
		}
		logger.Info().Msg("Flushed existing movie records")
	}

	averages := dataset.AverageRatings(ratings)
	for _, m := range movies {
		record := models.MovieRecord{
			ID:        m.ID,
			Title:     m.FullTitle,
			Genre:     strings.Join(m.Genres, " "),
			AvgRating: averages[m.ID],
		}
		if err := st.Put(ctx, record); err != nil {
			return summary, fmt.Errorf("failed to write record %s: %w", record.Key(), err)
		}
		summary.CacheRecords++
	}

	if indexer, ok := st.(store.Indexer); ok {
		if err := indexer.EnsureSearchIndex(ctx); err != nil {
			logger.Warn().Err(err).Msg("Search index not created, searches will scan")
		} else {
			logger.Info().Msg("Search index ready")
		}
	}

	nodes, edges, err := gw.Counts(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to count graph: %w", err)
	}

	summary.Movies = len(movies)
	summary.Genres = len(genres)
	summary.Users = len(users)
	summary.Ratings = len(ratings)
	summary.GraphNodes = nodes
	summary.GraphEdges = edges

	logger.Info().
		Int("graph_nodes", nodes).
		Int("graph_edges", edges).
		Int("cache_records", summary.CacheRecords).
		Msg("Population completed")

	return summary, nil
}

// collectGenres gathers the distinct genre tags across all movies, sorted
// for deterministic import order
func collectGenres(movies []models.Movie) []string {
	seen := make(map[string]bool)
	var genres []string
	for _, m := range movies {
		for _, g := range m.Genres {
			if !seen[g] {
				seen[g] = true
				genres = append(genres, g)
			}
		}
	}
	sort.Strings(genres)
	return genres
}
