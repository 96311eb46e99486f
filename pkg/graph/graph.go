// Package graph stores movies, users and ratings in a Neo4j-compatible
// graph database and answers recommendation queries against it. All ranking
// and traversal runs as cypher inside the database.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"

	"github.com/kinograph/kino/pkg/models"
)

// Recommender answers recommendation queries for a user
type Recommender interface {
	RecommendationsFor(ctx context.Context, userID, limit int) ([]models.Recommendation, error)
}

// Store wraps a bolt driver connection to the graph database
type Store struct {
	driver neo4j.DriverWithContext
	logger zerolog.Logger
}

// NewStore connects to the graph database and verifies connectivity
func NewStore(ctx context.Context, uri, user, password string, logger zerolog.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create graph driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to graph database: %w", err)
	}

	return &Store{driver: driver, logger: logger}, nil
}

// Close closes the driver
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Clear erases all nodes and relationships. The graph is fully rebuilt on
// every population run; there are no incremental merge semantics.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.run(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}
	s.logger.Info().Msg("Graph cleared")
	return nil
}

// EnsureSchema creates uniqueness constraints and indexes
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT movie_id IF NOT EXISTS FOR (m:Movie) REQUIRE m.movieId IS UNIQUE",
		"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.userId IS UNIQUE",
		"CREATE CONSTRAINT genre_name IF NOT EXISTS FOR (g:Genre) REQUIRE g.name IS UNIQUE",
		"CREATE INDEX movie_title IF NOT EXISTS FOR (m:Movie) ON (m.title)",
		"CREATE INDEX movie_year IF NOT EXISTS FOR (m:Movie) ON (m.year)",
	}

	for _, stmt := range statements {
		if err := s.run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// ImportGenres creates one Genre node per tag
func (s *Store) ImportGenres(ctx context.Context, genres []string) error {
	err := s.run(ctx, `
		UNWIND $genres AS name
		MERGE (g:Genre {name: name})
	`, map[string]interface{}{"genres": genres})
	if err != nil {
		return fmt.Errorf("failed to import genres: %w", err)
	}

	s.logger.Info().Int("count", len(genres)).Msg("Imported genre nodes")
	return nil
}

// ImportMovies creates Movie nodes and their HAS_GENRE edges in batches
func (s *Store) ImportMovies(ctx context.Context, movies []models.Movie, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 1000
	}

	for start := 0; start < len(movies); start += batchSize {
		end := start + batchSize
		if end > len(movies) {
			end = len(movies)
		}
		batch := movies[start:end]

		rows := make([]map[string]interface{}, 0, len(batch))
		var genreRows []map[string]interface{}
		for _, m := range batch {
			var year interface{}
			if m.Year > 0 {
				year = m.Year
			}
			rows = append(rows, map[string]interface{}{
				"movieId":   m.ID,
				"title":     m.Title,
				"fullTitle": m.FullTitle,
				"year":      year,
			})
			for _, g := range m.Genres {
				genreRows = append(genreRows, map[string]interface{}{
					"movieId": m.ID,
					"genre":   g,
				})
			}
		}

		err := s.run(ctx, `
			UNWIND $movies AS movie
			CREATE (m:Movie {
				movieId: movie.movieId,
				title: movie.title,
				fullTitle: movie.fullTitle,
				year: movie.year
			})
		`, map[string]interface{}{"movies": rows})
		if err != nil {
			return fmt.Errorf("failed to import movies: %w", err)
		}

		err = s.run(ctx, `
			UNWIND $rows AS row
			MATCH (m:Movie {movieId: row.movieId})
			MATCH (g:Genre {name: row.genre})
			MERGE (m)-[:HAS_GENRE]->(g)
		`, map[string]interface{}{"rows": genreRows})
		if err != nil {
			return fmt.Errorf("failed to link genres: %w", err)
		}
	}

	s.logger.Info().Int("count", len(movies)).Msg("Imported movie nodes")
	return nil
}

// ImportUsers creates one User node per distinct user
func (s *Store) ImportUsers(ctx context.Context, userIDs []int) error {
	err := s.run(ctx, `
		UNWIND $users AS userId
		MERGE (u:User {userId: userId})
	`, map[string]interface{}{"users": userIDs})
	if err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}

	s.logger.Info().Int("count", len(userIDs)).Msg("Imported user nodes")
	return nil
}

// ImportRatings creates RATED edges in batches
func (s *Store) ImportRatings(ctx context.Context, ratings []models.Rating, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 5000
	}

	for start := 0; start < len(ratings); start += batchSize {
		end := start + batchSize
		if end > len(ratings) {
			end = len(ratings)
		}
		batch := ratings[start:end]

		rows := make([]map[string]interface{}, 0, len(batch))
		for _, r := range batch {
			rows = append(rows, map[string]interface{}{
				"userId":    r.UserID,
				"movieId":   r.MovieID,
				"rating":    r.Rating,
				"timestamp": r.Timestamp,
			})
		}

		err := s.run(ctx, `
			UNWIND $ratings AS rating
			MATCH (u:User {userId: rating.userId})
			MATCH (m:Movie {movieId: rating.movieId})
			CREATE (u)-[:RATED {
				rating: rating.rating,
				timestamp: rating.timestamp
			}]->(m)
		`, map[string]interface{}{"ratings": rows})
		if err != nil {
			return fmt.Errorf("failed to import ratings: %w", err)
		}

		s.logger.Debug().Int("processed", end).Msg("Imported rating batch")
	}

	s.logger.Info().Int("count", len(ratings)).Msg("Imported rating edges")
	return nil
}

// ComputeStatistics writes avgRating and ratingCount onto every Movie node
func (s *Store) ComputeStatistics(ctx context.Context) error {
	err := s.run(ctx, `
		MATCH (m:Movie)<-[r:RATED]-()
		WITH m, avg(r.rating) AS avgRating, count(r) AS ratingCount
		SET m.avgRating = avgRating,
		    m.ratingCount = ratingCount
	`, nil)
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}

	// Unrated movies get explicit zeroes so the queries below can filter on them
	err = s.run(ctx, `
		MATCH (m:Movie)
		WHERE m.avgRating IS NULL
		SET m.avgRating = 0.0, m.ratingCount = 0
	`, nil)
	if err != nil {
		return fmt.Errorf("failed to zero unrated movies: %w", err)
	}

	s.logger.Info().Msg("Computed movie statistics")
	return nil
}

// Counts returns the total node and relationship counts
func (s *Store) Counts(ctx context.Context) (nodes, edges int, err error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, "MATCH (n) RETURN count(n) AS count", nil)
	if err != nil {
		return 0, 0, err
	}
	if result.Next(ctx) {
		nodes = intFromRecord(result.Record(), "count")
	}

	result, err = session.Run(ctx, "MATCH ()-[r]->() RETURN count(r) AS count", nil)
	if err != nil {
		return 0, 0, err
	}
	if result.Next(ctx) {
		edges = intFromRecord(result.Record(), "count")
	}

	return nodes, edges, result.Err()
}

// MovieNodeCount returns the number of Movie nodes
func (s *Store) MovieNodeCount(ctx context.Context) (int, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, "MATCH (m:Movie) RETURN count(m) AS count", nil)
	if err != nil {
		return 0, err
	}
	if result.Next(ctx) {
		return intFromRecord(result.Record(), "count"), nil
	}
	return 0, result.Err()
}

// run executes a single write statement
func (s *Store) run(ctx context.Context, cypher string, params map[string]interface{}) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}
