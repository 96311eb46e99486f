package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/kinograph/kino/pkg/models"
)

// Thresholds used by the recommendation queries. A rating of 3.5 or better
// counts as "liked"; users need 3 commonly-liked movies to count as similar.
const (
	likedThreshold  = 3.5
	minCommonMovies = 3
	minGenreRatings = 10
	minPopularCount = 50
	fewRatings      = 5
)

// RecommendationsFor picks a strategy based on how much the database knows
// about the user: popular movies for unknown users, content-based for users
// with few ratings, hybrid otherwise.
func (s *Store) RecommendationsFor(ctx context.Context, userID, limit int) ([]models.Recommendation, error) {
	if limit <= 0 {
		limit = 5
	}

	count, err := s.UserRatingCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch {
	case count == 0:
		return s.PopularRecommendations(ctx, userID, limit)
	case count < fewRatings:
		return s.ContentBasedRecommendations(ctx, userID, limit)
	default:
		return s.HybridRecommendations(ctx, userID, limit)
	}
}

// UserRatingCount returns how many movies the user has rated
func (s *Store) UserRatingCount(ctx context.Context, userID int) (int, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u:User {userId: $userId})-[:RATED]->()
		RETURN count(*) AS ratingCount
	`, map[string]interface{}{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count user ratings: %w", err)
	}

	if result.Next(ctx) {
		return intFromRecord(result.Record(), "ratingCount"), nil
	}
	return 0, result.Err()
}

// CollaborativeRecommendations finds users with overlapping taste and
// recommends what they liked
func (s *Store) CollaborativeRecommendations(ctx context.Context, userID, limit int) ([]models.Recommendation, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (target:User {userId: $userId})-[r1:RATED]->(m:Movie)<-[r2:RATED]-(other:User)
		WHERE r1.rating >= $liked AND r2.rating >= $liked AND target <> other

		WITH other, count(DISTINCT m) AS commonMovies,
		     sum(abs(r1.rating - r2.rating)) AS ratingDiff
		WHERE commonMovies >= $minCommon

		WITH other, commonMovies,
		     (commonMovies * 1.0) / (1.0 + ratingDiff) AS similarity
		ORDER BY similarity DESC
		LIMIT 20

		MATCH (other)-[r:RATED]->(rec:Movie)
		WHERE r.rating >= $liked
		  AND NOT EXISTS {
		      MATCH (target:User {userId: $userId})-[:RATED]->(rec)
		  }

		WITH rec,
		     sum(similarity * r.rating) AS score,
		     rec.avgRating AS avgRating,
		     rec.ratingCount AS ratingCount

		RETURN rec.movieId AS movieId,
		       rec.title AS title,
		       rec.fullTitle AS fullTitle,
		       rec.year AS year,
		       avgRating,
		       ratingCount,
		       score
		ORDER BY score DESC, avgRating DESC
		LIMIT $limit
	`, map[string]interface{}{
		"userId":    userID,
		"liked":     likedThreshold,
		"minCommon": minCommonMovies,
		"limit":     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("collaborative query failed: %w", err)
	}

	return collectRecommendations(ctx, result, "collaborative")
}

// ContentBasedRecommendations finds highly-rated movies in the genres the
// user likes
func (s *Store) ContentBasedRecommendations(ctx context.Context, userID, limit int) ([]models.Recommendation, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u:User {userId: $userId})-[r:RATED]->(m:Movie)-[:HAS_GENRE]->(g:Genre)
		WHERE r.rating >= $liked

		WITH g, avg(r.rating) AS avgUserRating, count(m) AS genreCount
		ORDER BY avgUserRating DESC, genreCount DESC
		LIMIT 5

		MATCH (g)<-[:HAS_GENRE]-(rec:Movie)
		WHERE rec.avgRating >= $liked
		  AND rec.ratingCount >= $minGenreRatings
		  AND NOT EXISTS {
		      MATCH (u:User {userId: $userId})-[:RATED]->(rec)
		  }

		WITH DISTINCT rec,
		     rec.avgRating * rec.ratingCount AS popularityScore

		RETURN rec.movieId AS movieId,
		       rec.title AS title,
		       rec.fullTitle AS fullTitle,
		       rec.year AS year,
		       rec.avgRating AS avgRating,
		       rec.ratingCount AS ratingCount,
		       popularityScore AS score
		ORDER BY score DESC
		LIMIT $limit
	`, map[string]interface{}{
		"userId":          userID,
		"liked":           likedThreshold,
		"minGenreRatings": minGenreRatings,
		"limit":           limit,
	})
	if err != nil {
		return nil, fmt.Errorf("content-based query failed: %w", err)
	}

	return collectRecommendations(ctx, result, "content")
}

// PopularRecommendations is the fallback for users the database knows
// nothing about
func (s *Store) PopularRecommendations(ctx context.Context, userID, limit int) ([]models.Recommendation, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (m:Movie)
		WHERE m.ratingCount >= $minPopular
		  AND NOT EXISTS {
		      MATCH (u:User {userId: $userId})-[:RATED]->(m)
		  }
		RETURN m.movieId AS movieId,
		       m.title AS title,
		       m.fullTitle AS fullTitle,
		       m.year AS year,
		       m.avgRating AS avgRating,
		       m.ratingCount AS ratingCount,
		       m.avgRating AS score
		ORDER BY m.avgRating DESC, m.ratingCount DESC
		LIMIT $limit
	`, map[string]interface{}{
		"userId":     userID,
		"minPopular": minPopularCount,
		"limit":      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("popular query failed: %w", err)
	}

	return collectRecommendations(ctx, result, "popular")
}

// HybridRecommendations merges collaborative and content-based results
func (s *Store) HybridRecommendations(ctx context.Context, userID, limit int) ([]models.Recommendation, error) {
	collab, err := s.CollaborativeRecommendations(ctx, userID, limit*2)
	if err != nil {
		return nil, err
	}

	content, err := s.ContentBasedRecommendations(ctx, userID, limit*2)
	if err != nil {
		return nil, err
	}

	return mergeRecommendations(collab, content, limit), nil
}

// mergeRecommendations combines the two ranked lists. Position in each list
// converts to a score (collaborative weighted 2.0 per slot, content 1.5);
// movies appearing in both lists add their scores and are marked hybrid.
func mergeRecommendations(collab, content []models.Recommendation, limit int) []models.Recommendation {
	merged := make(map[int]models.Recommendation)

	for i, rec := range collab {
		rec.Score = float64(len(collab)-i) * 2.0
		rec.Source = "collaborative"
		merged[rec.MovieID] = rec
	}

	for i, rec := range content {
		score := float64(len(content)-i) * 1.5
		if existing, ok := merged[rec.MovieID]; ok {
			existing.Score += score
			existing.Source = "hybrid"
			merged[existing.MovieID] = existing
		} else {
			rec.Score = score
			rec.Source = "content"
			merged[rec.MovieID] = rec
		}
	}

	results := make([]models.Recommendation, 0, len(merged))
	for _, rec := range merged {
		results = append(results, rec)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].MovieID < results[j].MovieID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// collectRecommendations drains a result stream into Recommendation values
func collectRecommendations(ctx context.Context, result neo4j.ResultWithContext, source string) ([]models.Recommendation, error) {
	var recs []models.Recommendation
	for result.Next(ctx) {
		record := result.Record()
		recs = append(recs, models.Recommendation{
			MovieID:     intFromRecord(record, "movieId"),
			Title:       stringFromRecord(record, "title"),
			FullTitle:   stringFromRecord(record, "fullTitle"),
			Year:        intFromRecord(record, "year"),
			AvgRating:   floatFromRecord(record, "avgRating"),
			RatingCount: intFromRecord(record, "ratingCount"),
			Score:       floatFromRecord(record, "score"),
			Source:      source,
		})
	}
	return recs, result.Err()
}

// Record value helpers. The driver returns int64 for cypher integers and
// float64 for floats; nulls come back as nil.

func intFromRecord(record *db.Record, key string) int {
	val, ok := record.Get(key)
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatFromRecord(record *db.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func stringFromRecord(record *db.Record, key string) string {
	val, ok := record.Get(key)
	if !ok {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
