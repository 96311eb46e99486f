package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kinograph/kino/pkg/cache"
	"github.com/kinograph/kino/pkg/config"
	"github.com/kinograph/kino/pkg/graph"
	"github.com/kinograph/kino/pkg/models"
	"github.com/kinograph/kino/pkg/server"
	"github.com/kinograph/kino/pkg/store"
)

// stubRecommender returns canned recommendations
type stubRecommender struct {
	recs []models.Recommendation
	err  error
}

func (s *stubRecommender) RecommendationsFor(ctx context.Context, userID, limit int) ([]models.Recommendation, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.recs) {
		return s.recs[:limit], nil
	}
	return s.recs, nil
}

// TestServer holds test server instance and helpers
type TestServer struct {
	ts *httptest.Server
	t  *testing.T
}

func setupTestServer(t *testing.T, rec *stubRecommender) *TestServer {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	seed := []models.MovieRecord{
		{ID: 1, Title: "Toy Story (1995)", Genre: "Adventure Animation Children Comedy Fantasy", AvgRating: 3.9},
		{ID: 2, Title: "Jumanji (1995)", Genre: "Adventure Children Fantasy", AvgRating: 3.4},
		{ID: 6, Title: "Heat (1995)", Genre: "Action Crime Thriller", AvgRating: 3.9},
		{ID: 296, Title: "Pulp Fiction (1994)", Genre: "Comedy Crime Drama Thriller", AvgRating: 4.2},
	}
	for _, r := range seed {
		if err := st.Put(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	resultCache := cache.New(128, time.Minute)

	var recommender graph.Recommender
	if rec != nil {
		recommender = rec
	}
	srv := server.New(cfg, st, recommender, resultCache, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &TestServer{ts: ts, t: t}
}

func (ts *TestServer) get(path string) (*http.Response, []byte) {
	ts.t.Helper()

	resp, err := http.Get(ts.ts.URL + path)
	if err != nil {
		ts.t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		ts.t.Fatal(err)
	}
	return resp, body
}

func TestHealthEndpoints(t *testing.T) {
	ts := setupTestServer(t, nil)

	t.Run("GET /health", func(t *testing.T) {
		resp, body := ts.get("/health")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected 200, got %d", resp.StatusCode)
		}

		var result map[string]interface{}
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatal(err)
		}
		if result["status"] != "ok" {
			t.Errorf("Expected status ok, got %v", result["status"])
		}
	})

	t.Run("GET /version", func(t *testing.T) {
		resp, body := ts.get("/version")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(string(body), config.Version) {
			t.Errorf("Version missing from %s", body)
		}
	})
}

func TestHomePage(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp, body := ts.get("/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected HTML, got %s", ct)
	}

	html := string(body)
	if !strings.Contains(html, "Pulp Fiction (1994)") {
		t.Error("Highest-rated movie missing from home page")
	}
	if !strings.Contains(html, `action="/search"`) {
		t.Error("Search form missing from home page")
	}
}

func TestSearchPage(t *testing.T) {
	ts := setupTestServer(t, nil)

	t.Run("Substring match is case-insensitive", func(t *testing.T) {
		resp, body := ts.get("/search?term=toy")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}

		html := string(body)
		if !strings.Contains(html, "Toy Story (1995)") {
			t.Error("Expected Toy Story in results")
		}
		if strings.Contains(html, "Jumanji") {
			t.Error("Jumanji should not match 'toy'")
		}
	})

	t.Run("Genre filter", func(t *testing.T) {
		_, body := ts.get("/search?term=1995&genre=Action")
		html := string(body)
		if !strings.Contains(html, "Heat (1995)") {
			t.Error("Expected Heat in Action results")
		}
		if strings.Contains(html, "Toy Story") {
			t.Error("Toy Story is not tagged Action")
		}
	})

	t.Run("Genre-only search", func(t *testing.T) {
		_, body := ts.get("/search?genre=Crime")
		html := string(body)
		if !strings.Contains(html, "Heat (1995)") || !strings.Contains(html, "Pulp Fiction (1994)") {
			t.Error("Expected both Crime movies")
		}
	})

	t.Run("No match shows empty state", func(t *testing.T) {
		_, body := ts.get("/search?term=zzzzz")
		if !strings.Contains(string(body), "No movies matched") {
			t.Error("Expected empty state message")
		}
	})

	t.Run("Empty search shows form only", func(t *testing.T) {
		resp, _ := ts.get("/search")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected 200, got %d", resp.StatusCode)
		}
	})
}

func TestMoviesAPI(t *testing.T) {
	ts := setupTestServer(t, nil)

	t.Run("List with term", func(t *testing.T) {
		resp, body := ts.get("/api/v1/movies?term=jumanji")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}

		var result models.PagedResponse
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatal(err)
		}
		if result.Pagination.TotalItems != 1 {
			t.Errorf("Expected 1 match, got %d", result.Pagination.TotalItems)
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		resp, body := ts.get("/api/v1/movies?per_page=2&page=2")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}

		var result models.PagedResponse
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatal(err)
		}
		if result.Pagination.TotalItems != 4 || result.Pagination.TotalPages != 2 {
			t.Errorf("Unexpected pagination: %+v", result.Pagination)
		}

		items, ok := result.Data.([]interface{})
		if !ok || len(items) != 2 {
			t.Errorf("Expected 2 items on page 2, got %v", result.Data)
		}
	})

	t.Run("Get existing movie", func(t *testing.T) {
		resp, body := ts.get("/api/v1/movies/296")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}

		var rec models.MovieRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			t.Fatal(err)
		}
		if rec.Title != "Pulp Fiction (1994)" || rec.AvgRating != 4.2 {
			t.Errorf("Unexpected record: %+v", rec)
		}
	})

	t.Run("Get unknown movie", func(t *testing.T) {
		resp, _ := ts.get("/api/v1/movies/424242")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("Invalid ID", func(t *testing.T) {
		resp, _ := ts.get("/api/v1/movies/abc")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestRecommendationsAPI(t *testing.T) {
	recs := []models.Recommendation{
		{MovieID: 318, Title: "Shawshank Redemption, The", Score: 9.5, Source: "hybrid"},
		{MovieID: 296, Title: "Pulp Fiction", Score: 7.0, Source: "collaborative"},
	}

	t.Run("Returns graph results", func(t *testing.T) {
		ts := setupTestServer(t, &stubRecommender{recs: recs})

		resp, body := ts.get("/api/v1/recommendations/1")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}

		var result struct {
			UserID          int                     `json:"user_id"`
			Recommendations []models.Recommendation `json:"recommendations"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatal(err)
		}
		if result.UserID != 1 || len(result.Recommendations) != 2 {
			t.Errorf("Unexpected result: %+v", result)
		}
		if result.Recommendations[0].Source != "hybrid" {
			t.Errorf("Unexpected source: %s", result.Recommendations[0].Source)
		}
	})

	t.Run("Limit param", func(t *testing.T) {
		ts := setupTestServer(t, &stubRecommender{recs: recs})

		_, body := ts.get("/api/v1/recommendations/1?limit=1")
		var result struct {
			Recommendations []models.Recommendation `json:"recommendations"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatal(err)
		}
		if len(result.Recommendations) != 1 {
			t.Errorf("Expected 1 recommendation, got %d", len(result.Recommendations))
		}
	})

	t.Run("Query failure", func(t *testing.T) {
		ts := setupTestServer(t, &stubRecommender{err: fmt.Errorf("connection lost")})

		resp, _ := ts.get("/api/v1/recommendations/1")
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("Expected 500, got %d", resp.StatusCode)
		}
	})

	t.Run("Graph unavailable", func(t *testing.T) {
		ts := setupTestServer(t, nil)

		resp, _ := ts.get("/api/v1/recommendations/1")
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d", resp.StatusCode)
		}
	})

	t.Run("Invalid user ID", func(t *testing.T) {
		ts := setupTestServer(t, &stubRecommender{recs: recs})

		resp, _ := ts.get("/api/v1/recommendations/abc")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
	})
}
