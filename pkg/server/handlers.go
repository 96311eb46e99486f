package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kinograph/kino/pkg/models"
	"github.com/kinograph/kino/pkg/store"
)

// genreOptions drives the filter dropdown on the home page
var genreOptions = []string{
	"Action", "Adventure", "Animation", "Children", "Comedy", "Crime",
	"Documentary", "Drama", "Fantasy", "Film-Noir", "Horror", "Musical",
	"Mystery", "Romance", "Sci-Fi", "Thriller", "War", "Western",
}

// movieView is a MovieRecord prepared for template rendering
type movieView struct {
	ID        int
	Title     string
	Genres    string
	AvgRating string
	Rated     bool
}

type pageData struct {
	Term     string
	Genre    string
	Genres   []string
	Movies   []movieView
	Searched bool
}

// handleHome renders the landing page with the highest-rated movies,
// unrated movies last
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	cacheKey := "home"
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.renderHome(w, cached.(pageData))
		return
	}

	records, err := s.store.Top(r.Context(), s.config.HomeLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load movies for home page")
		http.Error(w, "failed to load movies", http.StatusInternalServerError)
		return
	}

	data := pageData{
		Genres: genreOptions,
		Movies: toViews(records),
	}
	s.cache.Set(cacheKey, data)
	s.renderHome(w, data)
}

// handleSearch renders search results. Term and genre arrive together from
// the form; changing the filter has no effect until the form is submitted
// again.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	genre := strings.TrimSpace(r.URL.Query().Get("genre"))

	data := pageData{
		Term:     term,
		Genre:    genre,
		Genres:   genreOptions,
		Searched: true,
	}

	if term == "" && genre == "" {
		s.renderHome(w, data)
		return
	}

	records, err := s.searchCached(r, models.SearchParams{
		Term:  term,
		Genre: genre,
		Limit: s.config.SearchLimit,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("term", term).Msg("Search failed")
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	data.Movies = toViews(records)
	s.renderHome(w, data)
}

// handleListMovies is the JSON counterpart of the search page, with
// pagination
func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	genre := strings.TrimSpace(r.URL.Query().Get("genre"))

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = s.config.DefaultPageSize
	}

	// Fetch everything matching, then page; the store result is cached
	records, err := s.searchCached(r, models.SearchParams{
		Term:  term,
		Genre: genre,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list movies")
		s.writeError(w, http.StatusInternalServerError, "Failed to list movies")
		return
	}

	totalItems := len(records)
	totalPages := (totalItems + perPage - 1) / perPage

	start := (page - 1) * perPage
	end := start + perPage
	if end > totalItems {
		end = totalItems
	}

	pageRecords := []models.MovieRecord{}
	if start < totalItems {
		pageRecords = records[start:end]
	}

	response := models.PagedResponse{Data: pageRecords}
	response.Pagination.Page = page
	response.Pagination.PerPage = perPage
	response.Pagination.TotalItems = totalItems
	response.Pagination.TotalPages = totalPages

	s.writeJSON(w, http.StatusOK, response)
}

// handleGetMovie retrieves a single movie record
func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		s.writeError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}

	record, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound,
				fmt.Sprintf("Movie with id %d not found", id))
			return
		}
		s.logger.Error().Err(err).Int("id", id).Msg("Failed to get movie")
		s.writeError(w, http.StatusInternalServerError, "Failed to get movie")
		return
	}

	s.writeJSON(w, http.StatusOK, record)
}

// handleRecommendations asks the graph database for movies to suggest to a
// user
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if s.recommender == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Recommendations are unavailable")
		return
	}

	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID < 0 {
		s.writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 50 {
		limit = s.config.RecLimit
	}

	cacheKey := fmt.Sprintf("recs:%d:%d", userID, limit)
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.writeJSON(w, http.StatusOK, cached)
		return
	}

	recs, err := s.recommender.RecommendationsFor(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", userID).Msg("Recommendation query failed")
		s.writeError(w, http.StatusInternalServerError, "Recommendation query failed")
		return
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}

	response := map[string]interface{}{
		"user_id":         userID,
		"recommendations": recs,
	}
	s.cache.Set(cacheKey, response)
	s.writeJSON(w, http.StatusOK, response)
}

// searchCached runs a store search through the result cache
func (s *Server) searchCached(r *http.Request, params models.SearchParams) ([]models.MovieRecord, error) {
	cacheKey := fmt.Sprintf("search:%s:%s:%d",
		strings.ToLower(params.Term), strings.ToLower(params.Genre), params.Limit)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]models.MovieRecord), nil
	}

	records, err := s.store.Search(r.Context(), params)
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKey, records)
	return records, nil
}

func (s *Server) renderHome(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		s.logger.Error().Err(err).Msg("Template rendering failed")
	}
}

func toViews(records []models.MovieRecord) []movieView {
	views := make([]movieView, 0, len(records))
	for _, rec := range records {
		view := movieView{
			ID:     rec.ID,
			Title:  rec.Title,
			Genres: strings.Join(rec.GenreTags(), ", "),
		}
		if rec.AvgRating > 0 {
			view.AvgRating = strconv.FormatFloat(rec.AvgRating, 'f', 1, 64)
			view.Rated = true
		}
		views = append(views, view)
	}
	return views
}
