package models

import (
	"strconv"
	"strings"
)

// Movie is a row from the movies table, with the release year split out of
// the title when one is present.
type Movie struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	FullTitle string   `json:"full_title"`
	Year      int      `json:"year,omitempty"`
	Genres    []string `json:"genres"`
}

// Rating is a row from the ratings table
type Rating struct {
	UserID    int     `json:"user_id"`
	MovieID   int     `json:"movie_id"`
	Rating    float64 `json:"rating"`
	Timestamp int64   `json:"timestamp"`
}

// MovieRecord is the per-movie hash kept in the key-value store for display.
// Genre holds the space-joined tag list, AvgRating the mean of all source
// ratings for the movie (0 when unrated).
type MovieRecord struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Genre     string  `json:"genre"`
	AvgRating float64 `json:"avg_rating"`
}

// Key returns the store key for the record
func (r MovieRecord) Key() string {
	return "movie:" + strconv.Itoa(r.ID)
}

// GenreTags splits the space-joined tag list back into tags
func (r MovieRecord) GenreTags() []string {
	return strings.Fields(r.Genre)
}

// HasGenre reports whether the record carries the given tag (case-insensitive)
func (r MovieRecord) HasGenre(genre string) bool {
	for _, tag := range r.GenreTags() {
		if strings.EqualFold(tag, genre) {
			return true
		}
	}
	return false
}

// Recommendation is one recommended movie as returned by the graph database
type Recommendation struct {
	MovieID     int     `json:"movie_id"`
	Title       string  `json:"title"`
	FullTitle   string  `json:"full_title,omitempty"`
	Year        int     `json:"year,omitempty"`
	AvgRating   float64 `json:"avg_rating"`
	RatingCount int     `json:"rating_count,omitempty"`
	Score       float64 `json:"score"`
	Source      string  `json:"source"` // collaborative, content, hybrid, popular
}

// SearchParams are the filter parameters accepted by the search endpoints
type SearchParams struct {
	Term  string `json:"term"`
	Genre string `json:"genre"`
	Limit int    `json:"limit"`
}

// PopulationSummary reports what a population run wrote
type PopulationSummary struct {
	Movies       int `json:"movies"`
	Genres       int `json:"genres"`
	Users        int `json:"users"`
	Ratings      int `json:"ratings"`
	CacheRecords int `json:"cache_records"`
	GraphNodes   int `json:"graph_nodes"`
	GraphEdges   int `json:"graph_edges"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
}

// PagedResponse represents a paginated response
type PagedResponse struct {
	Data       interface{} `json:"data"`
	Pagination struct {
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		TotalItems int `json:"total_items"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
}
