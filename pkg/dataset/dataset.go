// Package dataset reads the MovieLens-style movies and ratings tables.
package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/kinograph/kino/pkg/models"
)

// noGenres is the placeholder MovieLens uses for untagged movies
const noGenres = "(no genres listed)"

var yearPattern = regexp.MustCompile(`\((\d{4})\)`)

// LoadMovies reads the movies table. Rows are parsed line by line rather than
// through encoding/csv because some exports leave comma-bearing titles
// unquoted; the "(YYYY)" year marks the end of the title in that case.
func LoadMovies(path string) ([]models.Movie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open movies file: %w", err)
	}
	defer f.Close()

	var movies []models.Movie
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "movieId") {
			continue
		}

		movie, ok := parseMovieLine(line)
		if !ok {
			continue
		}
		movies = append(movies, movie)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read movies file: %w", err)
	}

	return movies, nil
}

// parseMovieLine parses a single movies row. Returns false for rows without a
// numeric id or a title.
func parseMovieLine(line string) (models.Movie, bool) {
	var fields []string

	// Well-formed rows (quoted titles) go through the CSV reader
	if rec, err := csv.NewReader(strings.NewReader(line)).Read(); err == nil && len(rec) == 3 {
		fields = rec
	} else {
		fields = splitUnquoted(line)
	}

	if len(fields) < 2 {
		return models.Movie{}, false
	}

	id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return models.Movie{}, false
	}

	fullTitle := strings.TrimSpace(strings.Trim(fields[1], `"`))
	if fullTitle == "" {
		return models.Movie{}, false
	}

	var genres []string
	if len(fields) >= 3 {
		genres = SplitGenres(fields[2])
	}

	title, year := splitYear(fullTitle)

	return models.Movie{
		ID:        id,
		Title:     title,
		FullTitle: fullTitle,
		Year:      year,
		Genres:    genres,
	}, true
}

// splitUnquoted handles rows whose titles contain unquoted commas. Everything
// from the second field up to and including the part carrying "(YYYY)" is
// title; the single field after it is the genre list.
func splitUnquoted(line string) []string {
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return parts
	}

	id := parts[0]
	var titleParts []string
	genres := ""

	foundYear := false
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if !foundYear {
			titleParts = append(titleParts, part)
			if yearPattern.MatchString(part) {
				foundYear = true
			}
		} else {
			genres = part
			break
		}
	}

	if !foundYear {
		// No year anywhere: title is the second field, genres the last
		titleParts = []string{strings.TrimSpace(parts[1])}
		if len(parts) >= 3 {
			genres = strings.TrimSpace(parts[len(parts)-1])
		}
	}

	return []string{id, strings.Join(titleParts, ", "), genres}
}

// splitYear extracts a trailing "(YYYY)" release year from a title
func splitYear(fullTitle string) (string, int) {
	loc := yearPattern.FindStringSubmatchIndex(fullTitle)
	if loc == nil {
		return fullTitle, 0
	}

	year, err := strconv.Atoi(fullTitle[loc[2]:loc[3]])
	if err != nil {
		return fullTitle, 0
	}

	return strings.TrimSpace(fullTitle[:loc[0]]), year
}

// SplitGenres splits a pipe-separated genre list, dropping empty tags and the
// "(no genres listed)" placeholder
func SplitGenres(raw string) []string {
	var genres []string
	for _, g := range strings.Split(raw, "|") {
		g = strings.TrimSpace(g)
		if g == "" || g == noGenres {
			continue
		}
		genres = append(genres, g)
	}
	return genres
}

// LoadRatings reads the ratings table (userId,movieId,rating,timestamp).
// Malformed rows are skipped.
func LoadRatings(path string) ([]models.Rating, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ratings file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	var ratings []models.Rating
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ratings file: %w", err)
		}
		if len(rec) < 3 {
			continue
		}

		userID, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			continue // header or malformed row
		}
		movieID, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			continue
		}

		var ts int64
		if len(rec) >= 4 {
			ts, _ = strconv.ParseInt(strings.TrimSpace(rec[3]), 10, 64)
		}

		ratings = append(ratings, models.Rating{
			UserID:    userID,
			MovieID:   movieID,
			Rating:    score,
			Timestamp: ts,
		})
	}

	return ratings, nil
}

// AverageRatings computes the arithmetic mean rating per movie
func AverageRatings(ratings []models.Rating) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)

	for _, r := range ratings {
		sums[r.MovieID] += r.Rating
		counts[r.MovieID]++
	}

	averages := make(map[int]float64, len(sums))
	for id, sum := range sums {
		averages[id] = sum / float64(counts[id])
	}
	return averages
}

// UniqueUsers returns the distinct user IDs in the ratings table, in first-seen order
func UniqueUsers(ratings []models.Rating) []int {
	seen := make(map[int]bool)
	var users []int
	for _, r := range ratings {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			users = append(users, r.UserID)
		}
	}
	return users
}
