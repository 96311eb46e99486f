package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/kinograph/kino/pkg/models"
)

// SQLiteStore implements Store on an embedded SQLite database. It backs the
// redis-less dev mode and the test suite; use ":memory:" for a throwaway
// database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) the database and its schema
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "kino.db"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initialize(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS movies (
			id         INTEGER PRIMARY KEY,
			title      TEXT NOT NULL,
			genre      TEXT NOT NULL DEFAULT '',
			avg_rating REAL NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(title);
		CREATE INDEX IF NOT EXISTS idx_movies_rating ON movies(avg_rating);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Put inserts or replaces one movie record
func (s *SQLiteStore) Put(ctx context.Context, record models.MovieRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO movies (id, title, genre, avg_rating)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			genre = excluded.genre,
			avg_rating = excluded.avg_rating
	`, record.ID, record.Title, record.Genre, record.AvgRating)
	return err
}

// Flush removes all movie records
func (s *SQLiteStore) Flush(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM movies")
	return err
}

// Get retrieves a single movie record
func (s *SQLiteStore) Get(ctx context.Context, id int) (models.MovieRecord, error) {
	var rec models.MovieRecord
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, genre, avg_rating FROM movies WHERE id = ?", id,
	).Scan(&rec.ID, &rec.Title, &rec.Genre, &rec.AvgRating)

	if err == sql.ErrNoRows {
		return models.MovieRecord{}, ErrNotFound
	}
	if err != nil {
		return models.MovieRecord{}, err
	}
	return rec, nil
}

// Search finds movies whose title contains the term (case-insensitive),
// optionally restricted to a genre tag
func (s *SQLiteStore) Search(ctx context.Context, params models.SearchParams) ([]models.MovieRecord, error) {
	query := "SELECT id, title, genre, avg_rating FROM movies WHERE 1=1"
	var args []interface{}

	if term := strings.TrimSpace(params.Term); term != "" {
		// SQLite LIKE is case-insensitive for ASCII by default
		query += ` AND title LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(term)+"%")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.MovieRecord
	for rows.Next() {
		var rec models.MovieRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Genre, &rec.AvgRating); err != nil {
			return nil, err
		}

		// Genre is a space-joined tag list; match whole tags, not substrings
		if params.Genre != "" && !rec.HasGenre(params.Genre) {
			continue
		}

		records = append(records, rec)
		if params.Limit > 0 && len(records) >= params.Limit {
			break
		}
	}
	return records, rows.Err()
}

// Top returns the highest-rated movies, unrated last
func (s *SQLiteStore) Top(ctx context.Context, limit int) ([]models.MovieRecord, error) {
	query := "SELECT id, title, genre, avg_rating FROM movies ORDER BY avg_rating DESC, id"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.MovieRecord
	for rows.Next() {
		var rec models.MovieRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Genre, &rec.AvgRating); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of movie records
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies").Scan(&count)
	return count, err
}

// Info describes the backend
func (s *SQLiteStore) Info() StoreInfo {
	return StoreInfo{
		Type:           "sqlite",
		SupportsSearch: true,
	}
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func escapeLike(term string) string {
	term = strings.ReplaceAll(term, "%", `\%`)
	return strings.ReplaceAll(term, "_", `\_`)
}
