package store

import (
	"context"
	"errors"

	"github.com/kinograph/kino/pkg/models"
)

var (
	// ErrNotFound is returned when a movie record is not found
	ErrNotFound = errors.New("movie not found")
)

// Store defines the interface for movie record backends.
// The population pipeline owns the write path; the web service only reads.
type Store interface {
	// Write path (population pipeline only)
	Put(ctx context.Context, record models.MovieRecord) error
	Flush(ctx context.Context) error

	// Read path
	Get(ctx context.Context, id int) (models.MovieRecord, error)
	Search(ctx context.Context, params models.SearchParams) ([]models.MovieRecord, error)
	Top(ctx context.Context, limit int) ([]models.MovieRecord, error)
	Count(ctx context.Context) (int, error)

	// Lifecycle
	Close() error
}

// Indexer is implemented by stores that maintain a dedicated search index
type Indexer interface {
	EnsureSearchIndex(ctx context.Context) error
}

// StoreInfo provides metadata about the store implementation
type StoreInfo struct {
	Type           string // "redis", "sqlite"
	SupportsSearch bool
}

// InfoProvider allows stores to provide metadata about their capabilities
type InfoProvider interface {
	Info() StoreInfo
}
