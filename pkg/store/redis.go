package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kinograph/kino/pkg/models"
)

const (
	keyPrefix = "movie:"
	indexName = "movies_index"
)

// RedisStore keeps one hash per movie, keyed "movie:<id>". When the server
// has the RediSearch module loaded, searches go through the movies_index
// full-text index; otherwise they fall back to a SCAN over the keyspace.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(host string, port, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		DB:           db,
		PoolSize:     50,
		MinIdleConns: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Put writes one movie hash
func (s *RedisStore) Put(ctx context.Context, record models.MovieRecord) error {
	return s.client.HSet(ctx, record.Key(), map[string]interface{}{
		"title":      record.Title,
		"genre":      record.Genre,
		"avg_rating": strconv.FormatFloat(record.AvgRating, 'f', -1, 64),
	}).Err()
}

// Flush deletes all movie hashes
func (s *RedisStore) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return nil
}

// Get retrieves a single movie record
func (s *RedisStore) Get(ctx context.Context, id int) (models.MovieRecord, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+strconv.Itoa(id)).Result()
	if err != nil {
		return models.MovieRecord{}, err
	}
	if len(fields) == 0 {
		return models.MovieRecord{}, ErrNotFound
	}

	return recordFromFields(id, fields), nil
}

// Search finds movies matching the term and genre filter. RediSearch is
// tried first; any FT error (module missing, index absent) falls back to a
// keyspace scan.
func (s *RedisStore) Search(ctx context.Context, params models.SearchParams) ([]models.MovieRecord, error) {
	if records, err := s.searchIndex(ctx, params); err == nil {
		return records, nil
	}
	return s.searchScan(ctx, params)
}

// searchIndex queries the movies_index full-text index
func (s *RedisStore) searchIndex(ctx context.Context, params models.SearchParams) ([]models.MovieRecord, error) {
	query := "*"
	if params.Term != "" {
		query = params.Term
	}
	if params.Genre != "" {
		query += " @genre:" + params.Genre
	}

	// Uncapped searches still need an explicit LIMIT; match the scan
	// fallback by returning the whole result set
	limit := params.Limit
	if limit <= 0 {
		limit = 10000
	}

	args := []interface{}{"FT.SEARCH", indexName, query, "LIMIT", 0, limit}
	reply, err := s.client.Do(ctx, args...).Result()
	if err != nil {
		return nil, err
	}

	records, err := parseSearchReply(reply)
	if err != nil {
		return nil, err
	}

	// The index tokenizes titles, so re-check both filters before returning
	return filterRecords(records, params), nil
}

// searchScan walks every movie hash and matches in-process
func (s *RedisStore) searchScan(ctx context.Context, params models.SearchParams) ([]models.MovieRecord, error) {
	records, err := s.scanAll(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})

	return filterRecords(records, params), nil
}

// Top returns the highest-rated movies, unrated last
func (s *RedisStore) Top(ctx context.Context, limit int) ([]models.MovieRecord, error) {
	records, err := s.scanAll(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].AvgRating != records[j].AvgRating {
			return records[i].AvgRating > records[j].AvgRating
		}
		return records[i].ID < records[j].ID
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Count returns the number of movie hashes
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	count := 0
	var cursor uint64
	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 1000).Result()
		if err != nil {
			return 0, err
		}
		count += len(keys)

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return count, nil
}

// EnsureSearchIndex creates the movies_index full-text index. Creation is
// idempotent; an existing index is left alone.
func (s *RedisStore) EnsureSearchIndex(ctx context.Context) error {
	err := s.client.Do(ctx,
		"FT.CREATE", indexName,
		"ON", "HASH",
		"PREFIX", "1", keyPrefix,
		"SCHEMA",
		"title", "TEXT",
		"genre", "TEXT",
		"avg_rating", "NUMERIC",
	).Err()

	if err != nil && strings.Contains(err.Error(), "Index already exists") {
		return nil
	}
	return err
}

// Info describes the backend
func (s *RedisStore) Info() StoreInfo {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Search support depends on the RediSearch module being loaded
	supportsSearch := s.client.Do(ctx, "FT._LIST").Err() == nil

	return StoreInfo{
		Type:           "redis",
		SupportsSearch: supportsSearch,
	}
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) scanAll(ctx context.Context) ([]models.MovieRecord, error) {
	var records []models.MovieRecord
	var cursor uint64
	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 1000).Result()
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			id, err := strconv.Atoi(strings.TrimPrefix(key, keyPrefix))
			if err != nil {
				continue
			}

			fields, err := s.client.HGetAll(ctx, key).Result()
			if err != nil {
				return nil, err
			}
			if len(fields) == 0 {
				continue
			}

			records = append(records, recordFromFields(id, fields))
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return records, nil
}

func recordFromFields(id int, fields map[string]string) models.MovieRecord {
	avg, _ := strconv.ParseFloat(fields["avg_rating"], 64)
	return models.MovieRecord{
		ID:        id,
		Title:     fields["title"],
		Genre:     fields["genre"],
		AvgRating: avg,
	}
}

// filterRecords applies the term and genre filters and the result limit
func filterRecords(records []models.MovieRecord, params models.SearchParams) []models.MovieRecord {
	term := strings.ToLower(strings.TrimSpace(params.Term))

	matched := make([]models.MovieRecord, 0, len(records))
	for _, rec := range records {
		if term != "" && !strings.Contains(strings.ToLower(rec.Title), term) {
			continue
		}
		if params.Genre != "" && !rec.HasGenre(params.Genre) {
			continue
		}
		matched = append(matched, rec)
		if params.Limit > 0 && len(matched) >= params.Limit {
			break
		}
	}
	return matched
}

// parseSearchReply decodes an FT.SEARCH reply: a total count followed by
// alternating key and field-value array entries
func parseSearchReply(reply interface{}) ([]models.MovieRecord, error) {
	items, ok := reply.([]interface{})
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("unexpected search reply: %T", reply)
	}

	var records []models.MovieRecord
	for i := 1; i+1 < len(items); i += 2 {
		key, ok := items[i].(string)
		if !ok {
			continue
		}

		id, err := strconv.Atoi(strings.TrimPrefix(key, keyPrefix))
		if err != nil {
			continue
		}

		pairs, ok := items[i+1].([]interface{})
		if !ok {
			continue
		}

		fields := make(map[string]string, len(pairs)/2)
		for j := 0; j+1 < len(pairs); j += 2 {
			name, _ := pairs[j].(string)
			value, _ := pairs[j+1].(string)
			fields[name] = value
		}

		records = append(records, recordFromFields(id, fields))
	}
	return records, nil
}
