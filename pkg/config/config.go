package config

import (
	"os"
	"strconv"
	"strings"
)

const Version = "0.3.0"

// Config holds application configuration
type Config struct {
	// Server configuration
	Host string
	Port int

	// Movie store configuration
	StoreType string // "redis" or "sqlite"
	RedisHost string
	RedisPort int
	RedisDB   int
	DBPath    string // SQLite database path, used when StoreType is "sqlite"

	// Graph database configuration
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Dataset configuration
	MoviesCSV  string
	RatingsCSV string

	// Import configuration
	MovieBatchSize  int
	RatingBatchSize int

	// Result cache configuration
	CacheTTL  int // seconds
	CacheSize int

	// Query configuration
	DefaultPageSize int
	SearchLimit     int
	HomeLimit       int
	RecLimit        int

	// Debug
	Debug bool
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            8080,
		StoreType:       "redis",
		RedisHost:       "localhost",
		RedisPort:       6379,
		RedisDB:         0,
		DBPath:          "kino.db",
		Neo4jURI:        "bolt://localhost:7687",
		Neo4jUser:       "neo4j",
		Neo4jPassword:   "password",
		MoviesCSV:       "movies.csv",
		RatingsCSV:      "ratings.csv",
		MovieBatchSize:  1000,
		RatingBatchSize: 5000,
		CacheTTL:        300,
		CacheSize:       1024,
		DefaultPageSize: 10,
		SearchLimit:     10,
		HomeLimit:       8,
		RecLimit:        5,
		Debug:           false,
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv(cfg *Config) {
	if val := os.Getenv("HOST"); val != "" {
		cfg.Host = val
	}
	if val := os.Getenv("PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Port = port
		}
	}
	if val := os.Getenv("STORE_TYPE"); val != "" {
		cfg.StoreType = val
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv("REDIS_HOST"); val != "" {
		cfg.RedisHost = val
	}
	if val := os.Getenv("REDIS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.RedisPort = port
		}
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.RedisDB = db
		}
	}
	if val := os.Getenv("NEO4J_URI"); val != "" {
		cfg.Neo4jURI = val
	}
	if val := os.Getenv("NEO4J_USER"); val != "" {
		cfg.Neo4jUser = val
	}
	if val := os.Getenv("NEO4J_PASSWORD"); val != "" {
		cfg.Neo4jPassword = val
	}
	if val := os.Getenv("MOVIES_CSV"); val != "" {
		cfg.MoviesCSV = val
	}
	if val := os.Getenv("RATINGS_CSV"); val != "" {
		cfg.RatingsCSV = val
	}
	if val := os.Getenv("MOVIE_BATCH_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			cfg.MovieBatchSize = size
		}
	}
	if val := os.Getenv("RATING_BATCH_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			cfg.RatingBatchSize = size
		}
	}
	if val := os.Getenv("CACHE_TTL"); val != "" {
		if ttl, err := strconv.Atoi(val); err == nil {
			cfg.CacheTTL = ttl
		}
	}
	if val := os.Getenv("CACHE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			cfg.CacheSize = size
		}
	}
	if val := os.Getenv("PAGE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			cfg.DefaultPageSize = size
		}
	}
	if val := os.Getenv("REC_LIMIT"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
			cfg.RecLimit = limit
		}
	}
	if val := os.Getenv("DEBUG"); val != "" {
		cfg.Debug = parseBool(val)
	}
}

func parseBool(val string) bool {
	val = strings.ToLower(val)
	return val == "true" || val == "1" || val == "yes"
}
