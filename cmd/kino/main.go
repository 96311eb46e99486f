package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kinograph/kino/pkg/cache"
	"github.com/kinograph/kino/pkg/config"
	"github.com/kinograph/kino/pkg/graph"
	"github.com/kinograph/kino/pkg/server"
	"github.com/kinograph/kino/pkg/store"
)

func main() {
	// Setup logger
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Logger().
		Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	// Load configuration
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	printBanner(cfg)

	// Initialize the movie store
	var storeConfig map[string]interface{}
	if cfg.StoreType == "sqlite" {
		storeConfig = map[string]interface{}{
			"db_path": cfg.DBPath,
		}
	} else {
		storeConfig = map[string]interface{}{
			"host": cfg.RedisHost,
			"port": cfg.RedisPort,
			"db":   cfg.RedisDB,
		}
	}

	st, err := store.New(cfg.StoreType, storeConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize movie store")
	}
	defer st.Close()

	if infoProvider, ok := st.(store.InfoProvider); ok {
		info := infoProvider.Info()
		logger.Info().
			Str("type", info.Type).
			Bool("supports_search", info.SupportsSearch).
			Msg("Movie store initialized")
	}

	// Connect to the graph database. The server stays up without it; only
	// the recommendation endpoint degrades.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	var recommender graph.Recommender
	graphStore, err := graph.NewStore(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, logger)
	cancel()
	if err != nil {
		logger.Warn().Err(err).Msg("Graph database unavailable, recommendations disabled")
	} else {
		recommender = graphStore
		logger.Info().Str("uri", cfg.Neo4jURI).Msg("Connected to graph database")
	}

	resultCache := cache.New(cfg.CacheSize, time.Duration(cfg.CacheTTL)*time.Second)

	// Create server
	srv := server.New(cfg, st, recommender, resultCache, logger)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info().Msg("Shutting down gracefully...")

		if graphStore != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := graphStore.Close(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Failed to close graph connection")
			}
			shutdownCancel()
		}
		st.Close()

		os.Exit(0)
	}()

	// Start server
	logger.Info().Msg("Server ready to accept requests")
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func printBanner(cfg *config.Config) {
	fmt.Println("//////////////////////// kino " + config.Version + " ////////////////////////")
	fmt.Println("----------------------------------------------------------------")
	fmt.Println("Server Configuration:")
	fmt.Printf("  Host: %s\n", cfg.Host)
	fmt.Printf("  Port: %d\n", cfg.Port)
	fmt.Println()
	fmt.Println("Movie Store:")
	fmt.Printf("  Type: %s\n", cfg.StoreType)
	if cfg.StoreType == "sqlite" {
		fmt.Printf("  Path: %s\n", cfg.DBPath)
	} else {
		fmt.Printf("  Redis: %s:%d (db %d)\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)
	}
	fmt.Println()
	fmt.Println("Graph Database:")
	fmt.Printf("  URI: %s\n", cfg.Neo4jURI)
	fmt.Println()
	fmt.Println("Result Cache:")
	fmt.Printf("  Size: %d entries, TTL: %d seconds\n", cfg.CacheSize, cfg.CacheTTL)
	fmt.Println("----------------------------------------------------------------")
	fmt.Println()
}
