package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/kinograph/kino/pkg/config"
	"github.com/kinograph/kino/pkg/graph"
	"github.com/kinograph/kino/pkg/populate"
	"github.com/kinograph/kino/pkg/store"
)

func main() {
	flush := flag.Bool("flush", false, "erase existing movie records from the store before writing")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: kino-populate [-flush] [movies.csv ratings.csv]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Erases and rebuilds the movie graph, then writes one cache record per")
		fmt.Fprintln(os.Stderr, "movie. Connection parameters come from the environment (NEO4J_URI,")
		fmt.Fprintln(os.Stderr, "REDIS_HOST, STORE_TYPE, ...). Without -flush, stale movie records from")
		fmt.Fprintln(os.Stderr, "a previous run are left in the store.")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Logger().
		Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg := config.Default()
	config.LoadFromEnv(cfg)

	if args := flag.Args(); len(args) == 2 {
		cfg.MoviesCSV = args[0]
		cfg.RatingsCSV = args[1]
	} else if len(args) != 0 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(cfg, *flush, logger); err != nil {
		logger.Fatal().Err(err).Msg("Population failed")
	}
}

func run(cfg *config.Config, flush bool, logger zerolog.Logger) error {
	ctx := context.Background()

	// Both input files must exist before anything is erased
	for _, path := range []string{cfg.MoviesCSV, cfg.RatingsCSV} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("input file missing: %s", path)
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	graphStore, err := graph.NewStore(connectCtx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, logger)
	cancel()
	if err != nil {
		return err
	}
	defer graphStore.Close(ctx)

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
		return err
	}
	defer st.Close()

	summary, err := populate.Run(ctx, populate.Options{
		MoviesCSV:       cfg.MoviesCSV,
		RatingsCSV:      cfg.RatingsCSV,
		MovieBatchSize:  cfg.MovieBatchSize,
		RatingBatchSize: cfg.RatingBatchSize,
		FlushStore:      flush,
	}, graphStore, st, logger)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Population summary:")
	fmt.Printf("  Movies:        %d\n", summary.Movies)
	fmt.Printf("  Genres:        %d\n", summary.Genres)
	fmt.Printf("  Users:         %d\n", summary.Users)
	fmt.Printf("  Ratings:       %d\n", summary.Ratings)
	fmt.Printf("  Graph nodes:   %d\n", summary.GraphNodes)
	fmt.Printf("  Graph edges:   %d\n", summary.GraphEdges)
	fmt.Printf("  Cache records: %d\n", summary.CacheRecords)
	fmt.Println()
	fmt.Println("Population completed successfully!")

	return nil
}
