package store

import (
	"fmt"
	"sync"
)

// Factory is a function that creates a new Store instance
type Factory func(config map[string]interface{}) (Store, error)

var (
	storeMu       sync.RWMutex
	storeRegistry = make(map[string]Factory)
)

// Register registers a new store implementation
func Register(name string, factory Factory) {
	storeMu.Lock()
	defer storeMu.Unlock()
	storeRegistry[name] = factory
}

// New creates a new store instance by name
func New(name string, config map[string]interface{}) (Store, error) {
	storeMu.RLock()
	factory, exists := storeRegistry[name]
	storeMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown store type: %s", name)
	}

	return factory(config)
}

// List returns all registered store types
func List() []string {
	storeMu.RLock()
	defer storeMu.RUnlock()

	stores := make([]string, 0, len(storeRegistry))
	for name := range storeRegistry {
		stores = append(stores, name)
	}
	return stores
}

// init registers built-in stores
func init() {
	Register("redis", func(config map[string]interface{}) (Store, error) {
		host, ok := config["host"].(string)
		if !ok {
			host = "localhost"
		}

		port, ok := config["port"].(int)
		if !ok {
			port = 6379
		}

		db, _ := config["db"].(int)

		return NewRedisStore(host, port, db)
	})

	Register("sqlite", func(config map[string]interface{}) (Store, error) {
		dbPath, ok := config["db_path"].(string)
		if !ok {
			dbPath = "kino.db"
		}

		return NewSQLiteStore(dbPath)
	})
}
