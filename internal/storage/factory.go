package storage

import (
	"context"
	"fmt"
	"strings"

	"soltrace/internal/storage/mongo"
	"soltrace/internal/storage/postgres"
	"soltrace/internal/storage/sqlite"
)

// Open selects and initializes a Store based on databaseURL's scheme:
// sqlite:/file: for the embedded backend, postgres://postgresql:// for
// Postgres, mongodb://mongodb+srv:// for MongoDB. Any other scheme returns
// ErrUnsupportedScheme.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite:"):
		store, err := sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite:"))
		if err != nil {
			return nil, err
		}
		return initAndReturn(ctx, instrument("sqlite", store))

	case strings.HasPrefix(databaseURL, "file:"):
		store, err := sqlite.Open(databaseURL)
		if err != nil {
			return nil, err
		}
		return initAndReturn(ctx, instrument("sqlite", store))

	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return initAndReturn(ctx, instrument("postgres", postgres.NewStore(pool)))

	case strings.HasPrefix(databaseURL, "mongodb://"), strings.HasPrefix(databaseURL, "mongodb+srv://"):
		store, err := mongo.Open(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return initAndReturn(ctx, instrument("mongo", store))

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, databaseURL)
	}
}

func initAndReturn(ctx context.Context, store Store) (Store, error) {
	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
