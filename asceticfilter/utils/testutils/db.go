package testutils

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HasDatabase reports whether integration tests were given a PostgreSQL host.
func HasDatabase() bool {
	_, ok := os.LookupEnv("DB_HOST")
	return ok
}

// DSN is the connection string built from the DB_* environment variables.
func DSN() string {
	return "postgres://" +
		getEnv("DB_USERNAME", "devel") + ":" + getEnv("DB_PASSWORD", "devel") + "@" +
		getEnv("DB_HOST", "localhost") + ":" + getEnv("DB_PORT", "5432") + "/" +
		getEnv("DB_DATABASE", "devel_filter")
}

func NewPgxPool(ctx context.Context) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, DSN())
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}
