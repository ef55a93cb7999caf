package main

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"

	"github.com/orderdesk/orderdesk/libs/config"
	"github.com/orderdesk/orderdesk/libs/db"
	"github.com/orderdesk/orderdesk/libs/runtime"
)

// Applies every .sql file in the migrations directory in lexical order.
// Statements are written to be idempotent (CREATE TABLE IF NOT EXISTS), so
// re-running against an up-to-date database is a no-op.
func main() {
	_ = godotenv.Load()

	logger := runtime.NewLogger("migrate")

	ctx, stop := runtime.SignalContext()
	defer stop()

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	dir := config.String("MIGRATIONS_DIR", "services/order-service/db/migrations")
	paths, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		logger.Error("listing migrations failed", "dir", dir, "err", err)
		os.Exit(1)
	}
	sort.Strings(paths)

	for _, path := range paths {
		sql, err := os.ReadFile(path)
		if err != nil {
			logger.Error("reading migration failed", "path", path, "err", err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			logger.Error("applying migration failed", "path", path, "err", err)
			os.Exit(1)
		}
		logger.Info("migration applied", "path", path)
	}
	logger.Info("migrations complete", "count", len(paths))
}
