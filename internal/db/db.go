// Package db owns the relational database connection shared by the
// session memory and the ingestion tracker.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/extra/bundebug"

	"policy-rag/internal/config"
)

// Connect opens the sqlite database behind a bun handle. With Debug set,
// every query is logged.
func Connect(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Path, err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}
