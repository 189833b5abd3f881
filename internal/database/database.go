package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

//go:embed migrations/*.sql
var migrations embed.FS

// InitDB opens the database and brings the schema up to date.
// With an empty primaryURL a local SQLite file (or ":memory:") is used,
// otherwise the remote libSQL database at primaryURL.
// The returned teardown closes the connection pool.
func InitDB(dbPath string, primaryURL string, authToken string) (*sql.DB, func(), error) {
	var (
		db  *sql.DB
		err error
	)
	if primaryURL == "" {
		log.Info("Initializing local SQLite database", "path", dbPath)
		db, err = sql.Open("sqlite3", localDSN(dbPath))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local database: %w", err)
		}
		// A single connection keeps ":memory:" databases alive and serializes
		// write transactions, which the matchmaker relies on.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else {
		log.Info("Initializing Turso database", "url", primaryURL)
		db, err = sql.Open("libsql", primaryURL+"?authToken="+authToken)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db %s: %w", primaryURL, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}

	teardown := func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}
	log.Info("Database initialized successfully")
	return db, teardown, nil
}

func localDSN(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	// Writers take the lock at BEGIN so two processes never deadlock on upgrade.
	return "file:" + dbPath + "?_busy_timeout=5000&_txlock=immediate"
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(log.Default())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
