package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // driver: sqlite
)

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// SQLiteDSN turns a filesystem path into a modernc sqlite DSN. Values that
// already carry the file: scheme are returned unchanged.
func SQLiteDSN(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("sqlite path is empty")
	}
	if strings.HasPrefix(path, "file:") {
		return path, nil
	}
	return "file:" + path + "?" + sqlitePragmas, nil
}

// openSQLite opens and pings an SQLite database. A single open connection
// serialises writers so concurrent requests never see SQLITE_BUSY.
func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn, err := SQLiteDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}
	return db, nil
}
