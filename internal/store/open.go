package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrConstraint reports an upsert that referenced a nonexistent parent row.
var ErrConstraint = errors.New("constraint violation")

// Open opens (and creates if needed) the archive database at path.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// PRAGMAs are per-connection; a single pooled connection makes them hold
	// for every statement. Access is sequential anyway.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := InitSchema(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

// nowUTC returns the current time as an RFC 3339 UTC string with a
// fixed-width fraction, the format all persisted timestamps use. Fixed width
// keeps lexical order identical to chronological order, which the
// created_at/captured_at ORDER BY clauses depend on.
func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

// wrapConstraint converts SQLite constraint failures into ErrConstraint so
// callers can distinguish bad references from I/O failures.
func wrapConstraint(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "constraint") {
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	return err
}
