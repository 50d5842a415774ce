package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Storage is the persistent code graph backed by a single SQLite file. It is
// not safe for concurrent use; during indexing the project is the sole
// writer, and interactive reads go through the storage cache on the
// scheduler thread.
type Storage struct {
	db   *sql.DB
	path string

	mode    StorageMode
	indices []modeIndex
}

// Open opens (creating lazily if needed) the database at path and enables
// foreign-key enforcement. The returned storage owns the handle until Close.
func Open(path string) (*Storage, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps raw BEGIN/COMMIT statements and
	// last_insert_rowid() bound to one session.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Storage{
		db:      db,
		path:    path,
		mode:    ModeUnknown,
		indices: storageIndices(),
	}, nil
}

// Close closes the database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the database file.
func (s *Storage) Path() string {
	return s.path
}

// executeStatement runs a DDL/DML statement. Failures are logged with the
// driver's message and otherwise swallowed; the enclosing transaction decides
// whether to roll back.
func (s *Storage) executeStatement(stmt string, args ...any) {
	if _, err := s.db.Exec(stmt, args...); err != nil {
		log.Printf("storage: %v", err)
	}
}

// executeInsert runs a prepared INSERT and returns the assigned rowid, or 0
// on failure.
func (s *Storage) executeInsert(stmt string, args ...any) int64 {
	res, err := s.db.Exec(stmt, args...)
	if err != nil {
		log.Printf("storage: %v", err)
		return 0
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Printf("storage: %v", err)
		return 0
	}
	return id
}

// executeScalar returns the single integer result of a query, or 0.
func (s *Storage) executeScalar(stmt string, args ...any) int {
	var value sql.NullInt64
	if err := s.db.QueryRow(stmt, args...).Scan(&value); err != nil && err != sql.ErrNoRows {
		log.Printf("storage: %v", err)
	}
	return int(value.Int64)
}

// executeQuery returns a forward-only cursor over the rows of a query, or
// nil when the statement failed.
func (s *Storage) executeQuery(stmt string, args ...any) *sql.Rows {
	rows, err := s.db.Query(stmt, args...)
	if err != nil {
		log.Printf("storage: %v", err)
		return nil
	}
	return rows
}

// hasTable reports whether a table with the given name exists.
func (s *Storage) hasTable(name string) bool {
	var found string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?;", name,
	).Scan(&found)
	if err != nil {
		return false
	}
	return found == name
}

// BeginTransaction starts an explicit transaction. The engine makes no
// implicit transactional guarantees; bulk writers wrap their own batches.
func (s *Storage) BeginTransaction() {
	s.executeStatement("BEGIN TRANSACTION;")
}

// CommitTransaction commits the current transaction.
func (s *Storage) CommitTransaction() {
	s.executeStatement("COMMIT TRANSACTION;")
}

// RollbackTransaction rolls back the current transaction.
func (s *Storage) RollbackTransaction() {
	s.executeStatement("ROLLBACK TRANSACTION;")
}

// OptimizeMemory compacts the database file.
func (s *Storage) OptimizeMemory() {
	s.executeStatement("VACUUM;")
}

// OptimizeFTS merges the full-text index segments.
func (s *Storage) OptimizeFTS() {
	s.executeStatement("INSERT INTO file(file) VALUES('optimize');")
}
