package storage

import (
	"fmt"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

// StorageVersion is the compiled-in schema tag. A database carrying any
// other value is cleared and rebuilt on init.
const StorageVersion = 3

const schemaTables = `
CREATE TABLE IF NOT EXISTS element(
	id INTEGER,
	PRIMARY KEY(id)
);

CREATE TABLE IF NOT EXISTS edge(
	id INTEGER NOT NULL,
	type INTEGER NOT NULL,
	source_node_id INTEGER NOT NULL,
	target_node_id INTEGER NOT NULL,
	PRIMARY KEY(id),
	FOREIGN KEY(id) REFERENCES element(id) ON DELETE CASCADE,
	FOREIGN KEY(source_node_id) REFERENCES node(id) ON DELETE CASCADE,
	FOREIGN KEY(target_node_id) REFERENCES node(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS node(
	id INTEGER NOT NULL,
	type INTEGER NOT NULL,
	serialized_name TEXT,
	definition_type INTEGER NOT NULL,
	PRIMARY KEY(id),
	FOREIGN KEY(id) REFERENCES element(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS local_symbol(
	id INTEGER NOT NULL,
	name TEXT,
	PRIMARY KEY(id),
	FOREIGN KEY(id) REFERENCES element(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS source_location(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	element_id INTEGER,
	file_node_id INTEGER,
	start_line INTEGER,
	start_column INTEGER,
	end_line INTEGER,
	end_column INTEGER,
	type INTEGER,
	FOREIGN KEY(element_id) REFERENCES element(id) ON DELETE CASCADE,
	FOREIGN KEY(file_node_id) REFERENCES node(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS component_access(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	edge_id INTEGER,
	type INTEGER,
	FOREIGN KEY(edge_id) REFERENCES edge(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS comment_location(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_node_id INTEGER,
	start_line INTEGER,
	start_column INTEGER,
	end_line INTEGER,
	end_column INTEGER,
	FOREIGN KEY(file_node_id) REFERENCES node(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS error(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message TEXT,
	fatal INTEGER,
	file_path TEXT,
	line_number INTEGER,
	column_number INTEGER
);
`

// The file table is an FTS4 virtual table so that content matches can be
// resolved back to byte offsets via the offsets() auxiliary function.
const schemaFileTable = `
CREATE VIRTUAL TABLE IF NOT EXISTS file USING fts4(
	id INTEGER,
	path TEXT,
	modification_time TEXT,
	content TEXT,
	loc INTEGER
);
`

// dropOrder lists every table in reverse foreign-key order.
var dropOrder = []string{
	"error",
	"comment_location",
	"component_access",
	"source_location",
	"local_symbol",
	"file",
	"node",
	"edge",
	"element",
	"meta",
}

// Init brings the database to the current schema: a storage_version mismatch
// triggers a full clear, then the tables are (re)created and the version keys
// written back. Policy indices are not created here; the first SetMode call
// materializes them.
func (s *Storage) Init(applicationVersion *semver.Version) error {
	if s.getStorageVersion() != StorageVersion {
		if err := s.Clear(); err != nil {
			return err
		}
	} else if err := s.Setup(); err != nil {
		return err
	}

	s.setMetaValue("storage_version", strconv.Itoa(StorageVersion))
	if applicationVersion != nil {
		s.setMetaValue("application_version", applicationVersion.String())
	}
	return nil
}

// Setup creates all tables if absent and resets the workload mode. Policy
// indices are left alone; the first SetMode call materializes them. Schema
// failures are the one class of backend error that propagates.
func (s *Storage) Setup() error {
	s.executeStatement("PRAGMA foreign_keys=ON;")

	if err := s.setupMetaTable(); err != nil {
		return err
	}
	if err := s.setupTables(); err != nil {
		return err
	}
	s.mode = ModeUnknown
	return nil
}

// Clear drops every table in reverse foreign-key order with foreign keys
// disabled, then recreates the schema.
func (s *Storage) Clear() error {
	s.executeStatement("PRAGMA foreign_keys=OFF;")
	for _, table := range dropOrder {
		s.executeStatement("DROP TABLE IF EXISTS main." + table + ";")
	}
	return s.Setup()
}

func (s *Storage) setupMetaTable() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS meta(
	id INTEGER,
	key TEXT,
	value TEXT,
	PRIMARY KEY(id)
);`)
	if err != nil {
		return fmt.Errorf("failed to create meta table: %w", err)
	}
	return nil
}

func (s *Storage) setupTables() error {
	if _, err := s.db.Exec(schemaTables); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := s.db.Exec(schemaFileTable); err != nil {
		return fmt.Errorf("failed to create file table: %w", err)
	}
	return nil
}

// getMetaValue reads a meta entry, returning "" when the table or key is
// absent.
func (s *Storage) getMetaValue(key string) string {
	if !s.hasTable("meta") {
		return ""
	}

	rows := s.executeQuery("SELECT value FROM meta WHERE key = ?;", key)
	if rows == nil {
		return ""
	}
	defer func() { _ = rows.Close() }()

	var value string
	if rows.Next() {
		if err := rows.Scan(&value); err != nil {
			return ""
		}
	}
	return value
}

// setMetaValue upserts a meta entry keyed by key.
func (s *Storage) setMetaValue(key, value string) {
	s.executeStatement(
		"INSERT OR REPLACE INTO meta(id, key, value) VALUES((SELECT id FROM meta WHERE key = ?), ?, ?);",
		key, key, value,
	)
}

// getStorageVersion returns the stored schema tag, or 0 when unset.
func (s *Storage) getStorageVersion() int {
	str := s.getMetaValue("storage_version")
	if str == "" {
		return 0
	}
	version, err := strconv.Atoi(str)
	if err != nil {
		return 0
	}
	return version
}

// GetApplicationVersion returns the application version the database was
// last written with, or nil when unset.
func (s *Storage) GetApplicationVersion() *semver.Version {
	str := s.getMetaValue("application_version")
	if str == "" {
		return nil
	}
	version, err := semver.NewVersion(str)
	if err != nil {
		return nil
	}
	return version
}

// IsEmpty reports whether the database carries no version information yet.
func (s *Storage) IsEmpty() bool {
	return s.getStorageVersion() == 0 && s.GetApplicationVersion() == nil
}

// IsIncompatible reports whether the stored schema tag differs from the
// compiled one.
func (s *Storage) IsIncompatible() bool {
	version := s.getStorageVersion()
	return version == 0 || version != StorageVersion
}
