// Package storage provides the SQLite-backed persistent code graph.
//
// The graph is heterogeneous: nodes (symbols and files) and edges (typed
// relations) share one element id space so that deletion cascades uniformly
// through source locations and component accesses. File contents live in an
// FTS4 virtual table whose offsets() output is resolved back to line and
// column ranges for full-text search.
//
// # Versioning
//
// A storage_version tag in the meta table gates every open: any mismatch
// with the compiled StorageVersion constant clears and rebuilds the schema.
// There is no row-level migration.
//
// # Workload modes
//
// Secondary indices are policy data, paired with a bitmask of workload
// modes. SetMode(ModeWrite) drops them ahead of bulk ingestion and
// SetMode(ModeRead) materializes them again for interactive queries.
//
// # Concurrency
//
// The storage is not thread-safe. During indexing the project is the sole
// writer; interactive consumers read through the storage cache on the
// scheduler goroutine.
//
// # Build Tags
//
// Default builds use the CGO driver (github.com/mattn/go-sqlite3). Building
// with -tags purego selects modernc.org/sqlite instead:
//
//	CGO_ENABLED=0 go build -tags "purego" ./...
package storage
