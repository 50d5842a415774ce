//go:build !purego
// +build !purego

package storage

// Default build uses the CGO driver. FTS4 with the offsets() auxiliary
// function is part of the bundled amalgamation.
//
// Build command:
//   CGO_ENABLED=1 go build ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
