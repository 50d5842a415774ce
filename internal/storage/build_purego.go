//go:build purego
// +build purego

package storage

// This file is compiled when building with the purego tag. It uses a pure Go
// SQLite implementation, which removes the C compiler requirement. This
// driver does not register the fts4 module that the file table is declared
// with, so schema setup fails in this build.
//
// Build command:
//   CGO_ENABLED=0 go build -tags "purego" ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
