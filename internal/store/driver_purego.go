//go:build purego

package store

// The purego tag swaps only the SQLite driver for modernc.org/sqlite. The
// tree-sitter grammars still link C code, so cgo stays enabled.
//
//   go build -tags purego ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver used by NewStore.
	DriverName = "sqlite"

	// dsnOptions mirrors the cgo build's pragmas. _time_format=sqlite
	// writes timestamps in a form both drivers read back.
	dsnOptions = "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(30000)&_time_format=sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
