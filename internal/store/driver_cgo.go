//go:build !purego

package store

// Default build: mattn/go-sqlite3, which needs CGO.
//
//   CGO_ENABLED=1 go build ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver used by NewStore.
	DriverName = "sqlite3"

	// dsnOptions enables WAL, foreign keys and a busy timeout.
	dsnOptions = "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
