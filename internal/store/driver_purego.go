//go:build !cgo_sqlite

package store

// Pure Go SQLite, no C toolchain required.
import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver used by the Catalog.
	DriverName = "sqlite"

	// BuildMode describes the SQLite build.
	BuildMode = "purego"
)
