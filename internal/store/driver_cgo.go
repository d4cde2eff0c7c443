//go:build cgo_sqlite

package store

// Build with CGO_ENABLED=1 go build -tags cgo_sqlite ./...
import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver used by the Catalog.
	DriverName = "sqlite3"

	// BuildMode describes the SQLite build.
	BuildMode = "cgo"
)
