package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const catalogSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	text         TEXT NOT NULL,
	source_type  TEXT NOT NULL,
	source_title TEXT NOT NULL DEFAULT '',
	source_url   TEXT NOT NULL DEFAULT '',
	file_path    TEXT NOT NULL DEFAULT '',
	repo_name    TEXT NOT NULL DEFAULT '',
	metadata     TEXT NOT NULL DEFAULT '{}',
	embedding    BLOB
);
CREATE INDEX IF NOT EXISTS idx_documents_source_type ON documents(source_type);
`

const documentColumns = `id, text, source_type, source_title, source_url, file_path, repo_name, metadata`

// Catalog is the SQLite document table written by the external loader. It
// supplies corpus text for BM25 statistics and vectors for the HNSW store.
type Catalog struct {
	db   *sql.DB
	path string
}

// OpenCatalog opens (and if needed creates) the catalog at path.
// ":memory:" opens a private in-memory catalog.
func OpenCatalog(path string) (*Catalog, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// One connection keeps :memory: databases alive and avoids writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(catalogSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return &Catalog{db: db, path: path}, nil
}

// Path returns the catalog location.
func (c *Catalog) Path() string { return c.path }

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Ping checks the database connection.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Put inserts or replaces a document and its embedding. vec may be nil.
func (c *Catalog) Put(ctx context.Context, doc Document, vec []float32) error {
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for %s: %w", doc.ID, err)
	}
	if doc.Metadata == nil {
		meta = []byte("{}")
	}
	var blob []byte
	if vec != nil {
		blob = encodeVector(vec)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			source_type = excluded.source_type,
			source_title = excluded.source_title,
			source_url = excluded.source_url,
			file_path = excluded.file_path,
			repo_name = excluded.repo_name,
			metadata = excluded.metadata,
			embedding = excluded.embedding`,
		doc.ID, doc.Text, string(doc.SourceType), doc.SourceTitle,
		doc.SourceURL, doc.FilePath, doc.RepoName, string(meta), blob)
	if err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.ID, err)
	}
	return nil
}

// Count returns the number of documents.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// Documents calls fn for every document in id order. It stops at the first
// error fn returns.
func (c *Catalog) Documents(ctx context.Context, fn func(Document) error) error {
	rows, err := c.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Embeddings calls fn for every document that has a stored embedding.
func (c *Catalog) Embeddings(ctx context.Context, fn func(Document, []float32) error) error {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+documentColumns+`, embedding FROM documents WHERE embedding IS NOT NULL ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			doc  Document
			st   string
			meta string
			blob []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &st, &doc.SourceTitle, &doc.SourceURL,
			&doc.FilePath, &doc.RepoName, &meta, &blob); err != nil {
			return fmt.Errorf("failed to scan document: %w", err)
		}
		doc.SourceType = SourceType(st)
		doc.Metadata = decodeMetadata(meta)

		vec, err := decodeVector(blob)
		if err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
		if err := fn(doc, vec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Scroll returns up to count documents whose text contains any of terms
// (case-insensitive substring match), restricted by filter, in id order.
func (c *Catalog) Scroll(ctx context.Context, terms []string, filter Filter, count int) ([]Document, error) {
	if count <= 0 {
		return []Document{}, nil
	}

	var (
		where []string
		args  []any
	)
	if len(terms) > 0 {
		likes := make([]string, len(terms))
		for i, t := range terms {
			likes[i] = `text LIKE ? ESCAPE '\'`
			args = append(args, "%"+escapeLike(t)+"%")
		}
		where = append(where, "("+strings.Join(likes, " OR ")+")")
	}
	if !filter.IsEmpty() {
		marks := make([]string, len(filter.SourceTypes))
		for i, st := range filter.SourceTypes {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "source_type IN ("+strings.Join(marks, ", ")+")")
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, count)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll documents: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0, count)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(rows *sql.Rows) (Document, error) {
	var (
		doc  Document
		st   string
		meta string
	)
	if err := rows.Scan(&doc.ID, &doc.Text, &st, &doc.SourceTitle, &doc.SourceURL,
		&doc.FilePath, &doc.RepoName, &meta); err != nil {
		return Document{}, fmt.Errorf("failed to scan document: %w", err)
	}
	doc.SourceType = SourceType(st)
	doc.Metadata = decodeMetadata(meta)
	return doc, nil
}

func decodeMetadata(raw string) map[string]string {
	if raw == "" || raw == "{}" || raw == "null" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
