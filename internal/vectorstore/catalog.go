package vectorstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// catalogPageSize bounds each page when enumerating document paths.
const catalogPageSize = 500

// fragmentCatalog is a SQLite sidecar tracking which fragment IDs belong
// to which document path. chromem persists collections as per-document
// gob files without an enumeration API, so the catalog is what makes
// ListDocumentPaths possible for the embedded backend.
type fragmentCatalog struct {
	db *sql.DB
}

func openFragmentCatalog(path string) (*fragmentCatalog, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening fragment catalog: %w", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	const schema = `
CREATE TABLE IF NOT EXISTS fragments (
    id            TEXT PRIMARY KEY,
    document_path TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fragments_document ON fragments(document_path);
`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing fragment catalog: %w", err)
	}

	return &fragmentCatalog{db: db}, nil
}

func (c *fragmentCatalog) record(ctx context.Context, fragments []Fragment) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning catalog transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO fragments (id, document_path) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing catalog insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range fragments {
		if _, err := stmt.ExecContext(ctx, f.ID, f.DocumentPath); err != nil {
			return fmt.Errorf("recording fragment %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog transaction: %w", err)
	}
	return nil
}

func (c *fragmentCatalog) deleteDocument(ctx context.Context, documentPath string) error {
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM fragments WHERE document_path = ?`, documentPath); err != nil {
		return fmt.Errorf("deleting catalog entries for %s: %w", documentPath, err)
	}
	return nil
}

func (c *fragmentCatalog) fragmentIDs(ctx context.Context, documentPath string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id FROM fragments WHERE document_path = ? ORDER BY id`, documentPath)
	if err != nil {
		return nil, fmt.Errorf("listing catalog entries for %s: %w", documentPath, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning catalog entry: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// documentPaths pages through distinct document paths so a large
// collection never materializes in a single query.
func (c *fragmentCatalog) documentPaths(ctx context.Context) ([]string, error) {
	var paths []string
	for offset := 0; ; offset += catalogPageSize {
		rows, err := c.db.QueryContext(ctx,
			`SELECT DISTINCT document_path FROM fragments ORDER BY document_path LIMIT ? OFFSET ?`,
			catalogPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("listing document paths: %w", err)
		}

		n := 0
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("scanning document path: %w", err)
			}
			paths = append(paths, p)
			n++
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()

		if n < catalogPageSize {
			return paths, nil
		}
	}
}

func (c *fragmentCatalog) count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fragments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting fragments: %w", err)
	}
	return n, nil
}

func (c *fragmentCatalog) Close() error {
	return c.db.Close()
}
