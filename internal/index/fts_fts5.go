//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS myfiles_fts USING fts5(
			name UNINDEXED,
			display_name,
			fields,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, name, displayName, fields string) error {
	_, _ = tx.Exec(`DELETE FROM myfiles_fts WHERE name = ?`, name)
	_, err := tx.Exec(`INSERT INTO myfiles_fts (name, display_name, fields) VALUES (?, ?, ?)`,
		name, displayName, fields)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, name string) {
	_, _ = tx.Exec(`DELETE FROM myfiles_fts WHERE name = ?`, name)
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT name,
		       display_name,
		       snippet(myfiles_fts, 2, '<b>', '</b>', '...', 32)
		FROM myfiles_fts
		WHERE myfiles_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Name, &r.DisplayName, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
