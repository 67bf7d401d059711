package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MyfileRow represents a row in the myfiles table.
type MyfileRow struct {
	Name        string
	DisplayName string
	Ext         string
	Checksum    string
	// Fields is the redacted record encoded as JSON.
	Fields    string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Name        string
	DisplayName string
	Snippet     string
}

// Upsert inserts or replaces a myfile and its FTS entry within a transaction.
func (db *DB) Upsert(r MyfileRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO myfiles (name, display_name, ext, checksum, fields, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			display_name = excluded.display_name,
			ext          = excluded.ext,
			checksum     = excluded.checksum,
			fields       = excluded.fields,
			updated_at   = excluded.updated_at
	`, r.Name, r.DisplayName, r.Ext, r.Checksum, r.Fields, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert myfile: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.Name, r.DisplayName, r.Fields); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a myfile and its FTS entry.
func (db *DB) Delete(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, name)
	if _, err := tx.Exec(`DELETE FROM myfiles WHERE name = ?`, name); err != nil {
		return fmt.Errorf("index: delete myfile: %w", err)
	}

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a myfile, or empty string if not found.
func (db *DB) GetChecksum(name string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM myfiles WHERE name = ?`, name).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// Get returns one indexed myfile, or nil if it is not indexed.
func (db *DB) Get(name string) (*MyfileRow, error) {
	var r MyfileRow
	err := db.conn.QueryRow(`
		SELECT name, display_name, ext, checksum, fields, updated_at
		FROM myfiles WHERE name = ?
	`, name).Scan(&r.Name, &r.DisplayName, &r.Ext, &r.Checksum, &r.Fields, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get myfile: %w", err)
	}
	return &r, nil
}

// List returns a page of myfiles ordered by name, and the total count.
func (db *DB) List(limit, offset int) ([]MyfileRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM myfiles`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count myfiles: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT name, display_name, ext, checksum, fields, updated_at
		FROM myfiles
		ORDER BY name
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list myfiles: %w", err)
	}
	defer rows.Close()

	var out []MyfileRow
	for rows.Next() {
		var r MyfileRow
		if err := rows.Scan(&r.Name, &r.DisplayName, &r.Ext, &r.Checksum, &r.Fields, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// AllChecksums returns name → checksum for every indexed myfile.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM myfiles`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var n, cs string
		if err := rows.Scan(&n, &cs); err != nil {
			return nil, err
		}
		out[n] = cs
	}
	return out, rows.Err()
}
