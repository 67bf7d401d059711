//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(_ *sql.DB) error {
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches q literally anywhere in a column.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

// Search is the LIKE fallback used when FTS5 is not compiled in. Name and
// display-name hits rank ahead of hits inside the fields; the snippet starts
// a little before the first field match.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	like := likePattern(query)
	rows, err := db.conn.Query(`
		SELECT name, display_name,
			CASE WHEN instr(lower(fields), lower(?1)) > 40
				THEN '...' || substr(fields, instr(lower(fields), lower(?1)) - 40, 200)
				ELSE substr(fields, 1, 200)
			END
		FROM myfiles
		WHERE name LIKE ?2 ESCAPE '\' OR display_name LIKE ?2 ESCAPE '\' OR fields LIKE ?2 ESCAPE '\'
		ORDER BY
			CASE WHEN name LIKE ?2 ESCAPE '\' OR display_name LIKE ?2 ESCAPE '\' THEN 0 ELSE 1 END,
			name
		LIMIT ?3
	`, query, like, limit)
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
