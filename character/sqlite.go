package character

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/liamcoop/prereq/prereq"
	_ "modernc.org/sqlite"
)

// DB is a sqlite-backed character database. It exists so characters
// can outlive the process; the engine only ever sees the FactProvider
// views handed out by Provider.
type DB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS characters (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS traits (
	character_id INTEGER NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	value        INTEGER NOT NULL,
	PRIMARY KEY (character_id, name)
);

CREATE TABLE IF NOT EXISTS possessions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	character_id INTEGER NOT NULL REFERENCES characters(id) ON DELETE CASCADE,
	collection   TEXT NOT NULL,
	object_id    TEXT NOT NULL DEFAULT '',
	name         TEXT NOT NULL DEFAULT '',
	tags         TEXT NOT NULL DEFAULT '[]',
	attributes   TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_possessions_lookup
	ON possessions (character_id, collection);
`

// Open opens (creating if needed) a character database at path. Use
// ":memory:" for an ephemeral database.
func Open(path string) (*DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open character database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// SaveSheet stores a full character sheet, replacing any existing
// character with the same name.
func (d *DB) SaveSheet(sheet *Sheet) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM characters WHERE name = ?`, sheet.Name); err != nil {
		return fmt.Errorf("failed to clear existing character: %w", err)
	}

	res, err := tx.Exec(`INSERT INTO characters (name) VALUES (?)`, sheet.Name)
	if err != nil {
		return fmt.Errorf("failed to insert character: %w", err)
	}
	charID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get character id: %w", err)
	}

	for name, value := range sheet.Traits {
		if _, err := tx.Exec(
			`INSERT INTO traits (character_id, name, value) VALUES (?, ?, ?)`,
			charID, name, value,
		); err != nil {
			return fmt.Errorf("failed to insert trait %q: %w", name, err)
		}
	}

	for collection, objects := range sheet.Collections {
		for _, obj := range objects {
			tags, err := json.Marshal(obj.Tags)
			if err != nil {
				return fmt.Errorf("failed to encode tags: %w", err)
			}
			attrs, err := json.Marshal(obj.Attributes)
			if err != nil {
				return fmt.Errorf("failed to encode attributes: %w", err)
			}
			if _, err := tx.Exec(
				`INSERT INTO possessions (character_id, collection, object_id, name, tags, attributes)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				charID, collection, obj.ID, obj.Name, string(tags), string(attrs),
			); err != nil {
				return fmt.Errorf("failed to insert possession: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Provider returns a fact provider bound to one character. It fails
// fast when the character does not exist so a typo surfaces before the
// first check instead of as a wall of "trait not found" failures.
func (d *DB) Provider(name string) (*SQLiteProvider, error) {
	var id int64
	err := d.db.QueryRow(`SELECT id FROM characters WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("character %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up character: %w", err)
	}
	return &SQLiteProvider{db: d.db, charID: id, name: name}, nil
}

// SQLiteProvider answers fact queries for one character out of a DB.
// Safe for concurrent use as long as the character rows are not being
// rewritten mid-check.
type SQLiteProvider struct {
	db     *sql.DB
	charID int64
	name   string
}

// Identity returns the character name for audit entries.
func (p *SQLiteProvider) Identity() string {
	return p.name
}

// Trait looks up a trait value; ok=false when the row is absent.
func (p *SQLiteProvider) Trait(name string) (int, bool, error) {
	var value int
	err := p.db.QueryRow(
		`SELECT value FROM traits WHERE character_id = ? AND name = ?`,
		p.charID, name,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query trait: %w", err)
	}
	return value, true, nil
}

// HasMatch scans the collection for an object satisfying the filter.
// ID and name narrow the query; attribute matching happens here after
// decoding, since attributes are schemaless JSON.
func (p *SQLiteProvider) HasMatch(collection string, filter prereq.Filter) (bool, error) {
	query := `SELECT attributes FROM possessions WHERE character_id = ? AND collection = ?`
	args := []any{p.charID, collection}
	if filter.ID != "" {
		query += ` AND object_id = ?`
		args = append(args, filter.ID)
	}
	if filter.Name != "" {
		query += ` AND name = ?`
		args = append(args, filter.Name)
	}

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to query possessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rawAttrs string
		if err := rows.Scan(&rawAttrs); err != nil {
			return false, fmt.Errorf("failed to scan possession: %w", err)
		}
		if len(filter.Attributes) == 0 {
			return true, nil
		}
		var attrs map[string]any
		if err := json.Unmarshal([]byte(rawAttrs), &attrs); err != nil {
			return false, fmt.Errorf("failed to decode attributes: %w", err)
		}
		if attributesMatch(attrs, filter.Attributes) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// CountTagged counts collection objects carrying the tag.
func (p *SQLiteProvider) CountTagged(collection, tag string) (int, error) {
	rows, err := p.db.Query(
		`SELECT tags FROM possessions WHERE character_id = ? AND collection = ?`,
		p.charID, collection,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to query possessions: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var rawTags string
		if err := rows.Scan(&rawTags); err != nil {
			return 0, fmt.Errorf("failed to scan possession: %w", err)
		}
		var tags []string
		if err := json.Unmarshal([]byte(rawTags), &tags); err != nil {
			return 0, fmt.Errorf("failed to decode tags: %w", err)
		}
		if slices.Contains(tags, tag) {
			count++
		}
	}
	return count, rows.Err()
}

func attributesMatch(attrs, want map[string]any) bool {
	for key, w := range want {
		got, ok := attrs[key]
		if !ok || !attrEqual(got, w) {
			return false
		}
	}
	return true
}

var _ prereq.FactProvider = (*SQLiteProvider)(nil)
var _ prereq.Identified = (*SQLiteProvider)(nil)
