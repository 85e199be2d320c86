// Package db keeps the actuation journal: every control-loop event appended to a
// sqlite table so an operator can see what the relays did after the fact.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts TEXT NOT NULL,
	kind TEXT NOT NULL,
	zone TEXT NOT NULL DEFAULT '',
	relay_group TEXT NOT NULL DEFAULT '',
	relays TEXT NOT NULL DEFAULT '[]',
	relay_on BOOLEAN NOT NULL DEFAULT FALSE,
	tick INTEGER NOT NULL DEFAULT 0,
	detail TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS events_kind_idx ON events (kind);`

// Open opens (creating if needed) the journal at path and applies the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases coherent and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}

func marshalJSON(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
