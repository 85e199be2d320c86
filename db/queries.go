package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventRecord is one journal row.
type EventRecord struct {
	ID     int64
	Time   time.Time
	Kind   string
	Zone   string
	Group  string
	Relays []int
	On     bool
	Tick   uint64
	Detail string
	Error  string
}

// RecentEvents returns up to limit events, newest first.
func RecentEvents(db *sql.DB, limit int) ([]EventRecord, error) {
	rows, err := db.Query(`SELECT id, ts, kind, zone, relay_group, relays, relay_on, tick, detail, error FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var r EventRecord
		var ts, relays string
		var tick int64
		if err := rows.Scan(&r.ID, &ts, &r.Kind, &r.Zone, &r.Group, &relays, &r.On, &tick, &r.Detail, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if r.Time, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("event %d has bad timestamp %q: %w", r.ID, ts, err)
		}
		if err := json.Unmarshal([]byte(relays), &r.Relays); err != nil {
			return nil, fmt.Errorf("event %d has bad relays %q: %w", r.ID, relays, err)
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountEvents returns how many events of kind have been journalled.
func CountEvents(db *sql.DB, kind string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM events WHERE kind = ?`, kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}
