package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hydro-controller/internal/events"
)

// InsertEvent appends one event to the journal.
func InsertEvent(db *sql.DB, e events.Event) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	if err := InsertEventWithTx(tx, e); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func InsertEventWithTx(tx *sql.Tx, e events.Event) error {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	relays := e.Relays
	if relays == nil {
		relays = []int{}
	}
	var errText string
	if e.Err != nil {
		errText = e.Err.Error()
	}

	_, err := tx.Exec(`INSERT INTO events (ts, kind, zone, relay_group, relays, relay_on, tick, detail, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.UTC().Format(time.RFC3339Nano), string(e.Kind), e.Zone, string(e.Group), marshalJSON(relays), e.On, int64(e.Tick), e.Detail, errText)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.Kind, err)
	}
	return nil
}

// Journal is an events.Sink that records every event. A failed insert is logged and
// dropped; the journal never stops the control loop.
type Journal struct {
	db *sql.DB
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Emit(e events.Event) {
	if err := InsertEvent(j.db, e); err != nil {
		log.Warn().Err(err).Str("event", string(e.Kind)).Msg("Failed to journal event")
	}
}

func (j *Journal) Close() error {
	return j.db.Close()
}
