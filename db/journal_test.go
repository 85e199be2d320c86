package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/hydro-controller/internal/events"
	"github.com/thatsimonsguy/hydro-controller/internal/model"
)

func TestJournalRecordsEvents(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	j := NewJournal(db)
	start := time.Date(2026, 3, 14, 8, 0, 5, 0, time.UTC)
	j.Emit(events.Event{Time: start, Kind: events.KindDaemonStart})
	j.Emit(events.Event{Time: start.Add(time.Minute), Kind: events.KindRelayState, Zone: "a", Group: model.GroupLight, Relays: []int{1, 2}, On: true, Tick: 1})
	j.Emit(events.Event{Time: start.Add(2 * time.Minute), Kind: events.KindBusError, Zone: "a", Tick: 2, Err: errors.New("remote i/o error")})

	recs, err := RecentEvents(db, 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	// newest first
	assert.Equal(t, string(events.KindBusError), recs[0].Kind)
	assert.Equal(t, "remote i/o error", recs[0].Error)
	assert.Equal(t, uint64(2), recs[0].Tick)

	light := recs[1]
	assert.Equal(t, "a", light.Zone)
	assert.Equal(t, "light", light.Group)
	assert.Equal(t, []int{1, 2}, light.Relays)
	assert.True(t, light.On)
	assert.True(t, start.Add(time.Minute).Equal(light.Time))

	assert.Equal(t, []int{}, recs[2].Relays)
}

func TestRecentEventsLimit(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, InsertEvent(db, events.Event{Kind: events.KindRelayState, Tick: uint64(i)}))
	}

	recs, err := RecentEvents(db, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, uint64(4), recs[0].Tick)
	assert.Equal(t, uint64(3), recs[1].Tick)

	n, err := CountEvents(db, string(events.KindRelayState))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestInsertEventDefaultsTime(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	before := time.Now()
	require.NoError(t, InsertEvent(db, events.Event{Kind: events.KindShutdown}))

	recs, err := RecentEvents(db, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.WithinDuration(t, before, recs[0].Time, 5*time.Second)
}

func TestJournalSurvivesClosedDatabase(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	j := NewJournal(db)
	require.NoError(t, j.Close())

	assert.NotPanics(t, func() {
		j.Emit(events.Event{Kind: events.KindShutdown})
	})
}

func TestRecentEventsCLI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, InsertEvent(db, events.Event{Kind: events.KindDaemonStart}))
	require.NoError(t, db.Close())

	recs, err := RecentEventsCLI(path, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, string(events.KindDaemonStart), recs[0].Kind)
}
