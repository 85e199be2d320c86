package db

// RecentEventsCLI opens the journal at dbPath and returns its latest entries.
func RecentEventsCLI(dbPath string, limit int) ([]EventRecord, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return RecentEvents(db, limit)
}
