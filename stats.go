package ordkv

// Stats is a point-in-time snapshot of a database's runtime counters,
// useful for monitoring and benchmarking.
type Stats struct {
	NumSlots      int
	OccupiedSlots int
	MemTableLen   int64
	MemTableCap   int64
	PutCount      int64
	GetCount      int64
	FlushCount    int64
}

// Stats returns a snapshot of the database's current counters.
func (db *DB) Stats() Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	occupied := 0
	for _, s := range db.slots {
		if s != nil {
			occupied++
		}
	}

	return Stats{
		NumSlots:      len(db.slots),
		OccupiedSlots: occupied,
		MemTableLen:   db.memtable.Len(),
		MemTableCap:   db.memtable.Capacity(),
		PutCount:      db.putCount.Load(),
		GetCount:      db.getCount.Load(),
		FlushCount:    db.flushCount.Load(),
	}
}
