package eventlog

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// SQLiteStore is an append-only Store backed by a SQLite file, for Monte
// Carlo studies large enough that keeping every run's event log resident
// in memory is impractical. Each event's full payload is serialized to
// JSON in a single column; day, minute, leg_id and kind are duplicated out
// into their own columns, with day and leg_id indexed. Filter evaluates
// pred in Go over Iter, so its contract matches MemoryStore exactly.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) a SQLite-backed store at path.
// Use ":memory:" for a private, non-persisted store with the same
// transactional guarantees as the file-backed form.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open sqlite store %q: %w", path, err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS events (
	id       INTEGER PRIMARY KEY,
	day      INTEGER NOT NULL,
	minute   INTEGER NOT NULL,
	leg_id   TEXT NOT NULL,
	kind     INTEGER NOT NULL,
	payload  BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_leg ON events(leg_id);
CREATE INDEX IF NOT EXISTS idx_events_day ON events(day);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventlog: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(evt Event) (uint64, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return 0, fmt.Errorf("eventlog: marshal event: %w", err)
	}

	res, err := s.db.Exec(
		`INSERT INTO events (day, minute, leg_id, kind, payload) VALUES (?, ?, ?, ?, ?)`,
		int64(evt.Timestamp.Day), int64(evt.Timestamp.Time), evt.LegID, int64(evt.Kind), payload,
	)
	if err != nil {
		return 0, fmt.Errorf("eventlog: append event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("eventlog: read last insert id: %w", err)
	}
	return uint64(id), nil
}

func (s *SQLiteStore) Get(id uint64) (Event, bool) {
	row := s.db.QueryRow(`SELECT payload FROM events WHERE id = ?`, int64(id))
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		return Event{}, false
	}
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Event{}, false
	}
	evt.ID = id
	return evt, true
}

func (s *SQLiteStore) Iter() []Event {
	rows, err := s.db.Query(`SELECT id, payload FROM events ORDER BY id ASC`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var id int64
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			continue
		}
		var evt Event
		if err := json.Unmarshal(payload, &evt); err == nil {
			evt.ID = uint64(id)
			out = append(out, evt)
		}
	}
	return out
}

func (s *SQLiteStore) Filter(pred func(Event) bool) []Event {
	var out []Event
	for _, e := range s.Iter() {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s *SQLiteStore) Len() int {
	row := s.db.QueryRow(`SELECT COUNT(*) FROM events`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0
	}
	return n
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
