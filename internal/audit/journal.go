// Package audit persists mutating operations to a SQLite journal.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/domain/events"
	"github.com/brianly1003/lanterm/internal/domain/ports"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Journal defaults.
const (
	DefaultMaxRecords = 10000
	DefaultListLimit  = 100
	MaxListLimit      = 1000

	queueSize = 256
)

// schemaVersion is bumped whenever the records table changes shape.
const schemaVersion = 1

// SubscriberID is the hub subscriber ID of the journal.
const SubscriberID = "audit-journal"

// Record is one journal entry.
type Record struct {
	ID        int64           `json:"id"`
	Time      time.Time       `json:"time"`
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Outcome   string          `json:"outcome,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Journal is a hub subscriber that writes events to SQLite. Send never
// blocks; a background writer drains the queue.
type Journal struct {
	db         *sql.DB
	path       string
	maxRecords int

	queue chan events.Event
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var _ ports.Subscriber = (*Journal)(nil)

// Open opens or creates the journal database at path. A non-positive
// maxRecords means DefaultMaxRecords.
func Open(path string, maxRecords int) (*Journal, error) {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	// A single connection serializes writers and keeps pragmas in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}

	j := &Journal{
		db:         db,
		path:       path,
		maxRecords: maxRecords,
		queue:      make(chan events.Event, queueSize),
		done:       make(chan struct{}),
	}
	j.wg.Add(1)
	go j.writeLoop()

	log.Info().Str("path", path).Int("max_records", maxRecords).Msg("audit journal opened")
	return j, nil
}

func createSchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS metadata (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		return err
	}

	var current int
	if err := db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&current); err != nil {
		current = 0
	}
	if current != 0 && current < schemaVersion {
		log.Info().
			Int("old_version", current).
			Int("new_version", schemaVersion).
			Msg("audit schema changed, dropping old records")
		_, _ = db.Exec("DROP TABLE IF EXISTS records")
	}

	schema := `
		CREATE TABLE IF NOT EXISTS records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			time TEXT NOT NULL,
			type TEXT NOT NULL,
			session_id TEXT,
			outcome TEXT,
			payload TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_records_type ON records(type);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	_, err := db.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)", schemaVersion)
	return err
}

// ID returns the subscriber ID.
func (j *Journal) ID() string {
	return SubscriberID
}

// Send queues an event for persistence. A full queue drops the event.
func (j *Journal) Send(event events.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return domain.ErrSubscriberClosed
	}
	select {
	case j.queue <- event:
	default:
		log.Warn().Str("event_type", string(event.Type())).Msg("audit queue full, record dropped")
	}
	return nil
}

// Done returns a channel that's closed when the journal is closed.
func (j *Journal) Done() <-chan struct{} {
	return j.done
}

// Close flushes queued events and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	j.wg.Wait()
	close(j.done)
	return j.db.Close()
}

func (j *Journal) writeLoop() {
	defer j.wg.Done()
	for event := range j.queue {
		if err := j.Record(context.Background(), event); err != nil {
			log.Warn().Err(err).Str("event_type", string(event.Type())).Msg("failed to write audit record")
		}
	}
}

// Record writes event synchronously and prunes the oldest records beyond
// the retention limit.
func (j *Journal) Record(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event.GetPayload())
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	var outcome struct {
		Outcome string `json:"outcome"`
	}
	_ = json.Unmarshal(payload, &outcome)

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO records (time, type, session_id, outcome, payload) VALUES (?, ?, ?, ?, ?)`,
		event.Timestamp().UTC().Format(time.RFC3339Nano),
		string(event.Type()),
		event.GetSessionID(),
		outcome.Outcome,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return j.prune(ctx)
}

func (j *Journal) prune(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, `
		DELETE FROM records WHERE id <= (
			SELECT id FROM records ORDER BY id DESC LIMIT 1 OFFSET ?
		)`, j.maxRecords)
	if err != nil {
		return fmt.Errorf("prune audit records: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first. limit defaults to
// DefaultListLimit and is capped at MaxListLimit.
func (j *Journal) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, time, type, session_id, outcome, payload
		FROM records
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]Record, 0)
	for rows.Next() {
		var r Record
		var ts, payload string
		var sessionID, outcome sql.NullString
		if err := rows.Scan(&r.ID, &ts, &r.Type, &sessionID, &outcome, &payload); err != nil {
			return nil, err
		}
		r.Time, _ = time.Parse(time.RFC3339Nano, ts)
		r.SessionID = sessionID.String
		r.Outcome = outcome.String
		r.Payload = json.RawMessage(payload)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n)
	return n, err
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.path
}
