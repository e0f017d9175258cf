// Package ledger records every dispatched action and user feedback on
// action replies. History rows are append-only; per-kind counters are
// folded in with atomic upserts in the same transaction.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Field limits applied before anything is written.
const (
	MaxMessageLen   = 300
	MaxErrorLen     = 500
	MaxCommentLen   = 500
	RecentExcerpt   = 100
	patternSample   = 100
	patternMinCount = 3
	patternTop      = 10
)

// stampLayout is fixed-width so timestamps sort lexically.
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Outcome is one dispatch result to record.
type Outcome struct {
	Kind    string
	Message string
	Success bool
	// Error is the technical detail of a failed action.
	Error  string
	Detail map[string]any
}

// Entry is a stored history row.
type Entry struct {
	ID           string         `json:"id"`
	Kind         string         `json:"actionType"`
	Message      string         `json:"message"`
	Success      bool           `json:"success"`
	Timestamp    time.Time      `json:"timestamp"`
	Detail       map[string]any `json:"details,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}

// Rate is the success rate of one action kind. Rate is a percentage
// rounded to two decimals.
type Rate struct {
	Rate    float64 `json:"rate"`
	Total   int     `json:"total"`
	Success int     `json:"success"`
	Failure int     `json:"failure"`
}

// Stats is the aggregate counters document.
type Stats struct {
	TotalActions int             `json:"totalActions"`
	ByKind       map[string]Rate `json:"byKind"`
	LastUpdated  time.Time       `json:"lastUpdated"`
	Recent       []Recent        `json:"recentActions"`
}

// Recent is a short entry in the rolling log.
type Recent struct {
	Kind             string    `json:"actionType"`
	Success          bool      `json:"success"`
	Timestamp        time.Time `json:"timestamp"`
	TruncatedMessage string    `json:"truncatedMessage"`
}

// Phrase is a recurring n-gram in successful requests.
type Phrase struct {
	Phrase string `json:"phrase"`
	Count  int    `json:"count"`
}

// Store is a SQLite-backed ledger. All public methods are safe for
// concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens (or creates) the ledger database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS action_history (
		id            TEXT PRIMARY KEY,
		action_kind   TEXT NOT NULL,
		message       TEXT NOT NULL,
		success       INTEGER NOT NULL,
		timestamp     TEXT NOT NULL,
		details       TEXT,
		error_message TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_history_kind ON action_history(action_kind, success, timestamp);
	CREATE INDEX IF NOT EXISTS idx_history_timestamp ON action_history(timestamp);

	CREATE TABLE IF NOT EXISTS action_stats (
		action_kind TEXT PRIMARY KEY,
		total       INTEGER NOT NULL DEFAULT 0,
		success     INTEGER NOT NULL DEFAULT 0,
		failure     INTEGER NOT NULL DEFAULT 0,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS action_feedback (
		message_id      TEXT PRIMARY KEY,
		feedback_kind   TEXT NOT NULL,
		comment         TEXT NOT NULL,
		message_content TEXT NOT NULL,
		timestamp       TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS feedback_stats (
		feedback_kind TEXT PRIMARY KEY,
		count         INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends o to the history and bumps its kind's counters.
func (s *Store) Record(ctx context.Context, o Outcome) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate history ID: %w", err)
	}
	ts := s.now().UTC().Format(stampLayout)

	var details []byte
	if len(o.Detail) > 0 {
		details, err = json.Marshal(o.Detail)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
	}

	success, failure := 0, 1
	if o.Success {
		success, failure = 1, 0
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO action_history (id, action_kind, message, success, timestamp, details, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.String(), o.Kind, truncate(o.Message, MaxMessageLen), success, ts,
		nullString(string(details)), nullString(truncate(o.Error, MaxErrorLen)),
	); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO action_stats (action_kind, total, success, failure, updated_at)
		 VALUES (?, 1, ?, ?, ?)
		 ON CONFLICT(action_kind) DO UPDATE SET
			total = total + 1,
			success = success + excluded.success,
			failure = failure + excluded.failure,
			updated_at = excluded.updated_at`,
		o.Kind, success, failure, ts,
	); err != nil {
		return fmt.Errorf("update stats: %w", err)
	}

	return tx.Commit()
}

// SuccessRate returns the counters for kind. An unseen kind has a zero Rate.
func (s *Store) SuccessRate(ctx context.Context, kind string) (Rate, error) {
	var r Rate
	err := s.db.QueryRowContext(ctx,
		`SELECT total, success, failure FROM action_stats WHERE action_kind = ?`, kind,
	).Scan(&r.Total, &r.Success, &r.Failure)
	if err == sql.ErrNoRows {
		return Rate{}, nil
	}
	if err != nil {
		return Rate{}, fmt.Errorf("query success rate: %w", err)
	}
	r.Rate = percent(r.Success, r.Total)
	return r, nil
}

// Stats returns all counters plus the last recentLimit entries.
func (s *Store) Stats(ctx context.Context, recentLimit int) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action_kind, total, success, failure, updated_at FROM action_stats ORDER BY action_kind`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	st := &Stats{ByKind: make(map[string]Rate)}
	for rows.Next() {
		var (
			kind, updated string
			r             Rate
		)
		if err := rows.Scan(&kind, &r.Total, &r.Success, &r.Failure, &updated); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		r.Rate = percent(r.Success, r.Total)
		st.ByKind[kind] = r
		st.TotalActions += r.Total
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil && t.After(st.LastUpdated) {
			st.LastUpdated = t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries, err := s.History(ctx, "", recentLimit)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		st.Recent = append(st.Recent, Recent{
			Kind:             e.Kind,
			Success:          e.Success,
			Timestamp:        e.Timestamp,
			TruncatedMessage: truncate(e.Message, RecentExcerpt),
		})
	}
	return st, nil
}

// History returns the newest entries, optionally filtered by kind.
func (s *Store) History(ctx context.Context, kind string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT id, action_kind, message, success, timestamp, details, error_message FROM action_history`
	var args []any
	if kind != "" {
		q += ` WHERE action_kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e       Entry
		success int
		ts      string
		details sql.NullString
		errMsg  sql.NullString
	)
	if err := rows.Scan(&e.ID, &e.Kind, &e.Message, &success, &ts, &details, &errMsg); err != nil {
		return Entry{}, fmt.Errorf("scan history: %w", err)
	}
	e.Success = success == 1
	e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	e.ErrorMessage = errMsg.String
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &e.Detail); err != nil {
			return Entry{}, fmt.Errorf("decode details: %w", err)
		}
	}
	return e, nil
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	p := float64(n) / float64(total) * 100
	return float64(int64(p*100+0.5)) / 100
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
