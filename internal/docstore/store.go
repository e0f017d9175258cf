// Package docstore provides a keyed JSON document store backed by SQLite.
// Documents live in named collections and support get/add/set/update by
// id, equality queries with ordering and limits, and atomic field
// operations (increment, array union) applied inside a single write
// transaction. There are no multi-document transactions.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a stored document with its id.
type Document struct {
	ID   string
	Data Doc
}

// Store is a collection-oriented document store. All public methods are
// safe for concurrent use (SQLite serializes writes).
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens a document store at dbPath. The schema is created
// automatically on first use.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open document database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate document schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		data       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(collection, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// stampLayout is fixed-width so stamps sort lexically.
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (s *Store) stamp() string {
	return s.now().UTC().Format(stampLayout)
}

// Get returns one document. Returns [ErrNotFound] if it does not exist.
func (s *Store) Get(ctx context.Context, collection, id string) (Doc, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decodeDoc(raw)
}

// Add stores doc under a new UUIDv7 id and returns the id.
func (s *Store) Add(ctx context.Context, collection string, doc Doc) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate document ID: %w", err)
	}
	raw, err := encodeDoc(doc)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", collection, err)
	}

	now := s.stamp()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		collection, id.String(), raw, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("add %s: %w", collection, err)
	}
	return id.String(), nil
}

// Set writes doc under id. With merge, top-level fields of doc are laid
// over the existing document; without it the document is replaced.
func (s *Store) Set(ctx context.Context, collection, id string, doc Doc, merge bool) error {
	if !merge {
		raw, err := encodeDoc(doc)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", collection, id, err)
		}
		now := s.stamp()
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO documents (collection, id, data, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (collection, id) DO UPDATE
			 SET data = excluded.data, updated_at = excluded.updated_at`,
			collection, id, raw, now, now,
		)
		if err != nil {
			return fmt.Errorf("set %s/%s: %w", collection, id, err)
		}
		return nil
	}

	return s.mutate(ctx, collection, id, true, func(cur Doc) error {
		for k, v := range doc {
			cur[k] = v
		}
		return nil
	})
}

// Update applies field updates to an existing document. Keys may be
// dotted paths ("actions.add_task.total"); values may be plain values or
// field operations from [Increment] and [ArrayUnion]. Returns
// [ErrNotFound] if the document does not exist.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.mutate(ctx, collection, id, false, func(cur Doc) error {
		return applyFields(cur, fields)
	})
}

// Upsert is Update that creates an empty document first when needed.
func (s *Store) Upsert(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.mutate(ctx, collection, id, true, func(cur Doc) error {
		return applyFields(cur, fields)
	})
}

// Delete removes a document. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// mutate runs fn over the current document inside one write transaction.
func (s *Store) mutate(ctx context.Context, collection, id string, create bool, fn func(Doc) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s/%s: %w", collection, id, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var raw string
	exists := true
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !create {
			return ErrNotFound
		}
		exists = false
	case err != nil:
		return fmt.Errorf("read %s/%s: %w", collection, id, err)
	}

	cur := Doc{}
	if exists {
		if cur, err = decodeDoc(raw); err != nil {
			return fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
	}
	if err := fn(cur); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}

	out, err := encodeDoc(cur)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	now := s.stamp()
	if exists {
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
			out, now, collection, id,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, data, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			collection, id, out, now, now,
		)
	}
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

func encodeDoc(doc Doc) (string, error) {
	if doc == nil {
		doc = Doc{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeDoc(raw string) (Doc, error) {
	doc := Doc{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Documents is the set of document operations action handlers use.
// [*Store] implements it.
type Documents interface {
	Get(ctx context.Context, collection, id string) (Doc, error)
	Add(ctx context.Context, collection string, doc Doc) (string, error)
	Set(ctx context.Context, collection, id string, doc Doc, merge bool) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Find(ctx context.Context, collection string, q Query) ([]Document, error)
}

var _ Documents = (*Store)(nil)
