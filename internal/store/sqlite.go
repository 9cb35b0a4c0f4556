// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/toeicquiz/backend/internal/id"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    data TEXT NOT NULL,
    PRIMARY KEY (collection, id)
);
`

// fieldName guards the JSON path built from a caller-supplied field.
var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type documentRow struct {
	ID   string `db:"id"`
	Data string `db:"data"`
}

// SQLiteStore keeps every collection in one table of JSON documents.
type SQLiteStore struct {
	db *sqlx.DB
}

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, collection, docID string) (Snapshot, error) {
	var row documentRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, data FROM documents WHERE collection = ? AND id = ?",
		collection, docID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	return jsonSnapshot(row.ID, []byte(row.Data)), nil
}

func (s *SQLiteStore) Set(ctx context.Context, collection, docID string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data
	`, collection, docID, string(data))
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, docID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, docID,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Add(ctx context.Context, collection string, doc any) (string, error) {
	docID := id.GenerateID()
	if err := s.Set(ctx, collection, docID, doc); err != nil {
		return "", err
	}
	return docID, nil
}

func (s *SQLiteStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	var rows []documentRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, data FROM documents WHERE collection = ? ORDER BY id",
		collection,
	)
	if err != nil {
		return nil, err
	}
	return toSnapshots(rows), nil
}

func (s *SQLiteStore) Where(ctx context.Context, collection, field string, value any) ([]Snapshot, error) {
	if !fieldName.MatchString(field) {
		return nil, fmt.Errorf("store: invalid field name %q", field)
	}

	var rows []documentRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, data FROM documents WHERE collection = ? AND json_extract(data, ?) = ? ORDER BY id",
		collection, "$."+field, value,
	)
	if err != nil {
		return nil, err
	}
	return toSnapshots(rows), nil
}

func toSnapshots(rows []documentRow) []Snapshot {
	out := make([]Snapshot, len(rows))
	for i, row := range rows {
		out[i] = jsonSnapshot(row.ID, []byte(row.Data))
	}
	return out
}
