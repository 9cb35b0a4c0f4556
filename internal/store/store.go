package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
)

// DocumentStore is the document database the quiz runs against. Documents
// are grouped in named collections and addressed by string ids.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Snapshot, error)
	Set(ctx context.Context, collection, id string, doc any) error
	Delete(ctx context.Context, collection, id string) error
	// Add stores doc under a generated id and returns it.
	Add(ctx context.Context, collection string, doc any) (string, error)
	// List returns every document of a collection ordered by id.
	List(ctx context.Context, collection string) ([]Snapshot, error)
	// Where returns the documents whose top-level field equals value.
	Where(ctx context.Context, collection, field string, value any) ([]Snapshot, error)
	Close() error
}

// Snapshot is a fetched document.
type Snapshot struct {
	ID     string
	decode func(v any) error
}

// DataTo decodes the document into v.
func (s Snapshot) DataTo(v any) error {
	if s.decode == nil {
		return errors.New("store: empty snapshot")
	}
	return s.decode(v)
}
