package docstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Key identifies a document inside a workspace-scoped collection.
type Key struct {
	Workspace  string
	Collection string
	ID         string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Workspace, k.Collection, k.ID)
}

// Validate reports whether the key addresses a concrete document.
func (k Key) Validate() error {
	if k.Workspace == "" || k.Collection == "" || k.ID == "" {
		return fmt.Errorf("incomplete document key %q", k.String())
	}
	return nil
}

// Tx provides read/write access to documents inside a transaction. Writes are
// visible to later reads in the same transaction and become durable only if
// the transaction function returns nil.
type Tx interface {
	Get(ctx context.Context, key Key) (Document, error)
	Set(ctx context.Context, key Key, doc Document, merge bool) error
}

// Store is the document store contract the core is written against.
//
// Transaction executes fn atomically with respect to other transactions
// touching the same document: no concurrent transaction can interleave between
// fn's reads and writes. Backends surface unavailability as an error from
// Transaction itself rather than silently dropping writes.
type Store interface {
	Get(ctx context.Context, key Key) (Document, error)
	Set(ctx context.Context, key Key, doc Document, merge bool) error
	Transaction(ctx context.Context, key Key, fn func(tx Tx) error) error
	Close(ctx context.Context) error
}
