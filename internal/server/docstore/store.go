// Package docstore implements the document-store client: typed access to a
// remote collection-of-documents store. It carries no business logic; the
// orchestrators above it decide what to read and delete.
package docstore

import "context"

// Document is one record in a collection, addressed by an opaque id.
type Document struct {
	Collection string
	ID         string
	Fields     map[string]any
}

// Store is the consumed document-store capability.
//
// BatchDelete is atomic only among the documents sharing the batch; no
// cross-collection transactions are offered or assumed. Get returns
// common.ErrorNotFound for an absent document; Delete on an absent document
// is a no-op.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection, field, value string) ([]Document, error)
	BatchDelete(ctx context.Context, docs []Document) error
}
