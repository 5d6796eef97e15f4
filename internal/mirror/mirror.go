// Package mirror abstracts the remote document store that keeps a copy
// of every synced report.  Adapters never retry: a failed call is
// returned to the caller, which decides what the failure means for the
// record's sync state.
package mirror

import (
	"context"
	"errors"
)

// Document is a schemaless key/value map as stored remotely.
type Document map[string]any

// ErrNotFound is returned by Get when no document exists for the key.
var ErrNotFound = errors.New("mirror: document not found")

// Client is the capability set of a remote document store.  Keys are the
// reports' external ids.
type Client interface {
	// Put writes doc under key.  With merge the given fields are merged
	// into an existing document; without it the document is replaced.
	Put(ctx context.Context, key string, doc Document, merge bool) error
	// Get returns the document stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (Document, error)
	// Delete removes the document.  Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns every document of the mirrored collection keyed by id.
	List(ctx context.Context) (map[string]Document, error)
	// Close releases connections held by the adapter.
	Close() error
}

// mergeInto copies src fields over dst and returns dst.
func mergeInto(dst, src Document) Document {
	if dst == nil {
		dst = Document{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
