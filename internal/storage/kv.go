// Package storage implements the chunked durable-storage codec of spec
// §4.2 (component C2): serializing the CRDT binary state into a bounded
// key/value object, and recovering it, against any store that satisfies
// the small transactional KVStore contract below.
package storage

import "context"

// KVStore is the minimal transactional key/value contract the chunked
// codec needs: list every field of the current record, replace the whole
// record, or delete it outright. Per spec §4.2 it is assumed to enforce a
// per-value size limit (MaxValue) and a per-object key-count limit
// (MaxKeys) — those limits are enforced by this package, not by the store.
type KVStore interface {
	List(ctx context.Context) (map[string][]byte, error)
	Put(ctx context.Context, fields map[string][]byte) error
	DeleteAll(ctx context.Context) error
}

// KVStoreFactory builds the durable storage handle for one document name.
// Each document actor owns its handle exclusively (spec §5), so the
// coordinator asks for a fresh one per document rather than sharing one.
type KVStoreFactory func(docName string) KVStore
