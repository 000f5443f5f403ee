package storage

import (
	"context"
	"fmt"
	"strconv"
)

// Default size limits, per spec §4.2/§6.
const (
	DefaultMaxValue = 131072
	DefaultMaxKeys  = 128
)

const (
	fieldDoc    = "doc"
	fieldStore  = "docstore"
	fieldChunks = "chunks"
)

// Codec implements the chunked read/write algorithms of spec §4.2,
// parameterized by the store's size limits.
type Codec struct {
	MaxValue int
	MaxKeys  int
}

// NewCodec builds a Codec with the spec's default limits.
func NewCodec() Codec {
	return Codec{MaxValue: DefaultMaxValue, MaxKeys: DefaultMaxKeys}
}

// Read implements spec §4.2's read algorithm. It returns (nil, false, nil)
// for "none" — either no record at all, or a stale record for a different
// document (which it discards via DeleteAll before returning).
func (c Codec) Read(ctx context.Context, store KVStore, name string) ([]byte, bool, error) {
	fields, err := store.List(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("list storage: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	docName, ok := fields[fieldDoc]
	if !ok || string(docName) != name {
		if err := store.DeleteAll(ctx); err != nil {
			return nil, false, fmt.Errorf("discard stale record: %w", err)
		}
		return nil, false, nil
	}

	if raw, ok := fields[fieldStore]; ok {
		return raw, true, nil
	}

	rawCount, ok := fields[fieldChunks]
	if !ok {
		return nil, false, nil
	}
	n, err := strconv.Atoi(string(rawCount))
	if err != nil || n <= 0 {
		return nil, false, fmt.Errorf("parse chunk count: %w", err)
	}

	total := 0
	chunks := make([][]byte, n)
	for i := 0; i < n; i++ {
		chunk, ok := fields[chunkKey(i)]
		if !ok {
			return nil, false, fmt.Errorf("missing chunk %d of %d", i, n)
		}
		chunks[i] = chunk
		total += len(chunk)
	}
	// Explicit loop, not a variadic append/concat, because states can be
	// megabytes (spec §4.2 write algorithm note, applied symmetrically here).
	out := make([]byte, 0, total)
	for _, chunk := range chunks {
		out = append(out, chunk...)
	}
	return out, true, nil
}

// Write implements spec §4.2's write algorithm: always DeleteAll first,
// then Put the new serialized record.
func (c Codec) Write(ctx context.Context, store KVStore, name string, state []byte) error {
	fields := map[string][]byte{fieldDoc: []byte(name)}

	if len(state) < c.MaxValue {
		fields[fieldStore] = state
	} else {
		n := (len(state) + c.MaxValue - 1) / c.MaxValue
		if n >= c.MaxKeys {
			return ErrOverflow
		}
		for i := 0; i < n; i++ {
			start := i * c.MaxValue
			end := start + c.MaxValue
			if end > len(state) {
				end = len(state)
			}
			fields[chunkKey(i)] = state[start:end]
		}
		fields[fieldChunks] = []byte(strconv.Itoa(n))
	}

	if err := store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear previous record: %w", err)
	}
	if err := store.Put(ctx, fields); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

func chunkKey(i int) string {
	return "chunk_" + strconv.Itoa(i)
}
