package storage

import (
	"bytes"
	"context"
	"testing"
)

type memStore struct {
	fields    map[string][]byte
	deleteAll int
	puts      int
}

func newMemStore() *memStore { return &memStore{fields: map[string][]byte{}} }

func (m *memStore) List(ctx context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte, len(m.fields))
	for k, v := range m.fields {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) Put(ctx context.Context, fields map[string][]byte) error {
	m.puts++
	for k, v := range fields {
		m.fields[k] = v
	}
	return nil
}

func (m *memStore) DeleteAll(ctx context.Context) error {
	m.deleteAll++
	m.fields = map[string][]byte{}
	return nil
}

func TestReadNoneWhenEmpty(t *testing.T) {
	store := newMemStore()
	codec := NewCodec()
	data, ok, err := codec.Read(context.Background(), store, "doc-a")
	if err != nil || ok || data != nil {
		t.Fatalf("expected none, got data=%v ok=%v err=%v", data, ok, err)
	}
}

func TestWriteSmallUsesDocstore(t *testing.T) {
	store := newMemStore()
	codec := NewCodec()
	state := []byte("small state")
	if err := codec.Write(context.Background(), store, "doc-a", state); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if store.deleteAll != 1 || store.puts != 1 {
		t.Fatalf("expected one deleteAll then one put, got deleteAll=%d put=%d", store.deleteAll, store.puts)
	}
	if _, ok := store.fields["chunks"]; ok {
		t.Fatalf("small state should not be chunked")
	}
	got, ok, err := codec.Read(context.Background(), store, "doc-a")
	if err != nil || !ok || !bytes.Equal(got, state) {
		t.Fatalf("round trip mismatch: got=%q ok=%v err=%v", got, ok, err)
	}
}

func TestChunkedRoundTrip(t *testing.T) {
	store := newMemStore()
	codec := Codec{MaxValue: 4, MaxKeys: 128}
	state := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}

	if err := codec.Write(context.Background(), store, "doc-a", state); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if string(store.fields["chunks"]) != "3" {
		t.Fatalf("expected 3 chunks, got %q", store.fields["chunks"])
	}
	if !bytes.Equal(store.fields["chunk_0"], []byte{1, 2, 3, 4}) ||
		!bytes.Equal(store.fields["chunk_1"], []byte{5, 6, 7, 8}) ||
		!bytes.Equal(store.fields["chunk_2"], []byte{9}) {
		t.Fatalf("unexpected chunk layout: %+v", store.fields)
	}

	got, ok, err := codec.Read(context.Background(), store, "doc-a")
	if err != nil || !ok || !bytes.Equal(got, state) {
		t.Fatalf("round trip mismatch: got=%v ok=%v err=%v", got, ok, err)
	}
}

func TestOverflowFails(t *testing.T) {
	store := newMemStore()
	codec := Codec{MaxValue: 1, MaxKeys: 4}
	state := []byte{1, 2, 3, 4, 5}
	if err := codec.Write(context.Background(), store, "doc-a", state); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestStaleRecordDiscarded(t *testing.T) {
	store := newMemStore()
	codec := NewCodec()
	if err := codec.Write(context.Background(), store, "old-doc", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, ok, err := codec.Read(context.Background(), store, "new-doc")
	if err != nil || ok || data != nil {
		t.Fatalf("expected stale record to read as none, got data=%v ok=%v err=%v", data, ok, err)
	}
	if len(store.fields) != 0 {
		t.Fatalf("expected stale record to be deleted, got %+v", store.fields)
	}
}
