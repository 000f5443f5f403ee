package registry

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestGetOrCreateCreatesOnce(t *testing.T) {
	r := New[*int]()
	var creates int32

	const n = 20
	wg := new(sync.WaitGroup)
	results := make([]*int, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			v, err := r.GetOrCreate("doc-a", func() (*int, error) {
				atomic.AddInt32(&creates, 1)
				x := 42
				return &x, nil
			})
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
			}
			results[i] = v
		}()
	}
	wg.Wait()

	if creates != 1 {
		t.Fatalf("expected exactly one create, got %d", creates)
	}
	for _, v := range results {
		if v != results[0] {
			t.Fatalf("expected every caller to get the same instance")
		}
	}
	if r.Len() != 1 {
		t.Fatalf("expected exactly one registry entry, got %d", r.Len())
	}
}

func TestRemoveIfEmpty(t *testing.T) {
	r := New[*int]()
	x := 1
	if _, err := r.GetOrCreate("doc-a", func() (*int, error) { return &x, nil }); err != nil {
		t.Fatal(err)
	}

	if r.RemoveIfEmpty("doc-a", func(*int) bool { return false }) {
		t.Fatalf("should not remove a non-empty document")
	}
	if r.Len() != 1 {
		t.Fatalf("expected entry to remain")
	}

	if !r.RemoveIfEmpty("doc-a", func(*int) bool { return true }) {
		t.Fatalf("should remove an empty document")
	}
	if r.Len() != 0 {
		t.Fatalf("expected entry to be gone")
	}
}
