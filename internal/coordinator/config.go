package coordinator

import (
	"time"

	"github.com/astromechza/da-collab/internal/contentstore"
	"github.com/astromechza/da-collab/internal/storage"
)

// Debounce timings for the upstream writer, per spec §4.6/§5: "2s
// trailing, 10s max-wait".
const (
	DefaultTrailingDebounce = 2 * time.Second
	DefaultMaxWaitDebounce  = 10 * time.Second
	// DefaultRestoreDelay is the "~1 second" settle delay of spec §4.6
	// step 3 before the transactional reset runs.
	DefaultRestoreDelay = time.Second
)

// Config holds the dependencies and timings a SharedDocument needs. One
// Config is shared by every document a Manager coordinates.
type Config struct {
	Store   *contentstore.Client
	Storage storage.KVStoreFactory
	Codec   storage.Codec

	TrailingDebounce time.Duration
	MaxWaitDebounce  time.Duration
	RestoreDelay     time.Duration
}

// WithDefaults fills in zero-valued timing fields with the spec defaults.
func (c Config) WithDefaults() Config {
	if c.TrailingDebounce == 0 {
		c.TrailingDebounce = DefaultTrailingDebounce
	}
	if c.MaxWaitDebounce == 0 {
		c.MaxWaitDebounce = DefaultMaxWaitDebounce
	}
	if c.RestoreDelay == 0 {
		c.RestoreDelay = DefaultRestoreDelay
	}
	if c.Codec == (storage.Codec{}) {
		c.Codec = storage.NewCodec()
	}
	return c
}
