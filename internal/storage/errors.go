package storage

import "errors"

// ErrOverflow is returned when a state is too large to fit within MaxKeys
// chunks, per spec §4.2/§7 (StorageOverflow): "fail with StorageOverflow".
var ErrOverflow = errors.New("storage: state exceeds chunk key budget")

// errStale marks a record whose doc field didn't match the expected name —
// handled internally (deleteAll, treat as empty) rather than surfaced, per
// spec §4.2's read algorithm and §7's StorageStale recovery policy.
var errStale = errors.New("storage: stale record for a different document")
