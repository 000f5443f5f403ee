package coordinator

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error taxonomy of spec §7, as typed sentinels/wrappers.

// ErrNotFound is returned when work is handed to a SharedDocument whose
// actor has already shut down (attach, snapshot). The admin calls report
// the same condition as a false result instead.
var ErrNotFound = errors.New("coordinator: document not live")

// UpstreamUnavailableError wraps a failed initial fetch during bindState,
// per spec §7 (UpstreamUnavailable): "Propagated to caller of bind;
// surfaced in doc's error map".
type UpstreamUnavailableError struct {
	Name string
	Err  error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("bind %s: fetch initial content: %v", e.Name, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// CodecError marks a malformed durable record encountered while binding,
// per spec §7 (CodecError): "Record in error map; leave document empty".
// A content-store HTML payload that fails to parse is recorded as a plain
// wrapped error, not a CodecError.
type CodecError struct {
	Name string
	Err  error
}

func (e *CodecError) Error() string {
	return errors.Wrapf(e.Err, "bind %s: decode failed", e.Name).Error()
}

func (e *CodecError) Unwrap() error { return e.Err }
