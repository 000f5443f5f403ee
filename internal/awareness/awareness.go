// Package awareness implements the ephemeral per-client presence channel
// described by spec §3 ("Awareness entry") and §4.5. The chosen CRDT
// engine (automerge-go) has no built-in analogue of the y-protocols
// awareness sub-protocol, so this is a small, self-contained component
// modeled directly on the spec rather than ported from a library — see
// DESIGN.md for the justification.
package awareness

import (
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// ClientID identifies one awareness participant, independent of which
// session (transport connection) currently controls it.
type ClientID uint64

// SessionID identifies the session (transport connection) controlling a
// set of client ids, per spec §3 "sessions mapping".
type SessionID string

// NewClientID mints a fresh, effectively-unique client id.
func NewClientID() ClientID {
	u := uuid.New()
	return ClientID(binary.BigEndian.Uint64(u[:8]))
}

// entry is the wire representation of one client's awareness state. A nil
// State marks a clean removal, mirroring the y-protocols convention of
// setting state to null on graceful disconnect.
type entry struct {
	ClientID ClientID        `json:"clientID"`
	State    json.RawMessage `json:"state,omitempty"`
}

// Awareness holds the live client-id -> state map for one document, plus
// which session currently controls each client id (spec invariant I2: the
// set of awareness client-ids equals the union of all sessions' controlled
// sets).
type Awareness struct {
	mu      sync.Mutex
	states  map[ClientID]json.RawMessage
	owners  map[ClientID]SessionID
	bySess  map[SessionID]map[ClientID]struct{}
}

// New creates an empty awareness table.
func New() *Awareness {
	return &Awareness{
		states: make(map[ClientID]json.RawMessage),
		owners: make(map[ClientID]SessionID),
		bySess: make(map[SessionID]map[ClientID]struct{}),
	}
}

// AttachSession registers a session with no controlled client ids yet, per
// spec §4.6 "Session attach ... add the session with an empty controlled-id
// set".
func (a *Awareness) AttachSession(session SessionID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.bySess[session]; !ok {
		a.bySess[session] = make(map[ClientID]struct{})
	}
}

// ApplyUpdate applies an incoming awareness update on behalf of session
// (the origin, per spec §4.5), returning the added, updated and removed
// client ids so the caller can broadcast exactly that changed subset.
func (a *Awareness) ApplyUpdate(session SessionID, update []byte) (added, updated, removed []ClientID, err error) {
	var entries []entry
	if err := json.Unmarshal(update, &entries); err != nil {
		return nil, nil, nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	controlled, ok := a.bySess[session]
	if !ok {
		controlled = make(map[ClientID]struct{})
		a.bySess[session] = controlled
	}

	for _, e := range entries {
		_, existed := a.states[e.ClientID]
		if e.State == nil || string(e.State) == "null" {
			if existed {
				delete(a.states, e.ClientID)
				delete(a.owners, e.ClientID)
				delete(controlled, e.ClientID)
				removed = append(removed, e.ClientID)
			}
			continue
		}
		a.states[e.ClientID] = e.State
		a.owners[e.ClientID] = session
		controlled[e.ClientID] = struct{}{}
		if existed {
			updated = append(updated, e.ClientID)
		} else {
			added = append(added, e.ClientID)
		}
	}
	return added, updated, removed, nil
}

// RemoveSession detaches a session and removes exactly the client ids it
// controlled, per spec §4.6 "Session detach / close". It returns the
// removed ids so the caller can broadcast their removal.
func (a *Awareness) RemoveSession(session SessionID) []ClientID {
	a.mu.Lock()
	defer a.mu.Unlock()

	controlled, ok := a.bySess[session]
	if !ok {
		return nil
	}
	removed := make([]ClientID, 0, len(controlled))
	for id := range controlled {
		delete(a.states, id)
		delete(a.owners, id)
		removed = append(removed, id)
	}
	delete(a.bySess, session)
	return removed
}

// Encode serializes the given client ids' current states, for the initial
// exchange or a broadcast (spec §4.5). Client ids no longer present are
// encoded with no state, which receivers apply as a removal.
func (a *Awareness) Encode(ids []ClientID) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries := make([]entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, entry{ClientID: id, State: a.states[id]})
	}
	data, _ := json.Marshal(entries)
	return data
}

// EncodeAll serializes every currently-known client id's state, used for
// the initial exchange of spec §4.5 step 2 ("if any awareness states
// exist, send an awareness frame carrying the encoded states of all known
// client-ids").
func (a *Awareness) EncodeAll() []byte {
	a.mu.Lock()
	ids := make([]ClientID, 0, len(a.states))
	for id := range a.states {
		ids = append(ids, id)
	}
	a.mu.Unlock()
	return a.Encode(ids)
}

// HasAny reports whether any awareness state is currently known.
func (a *Awareness) HasAny() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.states) > 0
}

// ControlledBy returns the client ids currently controlled by session,
// supporting spec invariant I2 checks in tests.
func (a *Awareness) ControlledBy(session SessionID) []ClientID {
	a.mu.Lock()
	defer a.mu.Unlock()
	controlled, ok := a.bySess[session]
	if !ok {
		return nil
	}
	out := make([]ClientID, 0, len(controlled))
	for id := range controlled {
		out = append(out, id)
	}
	return out
}
