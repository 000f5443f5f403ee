package crdtdoc

import (
	"fmt"

	"github.com/automerge/automerge-go"
)

// PeerSync tracks one session's view of the document's sync protocol state,
// the per-peer half of the CRDT engine's standard sync protocol (spec §4.5).
type PeerSync struct {
	state *automerge.SyncState
}

// NewPeerSync starts a fresh sync state for a newly attached session.
func (d *Doc) NewPeerSync() *PeerSync {
	return &PeerSync{state: automerge.NewSyncState(d.engine)}
}

// GenerateMessages drains every pending outgoing sync message for this
// peer. The CRDT engine internally tracks whether the next message is a
// step1 state-vector announcement or a step2/update reply; this server
// only needs the bytes to frame and send (spec §4.5).
func (p *PeerSync) GenerateMessages() [][]byte {
	var out [][]byte
	for {
		msg, valid := p.state.GenerateMessage()
		if !valid {
			return out
		}
		out = append(out, msg.Bytes())
	}
}

// ReceiveMessage applies an incoming sync message from this peer.
func (p *PeerSync) ReceiveMessage(body []byte) error {
	if _, err := p.state.ReceiveMessage(body); err != nil {
		return fmt.Errorf("receive sync message: %w", err)
	}
	return nil
}
