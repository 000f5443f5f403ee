package coordinator

import (
	"context"
	"log/slog"

	"github.com/astromechza/da-collab/internal/awareness"
	"github.com/astromechza/da-collab/internal/crdtdoc"
	"github.com/astromechza/da-collab/internal/registry"
	"github.com/astromechza/da-collab/internal/transport"
)

// Manager is the process-wide entry point onto the shared-document
// registry of spec §4.4 (component C4): it is the only thing that knows
// how to turn a document name into a running SharedDocument actor.
type Manager struct {
	cfg Config
	log *slog.Logger
	reg *registry.Registry[*SharedDocument]
}

// NewManager builds a Manager. cfg.Storage and cfg.Store must be set.
func NewManager(cfg Config, log *slog.Logger) *Manager {
	return &Manager{
		cfg: cfg.WithDefaults(),
		log: log,
		reg: registry.New[*SharedDocument](),
	}
}

// Attach binds sess to the named document, creating it on first use
// (spec I1, via registry.GetOrCreate's bind-promise), and runs the
// session-attach procedure of spec §4.6.
func (m *Manager) Attach(ctx context.Context, name string, sess *transport.Session) error {
	sessionID := awareness.SessionID(sess.ID)
	sd, err := m.reg.GetOrCreate(name, func() (*SharedDocument, error) {
		return newSharedDocument(name, m.cfg, m.log, func() {
			m.reg.RemoveIfEmpty(name, func(*SharedDocument) bool { return true })
		}), nil
	})
	if err != nil {
		return err
	}
	return sd.attach(ctx, sessionID, sess, sess.Auth)
}

// Detach removes sess from the named document, per spec §4.6 "Session
// detach / close".
func (m *Manager) Detach(name string, sess *transport.Session) {
	sd, ok := m.reg.Get(name)
	if !ok {
		return
	}
	sd.detach(awareness.SessionID(sess.ID))
}

// HandleFrame applies one incoming frame from sess on the named document.
func (m *Manager) HandleFrame(name string, sess *transport.Session, raw []byte) {
	sd, ok := m.reg.Get(name)
	if !ok {
		return
	}
	sd.handleFrame(awareness.SessionID(sess.ID), raw)
}

// SyncAdmin implements spec §4.7/§6's syncAdmin signal: forcibly closes
// every session for name, reporting whether the document was live.
func (m *Manager) SyncAdmin(name string) bool {
	sd, ok := m.reg.Get(name)
	if !ok {
		return false
	}
	return sd.invalidate()
}

// DeleteAdmin implements spec §4.7/§6's deleteAdmin signal. Per §4.7 both
// signals have the same effect on the coordinator: close every session so
// the next opener rebinds from the authoritative content store.
func (m *Manager) DeleteAdmin(name string) bool {
	return m.SyncAdmin(name)
}

// Snapshot returns an independent copy of the named document's current
// CRDT state, for the debug change-graph route. Reports false if the
// document is not live.
func (m *Manager) Snapshot(name string) (*crdtdoc.Doc, bool) {
	sd, ok := m.reg.Get(name)
	if !ok {
		return nil, false
	}
	doc, err := sd.snapshot()
	if err != nil {
		return nil, false
	}
	return doc, true
}

// Len reports the number of live documents, for tests and diagnostics.
func (m *Manager) Len() int {
	return m.reg.Len()
}
