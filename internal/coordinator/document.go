// Package coordinator implements the per-document actor of spec §4.6/§5
// (component C6): one goroutine per SharedDocument serializes session
// attach/detach, frame handling and persistence, exactly as §5's
// "single-threaded cooperative execution" model prescribes. Observers are
// not registered callbacks on the CRDT engine (automerge-go exposes none);
// instead the actor calls the storage/upstream logic directly at its one
// mutation call site, the concrete form of §9's "model observers as
// messages to the per-document actor".
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/astromechza/da-collab/internal/awareness"
	"github.com/astromechza/da-collab/internal/contentstore"
	"github.com/astromechza/da-collab/internal/crdtdoc"
	"github.com/astromechza/da-collab/internal/htmlcodec"
	"github.com/astromechza/da-collab/internal/protocol"
	"github.com/astromechza/da-collab/internal/storage"
	"github.com/astromechza/da-collab/internal/transport"
)

type sessionEntry struct {
	id      awareness.SessionID
	session *transport.Session
	peer    *crdtdoc.PeerSync
}

// SharedDocument is the live coordinator for one named document, per
// spec §3. It must only be constructed via newSharedDocument.
type SharedDocument struct {
	name string
	cfg  Config
	log  *slog.Logger

	store storage.KVStore
	doc   *crdtdoc.Doc
	aware *awareness.Awareness

	sessions map[awareness.SessionID]*sessionEntry

	bound   bool
	current string

	debounceTimer *time.Timer
	maxWaitTimer  *time.Timer

	tasks chan func()

	// closeMu guards closed and serializes it against enqueue, so a task
	// accepted into tasks is always guaranteed to run (see enqueue/shutdown
	// below) rather than racing a select on two simultaneously-ready
	// channels, which could silently drop it.
	closeMu sync.Mutex
	closed  bool

	onEmpty func()
}

func newSharedDocument(name string, cfg Config, log *slog.Logger, onEmpty func()) *SharedDocument {
	sd := &SharedDocument{
		name:     name,
		cfg:      cfg,
		log:      log.With("doc", name),
		store:    cfg.Storage(name),
		doc:      crdtdoc.New(),
		aware:    awareness.New(),
		sessions: make(map[awareness.SessionID]*sessionEntry),
		tasks:    make(chan func(), 64),
		onEmpty:  onEmpty,
	}
	go sd.run()
	return sd
}

// run drains tasks until shutdown closes the channel. Since enqueue only
// ever sends while holding closeMu and shutdown only closes tasks after
// setting closed under the same mutex, every fn that reaches the channel
// is guaranteed to be delivered here, including ones sent concurrently
// with a shutdown in flight.
func (sd *SharedDocument) run() {
	for fn := range sd.tasks {
		fn()
	}
}

// enqueue hands fn to the actor goroutine, returning false without running
// it if the actor has already shut down.
func (sd *SharedDocument) enqueue(fn func()) bool {
	sd.closeMu.Lock()
	defer sd.closeMu.Unlock()
	if sd.closed {
		return false
	}
	sd.tasks <- fn
	return true
}

// isEmpty reports whether no sessions remain. Only safe to call from
// within the actor goroutine or, as registry.RemoveIfEmpty does, from a
// caller that has already confirmed the actor reported empty.
func (sd *SharedDocument) isEmpty() bool {
	return len(sd.sessions) == 0
}

// attach runs the session-attach procedure of spec §4.6 synchronously
// from the caller's perspective, blocking until the actor has processed it
// (so the caller's read loop does not start before the initial exchange
// is sent).
func (sd *SharedDocument) attach(ctx context.Context, id awareness.SessionID, sess *transport.Session, auth string) error {
	result := make(chan error, 1)
	if !sd.enqueue(func() { result <- sd.doAttach(ctx, id, sess, auth) }) {
		return ErrNotFound
	}
	return <-result
}

func (sd *SharedDocument) doAttach(ctx context.Context, id awareness.SessionID, sess *transport.Session, auth string) error {
	var bindErr error
	if !sd.bound {
		bindErr = sd.bindState(ctx, auth)
		sd.bound = true
	}

	entry := &sessionEntry{id: id, session: sess, peer: sd.doc.NewPeerSync()}
	sd.sessions[id] = entry
	sd.aware.AttachSession(id)

	msgs := entry.peer.GenerateMessages()
	for i, m := range msgs {
		subtype := uint64(protocol.SyncUpdate)
		if i == 0 {
			subtype = protocol.SyncStep1
		}
		if err := entry.session.Send(protocol.EncodeSync(subtype, m)); err != nil {
			sd.log.Info("initial sync send failed", "session", id, "err", err)
		}
	}
	if sd.aware.HasAny() {
		if err := entry.session.Send(protocol.EncodeAwareness(sd.aware.EncodeAll())); err != nil {
			sd.log.Info("initial awareness send failed", "session", id, "err", err)
		}
	}
	entry.session.MarkOpen()
	sd.log.Info("session attached", "session", id)
	return bindErr
}

// detach runs spec §4.6's "Session detach / close" procedure, blocking
// until the actor has processed it so a caller immediately re-attaching
// under the same name observes a consistent registry state.
func (sd *SharedDocument) detach(id awareness.SessionID) {
	done := make(chan struct{})
	if !sd.enqueue(func() { sd.doDetach(id); close(done) }) {
		return
	}
	<-done
}

func (sd *SharedDocument) doDetach(id awareness.SessionID) {
	entry, ok := sd.sessions[id]
	if !ok {
		return
	}
	delete(sd.sessions, id)
	_ = entry.session.Close()

	if removed := sd.aware.RemoveSession(id); len(removed) > 0 {
		sd.broadcastAwareness(id, sd.aware.Encode(removed))
	}

	sd.log.Info("session detached", "session", id)
	if sd.isEmpty() {
		sd.shutdown()
	}
}

// handleFrame decodes and applies one incoming binary frame from session
// id, per spec §4.5 "Incoming".
func (sd *SharedDocument) handleFrame(id awareness.SessionID, raw []byte) {
	sd.enqueue(func() { sd.doHandleFrame(id, raw) })
}

func (sd *SharedDocument) doHandleFrame(id awareness.SessionID, raw []byte) {
	entry, ok := sd.sessions[id]
	if !ok {
		return
	}

	frame, err := protocol.Decode(raw)
	if err != nil {
		sd.log.Info("dropping malformed frame", "session", id, "err", err)
		return
	}

	switch frame.Type {
	case protocol.FrameSync:
		_, msg, err := protocol.DecodeSyncBody(frame.Body)
		if err != nil {
			sd.log.Info("dropping malformed sync frame", "session", id, "err", err)
			return
		}
		if err := entry.peer.ReceiveMessage(msg); err != nil {
			sd.log.Info("rejecting sync message", "session", id, "err", err)
			return
		}
		sd.afterMutation()
		sd.flushSync()
	case protocol.FrameAwareness:
		added, updated, removed, err := sd.aware.ApplyUpdate(id, frame.Body)
		if err != nil {
			sd.log.Info("dropping malformed awareness frame", "session", id, "err", err)
			return
		}
		changed := append(append(added, updated...), removed...)
		if len(changed) == 0 {
			return
		}
		sd.broadcastAwareness(id, sd.aware.Encode(changed))
	default:
		sd.log.Info("dropping unknown frame type", "session", id, "type", frame.Type)
	}
}

// flushSync sends every session its due sync messages, per sender and per
// peer's own diff against the document's current state — this is what
// realizes both the reply-to-sender and the broadcast-to-everyone-else
// halves of spec §4.5 without a separate engine-level observer.
func (sd *SharedDocument) flushSync() {
	for id, entry := range sd.sessions {
		for _, m := range entry.peer.GenerateMessages() {
			if err := entry.session.Send(protocol.EncodeSync(protocol.SyncUpdate, m)); err != nil {
				sd.log.Info("sync send failed", "session", id, "err", err)
			}
		}
	}
}

func (sd *SharedDocument) broadcastAwareness(origin awareness.SessionID, body []byte) {
	for id, entry := range sd.sessions {
		if id == origin {
			continue
		}
		if err := entry.session.Send(protocol.EncodeAwareness(body)); err != nil {
			sd.log.Info("awareness send failed", "session", id, "err", err)
		}
	}
}

// snapshot returns an independent copy of the document's current CRDT
// state, safe for a caller outside the actor goroutine to read (e.g. the
// debug change-graph route) without racing the actor's own mutations.
func (sd *SharedDocument) snapshot() (*crdtdoc.Doc, error) {
	result := make(chan *crdtdoc.Doc, 1)
	errc := make(chan error, 1)
	if !sd.enqueue(func() {
		loaded, err := crdtdoc.Load(sd.doc.Save())
		if err != nil {
			errc <- err
			result <- nil
			return
		}
		errc <- nil
		result <- loaded
	}) {
		return nil, ErrNotFound
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	return <-result, nil
}

// invalidate forcibly closes every session for the document, per spec
// §4.7 (syncAdmin/deleteAdmin). It reports whether the document was live.
func (sd *SharedDocument) invalidate() bool {
	result := make(chan bool, 1)
	if !sd.enqueue(func() {
		sd.forceCloseAll()
		result <- true
	}) {
		return false
	}
	return <-result
}

func (sd *SharedDocument) forceCloseAll() {
	for id, entry := range sd.sessions {
		_ = entry.session.Close()
		delete(sd.sessions, id)
	}
	sd.aware = awareness.New()
	sd.shutdown()
}

// shutdown is always called from within the actor goroutine (a task
// running in run()), so closing tasks here never races a concurrent
// receive from it — the close only has to race enqueue's send, which
// closeMu already serializes: any enqueue that lands in the channel
// before closed is observed true is still drained by run's range loop
// before it sees the channel close.
func (sd *SharedDocument) shutdown() {
	if sd.debounceTimer != nil {
		sd.debounceTimer.Stop()
	}
	if sd.maxWaitTimer != nil {
		sd.maxWaitTimer.Stop()
	}
	sd.closeMu.Lock()
	sd.closed = true
	sd.closeMu.Unlock()
	sd.onEmpty()
	close(sd.tasks)
}

// bindState runs exactly once per document, per spec §4.6.
func (sd *SharedDocument) bindState(ctx context.Context, auth string) error {
	current, err := sd.cfg.Store.Get(ctx, sd.name, auth)
	if err != nil {
		sd.recordError(errors.Wrap(err, "fetch initial content"))
		sd.current = contentstore.EmptyHTML
		return &UpstreamUnavailableError{Name: sd.name, Err: err}
	}
	sd.current = current

	restored := sd.tryRestore(ctx, current)

	if !restored && current != contentstore.EmptyHTML {
		time.AfterFunc(sd.cfg.RestoreDelay, func() {
			sd.enqueue(func() { sd.applyRestoreReset(current) })
		})
	}
	return nil
}

// tryRestore implements spec §4.6 step 2: apply the durable record (if
// any) and accept it only if its HTML projection matches what the content
// store actually holds (invariant I4); otherwise the stale record is left
// to be overwritten on the next write (spec §4.2's read algorithm already
// discarded it if the "doc" field didn't match).
func (sd *SharedDocument) tryRestore(ctx context.Context, current string) bool {
	stored, ok, err := sd.cfg.Codec.Read(ctx, sd.store, sd.name)
	if err != nil {
		sd.recordError(errors.Wrap(err, "read durable storage"))
		return false
	}
	if !ok || len(stored) == 0 {
		return false
	}

	loaded, err := crdtdoc.Load(stored)
	if err != nil {
		sd.recordError(&CodecError{Name: sd.name, Err: err})
		return false
	}
	tree, err := loaded.Tree()
	if err != nil {
		sd.recordError(&CodecError{Name: sd.name, Err: err})
		return false
	}
	if htmlcodec.Doc2Aem(tree) != current {
		return false
	}
	sd.doc = loaded
	return true
}

// applyRestoreReset is spec §4.6 step 3: the ~1s-delayed transactional
// reset that replaces the document's contents with the content store's
// current HTML. SetTree already replaces the "prosemirror" root wholesale
// in one commit, which subsumes the "delete then aem2doc" two-step the
// spec describes for an XML-fragment root (see DESIGN.md).
func (sd *SharedDocument) applyRestoreReset(current string) {
	tree, err := htmlcodec.Aem2Doc(current)
	if err != nil {
		sd.recordError(errors.Wrap(err, "parse content-store html"))
		return
	}
	if err := sd.doc.SetTree(tree); err != nil {
		sd.recordError(errors.Wrap(err, "apply transactional reset"))
		return
	}
	sd.afterMutation()
	sd.flushSync()
}

// afterMutation is the single call site standing in for the CRDT engine's
// "update observer" (spec §4.6 step 4): every time the document's state
// changes, it durably persists the binary state immediately and arms the
// debounced upstream writer.
func (sd *SharedDocument) afterMutation() {
	ctx := context.Background()
	state := sd.doc.Save()
	if err := sd.cfg.Codec.Write(ctx, sd.store, sd.name, state); err != nil {
		// Coalescing is acceptable; losing the latest durable write is
		// tolerable because the content store is authoritative (spec §4.6).
		sd.log.Info("durable write failed", "err", err)
	}
	sd.scheduleDebounce()
}

func (sd *SharedDocument) scheduleDebounce() {
	if sd.maxWaitTimer == nil {
		sd.maxWaitTimer = time.AfterFunc(sd.cfg.MaxWaitDebounce, func() {
			sd.enqueue(sd.fireUpstreamWrite)
		})
	}
	if sd.debounceTimer != nil {
		sd.debounceTimer.Stop()
	}
	sd.debounceTimer = time.AfterFunc(sd.cfg.TrailingDebounce, func() {
		sd.enqueue(sd.fireUpstreamWrite)
	})
}

// fireUpstreamWrite is the debounced upstream observer of spec §4.6 step 4.
func (sd *SharedDocument) fireUpstreamWrite() {
	sd.debounceTimer = nil
	sd.maxWaitTimer = nil

	tree, err := sd.doc.Tree()
	if err != nil {
		sd.recordError(errors.Wrap(err, "read document tree"))
		return
	}
	newHTML := htmlcodec.Doc2Aem(tree)
	if newHTML == sd.current {
		return // I5: no write when nothing changed
	}

	result := sd.cfg.Store.Put(context.Background(), sd.name, newHTML, sd.collectAuths())
	switch {
	case result.OK:
		sd.current = newHTML
	case result.Status == 401:
		sd.log.Info("upstream rejected credentials, closing all sessions")
		sd.forceCloseAll()
	default:
		sd.recordError(fmt.Errorf("upstream write failed: %s", result.StatusText))
	}
}

func (sd *SharedDocument) collectAuths() []string {
	auths := make([]string, 0, len(sd.sessions))
	for _, entry := range sd.sessions {
		auths = append(auths, entry.session.Auth)
	}
	return auths
}

// recordError writes err into the document's "error" map, per spec §7.
func (sd *SharedDocument) recordError(err error) {
	sd.log.Info("recording document error", "err", err)
	wrapped := errors.Wrap(err, "coordinator")
	if rerr := sd.doc.RecordError(time.Now().UTC().Format(time.RFC3339Nano), err.Error(), fmt.Sprintf("%+v", wrapped)); rerr != nil {
		sd.log.Error("failed to record error on document", "err", rerr)
	}
}
