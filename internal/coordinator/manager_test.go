package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/astromechza/da-collab/internal/crdtdoc"
	"github.com/astromechza/da-collab/internal/docmodel"
	"github.com/astromechza/da-collab/internal/htmlcodec"
	"github.com/astromechza/da-collab/internal/protocol"
	"github.com/astromechza/da-collab/internal/transport"
)

func newTestManager(t *testing.T, up *upstream) *Manager {
	_, cfg := testConfig(t, newMemKV(), up)
	return NewManager(cfg, slog.Default())
}

func TestManagerSyncAdminReportsNotFoundForUnknownDocument(t *testing.T) {
	m := newTestManager(t, newUpstream(""))
	if m.SyncAdmin("does-not-exist") {
		t.Fatalf("expected SyncAdmin to report not found")
	}
	if m.DeleteAdmin("does-not-exist") {
		t.Fatalf("expected DeleteAdmin to report not found")
	}
}

func TestManagerAttachReusesTheSameDocumentForConcurrentOpeners(t *testing.T) {
	up := newUpstream("")
	name, cfg := testConfig(t, newMemKV(), up)
	m := NewManager(cfg, slog.Default())

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			conn := &fakeConn{}
			sess := transport.New(conn, "", nil)
			if err := m.Attach(context.Background(), name, sess); err != nil {
				t.Errorf("attach %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if m.Len() != 1 {
		t.Fatalf("expected exactly one document, got %d", m.Len())
	}
}

func TestManagerEndToEndSyncBroadcastsBetweenSessions(t *testing.T) {
	up := newUpstream("")
	name, cfg := testConfig(t, newMemKV(), up)
	m := NewManager(cfg, slog.Default())

	connA, connB := &fakeConn{}, &fakeConn{}
	sessA := transport.New(connA, "", nil)
	sessB := transport.New(connB, "", nil)

	if err := m.Attach(context.Background(), name, sessA); err != nil {
		t.Fatalf("attach A: %v", err)
	}
	if err := m.Attach(context.Background(), name, sessB); err != nil {
		t.Fatalf("attach B: %v", err)
	}

	// Simulate an external editor: its own CRDT doc, edited locally, then
	// synced in through session A exactly as a real client would.
	client := crdtdoc.New()
	if err := client.SetTree(docmodel.NewDoc(docmodel.NewBlock(docmodel.TypeParagraph, nil, docmodel.NewText("hello")))); err != nil {
		t.Fatalf("client SetTree: %v", err)
	}
	clientPeer := client.NewPeerSync()

	driveSync(t, m, name, sessA, connA, clientPeer)

	// Session B, never touched directly, should have received the change
	// via the document's own sync-state diffing against its peer.
	clientB := crdtdoc.New()
	driveSync(t, m, name, sessB, connB, clientB.NewPeerSync())

	sd, ok := m.reg.Get(name)
	if !ok {
		t.Fatalf("expected the document to still be live")
	}
	barrier(sd)

	serverTree, err := sd.doc.Tree()
	if err != nil {
		t.Fatalf("server Tree: %v", err)
	}
	clientTree, err := client.Tree()
	if err != nil {
		t.Fatalf("client Tree: %v", err)
	}
	if htmlcodec.Doc2Aem(serverTree) != htmlcodec.Doc2Aem(clientTree) {
		t.Fatalf("expected the server's document to converge with the client's edit:\nserver=%q\nclient=%q",
			htmlcodec.Doc2Aem(serverTree), htmlcodec.Doc2Aem(clientTree))
	}
	clientBTree, err := clientB.Tree()
	if err != nil {
		t.Fatalf("client B Tree: %v", err)
	}
	if htmlcodec.Doc2Aem(clientBTree) != htmlcodec.Doc2Aem(clientTree) {
		t.Fatalf("expected session B to receive the edit made through session A:\nB=%q\nA=%q",
			htmlcodec.Doc2Aem(clientBTree), htmlcodec.Doc2Aem(clientTree))
	}
}

// driveSync exchanges sync messages between an external peer state and the
// manager until no further progress is made on either side, a few rounds
// at most since these are trivial single-change documents.
func driveSync(t *testing.T, m *Manager, name string, sess *transport.Session, conn *fakeConn, peer *crdtdoc.PeerSync) {
	for round := 0; round < 8; round++ {
		raw := conn.drainRaw()
		progressed := false
		for _, r := range raw {
			fr, err := protocol.Decode(r)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if fr.Type != protocol.FrameSync || peer == nil {
				continue
			}
			_, msg, err := protocol.DecodeSyncBody(fr.Body)
			if err != nil {
				t.Fatalf("decode sync body: %v", err)
			}
			if err := peer.ReceiveMessage(msg); err != nil {
				t.Fatalf("receive: %v", err)
			}
			progressed = true
		}
		if peer != nil {
			for _, msg := range peer.GenerateMessages() {
				m.HandleFrame(name, sess, protocol.EncodeSync(protocol.SyncUpdate, msg))
				progressed = true
			}
		}
		if !progressed {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}
