// Package httpapi wires the collaborative document coordinator onto an
// HTTP surface, per spec §6 (component C7): the admin syncAdmin/deleteAdmin
// signals, plus the minimal session-upgrade and liveness routes needed to
// run the core end to end (the outer router, auth forwarding, and health
// endpoints are named external collaborators the spec leaves out of scope —
// these are deliberately thin shims, not a tested surface).
package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/astromechza/da-collab/internal/coordinator"
	"github.com/astromechza/da-collab/internal/diagviz"
	"github.com/astromechza/da-collab/internal/transport"
)

// Server exposes the coordinator over HTTP.
type Server struct {
	mgr *coordinator.Manager
	log *slog.Logger
}

// New builds a Server around an already-configured Manager.
func New(mgr *coordinator.Manager, log *slog.Logger) *Server {
	return &Server{mgr: mgr, log: log}
}

// Router builds the mux.Router per spec §6's admin surface plus the
// supplemental routes of SPEC_FULL.md.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.healthz)
	r.Methods(http.MethodGet).Path("/connect/{name:.*}").HandlerFunc(s.connect)
	r.Methods(http.MethodPost).Path("/admin/{name:.*}/sync").HandlerFunc(s.syncAdmin)
	r.Methods(http.MethodDelete).Path("/admin/{name:.*}").HandlerFunc(s.deleteAdmin)
	r.Methods(http.MethodGet).Path("/debug/{name:.*}/graph.svg").HandlerFunc(s.graph)
	return r
}

func (s *Server) loggingMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(handler, w, r)
		s.log.Info("handled", "method", r.Method, "url", r.URL.String(), "duration", m.Duration, "status", m.Code)
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// syncAdmin implements spec §6's `syncAdmin(name) -> 200 if document was
// live, 404 otherwise`.
func (s *Server) syncAdmin(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if s.mgr.SyncAdmin(name) {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

// deleteAdmin implements spec §6's `deleteAdmin(name) -> 204 if live, 404
// otherwise`.
func (s *Server) deleteAdmin(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if s.mgr.DeleteAdmin(name) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// connect upgrades the request to a websocket session and runs its
// attach/read/detach lifecycle per spec §4.6. The auth token and its
// granted actions are read straight off the request since the real
// forwarding policy is a named external collaborator (spec §1) left out
// of scope; this is the minimal stand-in needed to exercise CanWrite.
func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("upgrade failed", "name", name, "err", err)
		return
	}

	auth := r.Header.Get("Authorization")
	var actions []string
	if raw := r.URL.Query().Get("actions"); raw != "" {
		actions = strings.Split(raw, ",")
	}
	sess := transport.New(conn, auth, actions)

	if err := s.mgr.Attach(r.Context(), name, sess); err != nil {
		s.log.Error("attach failed", "name", name, "err", err)
		// Attach can fail after the session was already recorded against
		// the document (e.g. a recoverable bind error surfaced in the
		// document's own error map per spec §7) — Detach is idempotent if
		// it wasn't, and required to avoid leaking a session entry that
		// blocks the document from ever reporting empty again otherwise.
		s.mgr.Detach(name, sess)
		_ = sess.Close()
		return
	}
	defer s.mgr.Detach(name, sess)

	for {
		frame, err := sess.ReadFrame()
		if err != nil {
			return
		}
		if frame == nil {
			continue
		}
		s.mgr.HandleFrame(name, sess, frame)
	}
}

// graph renders the document's change-graph as SVG, per SPEC_FULL.md's
// supplemental diagviz debug route.
func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	doc, ok := s.mgr.Snapshot(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	svg, err := diagviz.RenderSVG(doc)
	if err != nil {
		s.log.Error("render graph failed", "name", name, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}
