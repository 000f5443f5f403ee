// Package crdtdoc wraps the automerge-go CRDT engine (the "CRDT engine
// dependency" of spec §9) with the structured-document tree encoding used
// by the collaborative coordinator: a single nested value at path
// "prosemirror" mirrors the shape of the spec's XML-fragment root.
package crdtdoc

import (
	"fmt"

	"github.com/automerge/automerge-go"

	"github.com/astromechza/da-collab/internal/docmodel"
)

// rootPath is the key under which the structured document lives, per
// spec §3 ("an XML-fragment root named prosemirror").
const rootPath = "prosemirror"

// errorMapPath is the auxiliary key-value map used to surface the last
// persistence error, per spec §3.
const errorMapPath = "error"

// Doc wraps one document's CRDT state.
type Doc struct {
	engine *automerge.Doc
}

// New creates an empty CRDT document. Automerge's garbage collection
// defaults to off for a freshly created document, matching spec §3's
// "CRDT engine instance configured with garbage-collection disabled" —
// automerge-go only performs GC on explicit compaction, which this server
// never calls.
func New() *Doc {
	return &Doc{engine: automerge.New()}
}

// Load restores a CRDT document from its serialized binary state.
func Load(state []byte) (*Doc, error) {
	e, err := automerge.Load(state)
	if err != nil {
		return nil, fmt.Errorf("load automerge state: %w", err)
	}
	return &Doc{engine: e}, nil
}

// Save encodes the full CRDT binary state, the unit the durable-storage
// codec (C2) and the storage observer persist.
func (d *Doc) Save() []byte {
	return d.engine.Save()
}

// Engine exposes the underlying automerge document for sync-state use.
func (d *Doc) Engine() *automerge.Doc {
	return d.engine
}

// Tree reads the structured document back out of the CRDT state. It
// returns an empty doc node if the root has never been set (a brand new
// document).
func (d *Doc) Tree() (*docmodel.Node, error) {
	v, err := d.engine.Path(rootPath).Get()
	if err != nil {
		return docmodel.NewDoc(), nil
	}
	raw := v.Interface()
	if raw == nil {
		return docmodel.NewDoc(), nil
	}
	n := interfaceToNode(raw)
	if n == nil {
		return docmodel.NewDoc(), nil
	}
	return n, nil
}

// SetTree replaces the structured document wholesale and commits the
// change. Used by bindState's initial materialization and by the delayed
// transactional reset of spec §4.6 step 3 ("delete the XML fragment's
// contents and then aem2doc").
func (d *Doc) SetTree(root *docmodel.Node) error {
	if err := d.engine.Path(rootPath).Set(nodeToInterface(root)); err != nil {
		return fmt.Errorf("set document tree: %w", err)
	}
	if _, err := d.engine.Commit("update document", automerge.CommitOptions{AllowEmpty: true}); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecordError writes the given error into the document's "error" map,
// per spec §4.6/§7 (fields: timestamp, message, stack).
func (d *Doc) RecordError(timestamp, message, stack string) error {
	fields := map[string]interface{}{
		"timestamp": timestamp,
		"message":   message,
		"stack":     stack,
	}
	if err := d.engine.Path(errorMapPath).Set(fields); err != nil {
		return fmt.Errorf("set error map: %w", err)
	}
	if _, err := d.engine.Commit("record error", automerge.CommitOptions{AllowEmpty: true}); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
