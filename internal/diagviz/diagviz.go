// Package diagviz renders a document's automerge change graph to SVG, for
// the operator-facing debug route of SPEC_FULL.md's supplemental section:
// one node per change, labelled with the decoded structured-document root
// at that change, edges per dependency.
package diagviz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/astromechza/da-collab/internal/crdtdoc"
)

// rootPath mirrors crdtdoc's own structured-document key, so the rendered
// label shows the same tree the coordinator operates on.
const rootPath = "prosemirror"

// RenderSVG renders doc's full change history to an SVG change graph.
func RenderSVG(doc *crdtdoc.Doc) ([]byte, error) {
	engine := doc.Engine()
	g := graphviz.New()

	graph, err := g.Graph()
	if err != nil {
		return nil, fmt.Errorf("setup graph: %w", err)
	}

	changes, err := engine.Changes()
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}

	nodeMap := make(map[string]*cgraph.Node, len(changes))
	var edgeCounter uint64
	for _, change := range changes {
		at, err := engine.Fork(change.Hash())
		if err != nil {
			return nil, fmt.Errorf("checkout %s: %w", change.Hash(), err)
		}

		var raw interface{}
		if value, err := at.Path(rootPath).Get(); err == nil {
			raw = value.Interface()
		}
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("marshal change %s: %w", change.Hash(), err)
		}

		n, err := graph.CreateNode(change.Hash().String())
		if err != nil {
			return nil, fmt.Errorf("create node: %w", err)
		}
		n.SetLabel(fmt.Sprintf("%s %s@%d %s", change.Hash().String()[:8], change.ActorID(), change.ActorSeq(), truncate(string(encoded), 120)))
		nodeMap[n.Name()] = n

		for _, dep := range change.Dependencies() {
			parent, ok := nodeMap[dep.String()]
			if !ok {
				continue
			}
			if _, err := graph.CreateEdge(strconv.FormatUint(atomic.AddUint64(&edgeCounter, 1), 10), parent, n); err != nil {
				return nil, fmt.Errorf("create edge: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := g.Render(graph, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render svg: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
