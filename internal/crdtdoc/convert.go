package crdtdoc

import "github.com/astromechza/da-collab/internal/docmodel"

// nodeToInterface flattens a structured-document node into the plain
// map/slice shape automerge-go's Path(...).Set accepts (mirroring how the
// teacher's own code hands automerge.Doc a map[string]interface{}).
func nodeToInterface(n *docmodel.Node) map[string]interface{} {
	if n == nil {
		return map[string]interface{}{"type": docmodel.TypeDoc}
	}
	out := map[string]interface{}{"type": n.Type}
	if n.Text != "" || n.Type == docmodel.TypeText {
		out["text"] = n.Text
	}
	if len(n.Attrs) > 0 {
		attrs := make(map[string]interface{}, len(n.Attrs))
		for k, v := range n.Attrs {
			attrs[k] = v
		}
		out["attrs"] = attrs
	}
	if len(n.Marks) > 0 {
		marks := make([]interface{}, len(n.Marks))
		for i, m := range n.Marks {
			mm := map[string]interface{}{"type": m.Type}
			if len(m.Attrs) > 0 {
				attrs := make(map[string]interface{}, len(m.Attrs))
				for k, v := range m.Attrs {
					attrs[k] = v
				}
				mm["attrs"] = attrs
			}
			marks[i] = mm
		}
		out["marks"] = marks
	}
	if len(n.Content) > 0 {
		content := make([]interface{}, len(n.Content))
		for i, c := range n.Content {
			content[i] = nodeToInterface(c)
		}
		out["content"] = content
	}
	return out
}

// interfaceToNode is the inverse of nodeToInterface, rebuilding the
// structured document tree from the generic value automerge-go's
// Path(...).Get().Interface() returns.
func interfaceToNode(raw interface{}) *docmodel.Node {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	n := &docmodel.Node{}
	if t, ok := m["type"].(string); ok {
		n.Type = t
	}
	if t, ok := m["text"].(string); ok {
		n.Text = t
	}
	if attrsRaw, ok := m["attrs"].(map[string]interface{}); ok {
		n.Attrs = make(map[string]string, len(attrsRaw))
		for k, v := range attrsRaw {
			if s, ok := v.(string); ok {
				n.Attrs[k] = s
			}
		}
	}
	if marksRaw, ok := m["marks"].([]interface{}); ok {
		for _, mr := range marksRaw {
			mm, ok := mr.(map[string]interface{})
			if !ok {
				continue
			}
			mk := docmodel.Mark{}
			if t, ok := mm["type"].(string); ok {
				mk.Type = t
			}
			if attrsRaw, ok := mm["attrs"].(map[string]interface{}); ok {
				mk.Attrs = make(map[string]string, len(attrsRaw))
				for k, v := range attrsRaw {
					if s, ok := v.(string); ok {
						mk.Attrs[k] = s
					}
				}
			}
			n.Marks = append(n.Marks, mk)
		}
	}
	if contentRaw, ok := m["content"].([]interface{}); ok {
		for _, cr := range contentRaw {
			if c := interfaceToNode(cr); c != nil {
				n.Content = append(n.Content, c)
			}
		}
	}
	return n
}
