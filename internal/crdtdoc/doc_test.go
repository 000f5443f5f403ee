package crdtdoc

import (
	"testing"

	"github.com/astromechza/da-collab/internal/docmodel"
)

func TestSetTreeAndReadBack(t *testing.T) {
	doc := New()
	tree := docmodel.NewDoc(
		docmodel.NewBlock(docmodel.TypeParagraph, nil, docmodel.NewText("hello")),
	)
	if err := doc.SetTree(tree); err != nil {
		t.Fatalf("SetTree: %v", err)
	}
	got, err := doc.Tree()
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(got.Content) != 1 || got.Content[0].Type != docmodel.TypeParagraph {
		t.Fatalf("unexpected tree: %+v", got)
	}
	if len(got.Content[0].Content) != 1 || got.Content[0].Content[0].Text != "hello" {
		t.Fatalf("unexpected paragraph content: %+v", got.Content[0])
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	doc := New()
	tree := docmodel.NewDoc(docmodel.NewBlock(docmodel.TypeHorizontalRule, nil))
	if err := doc.SetTree(tree); err != nil {
		t.Fatalf("SetTree: %v", err)
	}
	state := doc.Save()

	reloaded, err := Load(state)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := reloaded.Tree()
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(got.Content) != 1 || got.Content[0].Type != docmodel.TypeHorizontalRule {
		t.Fatalf("unexpected reloaded tree: %+v", got)
	}
}

func TestPeerSyncExchange(t *testing.T) {
	a := New()
	if err := a.SetTree(docmodel.NewDoc(docmodel.NewBlock(docmodel.TypeParagraph, nil))); err != nil {
		t.Fatalf("SetTree: %v", err)
	}
	b := New()

	pa := a.NewPeerSync()
	pb := b.NewPeerSync()

	for i := 0; i < 4; i++ {
		for _, m := range pa.GenerateMessages() {
			if err := pb.ReceiveMessage(m); err != nil {
				t.Fatalf("b receive: %v", err)
			}
		}
		for _, m := range pb.GenerateMessages() {
			if err := pa.ReceiveMessage(m); err != nil {
				t.Fatalf("a receive: %v", err)
			}
		}
	}

	got, err := b.Tree()
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(got.Content) != 1 || got.Content[0].Type != docmodel.TypeParagraph {
		t.Fatalf("expected b to have synced a's paragraph, got %+v", got)
	}
}
