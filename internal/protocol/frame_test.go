package protocol

import "testing"

func TestEncodeDecodeSync(t *testing.T) {
	raw := EncodeSync(SyncUpdate, []byte("payload"))
	frame, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if frame.Type != FrameSync {
		t.Fatalf("expected sync frame type, got %d", frame.Type)
	}
	subtype, msg, err := DecodeSyncBody(frame.Body)
	if err != nil {
		t.Fatalf("DecodeSyncBody: %v", err)
	}
	if subtype != SyncUpdate || string(msg) != "payload" {
		t.Fatalf("unexpected sync body: subtype=%d msg=%q", subtype, msg)
	}
}

func TestEncodeDecodeAwareness(t *testing.T) {
	raw := EncodeAwareness([]byte(`[{"clientID":1}]`))
	frame, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if frame.Type != FrameAwareness {
		t.Fatalf("expected awareness frame type, got %d", frame.Type)
	}
	if string(frame.Body) != `[{"clientID":1}]` {
		t.Fatalf("unexpected body: %q", frame.Body)
	}
}
