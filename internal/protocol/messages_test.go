package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseClientAction(t *testing.T) {
	raw := []byte(`{"event":"calling","body":{"tn":"2025551234"}}`)
	action, err := ParseClientAction(raw)
	if err != nil {
		t.Fatalf("ParseClientAction() error = %v", err)
	}
	if action.Event != ActionCalling {
		t.Fatalf("Event = %q, want %q", action.Event, ActionCalling)
	}
	if action.Body.TN != "2025551234" {
		t.Fatalf("TN = %q, want %q", action.Body.TN, "2025551234")
	}
}

func TestParseClientActionUnknownEvent(t *testing.T) {
	_, err := ParseClientAction([]byte(`{"event":"teleport","body":{}}`))
	if !errors.Is(err, ErrUnsupportedEvent) {
		t.Fatalf("error = %v, want ErrUnsupportedEvent", err)
	}
}

func TestParseClientActionRegistrationReserved(t *testing.T) {
	action, err := ParseClientAction([]byte(`{"event":"registration","body":{}}`))
	if err != nil {
		t.Fatalf("ParseClientAction() error = %v", err)
	}
	if action.Event != ActionRegistration {
		t.Fatalf("Event = %q, want %q", action.Event, ActionRegistration)
	}
}

func TestServerEventWireShape(t *testing.T) {
	raw, err := json.Marshal(ClientConnected("+15552223333", "jwt-token"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"event":"clientConnected","body":{"tn":"+15552223333","token":"jwt-token"}}`
	if string(raw) != want {
		t.Fatalf("wire = %s, want %s", raw, want)
	}

	raw, err = json.Marshal(FarAbandon())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want = `{"event":"farAbandon","body":{}}`
	if string(raw) != want {
		t.Fatalf("wire = %s, want %s", raw, want)
	}
}

func TestParseServerEventRoundTrip(t *testing.T) {
	raw := []byte(`{"event":"callIn","body":{"tn":"+12025551234"}}`)
	evt, err := ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("ParseServerEvent() error = %v", err)
	}
	if evt.Event != EventCallIn || evt.Body.TN != "+12025551234" {
		t.Fatalf("unexpected event: %+v", evt)
	}

	if _, err := ParseServerEvent([]byte(`{"event":"mystery"}`)); !errors.Is(err, ErrUnsupportedEvent) {
		t.Fatalf("error = %v, want ErrUnsupportedEvent", err)
	}
}
