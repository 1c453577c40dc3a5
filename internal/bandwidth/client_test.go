package bandwidth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMediaClientCreateParticipant(t *testing.T) {
	var gotPath, gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		user, pass, _ := r.BasicAuth()
		gotAuth = user + ":" + pass

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["deviceApiVersion"] != "V3" {
			t.Errorf("deviceApiVersion = %v, want V3", req["deviceApiVersion"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"participant": map[string]any{"id": "p-123"},
			"token":       "jwt-abc",
		})
	}))
	defer ts.Close()

	c := NewMediaClient("900", "user", "pass", ts.URL)
	p, err := c.CreateParticipant(context.Background(), "web-phone-browser")
	if err != nil {
		t.Fatalf("CreateParticipant() error = %v", err)
	}
	if p.ID != "p-123" || p.Token != "jwt-abc" {
		t.Fatalf("participant = %+v", p)
	}
	if gotPath != "POST /accounts/900/participants" {
		t.Fatalf("request = %q", gotPath)
	}
	if gotAuth != "user:pass" {
		t.Fatalf("auth = %q", gotAuth)
	}
}

func TestMediaClientDeleteNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such participant", http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewMediaClient("900", "user", "pass", ts.URL)
	err := c.DeleteParticipant(context.Background(), "p-gone")
	if err == nil {
		t.Fatalf("DeleteParticipant() expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound(%v) = false, want true", err)
	}
}

func TestVoiceClientCreateCall(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/900/calls" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req CreateCallRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.To != "+12025551234" || req.CallTimeout != 90 {
			t.Errorf("request = %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"callId": "c-42"})
	}))
	defer ts.Close()

	c := NewVoiceClient("900", "user", "pass", ts.URL)
	callID, err := c.CreateCall(context.Background(), CreateCallRequest{
		From:          "+15552223333",
		To:            "+12025551234",
		CallTimeout:   90,
		AnswerURL:     "https://example.test/callAnswer",
		ApplicationID: "app-1",
	})
	if err != nil {
		t.Fatalf("CreateCall() error = %v", err)
	}
	if callID != "c-42" {
		t.Fatalf("callID = %q, want c-42", callID)
	}
}

func TestVoiceClientUpdateCallErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "call state conflict", http.StatusConflict)
	}))
	defer ts.Close()

	c := NewVoiceClient("900", "user", "pass", ts.URL)
	err := c.UpdateCall(context.Background(), "c-42", UpdateCallRequest{State: CallStateCompleted})
	if err == nil {
		t.Fatalf("UpdateCall() expected error")
	}
	if IsNotFound(err) {
		t.Fatalf("409 must not be treated as not-found")
	}
}
