package dialplan

import "testing"

func TestValidNumber(t *testing.T) {
	cases := []struct {
		tn   string
		want bool
	}{
		{"2025551234", true},
		{"9995551234", true},
		{"1025551234", false}, // leading 1
		{"0225551234", false}, // leading 0
		{"202555123", false},  // 9 digits
		{"20255512345", false}, // 11 digits
		{"202555123a", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidNumber(tc.tn); got != tc.want {
			t.Errorf("ValidNumber(%q) = %v, want %v", tc.tn, got, tc.want)
		}
	}
}

func TestResolveUnmatchedPairsAreNoOps(t *testing.T) {
	states := []ClientState{
		StateDisconnected, StateIdleInvalid, StateIdleValid,
		StateIncoming, StateOutgoing, StateTalking,
	}
	events := []Event{
		EventClientConnected, EventGoodTN, EventBadTN,
		EventCallIn, EventFarAnswer, EventFarAbandon, EventCallButton,
	}

	matched := 0
	for _, s := range states {
		for _, e := range events {
			tr, ok := Resolve(s, e, true)
			if ok {
				matched++
				continue
			}
			if tr.Next != s {
				t.Errorf("Resolve(%s, %s) unmatched but state changed to %s", s, e, tr.Next)
			}
			if tr.Emit != ActionNone {
				t.Errorf("Resolve(%s, %s) unmatched but emitted %q", s, e, tr.Emit)
			}
		}
	}
	if matched != TransitionCount() {
		t.Fatalf("matched %d pairs, table defines %d", matched, TransitionCount())
	}
}

func TestOutboundHappyPath(t *testing.T) {
	steps := []struct {
		event       Event
		numberValid bool
		wantState   ClientState
		wantEmit    Action
	}{
		{EventClientConnected, false, StateIdleInvalid, ActionNone},
		{EventGoodTN, true, StateIdleValid, ActionNone}, // digits "2025551234" entered
		{EventCallButton, true, StateOutgoing, ActionCalling},
		{EventFarAnswer, true, StateTalking, ActionNone},
		{EventCallButton, true, StateIdleValid, ActionHangingUp},
	}

	state := StateDisconnected
	for i, step := range steps {
		tr, ok := Resolve(state, step.event, step.numberValid)
		if !ok {
			t.Fatalf("step %d: Resolve(%s, %s) unmatched", i, state, step.event)
		}
		if tr.Next != step.wantState {
			t.Fatalf("step %d: next = %s, want %s", i, tr.Next, step.wantState)
		}
		if tr.Emit != step.wantEmit {
			t.Fatalf("step %d: emit = %q, want %q", i, tr.Emit, step.wantEmit)
		}
		state = tr.Next
	}
}

func TestValidityCorrection(t *testing.T) {
	// Table resolves IdleInvalid -> IdleValid on GoodTN, but the buffer is
	// invalid at that instant: the override lands back in IdleInvalid.
	tr, ok := Resolve(StateIdleInvalid, EventGoodTN, false)
	if !ok {
		t.Fatalf("Resolve() unmatched")
	}
	if tr.Next != StateIdleInvalid {
		t.Fatalf("next = %s, want %s", tr.Next, StateIdleInvalid)
	}

	// And the other direction: a resolved IdleInvalid with a valid buffer.
	tr, ok = Resolve(StateIdleValid, EventBadTN, true)
	if !ok {
		t.Fatalf("Resolve() unmatched")
	}
	if tr.Next != StateIdleValid {
		t.Fatalf("next = %s, want %s", tr.Next, StateIdleValid)
	}

	// Hanging up with an empty buffer settles in IdleInvalid, not IdleValid.
	tr, ok = Resolve(StateTalking, EventFarAbandon, false)
	if !ok {
		t.Fatalf("Resolve() unmatched")
	}
	if tr.Next != StateIdleInvalid {
		t.Fatalf("next = %s, want %s", tr.Next, StateIdleInvalid)
	}
}

func TestIncomingCallFromEitherIdleState(t *testing.T) {
	for _, s := range []ClientState{StateIdleInvalid, StateIdleValid} {
		tr, ok := Resolve(s, EventCallIn, false)
		if !ok {
			t.Fatalf("Resolve(%s, callIn) unmatched", s)
		}
		if tr.Next != StateIncoming {
			t.Fatalf("Resolve(%s, callIn) next = %s, want %s", s, tr.Next, StateIncoming)
		}
	}

	// A duplicate callIn while already ringing has no table entry.
	if _, ok := Resolve(StateIncoming, EventCallIn, false); ok {
		t.Fatalf("Resolve(incoming, callIn) should be unmatched")
	}
}
