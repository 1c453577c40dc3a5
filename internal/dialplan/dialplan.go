// Package dialplan holds the pure call-control rules shared by the webphone
// client: telephone-number validity and the client state-transition table.
package dialplan

import "regexp"

// ClientState is the browser-side call state.
type ClientState string

const (
	StateDisconnected ClientState = "disconnected"
	StateIdleInvalid  ClientState = "idleInvalid"
	StateIdleValid    ClientState = "idleValid"
	StateIncoming     ClientState = "incoming"
	StateOutgoing     ClientState = "outgoing"
	StateTalking      ClientState = "talking"
)

// Event is something that happens to the client: a transport message, a
// validity change of the dial buffer, or the call button.
type Event string

const (
	EventClientConnected Event = "clientConnected"
	EventGoodTN          Event = "goodTn"
	EventBadTN           Event = "badTn"
	EventCallIn          Event = "callIn"
	EventFarAnswer       Event = "farAnswer"
	EventFarAbandon      Event = "farAbandon"
	EventCallButton      Event = "callButton"
)

// Action is the system action a transition asks the client to send to the
// server before the local state changes. Values match the client-to-server
// wire vocabulary.
type Action string

const (
	ActionNone      Action = ""
	ActionCalling   Action = "calling"
	ActionAnswering Action = "answering"
	ActionHangingUp Action = "hangingUp"
)

// Transition is the resolved outcome of an event in a given state.
type Transition struct {
	Next ClientState
	Emit Action
}

type transitionKey struct {
	state ClientState
	event Event
}

var transitions = map[transitionKey]Transition{
	{StateDisconnected, EventClientConnected}: {Next: StateIdleInvalid},

	{StateIdleInvalid, EventGoodTN}: {Next: StateIdleValid},
	{StateIdleValid, EventBadTN}:    {Next: StateIdleInvalid},
	{StateIdleInvalid, EventBadTN}:  {Next: StateIdleInvalid},

	{StateIdleValid, EventCallIn}:   {Next: StateIncoming},
	{StateIdleInvalid, EventCallIn}: {Next: StateIncoming},
	{StateOutgoing, EventFarAnswer}: {Next: StateTalking},
	{StateIncoming, EventFarAbandon}: {Next: StateIdleValid},
	{StateTalking, EventFarAbandon}:  {Next: StateIdleValid},

	{StateIdleValid, EventCallButton}: {Next: StateOutgoing, Emit: ActionCalling},
	{StateIncoming, EventCallButton}:  {Next: StateTalking, Emit: ActionAnswering},
	{StateOutgoing, EventCallButton}:  {Next: StateIdleValid, Emit: ActionHangingUp},
	{StateTalking, EventCallButton}:   {Next: StateIdleValid, Emit: ActionHangingUp},
}

// TransitionCount reports how many (state, event) pairs the table defines.
func TransitionCount() int { return len(transitions) }

// Resolve looks up (state, event). An unmatched pair leaves the state
// unchanged, emits nothing and reports ok=false; the caller logs it.
//
// A matched idle result is corrected against the dial buffer's current
// validity: a resolved IdleValid with an invalid buffer lands in IdleInvalid
// and vice versa. This keeps the table free of a full cross product of states
// for every validity edge.
func Resolve(state ClientState, event Event, numberValid bool) (Transition, bool) {
	t, ok := transitions[transitionKey{state: state, event: event}]
	if !ok {
		return Transition{Next: state}, false
	}
	switch {
	case t.Next == StateIdleValid && !numberValid:
		t.Next = StateIdleInvalid
	case t.Next == StateIdleInvalid && numberValid:
		t.Next = StateIdleValid
	}
	return t, true
}

var subscriberNumber = regexp.MustCompile(`^[2-9][0-9]{9}$`)

// ValidNumber reports whether tn is a dialable North-American-style
// subscriber number: exactly 10 digits with a leading digit of 2-9.
func ValidNumber(tn string) bool {
	return subscriberNumber.MatchString(tn)
}

// StateLabel maps states to the human-readable text shown in a UI. The wire
// values above stay stable even if these labels change.
var StateLabel = map[ClientState]string{
	StateDisconnected: "Idle - Disconnected",
	StateIdleInvalid:  "Idle - TN Invalid",
	StateIdleValid:    "Idle - TN Valid",
	StateIncoming:     "Receiving Call",
	StateOutgoing:     "Placing Call",
	StateTalking:      "Talking",
}
