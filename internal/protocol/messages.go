// Package protocol defines the websocket message vocabulary exchanged between
// the webphone service and a browser client. Every message is a single
// {event, body} JSON object; there is no framing, acknowledgement or sequence
// numbering beyond what the websocket itself provides.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType identifies a server-to-client notification.
type EventType string

const (
	EventClientConnected    EventType = "clientConnected"
	EventClientDisconnected EventType = "clientDisconnected"
	EventCallIn             EventType = "callIn"
	EventFarAnswer          EventType = "farAnswer"
	EventFarAbandon         EventType = "farAbandon"
)

// ActionType identifies a client-to-server request.
type ActionType string

const (
	// ActionRegistration is reserved for future agent registration and is
	// ignored by the current call flow.
	ActionRegistration ActionType = "registration"
	ActionCalling      ActionType = "calling"
	ActionAnswering    ActionType = "answering"
	ActionHangingUp    ActionType = "hangingUp"
)

var ErrUnsupportedEvent = errors.New("unsupported message event")

type envelope struct {
	Event string `json:"event"`
}

// ServerEvent is a notification pushed to the browser client.
type ServerEvent struct {
	Event EventType `json:"event"`
	Body  EventBody `json:"body"`
}

// EventBody carries the event-specific fields; unused fields are omitted on
// the wire.
type EventBody struct {
	TN      string `json:"tn,omitempty"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// ClientAction is a request sent by the browser client.
type ClientAction struct {
	Event ActionType `json:"event"`
	Body  ActionBody `json:"body"`
}

type ActionBody struct {
	TN string `json:"tn,omitempty"`
}

func ClientConnected(tn, token string) ServerEvent {
	return ServerEvent{Event: EventClientConnected, Body: EventBody{TN: tn, Token: token}}
}

func ClientDisconnected(tn, message string) ServerEvent {
	return ServerEvent{Event: EventClientDisconnected, Body: EventBody{TN: tn, Message: message}}
}

func CallIn(tn string) ServerEvent {
	return ServerEvent{Event: EventCallIn, Body: EventBody{TN: tn}}
}

func FarAnswer(tn string) ServerEvent {
	return ServerEvent{Event: EventFarAnswer, Body: EventBody{TN: tn}}
}

func FarAbandon() ServerEvent {
	return ServerEvent{Event: EventFarAbandon}
}

// ParseClientAction decodes a raw client message and rejects unknown events.
func ParseClientAction(raw []byte) (ClientAction, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ClientAction{}, fmt.Errorf("invalid envelope: %w", err)
	}

	switch ActionType(env.Event) {
	case ActionRegistration, ActionCalling, ActionAnswering, ActionHangingUp:
		var action ClientAction
		if err := json.Unmarshal(raw, &action); err != nil {
			return ClientAction{}, err
		}
		return action, nil
	default:
		return ClientAction{}, fmt.Errorf("%w: %q", ErrUnsupportedEvent, env.Event)
	}
}

// ParseServerEvent decodes a raw server message on the client side.
func ParseServerEvent(raw []byte) (ServerEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ServerEvent{}, fmt.Errorf("invalid envelope: %w", err)
	}

	switch EventType(env.Event) {
	case EventClientConnected, EventClientDisconnected, EventCallIn, EventFarAnswer, EventFarAbandon:
		var evt ServerEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			return ServerEvent{}, err
		}
		return evt, nil
	default:
		return ServerEvent{}, fmt.Errorf("%w: %q", ErrUnsupportedEvent, env.Event)
	}
}
