// Package agent owns the server side of the webphone: the single agent
// session, the media endpoints provisioned for it, the voice tunnel that
// interconnects the media session with the telephone network, and the far-end
// call currently in progress.
package agent

import (
	"context"
	"errors"

	"github.com/bandwidth-samples/webrtc-webphone/internal/bandwidth"
	"github.com/bandwidth-samples/webrtc-webphone/internal/protocol"
)

// State is the lifecycle state of the agent session.
type State string

const (
	StateDetached      State = "detached"
	StateWebAttached   State = "webAttached"
	StatePlacingCall   State = "placingCall"
	StateReceivingCall State = "receivingCall"
	StateTalking       State = "talking"
)

// TunnelState tracks which callback the tunnel call expects next. Callbacks
// arriving in any other state are logged and answered defensively rather than
// trusted.
type TunnelState string

const (
	// TunnelOriginating: the interconnect call has been placed; the next
	// expected callback is its answer.
	TunnelOriginating TunnelState = "originating"
	// TunnelParked: the call is answered and held open, ready to be bridged.
	TunnelParked TunnelState = "parked"
	// TunnelAwaitingBridge: a redirect was issued; the next expected callback
	// asks for the bridge instruction.
	TunnelAwaitingBridge TunnelState = "awaitingBridge"
	// TunnelBridged: audio is flowing between the tunnel and the far end.
	TunnelBridged TunnelState = "bridged"
)

// Tunnel is the telephone call this service originates purely to interconnect
// the media session with the voice network.
type Tunnel struct {
	Participant bandwidth.Participant
	CallID      string
	State       TunnelState
}

// FarEnd is the actual telephone call leg to the other party.
type FarEnd struct {
	CallID string
	TN     string
}

// ClientChannel is the transport back to the one connected browser client.
type ClientChannel interface {
	Send(evt protocol.ServerEvent) error
	Close()
}

// Session is the one agent session this process permits. It lives from the
// accepted websocket connection until channel close or process shutdown;
// nothing about it survives a restart.
type Session struct {
	State          State
	Channel        ClientChannel
	Agent          bandwidth.Participant
	MediaSessionID string
	Tunnel         *Tunnel
	FarEnd         *FarEnd
}

var (
	// ErrSessionConflict: a second client connected while a session was live.
	ErrSessionConflict = errors.New("an agent session is already attached")
	// ErrNoIdentity: the media platform returned a participant without a
	// usable id or token. Unrecoverable at session setup.
	ErrNoIdentity = errors.New("media platform returned no usable endpoint identity")
	// ErrNoSession: an operation that requires an attached session found none.
	ErrNoSession = errors.New("no agent session attached")
)

// MediaPlatform is the subset of the media control plane the agent needs.
type MediaPlatform interface {
	CreateParticipant(ctx context.Context, tag string) (bandwidth.Participant, error)
	CreateSession(ctx context.Context, tag string) (string, error)
	AddParticipantToSession(ctx context.Context, sessionID, participantID string) error
	DeleteParticipant(ctx context.Context, participantID string) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// VoicePlatform is the subset of the voice control plane the agent needs.
type VoicePlatform interface {
	CreateCall(ctx context.Context, req bandwidth.CreateCallRequest) (string, error)
	UpdateCall(ctx context.Context, callID string, req bandwidth.UpdateCallRequest) error
}
