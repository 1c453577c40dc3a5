package agent

import (
	"context"
	"log"

	"github.com/bandwidth-samples/webrtc-webphone/internal/bandwidth"
)

// Webhook paths registered with the voice control plane. Each URL is a
// continuation point: the service cannot push instructions into an answered
// call, so the tunnel's behavior is expressed entirely as "what to answer
// when this URL is hit next". A URL must be set before its triggering event
// can occur.
const (
	TunnelAnswerPath = "/tunnelanswer"
	BridgePath       = "/bridgeTheTunnel"
	PausePath        = "/pauseTheTunnel"
	CallAnswerPath   = "/callAnswer"
	CallStatusPath   = "/callStatus"
	IncomingCallPath = "/incomingCall"
)

const (
	// longParkSeconds holds an answered call open awaiting the next callback.
	longParkSeconds = 3600
	// incomingParkSeconds only needs to outlive callback registration.
	incomingParkSeconds = 0.5
)

// EstablishTunnel provisions the tunnel endpoint identity, joins it to the
// media session and originates the interconnect call toward the SIP target,
// carrying the endpoint's access token as call metadata. Runs after a
// successful Accept, asynchronously to the websocket handshake. Failures are
// logged and abandoned; the session stays attached without a tunnel.
func (m *Manager) EstablishTunnel(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil || m.sess.State == StateDetached {
		log.Printf("agent: tunnel setup skipped, no attached session")
		return
	}
	if m.sess.Tunnel != nil {
		log.Printf("agent: tunnel already exists, callId=%s", m.sess.Tunnel.CallID)
		return
	}

	p, err := m.media.CreateParticipant(ctx, "tunnel-to-voice")
	if err != nil {
		log.Printf("agent: create tunnel participant failed: %v", err)
		m.metrics.PlatformErrors.WithLabelValues("media", "create_participant").Inc()
		return
	}
	if p.ID == "" || p.Token == "" {
		log.Printf("agent: tunnel participant came back without id or token")
		return
	}
	if err := m.media.AddParticipantToSession(ctx, m.sess.MediaSessionID, p.ID); err != nil {
		log.Printf("agent: add tunnel participant to session failed: %v", err)
		m.metrics.PlatformErrors.WithLabelValues("media", "add_participant").Inc()
		m.dropParticipantLocked(ctx, p.ID)
		return
	}

	answerURL := m.cfg.CallbackURL(TunnelAnswerPath)
	callID, err := m.voice.CreateCall(ctx, bandwidth.CreateCallRequest{
		From:            m.cfg.ServiceNumber,
		To:              m.cfg.SIPInterconnectURI,
		UUI:             p.Token + ";encoding=jwt",
		CallTimeout:     int(m.cfg.TunnelCallTimeout.Seconds()),
		CallbackTimeout: int(m.cfg.TunnelCallbackTimeout.Seconds()),
		AnswerURL:       answerURL,
		DisconnectURL:   answerURL,
		Tag:             p.ID,
		ApplicationID:   m.cfg.ApplicationID,
	})
	if err != nil {
		log.Printf("agent: originate tunnel call failed: %v", err)
		m.metrics.PlatformErrors.WithLabelValues("voice", "create_call").Inc()
		m.dropParticipantLocked(ctx, p.ID)
		return
	}

	m.sess.Tunnel = &Tunnel{Participant: p, CallID: callID, State: TunnelOriginating}
	log.Printf("agent: tunnel originated participant=%s callId=%s", p.ID, callID)
}

// OnTunnelAnswer handles the tunnel call's answer/disconnect callback. On
// answer the call is parked for up to an hour, open and idle until a bridge
// redirect arrives. Anything else means the tunnel call is gone; its endpoint
// identity is dropped.
func (m *Manager) OnTunnelAnswer(ctx context.Context, eventType, callID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil || m.sess.Tunnel == nil {
		log.Printf("agent: tunnel callback %q with no tunnel, callId=%s", eventType, callID)
		return "", nil
	}

	if eventType != "answer" {
		log.Printf("agent: tunnel callback %q, dropping tunnel callId=%s", eventType, callID)
		participantID := m.sess.Tunnel.Participant.ID
		m.sess.Tunnel = nil
		m.dropParticipantLocked(ctx, participantID)
		return "", nil
	}

	if m.sess.Tunnel.State != TunnelOriginating {
		log.Printf("agent: tunnel answer while in state %s, parking anyway", m.sess.Tunnel.State)
	}
	m.sess.Tunnel.State = TunnelParked
	log.Printf("agent: tunnel answered, parking callId=%s", m.sess.Tunnel.CallID)
	return bandwidth.BXML(bandwidth.Pause{Duration: longParkSeconds})
}

// OnBridgeTunnel handles the redirect continuation: the control plane is
// asking what the tunnel call should do next, and the answer is a bridge to
// the far-end call. A callback arriving without a far end, or in a tunnel
// state that never issued a redirect, is answered with a park instead.
func (m *Manager) OnBridgeTunnel(ctx context.Context, callID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil || m.sess.Tunnel == nil || m.sess.FarEnd == nil || m.sess.FarEnd.CallID == "" {
		log.Printf("agent: bridge callback with nothing to bridge, callId=%s", callID)
		return bandwidth.BXML(bandwidth.Pause{Duration: longParkSeconds})
	}
	if m.sess.Tunnel.State != TunnelAwaitingBridge {
		log.Printf("agent: unexpected bridge callback in tunnel state %s, parking", m.sess.Tunnel.State)
		return bandwidth.BXML(bandwidth.Pause{Duration: longParkSeconds})
	}

	m.sess.Tunnel.State = TunnelBridged
	log.Printf("agent: bridging tunnel call %s to far end %s", callID, m.sess.FarEnd.CallID)
	return bandwidth.BXML(bandwidth.Bridge{
		CallID:            m.sess.FarEnd.CallID,
		BridgeCompleteURL: m.cfg.CallbackURL(PausePath),
	})
}

// OnPauseTunnel handles the bridge-completion continuation: the far-end call
// ended, so the tunnel returns to its long park, idle and ready for the next
// call within the same session.
func (m *Manager) OnPauseTunnel(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess != nil && m.sess.Tunnel != nil {
		m.sess.Tunnel.State = TunnelParked
	}
	log.Printf("agent: parking the tunnel")
	return bandwidth.BXML(bandwidth.Pause{Duration: longParkSeconds})
}

// redirectTunnelLocked asks the control plane to invoke the bridge
// continuation on the tunnel call. Only a parked tunnel may be redirected: a
// second redirect while a previous bridge or park callback is still in flight
// would hand the control plane a stale continuation, so it is rejected.
func (m *Manager) redirectTunnelLocked(ctx context.Context) bool {
	t := m.sess.Tunnel
	if t == nil || t.CallID == "" {
		log.Printf("agent: bridge requested without a tunnel call")
		return false
	}
	if t.State != TunnelParked {
		log.Printf("agent: bridge redirect rejected, tunnel state=%s", t.State)
		return false
	}

	err := m.voice.UpdateCall(ctx, t.CallID, bandwidth.UpdateCallRequest{
		State:       bandwidth.CallStateActive,
		RedirectURL: m.cfg.CallbackURL(BridgePath),
	})
	if err != nil {
		log.Printf("agent: tunnel redirect failed: %v", err)
		m.metrics.PlatformErrors.WithLabelValues("voice", "update_call").Inc()
		return false
	}
	t.State = TunnelAwaitingBridge
	log.Printf("agent: tunnel %s redirected for bridging", t.CallID)
	return true
}

// teardownTunnelLocked completes the tunnel call and deletes its endpoint
// identity. "Not found" on either is already-clean.
func (m *Manager) teardownTunnelLocked(ctx context.Context) {
	t := m.sess.Tunnel
	if t == nil {
		return
	}
	if t.CallID != "" {
		err := m.voice.UpdateCall(ctx, t.CallID, bandwidth.UpdateCallRequest{State: bandwidth.CallStateCompleted})
		switch {
		case err == nil:
			log.Printf("agent: tunnel call %s completed", t.CallID)
		case bandwidth.IsNotFound(err):
			log.Printf("agent: tunnel call %s already gone", t.CallID)
		default:
			log.Printf("agent: complete tunnel call %s failed: %v", t.CallID, err)
			m.metrics.PlatformErrors.WithLabelValues("voice", "update_call").Inc()
		}
	}
	m.dropParticipantLocked(ctx, t.Participant.ID)
	m.sess.Tunnel = nil
}

func (m *Manager) dropParticipantLocked(ctx context.Context, participantID string) {
	if participantID == "" {
		return
	}
	if err := m.media.DeleteParticipant(ctx, participantID); err != nil {
		if bandwidth.IsNotFound(err) {
			log.Printf("agent: participant %s already removed", participantID)
			return
		}
		log.Printf("agent: delete participant %s failed: %v", participantID, err)
		m.metrics.PlatformErrors.WithLabelValues("media", "delete_participant").Inc()
	}
}
