package agent

import (
	"context"
	"log"

	"github.com/bandwidth-samples/webrtc-webphone/internal/bandwidth"
	"github.com/bandwidth-samples/webrtc-webphone/internal/protocol"
)

// PlaceCall originates the far-end call toward the dialed ten-digit number.
// The tunnel is not touched yet; bridging waits for the far end to answer.
func (m *Manager) PlaceCall(ctx context.Context, tn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil || m.sess.State == StateDetached {
		return ErrNoSession
	}
	if m.sess.FarEnd != nil {
		log.Printf("agent: call already in progress to %s, ignoring dial to %s", m.sess.FarEnd.TN, tn)
		return nil
	}

	callID, err := m.voice.CreateCall(ctx, bandwidth.CreateCallRequest{
		From:          m.cfg.ServiceNumber,
		To:            "+1" + tn,
		CallTimeout:   int(m.cfg.FarEndCallTimeout.Seconds()),
		AnswerURL:     m.cfg.CallbackURL(CallAnswerPath),
		DisconnectURL: m.cfg.CallbackURL(CallStatusPath),
		ApplicationID: m.cfg.ApplicationID,
	})
	if err != nil {
		m.metrics.PlatformErrors.WithLabelValues("voice", "create_call").Inc()
		return err
	}

	m.sess.FarEnd = &FarEnd{CallID: callID, TN: tn}
	m.sess.State = StatePlacingCall
	log.Printf("agent: dialing +1%s callId=%s", tn, callID)
	return nil
}

// Answer accepts a ringing inbound call by bridging the tunnel onto it. The
// inbound leg itself was answered by the platform when it first hit the
// incoming-call webhook; all that remains is the redirect.
func (m *Manager) Answer(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil || m.sess.FarEnd == nil {
		log.Printf("agent: answer with no ringing call")
		return
	}
	if m.redirectTunnelLocked(ctx) {
		m.sess.State = StateTalking
	}
}

// HangUp ends the far-end call at the client's request. The tunnel stays up;
// the platform parks it again through the bridge-complete callback.
func (m *Manager) HangUp(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil || m.sess.FarEnd == nil {
		log.Printf("agent: hangup with no call in progress")
		return
	}
	m.completeFarEndLocked(ctx)
	m.sess.State = StateWebAttached
}

// OnFarEndAnswer handles the answer callback for an outbound far-end call.
// The tunnel is redirected to bridge and the answered leg parks until the
// bridge callback lands. A callback for a call this session is not placing is
// answered with a hangup.
func (m *Manager) OnFarEndAnswer(ctx context.Context, callID, to string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil || m.sess.FarEnd == nil || m.sess.FarEnd.CallID != callID {
		log.Printf("agent: answer callback for unknown call %s, hanging it up", callID)
		return bandwidth.BXML(bandwidth.Hangup{})
	}

	m.redirectTunnelLocked(ctx)
	m.sess.State = StateTalking
	m.sendLocked(protocol.FarAnswer(to))
	log.Printf("agent: far end answered callId=%s", callID)
	return bandwidth.BXML(bandwidth.Pause{Duration: longParkSeconds})
}

// OnIncomingCall handles an inbound call to the service number. With no agent
// attached or no tunnel to bridge through, the caller hears a short apology
// and is released. Otherwise the call is held briefly while the client is
// offered the call; the real park happens when the client answers.
func (m *Manager) OnIncomingCall(ctx context.Context, callID, from string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil || m.sess.State == StateDetached || m.sess.Tunnel == nil || m.sess.Tunnel.CallID == "" {
		log.Printf("agent: inbound call from %s with nobody home", from)
		return bandwidth.BXML(
			bandwidth.Pause{Duration: 1},
			bandwidth.SpeakSentence{Sentence: "Nobody is home"},
			bandwidth.Hangup{},
		)
	}
	if m.sess.FarEnd != nil {
		log.Printf("agent: inbound call from %s while busy with %s", from, m.sess.FarEnd.TN)
		return bandwidth.BXML(
			bandwidth.Pause{Duration: 1},
			bandwidth.SpeakSentence{Sentence: "Nobody is home"},
			bandwidth.Hangup{},
		)
	}

	m.sess.FarEnd = &FarEnd{CallID: callID, TN: from}
	m.sess.State = StateReceivingCall
	m.sendLocked(protocol.CallIn(from))
	log.Printf("agent: inbound call from %s callId=%s, offering to client", from, callID)
	return bandwidth.BXML(bandwidth.Pause{Duration: incomingParkSeconds})
}

// OnDisconnect handles the far-end call's disconnect callback. Disconnects
// for calls this session no longer tracks are stale and ignored.
func (m *Manager) OnDisconnect(ctx context.Context, callID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil || m.sess.FarEnd == nil {
		log.Printf("agent: disconnect for call %s with no call tracked", callID)
		return
	}
	if m.sess.FarEnd.CallID != callID {
		log.Printf("agent: stale disconnect for call %s, current is %s", callID, m.sess.FarEnd.CallID)
		return
	}

	m.completeFarEndLocked(ctx)
	m.sess.State = StateWebAttached
	m.sendLocked(protocol.FarAbandon())
	log.Printf("agent: far end disconnected callId=%s", callID)
}

// completeFarEndLocked completes the far-end call on the platform and stops
// tracking it. "Not found" means the call already ended on its own.
func (m *Manager) completeFarEndLocked(ctx context.Context) {
	f := m.sess.FarEnd
	if f == nil {
		return
	}
	if f.CallID != "" {
		err := m.voice.UpdateCall(ctx, f.CallID, bandwidth.UpdateCallRequest{State: bandwidth.CallStateCompleted})
		switch {
		case err == nil:
			log.Printf("agent: call %s completed", f.CallID)
		case bandwidth.IsNotFound(err):
			log.Printf("agent: call %s already ended", f.CallID)
		default:
			log.Printf("agent: complete call %s failed: %v", f.CallID, err)
			m.metrics.PlatformErrors.WithLabelValues("voice", "update_call").Inc()
		}
	}
	m.sess.FarEnd = nil
}
