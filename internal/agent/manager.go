package agent

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/bandwidth-samples/webrtc-webphone/internal/bandwidth"
	"github.com/bandwidth-samples/webrtc-webphone/internal/config"
	"github.com/bandwidth-samples/webrtc-webphone/internal/observability"
	"github.com/bandwidth-samples/webrtc-webphone/internal/protocol"
)

const multipleClientsMessage = "Multiple Web Clients not Supported"

// Manager is the capacity-one session registry and the orchestration engine
// behind it. Every mutation of the session funnels through its mutex: browser
// actions arrive serialized on one websocket, but webhook callbacks arrive
// concurrently and in orders this service does not control.
type Manager struct {
	cfg     config.Config
	media   MediaPlatform
	voice   VoicePlatform
	metrics *observability.Metrics

	mu   sync.Mutex
	sess *Session
}

func NewManager(cfg config.Config, media MediaPlatform, voice VoicePlatform, metrics *observability.Metrics) *Manager {
	return &Manager{cfg: cfg, media: media, voice: voice, metrics: metrics}
}

// Snapshot returns a copy of the current session for inspection.
func (m *Manager) Snapshot() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return Session{State: StateDetached}, false
	}
	s := *m.sess
	if m.sess.Tunnel != nil {
		t := *m.sess.Tunnel
		s.Tunnel = &t
	}
	if m.sess.FarEnd != nil {
		f := *m.sess.FarEnd
		s.FarEnd = &f
	}
	return s, true
}

// Accept admits a newly connected browser client. While a session is live any
// further connection is refused with a notification and a channel close; the
// existing session is untouched. Otherwise the client's endpoint identity and
// media session are provisioned and announced over the channel. The caller is
// expected to start the voice tunnel asynchronously after a successful accept.
func (m *Manager) Accept(ctx context.Context, ch ClientChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess != nil && m.sess.State != StateDetached {
		log.Printf("agent: refusing a second web client")
		if err := ch.Send(protocol.ClientDisconnected(m.cfg.ServiceNumber, multipleClientsMessage)); err != nil {
			log.Printf("agent: refusal notification failed: %v", err)
		}
		ch.Close()
		m.metrics.SessionEvents.WithLabelValues("rejected").Inc()
		return ErrSessionConflict
	}

	p, err := m.media.CreateParticipant(ctx, "web-phone-browser")
	if err != nil {
		ch.Close()
		m.metrics.PlatformErrors.WithLabelValues("media", "create_participant").Inc()
		return fmt.Errorf("provision agent endpoint: %w", err)
	}
	if p.ID == "" || p.Token == "" {
		ch.Close()
		return ErrNoIdentity
	}

	// Reuse a media session if one is already known from a previous
	// attachment; otherwise create one.
	mediaSessionID := ""
	if m.sess != nil {
		mediaSessionID = m.sess.MediaSessionID
	}
	if mediaSessionID == "" {
		mediaSessionID, err = m.media.CreateSession(ctx, "web-phone-"+uuid.NewString())
		if err != nil {
			ch.Close()
			m.metrics.PlatformErrors.WithLabelValues("media", "create_session").Inc()
			return fmt.Errorf("create media session: %w", err)
		}
		if mediaSessionID == "" {
			ch.Close()
			return ErrNoIdentity
		}
	}
	if err := m.media.AddParticipantToSession(ctx, mediaSessionID, p.ID); err != nil {
		ch.Close()
		m.metrics.PlatformErrors.WithLabelValues("media", "add_participant").Inc()
		return fmt.Errorf("join media session: %w", err)
	}

	m.sess = &Session{
		State:          StateWebAttached,
		Channel:        ch,
		Agent:          p,
		MediaSessionID: mediaSessionID,
	}
	m.metrics.ActiveSessions.Set(1)
	m.metrics.SessionEvents.WithLabelValues("attached").Inc()
	m.sendLocked(protocol.ClientConnected(m.cfg.ServiceNumber, p.Token))
	log.Printf("agent: attached participant=%s mediaSession=%s", p.ID, mediaSessionID)
	return nil
}

// HandleAction dispatches one client request read off the transport channel.
func (m *Manager) HandleAction(ctx context.Context, action protocol.ClientAction) {
	switch action.Event {
	case protocol.ActionCalling:
		if action.Body.TN == "" {
			log.Printf("agent: calling action without a number")
			return
		}
		if err := m.PlaceCall(ctx, action.Body.TN); err != nil {
			log.Printf("agent: place call failed: %v", err)
		}
	case protocol.ActionAnswering:
		m.Answer(ctx)
	case protocol.ActionHangingUp:
		m.HangUp(ctx)
	case protocol.ActionRegistration:
		log.Printf("agent: registration action received (reserved, ignored)")
	default:
		log.Printf("agent: client action not recognized: %q", action.Event)
	}
}

// Teardown releases everything the session holds: the tunnel, the client's
// endpoint identity and the media session. Each step is independently
// best-effort; a resource the platform no longer knows counts as already
// cleaned up and any other error is logged without aborting the remaining
// steps.
func (m *Manager) Teardown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return
	}
	log.Printf("agent: tearing down session")

	m.teardownTunnelLocked(ctx)

	if m.sess.Agent.ID != "" {
		if err := m.media.DeleteParticipant(ctx, m.sess.Agent.ID); err != nil {
			if bandwidth.IsNotFound(err) {
				log.Printf("agent: participant %s already removed", m.sess.Agent.ID)
			} else {
				log.Printf("agent: delete participant %s failed: %v", m.sess.Agent.ID, err)
				m.metrics.PlatformErrors.WithLabelValues("media", "delete_participant").Inc()
			}
		}
	}
	if m.sess.MediaSessionID != "" {
		if err := m.media.DeleteSession(ctx, m.sess.MediaSessionID); err != nil {
			if bandwidth.IsNotFound(err) {
				log.Printf("agent: media session %s already removed", m.sess.MediaSessionID)
			} else {
				log.Printf("agent: delete media session %s failed: %v", m.sess.MediaSessionID, err)
				m.metrics.PlatformErrors.WithLabelValues("media", "delete_session").Inc()
			}
		}
	}

	m.sess = nil
	m.metrics.ActiveSessions.Set(0)
	m.metrics.SessionEvents.WithLabelValues("detached").Inc()
}

func (m *Manager) sendLocked(evt protocol.ServerEvent) {
	if m.sess == nil || m.sess.Channel == nil {
		log.Printf("agent: no channel to deliver %s", evt.Event)
		return
	}
	if err := m.sess.Channel.Send(evt); err != nil {
		log.Printf("agent: notify %s failed: %v", evt.Event, err)
		return
	}
	m.metrics.WSMessages.WithLabelValues("outbound", string(evt.Event)).Inc()
}
