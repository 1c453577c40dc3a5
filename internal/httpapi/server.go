// Package httpapi exposes the two faces of the webphone service: the
// websocket endpoint the browser client attaches to and the webhook endpoints
// the voice platform calls back on.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bandwidth-samples/webrtc-webphone/internal/agent"
	"github.com/bandwidth-samples/webrtc-webphone/internal/config"
	"github.com/bandwidth-samples/webrtc-webphone/internal/observability"
	"github.com/bandwidth-samples/webrtc-webphone/internal/protocol"
)

// AgentService is the orchestration surface the HTTP layer drives.
type AgentService interface {
	Accept(ctx context.Context, ch agent.ClientChannel) error
	EstablishTunnel(ctx context.Context)
	HandleAction(ctx context.Context, action protocol.ClientAction)
	Teardown(ctx context.Context)

	OnTunnelAnswer(ctx context.Context, eventType, callID string) (string, error)
	OnBridgeTunnel(ctx context.Context, callID string) (string, error)
	OnPauseTunnel(ctx context.Context) (string, error)
	OnFarEndAnswer(ctx context.Context, callID, to string) (string, error)
	OnIncomingCall(ctx context.Context, callID, from string) (string, error)
	OnDisconnect(ctx context.Context, callID string)
}

type Server struct {
	cfg      config.Config
	agents   AgentService
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, agents AgentService, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		agents:  agents,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so another website cannot drive the phone.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/ws", s.handleWS)

	r.Post(agent.IncomingCallPath, s.handleIncomingCall)
	r.Post(agent.CallAnswerPath, s.handleCallAnswer)
	r.Post(agent.CallStatusPath, s.handleCallStatus)
	r.Post(agent.TunnelAnswerPath, s.handleTunnelAnswer)
	r.Post(agent.BridgePath, s.handleBridgeTunnel)
	r.Post(agent.PausePath, s.handlePauseTunnel)

	// The platform retries callbacks that fail, so an endpoint this service
	// does not recognize is acknowledged and logged rather than 404ed.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("httpapi: unhandled request %s %s", r.Method, r.URL.Path)
		s.metrics.WebhookEvents.WithLabelValues("unhandled").Inc()
		w.WriteHeader(http.StatusOK)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// wsChannel adapts one websocket connection to the channel the agent session
// writes on. Writes are serialized; the session lock and the read loop may
// both send.
type wsChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsChannel) Send(evt protocol.ServerEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(evt)
}

func (c *wsChannel) Close() {
	_ = c.conn.Close()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	connID := uuid.NewString()
	ch := &wsChannel{conn: conn}

	if err := s.agents.Accept(r.Context(), ch); err != nil {
		// The channel is already notified and closed on conflict; anything
		// else is a provisioning failure this connection cannot recover from.
		if !errors.Is(err, agent.ErrSessionConflict) {
			log.Printf("httpapi: ws %s attach failed: %v", connID, err)
			ch.Close()
		}
		return
	}
	log.Printf("httpapi: ws %s attached", connID)

	// The tunnel takes a round of platform calls; the websocket should not
	// wait on them.
	go s.agents.EstablishTunnel(context.Background())

	conn.SetReadLimit(1 << 20)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		action, err := protocol.ParseClientAction(data)
		if err != nil {
			log.Printf("httpapi: ws %s bad message: %v", connID, err)
			continue
		}
		s.metrics.WSMessages.WithLabelValues("inbound", string(action.Event)).Inc()
		s.agents.HandleAction(r.Context(), action)
	}

	// The connection context is done once the socket drops; cleanup calls to
	// the platform get their own context.
	log.Printf("httpapi: ws %s disconnected", connID)
	s.agents.Teardown(context.Background())
}

// callbackEvent is the common shape of voice platform webhook payloads. Only
// the fields this service reads are decoded.
type callbackEvent struct {
	EventType string `json:"eventType"`
	CallID    string `json:"callId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Tag       string `json:"tag"`
}

func (s *Server) handleIncomingCall(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeCallback(w, r, "incomingCall")
	if !ok {
		return
	}
	body, err := s.agents.OnIncomingCall(r.Context(), ev.CallID, ev.From)
	s.respondBXML(w, body, err)
}

func (s *Server) handleCallAnswer(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeCallback(w, r, "callAnswer")
	if !ok {
		return
	}
	body, err := s.agents.OnFarEndAnswer(r.Context(), ev.CallID, ev.To)
	s.respondBXML(w, body, err)
}

func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeCallback(w, r, "callStatus")
	if !ok {
		return
	}
	// Status callbacks report several event types over a call's life; only
	// the disconnect matters here.
	if ev.EventType == "disconnect" {
		s.agents.OnDisconnect(r.Context(), ev.CallID)
	} else {
		log.Printf("httpapi: callStatus %q for call %s ignored", ev.EventType, ev.CallID)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTunnelAnswer(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeCallback(w, r, "tunnelAnswer")
	if !ok {
		return
	}
	body, err := s.agents.OnTunnelAnswer(r.Context(), ev.EventType, ev.CallID)
	if err == nil && body == "" {
		w.WriteHeader(http.StatusOK)
		return
	}
	s.respondBXML(w, body, err)
}

func (s *Server) handleBridgeTunnel(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeCallback(w, r, "bridgeTunnel")
	if !ok {
		return
	}
	body, err := s.agents.OnBridgeTunnel(r.Context(), ev.CallID)
	s.respondBXML(w, body, err)
}

func (s *Server) handlePauseTunnel(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.decodeCallback(w, r, "pauseTunnel"); !ok {
		return
	}
	body, err := s.agents.OnPauseTunnel(r.Context())
	s.respondBXML(w, body, err)
}

func (s *Server) decodeCallback(w http.ResponseWriter, r *http.Request, endpoint string) (callbackEvent, bool) {
	s.metrics.WebhookEvents.WithLabelValues(endpoint).Inc()
	var ev callbackEvent
	if r.Body == nil {
		respondError(w, http.StatusBadRequest, "invalid_callback", "empty body")
		return ev, false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		log.Printf("httpapi: %s callback decode failed: %v", endpoint, err)
		respondError(w, http.StatusBadRequest, "invalid_callback", err.Error())
		return ev, false
	}
	log.Printf("httpapi: %s callback eventType=%q callId=%s", endpoint, ev.EventType, ev.CallID)
	return ev, true
}

func (s *Server) respondBXML(w http.ResponseWriter, body string, err error) {
	if err != nil {
		log.Printf("httpapi: callback handling failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
