// Package webclient implements the browser-side call state machine as a
// headless client: dial buffer, DTMF debounce and the context-dependent call
// button, driven by local input and by transport messages from the service.
package webclient

import (
	"log"
	"sync"
	"time"

	"github.com/bandwidth-samples/webrtc-webphone/internal/dialplan"
	"github.com/bandwidth-samples/webrtc-webphone/internal/protocol"
)

const defaultDTMFDebounce = 800 * time.Millisecond

// ActionSender delivers client actions to the service over the transport
// channel.
type ActionSender interface {
	SendAction(action protocol.ClientAction) error
}

// DTMFSender flushes buffered digits into the active call's media path.
type DTMFSender interface {
	SendDTMF(digits string) error
}

type Config struct {
	Actions ActionSender
	DTMF    DTMFSender
	// DTMFDebounce is how long digit entry is quiet before the buffer is
	// flushed as one DTMF send. Zero means the 800ms default.
	DTMFDebounce time.Duration
}

// Phone holds the client call state. All methods are safe for concurrent use;
// transport events and keypad input may arrive on different goroutines.
type Phone struct {
	cfg Config

	mu           sync.Mutex
	state        dialplan.ClientState
	dial         string
	serviceTN    string
	farEndTN     string
	token        string
	info         string
	remoteStream any
	debounce     *time.Timer
}

func NewPhone(cfg Config) *Phone {
	if cfg.DTMFDebounce <= 0 {
		cfg.DTMFDebounce = defaultDTMFDebounce
	}
	return &Phone{cfg: cfg, state: dialplan.StateDisconnected}
}

func (p *Phone) State() dialplan.ClientState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Phone) DialBuffer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dial
}

// ServiceTN is the service's telephone number announced at connect time.
func (p *Phone) ServiceTN() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.serviceTN
}

// FarEndTN is the other party's number for the current or ringing call.
func (p *Phone) FarEndTN() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.farEndTN
}

// Token is the media-endpoint access token issued for this client.
func (p *Phone) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// InfoMessage is the last informational text received from the service.
func (p *Phone) InfoMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// AttachRemoteStream records the remote audio reference delivered by the
// media layer so it can be discarded when the channel closes.
func (p *Phone) AttachRemoteStream(stream any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remoteStream = stream
}

func (p *Phone) RemoteStream() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remoteStream
}

// EnterDigits updates the dial buffer. With append=true the digits extend the
// buffer (keypad); otherwise they replace it (text entry). While talking the
// digits are queued for a debounced DTMF flush instead of changing state.
func (p *Phone) EnterDigits(digits string, append bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if append {
		p.dial += digits
	} else {
		p.dial = digits
	}

	if p.state == dialplan.StateTalking {
		if p.debounce != nil {
			p.debounce.Stop()
		}
		p.debounce = time.AfterFunc(p.cfg.DTMFDebounce, p.flushDTMF)
		return
	}

	valid := dialplan.ValidNumber(p.dial)
	switch {
	case valid && p.state == dialplan.StateIdleInvalid:
		p.applyLocked(dialplan.EventGoodTN)
	case !valid && p.state == dialplan.StateIdleValid:
		p.applyLocked(dialplan.EventBadTN)
	}
}

// flushDTMF runs on debounce expiry and sends the accumulated digits as one
// DTMF action. Rapid presses inside the window coalesce into a single send.
func (p *Phone) flushDTMF() {
	p.mu.Lock()
	if p.state != dialplan.StateTalking || p.dial == "" {
		p.debounce = nil
		p.mu.Unlock()
		return
	}
	digits := p.dial
	p.dial = ""
	p.debounce = nil
	sender := p.cfg.DTMF
	p.mu.Unlock()

	if sender == nil {
		return
	}
	if err := sender.SendDTMF(digits); err != nil {
		log.Printf("webclient: dtmf send failed: %v", err)
	}
}

// PressCallButton applies the context-dependent button: dial, answer or hang
// up depending on the current state.
func (p *Phone) PressCallButton() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == dialplan.StateDisconnected {
		return
	}
	p.applyLocked(dialplan.EventCallButton)
}

// HandleServerEvent feeds a transport message through the transition table.
// Events with no matching entry are logged and leave the state untouched,
// which absorbs stale or duplicate server notifications.
func (p *Phone) HandleServerEvent(evt protocol.ServerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch evt.Event {
	case protocol.EventClientConnected:
		p.serviceTN = evt.Body.TN
		p.token = evt.Body.Token
		p.applyLocked(dialplan.EventClientConnected)
	case protocol.EventCallIn:
		if p.applyLocked(dialplan.EventCallIn) {
			p.farEndTN = evt.Body.TN
		}
	case protocol.EventFarAnswer:
		if p.applyLocked(dialplan.EventFarAnswer) {
			p.farEndTN = evt.Body.TN
			p.dial = ""
		}
	case protocol.EventFarAbandon:
		if p.applyLocked(dialplan.EventFarAbandon) {
			p.farEndTN = ""
		}
	case protocol.EventClientDisconnected:
		p.info = evt.Body.Message
		log.Printf("webclient: service refused connection: %s", evt.Body.Message)
	default:
		log.Printf("webclient: server event not understood: %s", evt.Event)
	}
}

// HandleChannelClosed ends the session: the remote audio reference is
// discarded and the state returns to Disconnected. There is no reconnection.
func (p *Phone) HandleChannelClosed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.debounce != nil {
		p.debounce.Stop()
		p.debounce = nil
	}
	p.remoteStream = nil
	p.farEndTN = ""
	p.state = dialplan.StateDisconnected
}

// applyLocked resolves the event against the transition table and, when the
// transition emits a system action, sends it before the state is updated.
func (p *Phone) applyLocked(event dialplan.Event) bool {
	tr, ok := dialplan.Resolve(p.state, event, dialplan.ValidNumber(p.dial))
	if !ok {
		log.Printf("webclient: no transition for (%s, %s)", p.state, event)
		return false
	}

	if tr.Emit != dialplan.ActionNone && p.cfg.Actions != nil {
		action := protocol.ClientAction{
			Event: protocol.ActionType(tr.Emit),
			Body:  protocol.ActionBody{TN: p.dial},
		}
		if err := p.cfg.Actions.SendAction(action); err != nil {
			log.Printf("webclient: action %s send failed: %v", tr.Emit, err)
		}
		if tr.Emit == dialplan.ActionCalling {
			// The buffer is consumed by call placement.
			p.dial = ""
		}
	}

	p.state = tr.Next
	return true
}
