// softphone is a terminal client for the webphone service. It drives the same
// call state machine the browser client uses, minus the audio path: DTMF sends
// are printed instead of injected into a media stream.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bandwidth-samples/webrtc-webphone/internal/dialplan"
	"github.com/bandwidth-samples/webrtc-webphone/internal/protocol"
	"github.com/bandwidth-samples/webrtc-webphone/internal/webclient"
)

type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) SendAction(action protocol.ClientAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(action)
}

type dtmfPrinter struct{}

func (dtmfPrinter) SendDTMF(digits string) error {
	fmt.Printf("  >> dtmf: %s\n", digits)
	return nil
}

func main() {
	addr := flag.String("addr", "ws://localhost:5000/ws", "webphone websocket URL")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("connect %s: %v", *addr, err)
	}
	defer conn.Close()

	phone := webclient.NewPhone(webclient.Config{
		Actions: &wsSender{conn: conn},
		DTMF:    dtmfPrinter{},
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				phone.HandleChannelClosed()
				return
			}
			evt, err := protocol.ParseServerEvent(data)
			if err != nil {
				log.Printf("softphone: bad server message: %v", err)
				continue
			}
			phone.HandleServerEvent(evt)
			printStatus(phone)
		}
	}()

	fmt.Println("commands: digits to dial, 'call' for the call button, 'quit' to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "quit":
			conn.Close()
			<-done
			return
		case line == "call":
			phone.PressCallButton()
		case line != "":
			phone.EnterDigits(line, false)
		}
		printStatus(phone)

		select {
		case <-done:
			fmt.Println("connection closed")
			return
		default:
		}
	}
	<-done
}

func printStatus(phone *webclient.Phone) {
	state := phone.State()
	label := dialplan.StateLabel[state]
	switch state {
	case dialplan.StateIncoming:
		fmt.Printf("[%s] call from %s\n", label, phone.FarEndTN())
	case dialplan.StateOutgoing, dialplan.StateTalking:
		fmt.Printf("[%s] %s\n", label, phone.FarEndTN())
	case dialplan.StateDisconnected:
		if msg := phone.InfoMessage(); msg != "" {
			fmt.Printf("[%s] %s\n", label, msg)
		} else {
			fmt.Printf("[%s]\n", label)
		}
	default:
		fmt.Printf("[%s] dial: %s\n", label, phone.DialBuffer())
	}
}
