package bandwidth

import (
	"encoding/xml"
	"fmt"
)

// The verbs below are the call-control markup returned from webhook handlers.
// The platform executes them in document order against the call leg that
// triggered the callback.

// Pause keeps a call leg open and idle for the given duration in seconds.
type Pause struct {
	XMLName  xml.Name `xml:"Pause"`
	Duration float64  `xml:"duration,attr"`
}

// SpeakSentence plays synthesized speech into the call.
type SpeakSentence struct {
	XMLName  xml.Name `xml:"SpeakSentence"`
	Sentence string   `xml:",chardata"`
}

// Hangup ends the call leg.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Bridge connects this call leg's audio to the named call. The platform
// invokes BridgeCompleteURL when the bridge ends.
type Bridge struct {
	XMLName           xml.Name `xml:"Bridge"`
	BridgeCompleteURL string   `xml:"bridgeCompleteUrl,attr,omitempty"`
	CallID            string   `xml:",chardata"`
}

type response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

// BXML serializes verbs into a call-control response document.
func BXML(verbs ...any) (string, error) {
	raw, err := xml.Marshal(response{Verbs: verbs})
	if err != nil {
		return "", fmt.Errorf("marshal bxml: %w", err)
	}
	return xml.Header + string(raw), nil
}
