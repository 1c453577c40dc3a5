package bandwidth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// CallState is the call-state value accepted by the voice platform's call
// update endpoint.
type CallState string

const (
	CallStateActive    CallState = "active"
	CallStateCompleted CallState = "completed"
)

// CreateCallRequest describes an outbound call origination. Timeouts are in
// seconds, matching the platform API.
type CreateCallRequest struct {
	From            string `json:"from"`
	To              string `json:"to"`
	UUI             string `json:"uui,omitempty"`
	CallTimeout     int    `json:"callTimeout,omitempty"`
	CallbackTimeout int    `json:"callbackTimeout,omitempty"`
	AnswerURL       string `json:"answerUrl"`
	DisconnectURL   string `json:"disconnectUrl,omitempty"`
	Tag             string `json:"tag,omitempty"`
	ApplicationID   string `json:"applicationId"`
}

// UpdateCallRequest modifies an existing call leg: completing it, or marking
// it active with a redirect URL the platform will invoke for fresh BXML.
type UpdateCallRequest struct {
	State       CallState `json:"state"`
	RedirectURL string    `json:"redirectUrl,omitempty"`
}

// VoiceClient talks to the programmable voice platform.
type VoiceClient struct {
	restClient
	accountID string
	baseURL   string
}

func NewVoiceClient(accountID, username, password, baseURL string) *VoiceClient {
	return &VoiceClient{
		restClient: newRESTClient(username, password),
		accountID:  accountID,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *VoiceClient) callsURL(parts ...string) string {
	u := c.baseURL + "/accounts/" + url.PathEscape(c.accountID) + "/calls"
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// CreateCall originates a call and returns the platform-assigned call id.
func (c *VoiceClient) CreateCall(ctx context.Context, req CreateCallRequest) (string, error) {
	var res struct {
		CallID string `json:"callId"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.callsURL(), req, &res); err != nil {
		return "", fmt.Errorf("create call: %w", err)
	}
	return res.CallID, nil
}

func (c *VoiceClient) UpdateCall(ctx context.Context, callID string, req UpdateCallRequest) error {
	if err := c.doJSON(ctx, http.MethodPost, c.callsURL(callID), req, nil); err != nil {
		return fmt.Errorf("update call: %w", err)
	}
	return nil
}
