package bandwidth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Participant is a media-platform endpoint identity: one audio participant
// (the browser client or the voice tunnel) plus its device access token.
// Identities are never reused across sessions.
type Participant struct {
	ID    string
	Token string
}

// MediaClient talks to the WebRTC media platform's server API.
type MediaClient struct {
	restClient
	accountID string
	baseURL   string
}

func NewMediaClient(accountID, username, password, baseURL string) *MediaClient {
	return &MediaClient{
		restClient: newRESTClient(username, password),
		accountID:  accountID,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *MediaClient) accountURL(parts ...string) string {
	u := c.baseURL + "/accounts/" + url.PathEscape(c.accountID)
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// CreateParticipant provisions a new audio-publishing endpoint identity and
// returns its id and access token.
func (c *MediaClient) CreateParticipant(ctx context.Context, tag string) (Participant, error) {
	req := struct {
		Tag                string   `json:"tag,omitempty"`
		PublishPermissions []string `json:"publishPermissions"`
		DeviceAPIVersion   string   `json:"deviceApiVersion"`
	}{
		Tag:                tag,
		PublishPermissions: []string{"AUDIO"},
		DeviceAPIVersion:   "V3",
	}
	var res struct {
		Participant struct {
			ID string `json:"id"`
		} `json:"participant"`
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.accountURL("participants"), req, &res); err != nil {
		return Participant{}, fmt.Errorf("create participant: %w", err)
	}
	return Participant{ID: res.Participant.ID, Token: res.Token}, nil
}

// CreateSession creates a media session, the grouping that lets participants
// exchange audio.
func (c *MediaClient) CreateSession(ctx context.Context, tag string) (string, error) {
	req := struct {
		Tag string `json:"tag,omitempty"`
	}{Tag: tag}
	var res struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.accountURL("sessions"), req, &res); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return res.ID, nil
}

func (c *MediaClient) AddParticipantToSession(ctx context.Context, sessionID, participantID string) error {
	req := struct {
		SessionID string `json:"sessionId"`
	}{SessionID: sessionID}
	u := c.accountURL("sessions", sessionID, "participants", participantID)
	if err := c.doJSON(ctx, http.MethodPut, u, req, nil); err != nil {
		return fmt.Errorf("add participant to session: %w", err)
	}
	return nil
}

func (c *MediaClient) DeleteParticipant(ctx context.Context, participantID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.accountURL("participants", participantID), nil, nil); err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	return nil
}

func (c *MediaClient) DeleteSession(ctx context.Context, sessionID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.accountURL("sessions", sessionID), nil, nil); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
