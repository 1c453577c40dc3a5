package bandwidth

import (
	"context"
	"fmt"
	"sync"
)

// MediaMock is an in-memory media platform used by tests. Each method records
// its calls and can be overridden per test through the corresponding Func
// field.
type MediaMock struct {
	mu sync.Mutex

	CreateParticipantFunc func(ctx context.Context, tag string) (Participant, error)
	CreateSessionFunc     func(ctx context.Context, tag string) (string, error)
	AddToSessionFunc      func(ctx context.Context, sessionID, participantID string) error
	DeleteParticipantFunc func(ctx context.Context, participantID string) error
	DeleteSessionFunc     func(ctx context.Context, sessionID string) error

	createdParticipants []string
	addedToSession      []string
	deletedParticipants []string
	deletedSessions     []string
	nextParticipant     int
}

func (m *MediaMock) CreateParticipant(ctx context.Context, tag string) (Participant, error) {
	m.mu.Lock()
	m.nextParticipant++
	n := m.nextParticipant
	fn := m.CreateParticipantFunc
	m.mu.Unlock()

	if fn != nil {
		p, err := fn(ctx, tag)
		if err == nil {
			m.record(&m.createdParticipants, p.ID)
		}
		return p, err
	}
	p := Participant{
		ID:    fmt.Sprintf("participant-%d", n),
		Token: fmt.Sprintf("token-%d", n),
	}
	m.record(&m.createdParticipants, p.ID)
	return p, nil
}

func (m *MediaMock) CreateSession(ctx context.Context, tag string) (string, error) {
	m.mu.Lock()
	fn := m.CreateSessionFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, tag)
	}
	return "media-session-1", nil
}

func (m *MediaMock) AddParticipantToSession(ctx context.Context, sessionID, participantID string) error {
	m.mu.Lock()
	fn := m.AddToSessionFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, sessionID, participantID)
	}
	m.record(&m.addedToSession, participantID)
	return nil
}

func (m *MediaMock) DeleteParticipant(ctx context.Context, participantID string) error {
	m.mu.Lock()
	fn := m.DeleteParticipantFunc
	m.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, participantID); err != nil {
			return err
		}
	}
	m.record(&m.deletedParticipants, participantID)
	return nil
}

func (m *MediaMock) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	fn := m.DeleteSessionFunc
	m.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, sessionID); err != nil {
			return err
		}
	}
	m.record(&m.deletedSessions, sessionID)
	return nil
}

func (m *MediaMock) CreatedParticipants() []string { return m.snapshot(&m.createdParticipants) }
func (m *MediaMock) AddedToSession() []string      { return m.snapshot(&m.addedToSession) }
func (m *MediaMock) DeletedParticipants() []string { return m.snapshot(&m.deletedParticipants) }
func (m *MediaMock) DeletedSessions() []string     { return m.snapshot(&m.deletedSessions) }

func (m *MediaMock) record(list *[]string, v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*list = append(*list, v)
}

func (m *MediaMock) snapshot(list *[]string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), *list...)
}

// VoiceMock is an in-memory voice platform used by tests.
type VoiceMock struct {
	mu sync.Mutex

	CreateCallFunc func(ctx context.Context, req CreateCallRequest) (string, error)
	UpdateCallFunc func(ctx context.Context, callID string, req UpdateCallRequest) error

	createdCalls []CreateCallRequest
	updatedCalls []UpdatedCall
	nextCall     int
}

// UpdatedCall records one UpdateCall invocation.
type UpdatedCall struct {
	CallID  string
	Request UpdateCallRequest
}

func (m *VoiceMock) CreateCall(ctx context.Context, req CreateCallRequest) (string, error) {
	m.mu.Lock()
	m.nextCall++
	n := m.nextCall
	fn := m.CreateCallFunc
	m.mu.Unlock()

	if fn != nil {
		id, err := fn(ctx, req)
		if err == nil {
			m.mu.Lock()
			m.createdCalls = append(m.createdCalls, req)
			m.mu.Unlock()
		}
		return id, err
	}

	m.mu.Lock()
	m.createdCalls = append(m.createdCalls, req)
	m.mu.Unlock()
	return fmt.Sprintf("call-%d", n), nil
}

func (m *VoiceMock) UpdateCall(ctx context.Context, callID string, req UpdateCallRequest) error {
	m.mu.Lock()
	fn := m.UpdateCallFunc
	m.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, callID, req); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.updatedCalls = append(m.updatedCalls, UpdatedCall{CallID: callID, Request: req})
	m.mu.Unlock()
	return nil
}

func (m *VoiceMock) CreatedCalls() []CreateCallRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CreateCallRequest(nil), m.createdCalls...)
}

func (m *VoiceMock) UpdatedCalls() []UpdatedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UpdatedCall(nil), m.updatedCalls...)
}
