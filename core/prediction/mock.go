package prediction

import (
	"context"
	"sync"

	"github.com/kilianp07/housepredict/core/model"
)

// MockClient returns a configured response or error. When Release is set,
// Predict blocks until a value is received on it, which lets tests hold a
// request in flight.
type MockClient struct {
	Response RawResponse
	Err      error
	URL      string
	Release  chan struct{}
	Started  chan struct{}

	mu       sync.Mutex
	received []model.ValidatedFields
}

// Predict records the fields and returns the configured result.
func (m *MockClient) Predict(ctx context.Context, fields model.ValidatedFields) (RawResponse, error) {
	m.mu.Lock()
	m.received = append(m.received, fields)
	m.mu.Unlock()
	if m.Started != nil {
		m.Started <- struct{}{}
	}
	if m.Release != nil {
		select {
		case <-m.Release:
		case <-ctx.Done():
			return RawResponse{}, NewUnreachable(ctx.Err())
		}
	}
	if m.Err != nil {
		return RawResponse{}, m.Err
	}
	return m.Response, nil
}

// Endpoint returns the configured URL or a placeholder.
func (m *MockClient) Endpoint() string {
	if m.URL == "" {
		return "http://localhost:5000"
	}
	return m.URL
}

// Calls returns a copy of the fields received so far.
func (m *MockClient) Calls() []model.ValidatedFields {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]model.ValidatedFields, len(m.received))
	copy(cp, m.received)
	return cp
}
