package agentapi

import (
	"context"
	"io"
	"strings"
	"sync"

	"support-chat/internal/domain"
)

// MockClient permite tests sin levantar un backend real.
type MockClient struct {
	mu       sync.Mutex
	Body     string
	Err      error
	Requests []domain.TurnRequest
}

func (m *MockClient) OpenStream(_ context.Context, req domain.TurnRequest) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return io.NopCloser(strings.NewReader(m.Body)), nil
}
