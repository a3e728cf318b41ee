package advisory

import (
	"context"
	"fmt"
	"sync"
)

// MockService implements Service for testing. Responses are served from a
// queue in order; an exhausted queue is an error so tests notice
// unexpected calls.
type MockService struct {
	mu       sync.Mutex
	queue    []mockResponse
	Problems []Problem
}

type mockResponse struct {
	proposal Proposal
	err      error
}

// NewMockService creates a scripted advisory service for tests
func NewMockService() *MockService {
	return &MockService{}
}

var _ Service = (*MockService)(nil)

// QueueProposal appends a canned proposal
func (m *MockService) QueueProposal(proposal Proposal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockResponse{proposal: proposal})
}

// QueueError appends a canned failure
func (m *MockService) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockResponse{err: err})
}

// Calls returns how many proposals have been requested
func (m *MockService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Problems)
}

// Propose implements the Service interface
func (m *MockService) Propose(ctx context.Context, problem Problem) (Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Problems = append(m.Problems, problem)

	if len(m.queue) == 0 {
		return nil, fmt.Errorf("mock advisory: no scripted response")
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	return next.proposal, next.err
}
