package ai

import (
	"context"
	"fmt"
	"sync"
)

// MockGen implements the Gen interface for testing. Responses are served
// from a queue in order; queue entries starting with "ERROR" produce an
// error instead.
type MockGen struct {
	mu            sync.Mutex
	ResponseQueue []string
	CallCounts    map[string]int
	UsedPrompts   []Prompt
	LastAttrs     []Attr
	currentIndex  int
}

// NewMockGen creates a new mock generator for testing
func NewMockGen() *MockGen {
	return &MockGen{
		ResponseQueue: make([]string, 0),
		CallCounts:    make(map[string]int),
		UsedPrompts:   make([]Prompt, 0),
	}
}

var _ Gen = (*MockGen)(nil)

// QueueResponse appends a canned response
func (m *MockGen) QueueResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResponseQueue = append(m.ResponseQueue, response)
}

// QueueError appends a canned failure
func (m *MockGen) QueueError(message string) {
	m.QueueResponse("ERROR " + message)
}

// GenerateContent implements the Gen interface
func (m *MockGen) GenerateContent(ctx context.Context, prompt Prompt, debug bool, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.nextResponse("GenerateContent", prompt, StringsToAttr(args))
}

// GenerateContentAttr implements the Gen interface
func (m *MockGen) GenerateContentAttr(ctx context.Context, prompt Prompt, debug bool, attrs []Attr) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.nextResponse("GenerateContentAttr", prompt, attrs)
}

// GetStatus implements the Gen interface
func (m *MockGen) GetStatus() *Status {
	return &Status{Connected: true, Backend: "mock", Model: "mock-model"}
}

// CallCount returns the number of calls made through a given method
func (m *MockGen) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCounts[method]
}

// TotalCalls returns the number of generation calls made through the mock
func (m *MockGen) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCounts["GenerateContent"] + m.CallCounts["GenerateContentAttr"]
}

func (m *MockGen) nextResponse(method string, prompt Prompt, attrs []Attr) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCounts[method]++
	m.UsedPrompts = append(m.UsedPrompts, prompt)
	m.LastAttrs = attrs

	if m.currentIndex < len(m.ResponseQueue) {
		response := m.ResponseQueue[m.currentIndex]
		m.currentIndex++
		if len(response) >= 5 && response[:5] == "ERROR" {
			return "", fmt.Errorf("mock error: %s", response[5:])
		}
		return response, nil
	}

	return "mock response", nil
}
