package cli

import (
	"context"

	"github.com/promptfit/promptfit/pkg/events"
	"github.com/promptfit/promptfit/pkg/promptfit"
)

// testPromptfit is a lightweight implementation of the Promptfit interface
// for command testing. It serves canned results and records the requests
// it saw so tests can assert on flag plumbing.
type testPromptfit struct {
	packResult    *promptfit.PackResult
	countResult   *promptfit.CountResult
	inspectResult *promptfit.InspectResult
	err           error
	eventBus      events.EventBus

	packRequests    []promptfit.PackRequest
	countRequests   []promptfit.CountRequest
	inspectRequests []promptfit.InspectRequest
}

// newTestPromptfit creates a test Promptfit with configurable canned results
func newTestPromptfit(err error) *testPromptfit {
	return &testPromptfit{
		err:      err,
		eventBus: events.NewEventBus(),
	}
}

var _ promptfit.Promptfit = (*testPromptfit)(nil)

func (t *testPromptfit) Pack(ctx context.Context, req promptfit.PackRequest) (*promptfit.PackResult, error) {
	t.packRequests = append(t.packRequests, req)
	if t.err != nil {
		return nil, t.err
	}
	return t.packResult, nil
}

func (t *testPromptfit) Count(ctx context.Context, req promptfit.CountRequest) (*promptfit.CountResult, error) {
	t.countRequests = append(t.countRequests, req)
	if t.err != nil {
		return nil, t.err
	}
	return t.countResult, nil
}

func (t *testPromptfit) Inspect(ctx context.Context, req promptfit.InspectRequest) (*promptfit.InspectResult, error) {
	t.inspectRequests = append(t.inspectRequests, req)
	if t.err != nil {
		return nil, t.err
	}
	return t.inspectResult, nil
}

func (t *testPromptfit) GetEventBus() events.EventBus {
	return t.eventBus
}
