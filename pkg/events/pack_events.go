package events

// PackStartedEvent is published when a pack run begins
type PackStartedEvent struct {
	RunID      string
	WorkingDir string
	Patterns   []string
}

// Topic returns the event topic for run starts
func (e PackStartedEvent) Topic() string {
	return "pack.started"
}

// FilesDiscoveredEvent is published after discovery and baseline counting
type FilesDiscoveredEvent struct {
	RunID          string
	FileCount      int
	BaselineTokens int
}

// Topic returns the event topic for discovery completion
func (e FilesDiscoveredEvent) Topic() string {
	return "pack.files.discovered"
}

// RoundStartedEvent is published at the start of each refinement round
type RoundStartedEvent struct {
	RunID           string
	Round           int
	Budget          int
	EstimatedTokens int
}

// Topic returns the event topic for round starts
func (e RoundStartedEvent) Topic() string {
	return "pack.round.started"
}

// FileRenderedEvent is published per file as rendering completes
type FileRenderedEvent struct {
	RunID     string
	Path      string
	Level     string
	Tokens    int
	FromCache bool
}

// Topic returns the event topic for completed renders
func (e FileRenderedEvent) Topic() string {
	return "pack.file.rendered"
}

// RenderFailedEvent is published when a file render fails and the file
// falls back to its baseline content
type RenderFailedEvent struct {
	RunID string
	Path  string
	Error string
}

// Topic returns the event topic for render failures
func (e RenderFailedEvent) Topic() string {
	return "pack.render.failed"
}

// PlanReadyEvent is published once the final plan is settled
type PlanReadyEvent struct {
	RunID       string
	Source      string
	Feasible    bool
	TotalTokens int
	Rounds      int
}

// Topic returns the event topic for finished plans
func (e PlanReadyEvent) Topic() string {
	return "pack.plan.ready"
}

// PackFinishedEvent is published after output has been written
type PackFinishedEvent struct {
	RunID       string
	OutputPath  string
	TotalTokens int
	Feasible    bool
}

// Topic returns the event topic for run completion
func (e PackFinishedEvent) Topic() string {
	return "pack.finished"
}

// TokenUsageEvent reports token usage from one model API call
type TokenUsageEvent struct {
	Backend      string
	Model        string
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Topic returns the event topic for API token usage
func (e TokenUsageEvent) Topic() string {
	return "llm.token.usage"
}

// NoOpPublisher is a publisher that does nothing (for testing)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(topic string, event interface{}) {
	// No-op
}

// NoOpEventBus is an event bus that does nothing (for testing)
type NoOpEventBus struct{}

// Publish does nothing
func (n *NoOpEventBus) Publish(topic string, event interface{}) {
	// No-op
}

// Subscribe does nothing
func (n *NoOpEventBus) Subscribe(topic string, handler EventHandler) {
	// No-op
}
