package perception

import (
	"context"
	"time"

	"aimafia/internal/logging"
)

// TraceLabel attributes a call to a player's turn.
type TraceLabel struct {
	Player  string
	Turn    int
	Phase   string
	Attempt int
}

type traceLabelKey struct{}

// WithTraceLabel attaches a label that TracingLLMClient records.
func WithTraceLabel(ctx context.Context, label TraceLabel) context.Context {
	return context.WithValue(ctx, traceLabelKey{}, label)
}

// TraceLabelFrom returns the label attached to ctx.
func TraceLabelFrom(ctx context.Context) (TraceLabel, bool) {
	l, ok := ctx.Value(traceLabelKey{}).(TraceLabel)
	return l, ok
}

// Trace captures one complete provider interaction.
type Trace struct {
	Label        TraceLabel
	SystemPrompt string
	UserPrompt   string
	Response     string
	Err          error
	Duration     time.Duration
	Timestamp    time.Time
}

// TraceStore receives traces.
type TraceStore interface {
	StoreTrace(trace *Trace) error
}

// TracingLLMClient wraps any LLMClient and hands every interaction to a store.
type TracingLLMClient struct {
	underlying LLMClient
	store      TraceStore
}

// NewTracingLLMClient creates a tracing wrapper around an existing client.
func NewTracingLLMClient(underlying LLMClient, store TraceStore) *TracingLLMClient {
	return &TracingLLMClient{underlying: underlying, store: store}
}

// CompleteWithSystem forwards the call and records it. Store failures are
// logged, never returned.
func (tc *TracingLLMClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	resp, err := tc.underlying.CompleteWithSystem(ctx, systemPrompt, userPrompt)

	label, _ := TraceLabelFrom(ctx)
	trace := &Trace{
		Label:        label,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Response:     resp,
		Err:          err,
		Duration:     time.Since(start),
		Timestamp:    start,
	}
	if serr := tc.store.StoreTrace(trace); serr != nil {
		logging.Get(logging.CategoryAPI).Warn("failed to store trace for %s: %v", label.Player, serr)
	}
	return resp, err
}

// Underlying returns the wrapped client.
func (tc *TracingLLMClient) Underlying() LLMClient {
	return tc.underlying
}
