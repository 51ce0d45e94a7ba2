// Package agenttest provides test doubles for player clients.
package agenttest

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedClient is an LLMClient that replays a fixed sequence of answers.
// An entry that is an error is returned as the call's error. After the script
// runs out, Fallback (if set) answers every call.
type ScriptedClient struct {
	mu       sync.Mutex
	Script   []any
	Fallback func(system, user string) (string, error)
	Calls    int
}

// CompleteWithSystem implements perception.LLMClient.
func (s *ScriptedClient) CompleteWithSystem(_ context.Context, system, user string) (string, error) {
	s.mu.Lock()
	s.Calls++
	if len(s.Script) == 0 {
		fb := s.Fallback
		s.mu.Unlock()
		if fb == nil {
			return "", fmt.Errorf("script exhausted")
		}
		return fb(system, user)
	}
	next := s.Script[0]
	s.Script = s.Script[1:]
	s.mu.Unlock()

	switch v := next.(type) {
	case error:
		return "", v
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("bad script entry %T", next)
	}
}
