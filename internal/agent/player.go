// Package agent defines the Player abstraction: anything that can produce a
// turn Output for a game View. Provider-backed agents go through the
// recovery pipeline with a bounded retry; the human player answers at the
// console and is never scheduled concurrently.
package agent

import (
	"context"
	"fmt"
	"time"

	"aimafia/internal/game"
	"aimafia/internal/logging"
	"aimafia/internal/perception"
	"aimafia/internal/turnparse"
)

// Request is everything a player sees when asked for a turn.
type Request struct {
	View  game.View
	Phase game.Phase
	// Candidates is the valid vote set; empty means vote must be null.
	Candidates []string
	// Memory is long-term memory text from earlier games.
	Memory string
	// Note is extra task context, such as the final result for Reflection.
	Note string
}

// Response carries the output and every failed attempt before it.
type Response struct {
	Output   turnparse.Output
	Failures []error
}

// Player produces turns.
type Player interface {
	Name() string
	Voice() string
	// Interactive players need the console and must run alone.
	Interactive() bool
	ProduceTurn(ctx context.Context, req Request) (Response, error)
}

// TurnFailure is returned when every attempt failed.
type TurnFailure struct {
	Player   string
	Attempts int
	Last     error
}

func (e *TurnFailure) Error() string {
	return fmt.Sprintf("%s failed to act after %d attempts: %v", e.Player, e.Attempts, e.Last)
}

func (e *TurnFailure) Unwrap() error { return e.Last }

// AgentPlayer delegates turns to an LLM backend.
type AgentPlayer struct {
	name        string
	voice       string
	client      perception.LLMClient
	maxAttempts int
	retryDelay  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewAgentPlayer creates a provider-backed player.
func NewAgentPlayer(name, voice string, client perception.LLMClient, maxAttempts int, retryDelay time.Duration) *AgentPlayer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &AgentPlayer{
		name:        name,
		voice:       voice,
		client:      client,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		sleep:       sleepCtx,
	}
}

func (p *AgentPlayer) Name() string      { return p.name }
func (p *AgentPlayer) Voice() string     { return p.voice }
func (p *AgentPlayer) Interactive() bool { return false }

// ProduceTurn calls the backend and parses the answer, retrying any failure
// with a fixed delay up to the attempt bound.
func (p *AgentPlayer) ProduceTurn(ctx context.Context, req Request) (Response, error) {
	system, user := BuildPrompts(req)
	log := logging.Get(logging.CategoryAgent).With("player", p.name, "phase", string(req.Phase))

	var resp Response
	var last error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.retryDelay); err != nil {
				last = err
				break
			}
		}

		actx := perception.WithTraceLabel(ctx, perception.TraceLabel{
			Player:  p.name,
			Turn:    req.View.Turn,
			Phase:   string(req.Phase),
			Attempt: attempt,
		})
		raw, err := p.client.CompleteWithSystem(actx, system, user)
		if err == nil {
			var out turnparse.Output
			if out, err = turnparse.Parse(raw); err == nil {
				resp.Output = out
				log.Debug("turn ok on attempt %d", attempt)
				return resp, nil
			}
		}

		log.Warn("attempt %d/%d failed: %v", attempt, p.maxAttempts, err)
		resp.Failures = append(resp.Failures, err)
		last = err
		if ctx.Err() != nil {
			break
		}
	}

	log.Error("giving up after %d failures", len(resp.Failures))
	return resp, &TurnFailure{Player: p.name, Attempts: len(resp.Failures), Last: last}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
