// Package console is the human input boundary: gated line prompts for the
// interactive player and an operator pause signal observed between turns.
//
// A single goroutine reads input lines. A line goes to the pending Ask if
// there is one; otherwise it toggles pause.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"aimafia/internal/logging"

	"golang.org/x/term"
)

// Prompter suspends the caller until a line of text is supplied.
type Prompter interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Gate is consulted before each turn.
type Gate interface {
	Wait(ctx context.Context) error
}

// AlwaysOpen is a Gate that never blocks.
type AlwaysOpen struct{}

// Wait implements Gate.
func (AlwaysOpen) Wait(context.Context) error { return nil }

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Console multiplexes one input stream between prompts and the pause toggle.
type Console struct {
	out  io.Writer
	step bool

	mu      sync.Mutex
	pending chan string
	paused  bool
	resumed chan struct{}
	closed  bool

	eof chan struct{}
}

// New starts reading lines from in. In step mode Wait blocks for Enter before
// every turn; otherwise Wait only blocks while paused.
func New(in io.Reader, out io.Writer, step bool) *Console {
	c := &Console{
		out:  out,
		step: step,
		eof:  make(chan struct{}),
	}
	go c.readLoop(in)
	return c
}

func (c *Console) readLoop(in io.Reader) {
	log := logging.Get(logging.CategoryConsole)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := sc.Text()

		c.mu.Lock()
		if ch := c.pending; ch != nil {
			c.pending = nil
			c.mu.Unlock()
			ch <- line
			continue
		}
		if c.paused {
			c.paused = false
			close(c.resumed)
			fmt.Fprintln(c.out, "▶ resumed")
			log.Info("resumed")
		} else {
			c.paused = true
			c.resumed = make(chan struct{})
			fmt.Fprintln(c.out, "⏸ paused, press Enter to resume")
			log.Info("paused")
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.closed = true
	if c.paused {
		c.paused = false
		close(c.resumed)
	}
	c.mu.Unlock()
	close(c.eof)
	log.Debug("input closed")
}

// Ask writes prompt and waits for the next input line.
func (c *Console) Ask(ctx context.Context, prompt string) (string, error) {
	ch := make(chan string, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", io.EOF
	}
	if c.pending != nil {
		c.mu.Unlock()
		return "", errors.New("console: concurrent Ask")
	}
	c.pending = ch
	c.mu.Unlock()

	fmt.Fprint(c.out, prompt)

	select {
	case line := <-ch:
		return line, nil
	case <-c.eof:
		return "", io.EOF
	case <-ctx.Done():
		c.mu.Lock()
		if c.pending == ch {
			c.pending = nil
		}
		c.mu.Unlock()
		return "", ctx.Err()
	}
}

// Wait implements Gate. Closed input never blocks.
func (c *Console) Wait(ctx context.Context) error {
	if c.step {
		_, err := c.Ask(ctx, "[Enter] next turn > ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return nil
	}
	resumed := c.resumed
	c.mu.Unlock()

	select {
	case <-resumed:
		return nil
	case <-c.eof:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Paused reports the toggle state.
func (c *Console) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// ScriptedPrompter answers prompts from a fixed list, then returns io.EOF.
type ScriptedPrompter struct {
	mu      sync.Mutex
	Answers []string
	Prompts []string
}

// Ask implements Prompter.
func (s *ScriptedPrompter) Ask(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	if len(s.Answers) == 0 {
		return "", io.EOF
	}
	a := s.Answers[0]
	s.Answers = s.Answers[1:]
	return a, nil
}
