package narration

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"aimafia/internal/logging"
)

// runFunc runs one playback command to completion.
type runFunc func(ctx context.Context, name string, args []string) error

// CommandConfig configures an external text-to-speech player.
type CommandConfig struct {
	// Command is invoked as <Command> --voice <voice> --rate <rate> --text <text>.
	Command string
	Rate    string
	// Timeout bounds a single utterance.
	Timeout time.Duration
}

// Command narrates through an external playback binary such as
// edge-playback. Utterances play one at a time in the order Speak was called.
type Command struct {
	config CommandConfig
	run    runFunc

	mu   sync.Mutex
	last *Playback
}

// NewCommand creates a command narrator.
func NewCommand(config CommandConfig) *Command {
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	return &Command{config: config, run: runCommand}
}

// Speak implements Narrator. Empty text completes immediately.
func (c *Command) Speak(text, voice string, background bool) *Playback {
	text = Clean(text)
	if text == "" {
		return Finished(nil)
	}

	pb := newPlayback()
	c.mu.Lock()
	prev := c.last
	c.last = pb
	c.mu.Unlock()

	play := func() {
		if prev != nil {
			<-prev.done
		}
		pb.finish(c.play(text, voice))
	}
	if background {
		go play()
		return pb
	}
	play()
	return pb
}

func (c *Command) play(text, voice string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	args := []string{"--voice", voice}
	if c.config.Rate != "" {
		args = append(args, "--rate", c.config.Rate)
	}
	args = append(args, "--text", text)

	start := time.Now()
	err := c.run(ctx, c.config.Command, args)
	if err != nil {
		logging.Get(logging.CategoryNarration).Warn("playback failed (%s): %v", voice, err)
		return fmt.Errorf("narration: %w", err)
	}
	logging.Get(logging.CategoryNarration).Debug("spoke %d chars as %s in %s", len(text), voice, time.Since(start))
	return nil
}

func runCommand(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
