package perception

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"aimafia/internal/logging"
)

// CLITool names a local command-line backend.
type CLITool string

const (
	ToolClaude CLITool = "claude"
	ToolCodex  CLITool = "codex"
	ToolGemini CLITool = "gemini"
	ToolQwen   CLITool = "qwen"
	ToolOllama CLITool = "ollama"
)

// CLIConfig configures one CLI-backed client.
type CLIConfig struct {
	Tool    CLITool
	Command string // binary; defaults to the tool name
	Model   string
	Timeout time.Duration
	Sandbox string // codex only
}

// CLIClient implements LLMClient by running a CLI tool as a one-shot
// completion subprocess: one prompt in, one answer out, no tool use.
type CLIClient struct {
	tool    CLITool
	command string
	model   string
	timeout time.Duration
	sandbox string
	run     runFunc
}

// runFunc executes a command and returns its stdout and stderr.
type runFunc func(ctx context.Context, name string, args []string, stdin string) (stdout, stderr []byte, err error)

// cliSpec describes how one tool is invoked and how its output is read.
type cliSpec struct {
	args  func(c *CLIClient, prompt string) []string
	stdin bool
	parse func(data []byte) (string, error)
}

var cliSpecs = map[CLITool]cliSpec{
	// The JSON envelope is returned as-is; the turn parser unwraps "result".
	ToolClaude: {
		args: func(c *CLIClient, prompt string) []string {
			return []string{"-p", prompt, "--output-format", "json", "--model", c.model}
		},
		parse: parseClaudeEnvelope,
	},
	ToolCodex: {
		args: func(c *CLIClient, _ string) []string {
			return []string{"exec", "-", "--model", c.model, "--sandbox", c.sandbox, "--json", "--color", "never", "--skip-git-repo-check"}
		},
		stdin: true,
		parse: parseCodexEvents,
	},
	ToolGemini: {
		args: func(c *CLIClient, prompt string) []string {
			return []string{"-m", c.model, "-p", prompt}
		},
		parse: parsePlainText,
	},
	ToolQwen: {
		args: func(c *CLIClient, prompt string) []string {
			return []string{"-m", c.model, "-p", prompt}
		},
		parse: parsePlainText,
	},
	ToolOllama: {
		args: func(c *CLIClient, _ string) []string {
			return []string{"run", c.model, "--format", "json"}
		},
		stdin: true,
		parse: parsePlainText,
	},
}

// NewCLIClient creates a CLI-backed client.
func NewCLIClient(cfg CLIConfig) (*CLIClient, error) {
	if _, ok := cliSpecs[cfg.Tool]; !ok {
		return nil, fmt.Errorf("unknown CLI tool %q", cfg.Tool)
	}
	c := &CLIClient{
		tool:    cfg.Tool,
		command: cfg.Command,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		sandbox: cfg.Sandbox,
		run:     execRun,
	}
	if c.command == "" {
		c.command = string(cfg.Tool)
	}
	if c.timeout <= 0 {
		c.timeout = 300 * time.Second
	}
	if c.sandbox == "" {
		c.sandbox = "read-only"
	}
	return c, nil
}

// CompleteWithSystem embeds the system prompt in XML tags ahead of the user
// prompt, since none of the tools take a separate system message.
func (c *CLIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	prompt := buildCLIPrompt(systemPrompt, userPrompt)
	spec := cliSpecs[c.tool]

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	args := spec.args(c, prompt)
	stdin := ""
	if spec.stdin {
		stdin = prompt
	}
	logging.APIDebug("[%s-cli] exec: model=%s prompt_len=%d", c.tool, c.model, len(prompt))

	stdout, stderr, err := c.run(ctx, c.command, args, stdin)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return "", fmt.Errorf("%s CLI timed out after %v: %w", c.tool, c.timeout, ctx.Err())
		case errors.Is(ctx.Err(), context.Canceled):
			return "", fmt.Errorf("%s CLI execution canceled: %w", c.tool, ctx.Err())
		}
		stderrStr := string(stderr)
		if isRateLimitError(stderrStr) {
			return "", &RateLimitError{Provider: string(c.tool) + "-cli", RawResponse: truncateString(stderrStr, 500)}
		}
		return "", fmt.Errorf("%s CLI execution failed: %w (stderr: %s)", c.tool, err, truncateString(stderrStr, 500))
	}

	text, err := spec.parse(stdout)
	if err != nil {
		var rl *RateLimitError
		if errors.As(err, &rl) {
			rl.Provider = string(c.tool) + "-cli"
			return "", rl
		}
		return "", fmt.Errorf("failed to read %s CLI response: %w", c.tool, err)
	}

	logging.API("[%s-cli] completed in %v response_len=%d", c.tool, time.Since(startTime), len(text))
	return text, nil
}

func buildCLIPrompt(systemPrompt, userPrompt string) string {
	if strings.TrimSpace(systemPrompt) == "" {
		return userPrompt
	}
	return fmt.Sprintf("<system_instructions>\n%s\n</system_instructions>\n\n%s", systemPrompt, userPrompt)
}

func execRun(ctx context.Context, name string, args []string, stdin string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func parsePlainText(data []byte) (string, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

// claudeEnvelope is the `claude --output-format json` result object.
type claudeEnvelope struct {
	Type    string `json:"type"`
	IsError bool   `json:"is_error"`
	Result  string `json:"result"`
}

func parseClaudeEnvelope(data []byte) (string, error) {
	text, err := parsePlainText(data)
	if err != nil {
		return "", err
	}
	var env claudeEnvelope
	if json.Unmarshal([]byte(text), &env) == nil && env.IsError {
		if isRateLimitError(env.Result) {
			return "", &RateLimitError{RawResponse: env.Result}
		}
		return "", fmt.Errorf("claude CLI error: %s", truncateString(env.Result, 500))
	}
	return text, nil
}

// codexEvent covers both the item-based and the message-based event shapes
// emitted by `codex exec --json`.
type codexEvent struct {
	Type string `json:"type"`
	Item *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"item,omitempty"`
	Message *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content,omitempty"`
	} `json:"message,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// parseCodexEvents returns the last agent message in the NDJSON stream.
func parseCodexEvents(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty response from codex CLI")
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var last string
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev codexEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		if ev.Error != nil {
			if isRateLimitError(ev.Error.Message) || isRateLimitError(ev.Error.Type) {
				return "", &RateLimitError{RawResponse: ev.Error.Message}
			}
			return "", fmt.Errorf("codex CLI error: %s", ev.Error.Message)
		}
		switch {
		case ev.Type == "item.completed" && ev.Item != nil && ev.Item.Type == "agent_message":
			last = ev.Item.Text
		case ev.Type == "message_stop" && ev.Message != nil:
			var b strings.Builder
			for _, c := range ev.Message.Content {
				if c.Type == "text" {
					b.WriteString(c.Text)
				}
			}
			last = b.String()
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading NDJSON stream: %w", err)
	}

	last = strings.TrimSpace(last)
	if last == "" {
		return "", errors.New("no agent message in codex CLI response")
	}
	return last, nil
}
