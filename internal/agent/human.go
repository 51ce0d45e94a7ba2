package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"aimafia/internal/console"
	"aimafia/internal/game"
	"aimafia/internal/turnparse"
)

// HumanPlayer answers turns from the console.
type HumanPlayer struct {
	name   string
	voice  string
	prompt console.Prompter
}

// NewHumanPlayer creates the interactive player.
func NewHumanPlayer(name, voice string, prompt console.Prompter) *HumanPlayer {
	return &HumanPlayer{name: name, voice: voice, prompt: prompt}
}

func (h *HumanPlayer) Name() string      { return h.name }
func (h *HumanPlayer) Voice() string     { return h.voice }
func (h *HumanPlayer) Interactive() bool { return true }

// ProduceTurn asks for a speech and, when the phase has candidates, a vote.
// A mandatory vote is asked again until it names a candidate.
func (h *HumanPlayer) ProduceTurn(ctx context.Context, req Request) (Response, error) {
	in, ok := Lookup(req.View.Self.Role, req.Phase)
	if !ok {
		return Response{}, fmt.Errorf("no %s turn for role %s", req.Phase, req.View.Self.Role)
	}

	task := fmt.Sprintf(in.Task, h.name)
	header := fmt.Sprintf(">>> YOU: %s (%s) <<<  Alive: %s", h.name, req.View.Self.Role, strings.Join(req.View.Living(), ", "))
	speech, err := h.prompt.Ask(ctx, fmt.Sprintf("\n%s\n%s\n%s > ", header, task, speechLabel(req.Phase)))
	if err != nil {
		return Response{}, &TurnFailure{Player: h.name, Attempts: 1, Last: err}
	}
	out := turnparse.Output{Speech: strings.TrimSpace(speech)}

	if len(req.Candidates) == 0 {
		return Response{Output: out}, nil
	}

	menu := make([]string, len(req.Candidates))
	for i, c := range req.Candidates {
		menu[i] = fmt.Sprintf("%d) %s", i+1, c)
	}
	question := fmt.Sprintf("%s\nVote (number or name", strings.Join(menu, "  "))
	if !in.Mandatory {
		question += ", empty for none"
	}
	question += ") > "

	for {
		answer, err := h.prompt.Ask(ctx, question)
		if err != nil {
			return Response{Output: out}, &TurnFailure{Player: h.name, Attempts: 1, Last: err}
		}
		answer = strings.TrimSpace(answer)
		if answer == "" && !in.Mandatory {
			return Response{Output: out}, nil
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(req.Candidates) {
			out.Vote = req.Candidates[n-1]
			return Response{Output: out}, nil
		}
		if name, ok := turnparse.ResolveVote(answer, req.Candidates); ok {
			out.Vote = name
			return Response{Output: out}, nil
		}
	}
}

func speechLabel(phase game.Phase) string {
	switch phase {
	case game.PhaseNight:
		return "Whisper"
	case game.PhaseDefense:
		return "Defense"
	case game.PhaseLastWords:
		return "Last words"
	default:
		return "Speech"
	}
}
