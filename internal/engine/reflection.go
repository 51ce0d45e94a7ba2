package engine

import (
	"context"
	"fmt"
	"strings"

	"aimafia/internal/agent"
	"aimafia/internal/game"
	"aimafia/internal/logging"
)

// reflection announces the result and, with a memory store configured,
// asks every surviving automated player for updated long-term memory.
func (e *Engine) reflection(ctx context.Context, winner game.Winner) error {
	s := e.state
	s.Phase = game.PhaseReflection
	s.Nominees = nil
	s.OnTrial = ""

	result := "Game over: draw."
	if winner != game.WinnerNone {
		result = fmt.Sprintf("Game over: %s wins.", winner)
	}
	e.announce("result", result, true)

	roles := make([]string, 0, len(s.Players()))
	for _, p := range s.Players() {
		roles = append(roles, fmt.Sprintf("%s (%s)", p.Name, p.Role))
	}
	e.announce("roles", "Roles: "+strings.Join(roles, ", "), false)

	if e.opts.Memory == nil {
		return nil
	}

	var names []string
	for _, name := range s.Living() {
		if !e.players[name].Interactive() {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}

	note := result + " " + "Roles: " + strings.Join(roles, ", ") + "."
	results, err := e.collect(ctx, names, e.opts.ReflectionWorkers, func(name string) agent.Request {
		return e.request(name, game.PhaseReflection, nil, note)
	})
	if err != nil {
		return err
	}

	log := logging.Get(logging.CategoryEngine)
	for _, res := range results {
		out, ok := e.absorb(res, game.Public)
		if !ok {
			continue
		}
		if out.Speech != "" {
			e.log(game.Public, res.name, "farewell", out.Speech)
		}
		if out.Strategy == nil || strings.TrimSpace(*out.Strategy) == "" {
			log.Debug("%s left no memory update", res.name)
			continue
		}
		if err := e.opts.Memory.Write(res.name, *out.Strategy); err != nil {
			log.Warn("memory write for %s failed: %v", res.name, err)
		}
	}
	return nil
}
