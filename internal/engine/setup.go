package engine

import (
	"fmt"
	"strings"

	"aimafia/internal/game"
	"aimafia/internal/logging"
)

// setup shuffles the seats, deals roles and records the secret reveals.
func (e *Engine) setup() error {
	rng := e.opts.Rand
	rng.Shuffle(len(e.seats), func(i, j int) { e.seats[i], e.seats[j] = e.seats[j], e.seats[i] })

	prefs := make([]string, len(e.seats))
	for i, s := range e.seats {
		prefs[i] = s.Prefer
	}
	roles, err := game.AssignRoles(prefs, e.opts.WithCop, rng)
	if err != nil {
		return fmt.Errorf("assign roles: %w", err)
	}

	records := make([]game.PlayerRecord, len(e.seats))
	for i, s := range e.seats {
		records[i] = game.PlayerRecord{
			Name:     s.Player.Name(),
			Role:     roles[i],
			Alive:    true,
			Provider: s.Provider,
			Model:    s.Model,
		}
	}
	state, err := game.NewState(e.opts.GameID, records, e.opts.RevealRoles)
	if err != nil {
		return fmt.Errorf("create game state: %w", err)
	}
	e.state = state
	state.Turn = 1
	state.Phase = game.PhaseSetup

	mafia := state.LivingWithRole(game.RoleMafia)
	cops := state.LivingWithRole(game.RoleCop)
	town := len(records) - len(mafia)
	composition := fmt.Sprintf("%d players: %d Mafia, %d Villagers", len(records), len(mafia), town)
	if len(cops) > 0 {
		composition += " (1 Cop)"
	}
	e.announce("start", composition+".", true)
	e.announce("roster", "Players: "+strings.Join(state.Names(), ", "), false)

	e.log(game.MafiaOnly, game.SystemActor, "reveal", "Mafia: "+strings.Join(mafia, ", "))
	if len(cops) > 0 {
		e.log(game.CopOnly, game.SystemActor, "reveal", "Cop: "+cops[0])
	}
	logging.EngineDebug("roles dealt: mafia=%v cop=%v", mafia, cops)

	if e.opts.Memory != nil {
		for _, name := range state.Names() {
			if e.players[name].Interactive() {
				continue
			}
			text, err := e.opts.Memory.Read(name)
			if err != nil {
				logging.Get(logging.CategoryEngine).Warn("memory for %s unavailable: %v", name, err)
				continue
			}
			e.memories[name] = text
		}
	}
	return nil
}
