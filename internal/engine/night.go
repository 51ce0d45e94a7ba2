package engine

import (
	"context"
	"fmt"
	"strings"

	"aimafia/internal/agent"
	"aimafia/internal/game"
	"aimafia/internal/narration"
)

// night runs the Mafia kill vote, then the Cop's investigation, then applies
// the kill. The Cop acts before the kill lands, so the pending victim is
// still alive in the Cop's view.
func (e *Engine) night(ctx context.Context) error {
	s := e.state
	s.Phase = game.PhaseNight
	s.Nominees = nil
	s.OnTrial = ""

	header := fmt.Sprintf("Night %d", s.Turn)
	e.announce("phase", header, true)
	e.log(game.MafiaOnly, game.SystemActor, "phase", header)

	mafia := s.LivingWithRole(game.RoleMafia)
	targets := e.nonMafia()

	ballots := make(map[string]string, len(mafia))
	prepare := func(name string) agent.Request {
		return e.request(name, game.PhaseNight, targets, "")
	}
	handle := func(res turnResult) *narration.Playback {
		out, _ := e.absorb(res, game.MafiaOnly)
		target, defaulted := resolveVote(out.Vote, targets, true)
		ballots[res.name] = target
		content := strings.TrimSpace(fmt.Sprintf("[Targeted %s] %s", target, out.Speech))
		action := "whisper"
		if defaulted {
			action = "vote_defaulted"
			content = strings.TrimSpace(fmt.Sprintf("[Targeted %s, defaulted from %q] %s", target, out.Vote, out.Speech))
		}
		e.log(game.MafiaOnly, res.name, action, content)
		if e.opts.NarrateSecrets {
			return e.speak(out.Speech, e.voice(res.name))
		}
		return nil
	}
	if err := e.sequence(ctx, mafia, prepare, handle); err != nil {
		return err
	}

	votes := game.Group(mafia, ballots)
	e.log(game.MafiaOnly, game.SystemActor, "tally", "Mafia votes: "+game.FormatTally(targets, votes))
	victim, tied := game.ResolveNight(targets, votes, e.opts.Rand)
	if len(tied) > 1 {
		e.log(game.MafiaOnly, game.SystemActor, "tie_break",
			fmt.Sprintf("Tie between %s. Randomly chose: %s", strings.Join(tied, ", "), victim))
	}
	if victim != "" {
		e.log(game.MafiaOnly, game.SystemActor, "target", "Target: "+victim)
	}

	if err := e.investigate(ctx); err != nil {
		return err
	}

	if victim == "" {
		e.announce("quiet", "The night passes quietly.", true)
		return nil
	}
	s.Eliminate(victim)
	e.pendingDeaths = append(e.pendingDeaths, victim)
	if s.CheckWin() != game.WinnerNone {
		return nil
	}
	return e.lastWords(ctx, []string{victim})
}

// investigate lets a living Cop learn one player's alignment.
func (e *Engine) investigate(ctx context.Context) error {
	cops := e.state.LivingWithRole(game.RoleCop)
	if len(cops) == 0 {
		return nil
	}
	cop := cops[0]
	candidates := e.state.ViewFor(cop).LivingExcept(cop)

	prepare := func(name string) agent.Request {
		return e.request(name, game.PhaseNight, candidates, "")
	}
	handle := func(res turnResult) *narration.Playback {
		out, _ := e.absorb(res, game.CopOnly)
		target, defaulted := resolveVote(out.Vote, candidates, true)
		action := "investigate"
		content := strings.TrimSpace(fmt.Sprintf("[Investigated %s] %s", target, out.Speech))
		if defaulted {
			action = "vote_defaulted"
			content = strings.TrimSpace(fmt.Sprintf("[Investigated %s, defaulted from %q] %s", target, out.Vote, out.Speech))
		}
		e.log(game.CopOnly, res.name, action, content)

		verdict := "Innocent"
		if p, _ := e.state.Player(target); p.Role == game.RoleMafia {
			verdict = "Mafia"
		}
		e.log(game.CopOnly, game.SystemActor, "verdict", fmt.Sprintf("%s is %s", target, verdict))
		if e.opts.NarrateSecrets {
			return e.speak(out.Speech, e.voice(res.name))
		}
		return nil
	}
	return e.sequence(ctx, []string{cop}, prepare, handle)
}

// nonMafia lists living Town players in seat order.
func (e *Engine) nonMafia() []string {
	var out []string
	for _, p := range e.state.Players() {
		if p.Alive && p.Role != game.RoleMafia {
			out = append(out, p.Name)
		}
	}
	return out
}
