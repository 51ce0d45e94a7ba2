package engine

import (
	"context"
	"fmt"
	"strings"

	"aimafia/internal/agent"
	"aimafia/internal/game"
	"aimafia/internal/narration"
)

// day runs the speaking round and, when anyone was nominated, the trial.
func (e *Engine) day(ctx context.Context) error {
	s := e.state
	s.Phase = game.PhaseDay
	s.Nominees = nil
	s.OnTrial = ""

	e.announce("phase", fmt.Sprintf("Day %d", s.Turn), true)
	e.revealDeaths()
	e.announce("alive", "Alive: "+strings.Join(s.Living(), ", "), false)
	if warning, ok := e.lylo(); ok {
		e.announce("lylo", warning, true)
	}

	order := s.SpeakingOrder(s.Turn)
	e.announce("order", "Speaking order: "+strings.Join(order, ", "), false)

	nominations := make(map[string]int)
	prepare := func(name string) agent.Request {
		var candidates []string
		if s.Turn > 1 {
			candidates = e.state.ViewFor(name).LivingExcept(name)
		}
		return e.request(name, game.PhaseDay, candidates, "")
	}
	handle := func(res turnResult) *narration.Playback {
		out, ok := e.absorb(res, game.Public)
		if !ok {
			return nil
		}
		speech := out.Speech
		if s.Turn > 1 {
			candidates := e.state.ViewFor(res.name).LivingExcept(res.name)
			if target, _ := resolveVote(out.Vote, candidates, false); target != "" {
				nominations[target]++
				speech = fmt.Sprintf("[Nominated %s] %s", target, out.Speech)
				e.log(game.Public, res.name, "speak", speech)
				e.log(game.Public, res.name, "nominate", "nominates "+target)
				return e.speak(out.Speech, e.voice(res.name))
			}
		}
		e.log(game.Public, res.name, "speak", speech)
		return e.speak(speech, e.voice(res.name))
	}
	if err := e.sequence(ctx, order, prepare, handle); err != nil {
		return err
	}

	if len(nominations) == 0 {
		e.announce("no_nominations", fmt.Sprintf("No nominations Day %d", s.Turn), true)
		return nil
	}
	return e.trial(ctx, nominations)
}

// trial runs defenses in ascending nomination order, collects the mandatory
// votes concurrently and eliminates every nominee tied at the top.
func (e *Engine) trial(ctx context.Context, nominations map[string]int) error {
	s := e.state
	s.Nominees = game.DefenseOrder(s.Names(), nominations)
	// canonical is the nominee set in seat order; its first entry is the
	// default for an invalid vote.
	canonical := game.DefenseOrder(s.Names(), onePerNominee(nominations))

	parts := make([]string, len(s.Nominees))
	for i, n := range s.Nominees {
		parts[i] = fmt.Sprintf("%s (%d)", n, nominations[n])
	}
	e.announce("nominees", "Nominees: "+strings.Join(parts, ", "), true)

	s.Phase = game.PhaseDefense
	prepare := func(name string) agent.Request {
		s.OnTrial = name
		e.announce("trial", "Trial for "+name, false)
		return e.request(name, game.PhaseDefense, nil, "")
	}
	handle := func(res turnResult) *narration.Playback {
		out, ok := e.absorb(res, game.Public)
		if !ok {
			return nil
		}
		e.log(game.Public, res.name, "defense", out.Speech)
		return e.speak(out.Speech, e.voice(res.name))
	}
	if err := e.sequence(ctx, s.Nominees, prepare, handle); err != nil {
		return err
	}

	s.Phase = game.PhaseTrial
	s.OnTrial = ""
	voters := s.Living()
	e.announce("vote_order", "Speaking order for votes: "+strings.Join(voters, ", "), false)

	results, err := e.collect(ctx, voters, e.opts.VoteWorkers, func(name string) agent.Request {
		return e.request(name, game.PhaseTrial, canonical, "")
	})
	if err != nil {
		return err
	}

	ballots := make(map[string]string, len(results))
	for _, res := range results {
		out, _ := e.absorb(res, game.Public)
		target, defaulted := resolveVote(out.Vote, canonical, true)
		ballots[res.name] = target
		if defaulted {
			raw := out.Vote
			if raw == "" {
				raw = "none"
			}
			e.log(game.Public, res.name, "vote_defaulted",
				strings.TrimSpace(fmt.Sprintf("[Voted %s, defaulted from %q] %s", target, raw, out.Speech)))
			continue
		}
		e.log(game.Public, res.name, "vote", strings.TrimSpace(fmt.Sprintf("[Voted %s] %s", target, out.Speech)))
	}

	votes := game.Group(voters, ballots)
	e.announce("tally", "Votes: "+game.FormatTally(s.Nominees, votes), true)

	eliminated := game.ResolveTrial(s.Nominees, votes)
	s.Nominees = nil
	if len(eliminated) == 0 {
		e.announce("no_elimination", "No one is eliminated.", true)
		return nil
	}
	if len(eliminated) > 1 {
		e.announce("tie", "Tie between "+strings.Join(eliminated, ", ")+". All tied nominees are eliminated.", true)
	}

	if !e.endsGame(eliminated) {
		if err := e.lastWords(ctx, eliminated); err != nil {
			return err
		}
	}
	for _, name := range eliminated {
		s.Eliminate(name)
		if s.RevealRoles {
			e.announce("eliminated", fmt.Sprintf("%s eliminated. Role: %s", name, e.roleLine(name)), true)
		} else {
			e.announce("eliminated", name+" eliminated.", true)
		}
	}
	return nil
}

func onePerNominee(nominations map[string]int) map[string]int {
	out := make(map[string]int, len(nominations))
	for n := range nominations {
		out[n] = 1
	}
	return out
}

// lastWords gives each victim one final public turn.
func (e *Engine) lastWords(ctx context.Context, victims []string) error {
	prev := e.state.Phase
	e.state.Phase = game.PhaseLastWords
	defer func() { e.state.Phase = prev }()

	prepare := func(name string) agent.Request {
		return e.request(name, game.PhaseLastWords, nil, "")
	}
	handle := func(res turnResult) *narration.Playback {
		out, ok := e.absorb(res, game.Public)
		if !ok || out.Speech == "" {
			return nil
		}
		e.log(game.Public, res.name, "last_words", out.Speech)
		return e.speak(out.Speech, e.voice(res.name))
	}
	return e.sequence(ctx, victims, prepare, handle)
}

// endsGame reports whether removing victims would decide the game.
func (e *Engine) endsGame(victims []string) bool {
	mafia, others := e.state.LivingCounts()
	for _, v := range victims {
		if p, _ := e.state.Player(v); p.Role == game.RoleMafia {
			mafia--
		} else {
			others--
		}
	}
	return game.EvaluateWin(mafia, others) != game.WinnerNone
}

// revealDeaths announces the Night kills that are still unannounced.
func (e *Engine) revealDeaths() {
	for _, name := range e.pendingDeaths {
		if e.state.RevealRoles {
			e.announce("killed", fmt.Sprintf("%s was killed. Role: %s", name, e.roleLine(name)), true)
		} else {
			e.announce("killed", name+" was killed.", true)
		}
	}
	e.pendingDeaths = nil
}

// lylo warns when one wrong lynch followed by a kill hands Mafia the game.
// Only meaningful when roles are revealed, since the Mafia count is public.
func (e *Engine) lylo() (string, bool) {
	if !e.state.RevealRoles {
		return "", false
	}
	mafia, others := e.state.LivingCounts()
	if mafia == 0 || e.state.Turn == 1 {
		return "", false
	}
	if game.EvaluateWin(mafia, others-2) != game.WinnerMafia {
		return "", false
	}
	return fmt.Sprintf("LYLO: %d Mafia / %d Alive. Misvote = LOSE!!!", mafia, mafia+others), true
}
