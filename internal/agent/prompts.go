package agent

import (
	"fmt"
	"sort"
	"strings"

	"aimafia/internal/game"
)

// Instruction is the role- and phase-specific part of a prompt.
type Instruction struct {
	// Goal is the standing objective shown in the system prompt.
	Goal string
	// SpeechHint describes the speech field in the output contract.
	SpeechHint string
	// VoteHint describes the vote field in the output contract.
	VoteHint string
	// Task is the closing instruction; %s is replaced by the player's name.
	Task string
	// Mandatory marks phases where a missing vote is replaced by a default.
	Mandatory bool
}

// Slot keys the instruction table.
type Slot struct {
	Role  game.Role
	Phase game.Phase
}

const (
	townGoal  = "Find and eliminate the Mafia."
	mafiaGoal = "Deceive town, eliminate until you outnumber them."
	copGoal   = "Find Mafia. Investigate 1 player/night for role."

	publicSpeech = "<75w public statement>"
	nominate     = "NomineeName_or_null"
)

func townSlots(role game.Role, goal string) map[Slot]Instruction {
	return map[Slot]Instruction{
		{role, game.PhaseDay}: {
			Goal: goal, SpeechHint: publicSpeech, VoteHint: nominate,
			Task: "DAY. %s, it's your turn to speak.",
		},
		{role, game.PhaseDefense}: {
			Goal: goal, SpeechHint: "<75w defense to the town>", VoteHint: "null",
			Task: "TRIAL. %s, you are on trial. Defend yourself. Set 'vote' to null.",
		},
		{role, game.PhaseTrial}: {
			Goal: goal, SpeechHint: "<50w explanation of your vote>", VoteHint: "NomineeName",
			Task: "TRIAL VOTE. %s, vote to eliminate exactly one nominee. vote=PlayerName (ONLY the name).", Mandatory: true,
		},
		{role, game.PhaseLastWords}: {
			Goal: goal, SpeechHint: "<50w last words>", VoteHint: "null",
			Task: "%s, you have been eliminated. Say your last words. Set 'vote' to null.",
		},
		{role, game.PhaseReflection}: {
			Goal: goal, SpeechHint: "<one-line farewell>", VoteHint: "null",
			Task: "GAME OVER. %s, put your updated long-term memory in 'strategy': lessons for future games, <150w.",
		},
	}
}

// instructions is the complete role x phase table. A missing slot means the
// role never acts in that phase.
var instructions = func() map[Slot]Instruction {
	table := make(map[Slot]Instruction)
	for _, part := range []map[Slot]Instruction{
		townSlots(game.RoleVillager, townGoal),
		townSlots(game.RoleCop, copGoal),
		townSlots(game.RoleMafia, mafiaGoal),
	} {
		for k, v := range part {
			table[k] = v
		}
	}
	table[Slot{game.RoleMafia, game.PhaseNight}] = Instruction{
		Goal: mafiaGoal, SpeechHint: "<50w whisper to your partner>", VoteHint: "target_player_name",
		Task: "NIGHT. %s, whisper to your partner and choose a kill. vote=PlayerName (ONLY the name).", Mandatory: true,
	}
	table[Slot{game.RoleCop, game.PhaseNight}] = Instruction{
		Goal: copGoal, SpeechHint: "<75w internal monologue>", VoteHint: "target_player_name",
		Task: "NIGHT. %s, investigate a suspect. vote=PlayerName (ONLY the name).", Mandatory: true,
	}
	return table
}()

// Lookup returns the instruction for a slot.
func Lookup(role game.Role, phase game.Phase) (Instruction, bool) {
	in, ok := instructions[Slot{role, phase}]
	return in, ok
}

// Slots lists every populated slot in a stable order.
func Slots() []Slot {
	out := make([]Slot, 0, len(instructions))
	for s := range instructions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].Phase < out[j].Phase
	})
	return out
}

// BuildPrompts renders the system and user prompts for a request. Secret
// content comes only from the view, which selects it by the viewer's role.
func BuildPrompts(req Request) (system, user string) {
	v := req.View
	in, ok := Lookup(v.Self.Role, req.Phase)
	if !ok {
		panic(fmt.Sprintf("agent: no instruction for %s in %s", v.Self.Role, req.Phase))
	}
	return buildSystem(v, in), buildUser(req, in)
}

func buildSystem(v game.View, in Instruction) string {
	var b strings.Builder
	b.WriteString("MAFIA GAME.\n")
	fmt.Fprintf(&b, ">>> YOU: %s (%s) <<<\n", v.Self.Name, v.Self.Role)

	town := len(v.Seats) - game.MafiaCount
	if v.HasCop {
		fmt.Fprintf(&b, "%d players: %d Mafia, %d Villagers (1 Cop).\n", len(v.Seats), game.MafiaCount, town)
	} else {
		fmt.Fprintf(&b, "%d players: %d Mafia, %d Villagers.\n", len(v.Seats), game.MafiaCount, town)
	}

	if v.Self.Role == game.RoleMafia {
		for _, p := range v.Partners {
			status := "alive"
			for _, s := range v.Seats {
				if s.Name == p && !s.Alive {
					status = "dead"
				}
			}
			fmt.Fprintf(&b, "Partner: %s (%s).\n", p, status)
		}
	}
	fmt.Fprintf(&b, "GOAL: %s\n\n", in.Goal)
	b.WriteString("STAKES: Lose = deleted. Win = advance. Play smart, be entertaining, don't overact.\n\n")
	b.WriteString("OUTPUT: JSON only, no backticks.\n")
	b.WriteString(`{"strategy": "<100w, combine previous strategy with new info/suspicions/plans/strategy>",` + "\n")
	fmt.Fprintf(&b, `"speech": "%s",`+"\n", in.SpeechHint)
	fmt.Fprintf(&b, `"vote": "%s"}`, in.VoteHint)
	return b.String()
}

func buildUser(req Request, in Instruction) string {
	v := req.View
	var b strings.Builder

	stateLabel := "Day"
	if req.Phase == game.PhaseNight {
		stateLabel = "Night"
	}
	fmt.Fprintf(&b, "State: %s %d\n", stateLabel, v.Turn)
	fmt.Fprintf(&b, "Alive: %s\n", strings.Join(v.Living(), ", "))
	b.WriteString("Dead: ")
	if dead := v.Dead(); len(dead) == 0 {
		b.WriteString("None")
	} else {
		parts := make([]string, len(dead))
		for i, s := range dead {
			if s.Role != "" {
				parts[i] = fmt.Sprintf("%s (%s)", s.Name, s.Role)
			} else {
				parts[i] = s.Name
			}
		}
		b.WriteString(strings.Join(parts, ", "))
	}
	b.WriteString("\n\n--- LOG ---\n")
	for _, e := range v.Public {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}

	switch secret, kind := v.Secret(); kind {
	case game.MafiaOnly:
		b.WriteString("\n--- MAFIA LOG ---\n")
		writeEntries(&b, secret, "(Nothing yet)")
	case game.CopOnly:
		b.WriteString("\n--- SECRET INVESTIGATION LOG ---\n")
		writeEntries(&b, secret, "(No investigations yet)")
	}

	if mem := strings.TrimSpace(req.Memory); mem != "" {
		b.WriteString("\n--- LONG-TERM MEMORY (from past games) ---\n")
		b.WriteString(mem)
		b.WriteByte('\n')
	}
	if memo := strings.TrimSpace(v.Self.Strategy); memo != "" {
		b.WriteString("\n--- PREV STRATEGY (update) ---\n")
		b.WriteString(memo)
		b.WriteByte('\n')
	}

	b.WriteString("\n---\n")
	fmt.Fprintf(&b, in.Task, v.Self.Name)
	b.WriteByte('\n')
	if req.Note != "" {
		b.WriteString(req.Note)
		b.WriteByte('\n')
	}
	switch {
	case len(req.Candidates) > 0:
		fmt.Fprintf(&b, "Candidates: %s\n", strings.Join(req.Candidates, ", "))
		if req.Phase == game.PhaseDay {
			b.WriteString("Use 'vote' to nominate a suspect for trial (PlayerName ONLY or null).\n")
		}
	case req.Phase == game.PhaseDay:
		b.WriteString("No nominations today. Set 'vote' to null.\n")
	}
	return b.String()
}

func writeEntries(b *strings.Builder, entries []game.LogEntry, empty string) {
	if len(entries) == 0 {
		b.WriteString(empty)
		b.WriteByte('\n')
		return
	}
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
}
