package engine

import (
	"context"
	"strings"
	"testing"

	"aimafia/internal/agent"
	"aimafia/internal/game"
	"aimafia/internal/turnparse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqOf returns the Seq of the only entry matching vis, action and actor.
func seqOf(t *testing.T, res Result, vis game.Visibility, action, actor string) int {
	t.Helper()
	var found []game.LogEntry
	for _, e := range entries(res, vis, action) {
		if actor == "" || e.Actor == actor {
			found = append(found, e)
		}
	}
	require.Len(t, found, 1, "%s %s by %q", vis, action, actor)
	return found[0].Seq
}

func TestNight_CopActsBeforeTheKillLands(t *testing.T) {
	p := func(b *bot, req agent.Request) turnparse.Output {
		out := turnparse.Output{Speech: b.name + " speaks"}
		if req.Phase != game.PhaseNight {
			return out
		}
		switch req.View.Self.Role {
		case game.RoleMafia:
			out.Vote = "Casey"
		case game.RoleCop:
			out.Vote = "Alex"
		}
		return out
	}
	seats, bots := table(t, seven, p)
	for i := range seats {
		if seats[i].Player.Name() == "Gray" {
			seats[i].Prefer = game.PreferCop
		}
	}

	e, err := New(seats, Options{Rand: seeded(), RevealRoles: true, WithCop: true, MaxDays: 1})
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	roles := map[string]game.Role{}
	for _, pl := range res.Players {
		roles[pl.Name] = pl.Role
	}
	require.Equal(t, game.RoleCop, roles["Gray"])
	require.Equal(t, game.RoleMafia, roles["Alex"])

	var copNight []agent.Request
	for _, req := range bots["Gray"].seen() {
		if req.Phase == game.PhaseNight {
			copNight = append(copNight, req)
		}
	}
	require.Len(t, copNight, 1)
	assert.Contains(t, copNight[0].Candidates, "Casey", "pending victim is still a candidate")
	assert.NotContains(t, copNight[0].Candidates, "Gray")
	assert.Contains(t, copNight[0].View.Living(), "Casey", "pending victim is still alive for the Cop")

	target := seqOf(t, res, game.MafiaOnly, "target", "")
	investigate := seqOf(t, res, game.CopOnly, "investigate", "Gray")
	verdict := seqOf(t, res, game.CopOnly, "verdict", "")
	lastWords := seqOf(t, res, game.Public, "last_words", "Casey")
	killed := seqOf(t, res, game.Public, "killed", "")

	assert.Less(t, target, investigate, "consensus before the Cop acts")
	assert.Less(t, investigate, verdict)
	assert.Less(t, verdict, lastWords, "kill lands after the verdict")
	assert.Less(t, lastWords, killed)

	assert.Equal(t, "Alex is Mafia", entries(res, game.CopOnly, "verdict")[0].Content)
	assert.Equal(t, "Casey was killed. Role: "+string(roles["Casey"]), entries(res, game.Public, "killed")[0].Content)
	assert.Equal(t, game.WinnerNone, res.Winner)
}

func TestNight_TieBreakIsLoggedAndReplays(t *testing.T) {
	split := map[string]string{"Alex": "Casey", "Blake": "Dana"}
	p := func(b *bot, req agent.Request) turnparse.Output {
		out := turnparse.Output{Speech: b.name + " speaks"}
		if req.Phase == game.PhaseNight {
			out.Vote = split[b.name]
		}
		return out
	}
	run := func() Result {
		seats, _ := table(t, seven, p)
		e, err := New(seats, Options{Rand: seeded(), RevealRoles: true, MaxDays: 1})
		require.NoError(t, err)
		res, err := e.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	first := run()

	tally := entries(first, game.MafiaOnly, "tally")
	require.Len(t, tally, 1)
	assert.Contains(t, tally[0].Content, "Casey (1)")
	assert.Contains(t, tally[0].Content, "Dana (1)")

	ties := entries(first, game.MafiaOnly, "tie_break")
	require.Len(t, ties, 1)
	assert.Contains(t, ties[0].Content, "Casey")
	assert.Contains(t, ties[0].Content, "Dana")
	assert.Empty(t, entries(first, game.Public, "tie_break"))
	assert.Empty(t, entries(first, game.CopOnly, "tie_break"))

	_, chosen, ok := strings.Cut(ties[0].Content, "Randomly chose: ")
	require.True(t, ok)
	assert.Contains(t, []string{"Casey", "Dana"}, chosen)
	assert.Equal(t, "Target: "+chosen, entries(first, game.MafiaOnly, "target")[0].Content)
	killed := entries(first, game.Public, "killed")
	require.Len(t, killed, 1)
	assert.True(t, strings.HasPrefix(killed[0].Content, chosen+" was killed."))

	second := run()
	assert.Equal(t, ties[0].Content, entries(second, game.MafiaOnly, "tie_break")[0].Content, "same seed, same tie-break")
	assert.Equal(t, killed[0].Content, entries(second, game.Public, "killed")[0].Content)
}
