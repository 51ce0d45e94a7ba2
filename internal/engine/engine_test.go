package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"aimafia/internal/agent"
	"aimafia/internal/agent/agenttest"
	"aimafia/internal/game"
	"aimafia/internal/narration"
	"aimafia/internal/store"
	"aimafia/internal/turnparse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seven = []string{"Alex", "Blake", "Casey", "Dana", "Echo", "Finn", "Gray"}

type collector struct {
	mu    sync.Mutex
	lines []game.TranscriptLine
}

func (c *collector) OnEntry(vis game.Visibility, e game.LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, game.TranscriptLine{Visibility: vis, Entry: e})
}

func TestRun_TownWinsWithOracle(t *testing.T) {
	seats, _ := table(t, seven, oracle("Alex", "Blake"))
	rec := &narration.Recorder{}
	obs := &collector{}

	e, err := New(seats, Options{
		GameID:      "g-oracle",
		Rand:        seeded(),
		RevealRoles: true,
		WithCop:     true,
		Narrator:    rec,
		Observer:    obs,
	})
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "g-oracle", res.GameID)
	assert.Equal(t, game.WinnerTown, res.Winner)
	assert.Equal(t, 3, res.Turns)
	assert.Zero(t, res.Failures)
	assert.Len(t, res.Transcript, len(obs.lines), "observer sees every entry")

	first := firstInSeatOrder(res, "Alex", "Blake")
	second := "Alex"
	if first == "Alex" {
		second = "Blake"
	}

	public := entries(res, game.Public, "")
	var text []string
	for _, e := range public {
		text = append(text, e.Content)
	}
	joined := strings.Join(text, "\n")
	assert.Contains(t, joined, "No nominations Day 1")
	assert.Contains(t, joined, first+" eliminated. Role: Mafia")
	assert.Contains(t, joined, second+" eliminated. Role: Mafia")
	assert.Contains(t, joined, "Game over: Town wins.")
	assert.Contains(t, joined, "was killed. Role: ")

	// Day 2 last words for the first Mafia, none for the game-ending one.
	var lastWords []string
	for _, e := range entries(res, game.Public, "last_words") {
		lastWords = append(lastWords, e.Actor)
	}
	assert.Contains(t, lastWords, first)
	assert.NotContains(t, lastWords, second)

	// Secrets stay in their logs.
	for _, l := range res.Transcript {
		switch l.Entry.Action {
		case "whisper", "target", "tie_break":
			assert.Equal(t, game.MafiaOnly, l.Visibility, "%s", l.Entry)
		case "investigate", "verdict":
			assert.Equal(t, game.CopOnly, l.Visibility, "%s", l.Entry)
		}
	}
	assert.NotEmpty(t, entries(res, game.CopOnly, "verdict"))
	assert.Len(t, entries(res, game.MafiaOnly, "reveal"), 1)

	assert.Contains(t, rec.Texts(), "Day 1")
	for _, u := range rec.Utterances() {
		assert.True(t, u.Background)
		assert.NotContains(t, u.Text, "[Targeted", "whispers are not narrated by default")
	}
}

func TestRun_TieEliminatesBothNominees(t *testing.T) {
	// Night 1 kills Gray. Day 2: Casey and Dana nominate Alex, Echo and
	// Finn nominate Blake. Votes split 3-3.
	nominate := map[string]string{"Casey": "Alex", "Dana": "Alex", "Echo": "Blake", "Finn": "Blake"}
	vote := map[string]string{"Casey": "Alex", "Dana": "Alex", "Echo": "Blake", "Finn": "Blake", "Alex": "Blake", "Blake": "Alex"}
	p := func(b *bot, req agent.Request) turnparse.Output {
		out := turnparse.Output{Speech: "..."}
		switch req.Phase {
		case game.PhaseDay:
			out.Vote = nominate[b.name]
		case game.PhaseTrial:
			out.Vote = vote[b.name]
		case game.PhaseNight:
			out.Vote = "Gray"
		}
		return out
	}
	seats, _ := table(t, seven, p)
	e, err := New(seats, Options{Rand: seeded(), RevealRoles: true})
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, game.WinnerTown, res.Winner)
	assert.Equal(t, 2, res.Turns)

	var eliminated []string
	for _, e := range entries(res, game.Public, "eliminated") {
		eliminated = append(eliminated, strings.Fields(e.Content)[0])
	}
	assert.ElementsMatch(t, []string{"Alex", "Blake"}, eliminated)
	assert.Len(t, entries(res, game.Public, "tie"), 1)
	lastWords := entries(res, game.Public, "last_words")
	require.Len(t, lastWords, 1, "the tie ends the game, so only the Night victim speaks")
	assert.Equal(t, "Gray", lastWords[0].Actor)

	tally := entries(res, game.Public, "tally")
	require.Len(t, tally, 1)
	assert.Contains(t, tally[0].Content, "Alex (3)")
	assert.Contains(t, tally[0].Content, "Blake (3)")

	for _, p := range res.Players {
		assert.Equal(t, p.Name != "Alex" && p.Name != "Blake" && p.Name != "Gray", p.Alive, p.Name)
	}
}

func TestRun_InvalidTrialVoteDefaultsToFirstNominee(t *testing.T) {
	nominate := map[string]string{"Casey": "Alex", "Dana": "Blake"}
	p := func(b *bot, req agent.Request) turnparse.Output {
		out := turnparse.Output{Speech: "hmm"}
		switch req.Phase {
		case game.PhaseDay:
			out.Vote = nominate[b.name]
		case game.PhaseTrial:
			out.Vote = "Zed"
			if b.name != "Casey" {
				out.Vote = "Alex"
			}
		case game.PhaseNight:
			out.Vote = "Gray"
		}
		return out
	}
	seats, _ := table(t, seven, p)
	e, err := New(seats, Options{Rand: seeded(), RevealRoles: true, MaxDays: 2})
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	want := firstInSeatOrder(res, "Alex", "Blake")
	defaulted := entries(res, game.Public, "vote_defaulted")
	require.Len(t, defaulted, 1)
	assert.Equal(t, "Casey", defaulted[0].Actor)
	assert.Equal(t, fmt.Sprintf("[Voted %s, defaulted from %q] hmm", want, "Zed"), defaulted[0].Content)

	for _, v := range entries(res, game.Public, "vote") {
		assert.NotEqual(t, "Casey", v.Actor, "a defaulted vote is not logged as a genuine vote")
	}
}

func TestRun_RetriesAreLoggedBeforeTheTurn(t *testing.T) {
	seats, bots := table(t, seven, oracle("Alex", "Blake"))
	client := &agenttest.ScriptedClient{
		Script: []any{fmt.Errorf("503"), "garbage"},
		Fallback: func(string, string) (string, error) {
			return `{"strategy": "steady", "speech": "Finally here.", "vote": null}`, nil
		},
	}
	flaky := agent.NewAgentPlayer("Finn", "v", client, 3, 0)
	for i := range seats {
		if seats[i].Player.Name() == "Finn" {
			seats[i].Player = flaky
		}
	}
	delete(bots, "Finn")

	e, err := New(seats, Options{Rand: seeded(), MaxDays: 1})
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	var finn []game.LogEntry
	for _, l := range res.Transcript {
		if l.Entry.Actor == "Finn" && l.Entry.Phase == game.PhaseDay {
			finn = append(finn, l.Entry)
		}
	}
	require.Len(t, finn, 3)
	assert.Equal(t, "retry", finn[0].Action)
	assert.Equal(t, "retry", finn[1].Action)
	assert.Contains(t, finn[1].Content, "unreadable response")
	assert.Equal(t, "speak", finn[2].Action)
	assert.Equal(t, "Finally here.", finn[2].Content)

	p, _ := e.state.Player("Finn")
	assert.Equal(t, "steady", p.Strategy)
}

func TestRun_FailedPlayerDoesNotStopTheGame(t *testing.T) {
	seats, bots := table(t, seven, oracle("Alex", "Blake"))
	bots["Echo"].fail = true

	e, err := New(seats, Options{Rand: seeded(), RevealRoles: true})
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, game.WinnerNone, res.Winner)
	assert.Positive(t, res.Failures)
	failed := entries(res, game.Public, "failed")
	require.NotEmpty(t, failed)
	assert.Equal(t, "Echo", failed[0].Actor)
	assert.Equal(t, "failed to act", failed[0].Content)
}

func TestRun_MaxDaysIsADraw(t *testing.T) {
	quiet := func(b *bot, req agent.Request) turnparse.Output {
		out := turnparse.Output{Speech: "pass"}
		if req.Phase == game.PhaseNight && len(req.Candidates) > 0 {
			out.Vote = req.Candidates[len(req.Candidates)-1]
		}
		return out
	}
	seats, _ := table(t, seven, quiet)
	e, err := New(seats, Options{Rand: seeded(), MaxDays: 1})
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, game.WinnerNone, res.Winner)
	assert.Len(t, entries(res, game.Public, "draw"), 1)
}

func TestRun_HumanVotesFirstAndAlone(t *testing.T) {
	var mu sync.Mutex
	botVotes := make(map[int]int)
	var humanSaw []int

	base := oracle("Alex", "Blake")
	p := func(b *bot, req agent.Request) turnparse.Output {
		if req.Phase == game.PhaseTrial {
			mu.Lock()
			if b.human {
				humanSaw = append(humanSaw, botVotes[req.View.Turn])
			} else {
				botVotes[req.View.Turn]++
			}
			mu.Unlock()
		}
		return base(b, req)
	}
	seats, bots := table(t, seven, p)
	bots["Casey"].human = true

	mem := store.NewFileMemory(t.TempDir())
	e, err := New(seats, Options{Rand: seeded(), RevealRoles: true, WithCop: true, Memory: mem})
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	require.NoError(t, err)

	for _, n := range humanSaw {
		assert.Zero(t, n, "the human votes before any automated player")
	}
	for _, req := range bots["Casey"].seen() {
		assert.NotEqual(t, game.PhaseReflection, req.Phase, "humans do not reflect")
	}
}

func TestNew_Validation(t *testing.T) {
	seats, _ := table(t, seven[:4], oracle())
	_, err := New(seats, Options{})
	assert.ErrorContains(t, err, "at least 5")

	seats, _ = table(t, []string{"A", "B", "C", "D", "A"}, oracle())
	_, err = New(seats, Options{})
	assert.ErrorContains(t, err, "duplicate")

	seats, bots := table(t, seven, oracle())
	bots["Alex"].human = true
	bots["Casey"].human = true
	_, err = New(seats, Options{})
	assert.ErrorContains(t, err, "interactive")
}

func TestRun_MemoryRoundTrip(t *testing.T) {
	mem := store.NewFileMemory(filepath.Join(t.TempDir(), "memories"))
	require.NoError(t, mem.Write("Casey", "old lesson"))

	seats, bots := table(t, seven, oracle("Alex", "Blake"))
	e, err := New(seats, Options{Rand: seeded(), RevealRoles: true, Memory: mem})
	require.NoError(t, err)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	reqs := bots["Casey"].seen()
	require.NotEmpty(t, reqs)
	assert.Equal(t, "old lesson", reqs[0].Memory)

	for _, p := range res.Players {
		text, err := mem.Read(p.Name)
		require.NoError(t, err)
		switch {
		case p.Alive:
			assert.Equal(t, "lesson from "+p.Name, text)
		case p.Name == "Casey":
			assert.Equal(t, "old lesson", text)
		default:
			assert.Empty(t, text)
		}
	}
}

// holdNarrator keeps every utterance playing until released.
type holdNarrator struct {
	release  chan struct{}
	once     sync.Once
	timedOut atomic.Bool
}

func (h *holdNarrator) Speak(string, string, bool) *narration.Playback {
	return narration.Go(func() error {
		select {
		case <-h.release:
		case <-time.After(2 * time.Second):
			h.timedOut.Store(true)
		}
		return nil
	})
}

func TestSequence_PrefetchOverlapsNarration(t *testing.T) {
	h := &holdNarrator{release: make(chan struct{})}
	var daySpeakers atomic.Int32
	base := oracle("Alex", "Blake")
	p := func(b *bot, req agent.Request) turnparse.Output {
		if req.Phase == game.PhaseDay && req.View.Turn == 1 {
			if daySpeakers.Add(1) == 2 {
				// Generated while the first speech is still playing.
				h.once.Do(func() { close(h.release) })
			}
		}
		return base(b, req)
	}
	seats, _ := table(t, seven, p)
	e, err := New(seats, Options{Rand: seeded(), Narrator: h, MaxDays: 1})
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, h.timedOut.Load(), "next speaker was not prefetched during narration")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seats, _ := table(t, seven, oracle("Alex", "Blake"))
	e, err := New(seats, Options{Rand: seeded()})
	require.NoError(t, err)
	res, err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotEmpty(t, res.Transcript)
}
