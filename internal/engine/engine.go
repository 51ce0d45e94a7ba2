// Package engine drives one game of Mafia: Setup, then Day, Trial and Night
// until a side wins, then Reflection.
//
// The engine goroutine is the only writer of game state. Player turns run on
// other goroutines against View snapshots and hand back results, which the
// engine merges in canonical seat order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"aimafia/internal/agent"
	"aimafia/internal/console"
	"aimafia/internal/game"
	"aimafia/internal/logging"
	"aimafia/internal/narration"
	"aimafia/internal/store"

	"github.com/google/uuid"
)

// Seat is one roster entry handed to the engine.
type Seat struct {
	Player agent.Player
	// Prefer is the role preference: random, mafia, cop or villager.
	Prefer   string
	Provider string
	Model    string
}

// Observer sees every log entry as it is appended.
type Observer interface {
	OnEntry(vis game.Visibility, e game.LogEntry)
}

// Options tune a game. Zero values select the defaults.
type Options struct {
	GameID string
	// Rand drives the seat shuffle, role fill and Night tie-breaks.
	Rand *rand.Rand

	RevealRoles bool
	WithCop     bool
	// MaxDays ends the game as a draw after that many days; 0 is unlimited.
	MaxDays int

	VoteWorkers       int
	ReflectionWorkers int

	Narrator      narration.Narrator
	NarratorVoice string
	// NarrateSecrets speaks Mafia whispers and Cop results aloud. Leave it
	// off when a human is seated.
	NarrateSecrets bool

	Gate     console.Gate
	Observer Observer
	// Memory, when set, feeds long-term memory into prompts and enables
	// the Reflection pass that rewrites it.
	Memory store.MemoryStore

	Now func() time.Time
}

// Result summarizes a finished game.
type Result struct {
	GameID     string
	Winner     game.Winner
	Turns      int
	Started    time.Time
	Finished   time.Time
	Players    []game.PlayerRecord
	Transcript []game.TranscriptLine
	// Failures counts turns that failed after every retry.
	Failures int
}

// Engine runs a single game. It is not reusable.
type Engine struct {
	opts    Options
	seats   []Seat
	players map[string]agent.Player

	state    *game.State
	memories map[string]string
	// pendingDeaths are Night kills revealed at the next Day start.
	pendingDeaths []string
	failures      int

	inflight sync.WaitGroup
	playback []*narration.Playback
}

// New validates the roster and options.
func New(seats []Seat, opts Options) (*Engine, error) {
	if len(seats) < game.MinPlayers {
		return nil, fmt.Errorf("need at least %d players, have %d", game.MinPlayers, len(seats))
	}
	players := make(map[string]agent.Player, len(seats))
	humans := 0
	for _, s := range seats {
		if s.Player == nil {
			return nil, errors.New("seat without a player")
		}
		name := s.Player.Name()
		if _, dup := players[name]; dup {
			return nil, fmt.Errorf("duplicate player name %q", name)
		}
		players[name] = s.Player
		if s.Player.Interactive() {
			humans++
		}
	}
	if humans > 1 {
		return nil, fmt.Errorf("at most one interactive player, have %d", humans)
	}

	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.GameID == "" {
		opts.GameID = uuid.NewString()
	}
	if opts.Narrator == nil {
		opts.Narrator = narration.Silent{}
	}
	if opts.Gate == nil {
		opts.Gate = console.AlwaysOpen{}
	}
	if opts.VoteWorkers <= 0 {
		opts.VoteWorkers = 4
	}
	if opts.ReflectionWorkers <= 0 {
		opts.ReflectionWorkers = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Engine{
		opts:     opts,
		seats:    append([]Seat(nil), seats...),
		players:  players,
		memories: make(map[string]string),
	}, nil
}

// Run plays the game to completion. It returns early only when ctx is
// cancelled; individual player failures never stop the game.
func (e *Engine) Run(ctx context.Context) (res Result, err error) {
	res.GameID = e.opts.GameID
	res.Started = e.opts.Now()
	log := logging.Get(logging.CategoryEngine).With("game", e.opts.GameID)

	defer func() {
		e.inflight.Wait()
		for _, pb := range e.playback {
			_ = pb.Wait()
		}
		res.Finished = e.opts.Now()
		res.Failures = e.failures
		if e.state != nil {
			res.Turns = e.state.Turn
			res.Players = e.state.Players()
			res.Transcript = e.state.Transcript()
		}
	}()

	if err := e.setup(); err != nil {
		return res, err
	}
	log.Info("game started with %d players", len(e.seats))

	winner, err := e.loop(ctx)
	if err != nil {
		log.Warn("game interrupted: %v", err)
		return res, err
	}
	res.Winner = winner
	log.Info("game over after %d days, winner=%q", e.state.Turn, winner)

	if err := e.reflection(ctx, winner); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Engine) loop(ctx context.Context) (game.Winner, error) {
	for day := 1; ; day++ {
		if e.opts.MaxDays > 0 && day > e.opts.MaxDays {
			e.revealDeaths()
			e.announce("draw", fmt.Sprintf("Day limit of %d reached. The game is a draw.", e.opts.MaxDays), true)
			return game.WinnerNone, nil
		}
		e.state.Turn = day

		if err := e.day(ctx); err != nil {
			return "", err
		}
		if w := e.state.CheckWin(); w != game.WinnerNone {
			return w, nil
		}

		if err := e.night(ctx); err != nil {
			return "", err
		}
		if w := e.state.CheckWin(); w != game.WinnerNone {
			e.revealDeaths()
			return w, nil
		}
	}
}

// log appends an entry and shows it to the observer.
func (e *Engine) log(vis game.Visibility, actor, action, content string) game.LogEntry {
	entry := e.state.Log(vis, actor, action, content)
	if e.opts.Observer != nil {
		e.opts.Observer.OnEntry(vis, entry)
	}
	return entry
}

// announce logs a public System entry, optionally narrated.
func (e *Engine) announce(action, content string, speak bool) {
	e.log(game.Public, game.SystemActor, action, content)
	if speak {
		e.speak(content, e.opts.NarratorVoice)
	}
}

// speak starts background narration. The handle is joined before Run
// returns.
func (e *Engine) speak(text, voice string) *narration.Playback {
	if text == "" {
		return nil
	}
	pb := e.opts.Narrator.Speak(text, voice, true)
	e.playback = append(e.playback, pb)
	return pb
}

// Role reports a player's role once Setup has dealt them. It must be called
// from the engine goroutine, which includes Observer callbacks.
func (e *Engine) Role(name string) (game.Role, bool) {
	if e.state == nil {
		return "", false
	}
	p, ok := e.state.Player(name)
	return p.Role, ok
}

func (e *Engine) voice(name string) string {
	if p, ok := e.players[name]; ok && p.Voice() != "" {
		return p.Voice()
	}
	return e.opts.NarratorVoice
}

func (e *Engine) roleLine(name string) string {
	p, _ := e.state.Player(name)
	return string(p.Role)
}
