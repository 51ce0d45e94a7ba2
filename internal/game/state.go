// Package game holds the Mafia rule model: roles, the shared game state, its
// role-partitioned logs, and the pure vote/elimination/win resolution.
//
// State is owned by a single coordinating goroutine. Concurrent readers work on
// View snapshots obtained through ViewFor, never on the State itself.
package game

import (
	"fmt"
	"sort"
)

// Role is a player's secret allegiance.
type Role string

const (
	RoleMafia    Role = "Mafia"
	RoleCop      Role = "Cop"
	RoleVillager Role = "Villager"
)

// Phase names a step of the game loop.
type Phase string

const (
	PhaseSetup      Phase = "Setup"
	PhaseDay        Phase = "Day"
	PhaseDefense    Phase = "Defense"
	PhaseTrial      Phase = "Trial"
	PhaseLastWords  Phase = "LastWords"
	PhaseNight      Phase = "Night"
	PhaseReflection Phase = "Reflection"
)

// Visibility selects which log an entry is stored in.
type Visibility int

const (
	Public Visibility = iota
	MafiaOnly
	CopOnly
)

func (v Visibility) String() string {
	switch v {
	case MafiaOnly:
		return "mafia"
	case CopOnly:
		return "cop"
	default:
		return "public"
	}
}

// MafiaCount is the fixed size of the Mafia team.
const MafiaCount = 2

// SystemActor is the actor name used for engine announcements.
const SystemActor = "System"

// LogEntry is one immutable line of game history.
type LogEntry struct {
	Seq     int
	Turn    int
	Phase   Phase
	Actor   string
	Action  string
	Content string
}

// String renders the entry the way prompts and transcripts show it.
func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Actor, e.Content)
}

// PlayerRecord is the per-player slice of the game state.
type PlayerRecord struct {
	Name     string
	Role     Role
	Alive    bool
	Provider string
	Model    string
	Strategy string
}

// State is the single shared game state.
type State struct {
	ID          string
	Turn        int
	Phase       Phase
	RevealRoles bool
	Nominees    []string
	OnTrial     string

	players []*PlayerRecord
	index   map[string]*PlayerRecord
	seq     int

	public []LogEntry
	mafia  []LogEntry
	cop    []LogEntry
}

// NewState seats players in the given (canonical) order. Roles must already be
// assigned: exactly two Mafia and at most one Cop.
func NewState(id string, players []PlayerRecord, revealRoles bool) (*State, error) {
	s := &State{
		ID:          id,
		Turn:        1,
		Phase:       PhaseSetup,
		RevealRoles: revealRoles,
		index:       make(map[string]*PlayerRecord, len(players)),
	}

	mafia, cops := 0, 0
	for _, p := range players {
		if p.Name == "" || p.Name == SystemActor {
			return nil, fmt.Errorf("invalid player name %q", p.Name)
		}
		if _, dup := s.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate player name %q", p.Name)
		}
		switch p.Role {
		case RoleMafia:
			mafia++
		case RoleCop:
			cops++
		case RoleVillager:
		default:
			return nil, fmt.Errorf("player %s has unknown role %q", p.Name, p.Role)
		}
		rec := p
		rec.Alive = true
		s.players = append(s.players, &rec)
		s.index[rec.Name] = &rec
	}

	if mafia != MafiaCount {
		return nil, fmt.Errorf("need exactly %d Mafia, have %d", MafiaCount, mafia)
	}
	if cops > 1 {
		return nil, fmt.Errorf("at most one Cop allowed, have %d", cops)
	}
	if len(players)-mafia <= mafia {
		return nil, fmt.Errorf("town must outnumber Mafia at setup (%d players)", len(players))
	}
	return s, nil
}

// Append stores an entry in exactly one log, chosen by visibility.
func (s *State) Append(vis Visibility, e LogEntry) LogEntry {
	s.seq++
	e.Seq = s.seq
	switch vis {
	case Public:
		s.public = append(s.public, e)
	case MafiaOnly:
		s.mafia = append(s.mafia, e)
	case CopOnly:
		s.cop = append(s.cop, e)
	default:
		panic(fmt.Sprintf("game: unknown visibility %d", vis))
	}
	return e
}

// Log appends an entry stamped with the current turn and phase.
func (s *State) Log(vis Visibility, actor, action, content string) LogEntry {
	return s.Append(vis, LogEntry{
		Turn:    s.Turn,
		Phase:   s.Phase,
		Actor:   actor,
		Action:  action,
		Content: content,
	})
}

// Announce appends a public System entry.
func (s *State) Announce(action, content string) LogEntry {
	return s.Log(Public, SystemActor, action, content)
}

// PublicLog returns a copy of the public log.
func (s *State) PublicLog() []LogEntry {
	return append([]LogEntry(nil), s.public...)
}

// TranscriptLine is a log entry tagged with the log it came from.
type TranscriptLine struct {
	Visibility Visibility
	Entry      LogEntry
}

// Transcript merges the three logs in append order. It is meant for
// persistence after the game, never for prompts.
func (s *State) Transcript() []TranscriptLine {
	out := make([]TranscriptLine, 0, len(s.public)+len(s.mafia)+len(s.cop))
	for _, e := range s.public {
		out = append(out, TranscriptLine{Public, e})
	}
	for _, e := range s.mafia {
		out = append(out, TranscriptLine{MafiaOnly, e})
	}
	for _, e := range s.cop {
		out = append(out, TranscriptLine{CopOnly, e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entry.Seq < out[j].Entry.Seq })
	return out
}

// Player returns a copy of the named player's record.
func (s *State) Player(name string) (PlayerRecord, bool) {
	p, ok := s.index[name]
	if !ok {
		return PlayerRecord{}, false
	}
	return *p, true
}

// Players returns copies of all records in canonical order.
func (s *State) Players() []PlayerRecord {
	out := make([]PlayerRecord, len(s.players))
	for i, p := range s.players {
		out[i] = *p
	}
	return out
}

// Names returns every player name in canonical order.
func (s *State) Names() []string {
	out := make([]string, len(s.players))
	for i, p := range s.players {
		out[i] = p.Name
	}
	return out
}

// Living returns the names of living players in canonical order.
func (s *State) Living() []string {
	var out []string
	for _, p := range s.players {
		if p.Alive {
			out = append(out, p.Name)
		}
	}
	return out
}

// LivingWithRole returns living players holding role, in canonical order.
func (s *State) LivingWithRole(role Role) []string {
	var out []string
	for _, p := range s.players {
		if p.Alive && p.Role == role {
			out = append(out, p.Name)
		}
	}
	return out
}

// IsAlive reports whether name is a living player.
func (s *State) IsAlive(name string) bool {
	p, ok := s.index[name]
	return ok && p.Alive
}

// LivingCounts returns the number of living Mafia and living non-Mafia.
func (s *State) LivingCounts() (mafia, others int) {
	for _, p := range s.players {
		if !p.Alive {
			continue
		}
		if p.Role == RoleMafia {
			mafia++
		} else {
			others++
		}
	}
	return mafia, others
}

// SetStrategy overwrites the player's strategy memo.
func (s *State) SetStrategy(name, memo string) {
	p, ok := s.index[name]
	if !ok {
		panic(fmt.Sprintf("game: strategy for unknown player %q", name))
	}
	p.Strategy = memo
}

// Eliminate flips a living player's alive flag. Eliminating an unknown or
// already dead player is a programming error.
func (s *State) Eliminate(name string) {
	p, ok := s.index[name]
	if !ok {
		panic(fmt.Sprintf("game: eliminate unknown player %q", name))
	}
	if !p.Alive {
		panic(fmt.Sprintf("game: %s is already dead", name))
	}
	p.Alive = false
}

// CheckWin evaluates the win condition against the living roster.
func (s *State) CheckWin() Winner {
	return EvaluateWin(s.LivingCounts())
}

// Partners returns the other Mafia members for a Mafia player, nil otherwise.
func (s *State) Partners(name string) []string {
	p, ok := s.index[name]
	if !ok || p.Role != RoleMafia {
		return nil
	}
	var out []string
	for _, q := range s.players {
		if q.Role == RoleMafia && q.Name != name {
			out = append(out, q.Name)
		}
	}
	return out
}

// SpeakingOrder returns the living players for the given day. Day n starts
// at roster offset (n-1) mod len(roster); eliminated players are skipped.
func (s *State) SpeakingOrder(day int) []string {
	n := len(s.players)
	if n == 0 {
		return nil
	}
	offset := (day - 1) % n
	if offset < 0 {
		offset += n
	}
	var out []string
	for i := 0; i < n; i++ {
		p := s.players[(offset+i)%n]
		if p.Alive {
			out = append(out, p.Name)
		}
	}
	return out
}

// Winner is the outcome of a win check.
type Winner string

const (
	WinnerNone  Winner = ""
	WinnerTown  Winner = "Town"
	WinnerMafia Winner = "Mafia"
)

// EvaluateWin: Town wins when no Mafia live; Mafia wins at parity.
func EvaluateWin(livingMafia, livingOthers int) Winner {
	switch {
	case livingMafia == 0:
		return WinnerTown
	case livingMafia >= livingOthers:
		return WinnerMafia
	default:
		return WinnerNone
	}
}

// Team returns the side a role plays for.
func (r Role) Team() Winner {
	if r == RoleMafia {
		return WinnerMafia
	}
	return WinnerTown
}
