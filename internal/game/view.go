package game

// Seat is a player as seen by one viewer. Role is empty unless the viewer is
// entitled to know it.
type Seat struct {
	Name  string
	Alive bool
	Role  Role
}

// View is a read-only snapshot of the state built for one player. The secret
// log it carries is selected from the viewer's own role, so callers cannot
// request the wrong one.
type View struct {
	Self     PlayerRecord
	Turn     int
	Phase    Phase
	Seats    []Seat
	Partners []string
	Nominees []string
	OnTrial  string
	Public   []LogEntry
	// HasCop reports whether a Cop was seated; the table composition is public.
	HasCop bool

	secret     []LogEntry
	secretKind Visibility
}

// ViewFor snapshots the state for the named player. Views share no mutable
// memory with the state and are safe to hand to other goroutines.
func (s *State) ViewFor(name string) View {
	self, ok := s.index[name]
	if !ok {
		panic("game: view for unknown player " + name)
	}

	v := View{
		Self:     *self,
		Turn:     s.Turn,
		Phase:    s.Phase,
		Partners: s.Partners(name),
		Nominees: append([]string(nil), s.Nominees...),
		OnTrial:  s.OnTrial,
		Public:   append([]LogEntry(nil), s.public...),
	}

	for _, p := range s.players {
		if p.Role == RoleCop {
			v.HasCop = true
		}
		seat := Seat{Name: p.Name, Alive: p.Alive}
		switch {
		case p.Name == name:
			seat.Role = p.Role
		case self.Role == RoleMafia && p.Role == RoleMafia:
			seat.Role = p.Role
		case !p.Alive && s.RevealRoles:
			seat.Role = p.Role
		}
		v.Seats = append(v.Seats, seat)
	}

	switch self.Role {
	case RoleMafia:
		v.secret = append([]LogEntry(nil), s.mafia...)
		v.secretKind = MafiaOnly
	case RoleCop:
		v.secret = append([]LogEntry(nil), s.cop...)
		v.secretKind = CopOnly
	default:
		v.secretKind = Public
	}
	return v
}

// Secret returns the role-matched secret log and which log it is. Villagers
// get nil and Public.
func (v View) Secret() ([]LogEntry, Visibility) {
	return v.secret, v.secretKind
}

// Living returns the living seat names in canonical order.
func (v View) Living() []string {
	var out []string
	for _, s := range v.Seats {
		if s.Alive {
			out = append(out, s.Name)
		}
	}
	return out
}

// Dead returns the eliminated seats in canonical order.
func (v View) Dead() []Seat {
	var out []Seat
	for _, s := range v.Seats {
		if !s.Alive {
			out = append(out, s)
		}
	}
	return out
}

// LivingExcept returns living names other than the given ones.
func (v View) LivingExcept(exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	var out []string
	for _, name := range v.Living() {
		if !skip[name] {
			out = append(out, name)
		}
	}
	return out
}
