package game

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := NewState("g1", []PlayerRecord{
		{Name: "Alex", Role: RoleMafia},
		{Name: "Blake", Role: RoleVillager},
		{Name: "Casey", Role: RoleCop},
		{Name: "Dana", Role: RoleMafia},
		{Name: "Echo", Role: RoleVillager},
		{Name: "Frank", Role: RoleVillager},
	}, true)
	require.NoError(t, err)
	return s
}

func TestNewState_RoleCardinality(t *testing.T) {
	_, err := NewState("g", []PlayerRecord{
		{Name: "A", Role: RoleMafia},
		{Name: "B", Role: RoleVillager},
		{Name: "C", Role: RoleVillager},
		{Name: "D", Role: RoleVillager},
		{Name: "E", Role: RoleVillager},
	}, false)
	assert.ErrorContains(t, err, "exactly 2 Mafia")

	_, err = NewState("g", []PlayerRecord{
		{Name: "A", Role: RoleMafia},
		{Name: "B", Role: RoleMafia},
		{Name: "C", Role: RoleCop},
		{Name: "D", Role: RoleCop},
		{Name: "E", Role: RoleVillager},
	}, false)
	assert.ErrorContains(t, err, "Cop")

	_, err = NewState("g", []PlayerRecord{
		{Name: "A", Role: RoleMafia},
		{Name: "A", Role: RoleMafia},
	}, false)
	assert.ErrorContains(t, err, "duplicate")
}

func TestNewState_AllAlive(t *testing.T) {
	s := newTestState(t)
	assert.Equal(t, 1, s.Turn)
	assert.Equal(t, PhaseSetup, s.Phase)
	assert.Len(t, s.Living(), 6)
	assert.Equal(t, []string{"Alex", "Dana"}, s.LivingWithRole(RoleMafia))
}

func TestAppend_RoutesToExactlyOneLog(t *testing.T) {
	s := newTestState(t)
	s.Announce("info", "public line")
	s.Log(MafiaOnly, SystemActor, "reveal", "mafia line")
	s.Log(CopOnly, SystemActor, "reveal", "cop line")

	assert.Len(t, s.PublicLog(), 1)
	assert.Len(t, s.mafia, 1)
	assert.Len(t, s.cop, 1)

	lines := s.Transcript()
	require.Len(t, lines, 3)
	assert.Equal(t, Public, lines[0].Visibility)
	assert.Equal(t, MafiaOnly, lines[1].Visibility)
	assert.Equal(t, CopOnly, lines[2].Visibility)
	assert.Less(t, lines[0].Entry.Seq, lines[2].Entry.Seq)
}

func TestEliminate_Monotonic(t *testing.T) {
	s := newTestState(t)
	before := len(s.Living())
	s.Eliminate("Blake")
	assert.Len(t, s.Living(), before-1)
	assert.False(t, s.IsAlive("Blake"))

	assert.Panics(t, func() { s.Eliminate("Blake") })
	assert.Panics(t, func() { s.Eliminate("Nobody") })
	assert.Len(t, s.Living(), before-1)
}

func TestEvaluateWin(t *testing.T) {
	assert.Equal(t, WinnerNone, EvaluateWin(1, 4))
	assert.Equal(t, WinnerMafia, EvaluateWin(1, 1))
	assert.Equal(t, WinnerMafia, EvaluateWin(2, 1))
	assert.Equal(t, WinnerTown, EvaluateWin(0, 3))
	assert.Equal(t, WinnerNone, EvaluateWin(2, 3))
}

func TestCheckWin_AfterEliminations(t *testing.T) {
	s := newTestState(t)
	assert.Equal(t, WinnerNone, s.CheckWin())
	s.Eliminate("Alex")
	s.Eliminate("Dana")
	assert.Equal(t, WinnerTown, s.CheckWin())
}

func TestSpeakingOrder_Rotates(t *testing.T) {
	s := newTestState(t)
	assert.Equal(t, []string{"Alex", "Blake", "Casey", "Dana", "Echo", "Frank"}, s.SpeakingOrder(1))
	assert.Equal(t, []string{"Blake", "Casey", "Dana", "Echo", "Frank", "Alex"}, s.SpeakingOrder(2))

	s.Eliminate("Casey")
	assert.Equal(t, []string{"Dana", "Echo", "Frank", "Alex", "Blake"}, s.SpeakingOrder(3))
	// Offset wraps around the full roster, dead seats included.
	assert.Equal(t, []string{"Alex", "Blake", "Dana", "Echo", "Frank"}, s.SpeakingOrder(7))
}

func TestSetStrategy_Overwrites(t *testing.T) {
	s := newTestState(t)
	s.SetStrategy("Blake", "watch Alex")
	s.SetStrategy("Blake", "watch Dana")
	p, ok := s.Player("Blake")
	require.True(t, ok)
	assert.Equal(t, "watch Dana", p.Strategy)
}

func TestLogEntry_String(t *testing.T) {
	e := LogEntry{Phase: PhaseDay, Actor: "Frank", Content: "[Nominated Alex] quiet all game"}
	assert.Equal(t, "[Day] Frank: [Nominated Alex] quiet all game", e.String())
}

func TestViewFor_SecretPartitioning(t *testing.T) {
	s := newTestState(t)
	s.Announce("info", "Day 1")
	s.Log(MafiaOnly, SystemActor, "reveal", "Mafia: Alex, Dana")
	s.Log(CopOnly, SystemActor, "investigate", "Alex is Mafia")

	t.Run("villager sees no secrets", func(t *testing.T) {
		v := s.ViewFor("Blake")
		secret, kind := v.Secret()
		assert.Nil(t, secret)
		assert.Equal(t, Public, kind)
		for _, e := range v.Public {
			assert.NotContains(t, e.Content, "Mafia: Alex")
			assert.NotContains(t, e.Content, "is Mafia")
		}
	})

	t.Run("mafia sees only mafia log", func(t *testing.T) {
		secret, kind := s.ViewFor("Dana").Secret()
		assert.Equal(t, MafiaOnly, kind)
		require.Len(t, secret, 1)
		assert.Equal(t, "Mafia: Alex, Dana", secret[0].Content)
	})

	t.Run("cop sees only cop log", func(t *testing.T) {
		secret, kind := s.ViewFor("Casey").Secret()
		assert.Equal(t, CopOnly, kind)
		require.Len(t, secret, 1)
		assert.Equal(t, "Alex is Mafia", secret[0].Content)
	})
}

func TestViewFor_SeatRoles(t *testing.T) {
	s := newTestState(t)
	s.Eliminate("Echo")

	roles := func(v View) map[string]Role {
		out := map[string]Role{}
		for _, seat := range v.Seats {
			out[seat.Name] = seat.Role
		}
		return out
	}

	want := map[string]Role{
		"Alex": RoleMafia, "Blake": "", "Casey": "", "Dana": RoleMafia, "Echo": RoleVillager, "Frank": "",
	}
	if diff := cmp.Diff(want, roles(s.ViewFor("Alex"))); diff != "" {
		t.Errorf("mafia view mismatch (-want +got):\n%s", diff)
	}

	want = map[string]Role{
		"Alex": "", "Blake": RoleVillager, "Casey": "", "Dana": "", "Echo": RoleVillager, "Frank": "",
	}
	if diff := cmp.Diff(want, roles(s.ViewFor("Blake"))); diff != "" {
		t.Errorf("villager view mismatch (-want +got):\n%s", diff)
	}

	s.RevealRoles = false
	assert.Equal(t, Role(""), roles(s.ViewFor("Blake"))["Echo"])
}

func TestViewFor_IsSnapshot(t *testing.T) {
	s := newTestState(t)
	v := s.ViewFor("Blake")
	s.Announce("info", "later")
	s.Eliminate("Frank")

	assert.Empty(t, v.Public)
	assert.Contains(t, v.Living(), "Frank")
	assert.Equal(t, []string{"Dana"}, s.ViewFor("Alex").Partners)
	assert.Nil(t, s.ViewFor("Blake").Partners)
}

func TestView_LivingExcept(t *testing.T) {
	s := newTestState(t)
	v := s.ViewFor("Alex")
	got := v.LivingExcept("Alex", "Dana")
	assert.Equal(t, "Blake,Casey,Echo,Frank", strings.Join(got, ","))
}
