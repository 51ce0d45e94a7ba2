package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTrial_TieEliminatesAllTied(t *testing.T) {
	nominees := []string{"C", "A", "B"}
	votes := map[string][]string{
		"A": {"v1", "v2"},
		"B": {"v3", "v4"},
		"C": {"v5"},
	}
	assert.Equal(t, []string{"A", "B"}, ResolveTrial(nominees, votes))
}

func TestResolveTrial(t *testing.T) {
	tests := []struct {
		name     string
		nominees []string
		votes    map[string][]string
		want     []string
	}{
		{"single winner", []string{"A", "B"}, map[string][]string{"A": {"x"}, "B": {"y", "z"}}, []string{"B"}},
		{"sole nominee without votes", []string{"A"}, nil, []string{"A"}},
		{"no votes several nominees", []string{"A", "B"}, nil, nil},
		{"order follows defense order", []string{"B", "A"}, map[string][]string{"A": {"x"}, "B": {"y"}}, []string{"B", "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTrial(tt.nominees, tt.votes))
		})
	}
}

func TestDefenseOrder_AscendingStable(t *testing.T) {
	canonical := []string{"Alex", "Blake", "Casey", "Dana"}
	counts := map[string]int{"Dana": 1, "Alex": 3, "Blake": 1}
	assert.Equal(t, []string{"Blake", "Dana", "Alex"}, DefenseOrder(canonical, counts))
}

func TestResolveNight(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	candidates := []string{"A", "B", "C"}

	target, tied := ResolveNight(candidates, map[string][]string{"B": {"m1", "m2"}}, rng)
	assert.Equal(t, "B", target)
	assert.Nil(t, tied)

	target, tied = ResolveNight(candidates, nil, rng)
	assert.Empty(t, target)
	assert.Nil(t, tied)

	target, tied = ResolveNight(candidates, map[string][]string{"A": {"m1"}, "C": {"m2"}}, rng)
	assert.Equal(t, []string{"A", "C"}, tied)
	assert.Contains(t, tied, target)
}

func TestResolveNight_SeededReplay(t *testing.T) {
	votes := map[string][]string{"A": {"m1"}, "B": {"m2"}}
	first, _ := ResolveNight([]string{"A", "B"}, votes, rand.New(rand.NewSource(7)))
	for i := 0; i < 5; i++ {
		again, _ := ResolveNight([]string{"A", "B"}, votes, rand.New(rand.NewSource(7)))
		assert.Equal(t, first, again)
	}
}

func TestGroupAndFormatTally(t *testing.T) {
	voters := []string{"v1", "v2", "v3", "v4", "v5"}
	ballots := map[string]string{"v1": "A", "v2": "B", "v3": "A", "v4": "C", "v5": "B"}
	grouped := Group(voters, ballots)
	require.Equal(t, []string{"v1", "v3"}, grouped["A"])

	assert.Equal(t, "A (2), B (2), C (1)", FormatTally([]string{"A", "B", "C"}, grouped))
	assert.Equal(t, "No votes", FormatTally([]string{"A"}, nil))
}

func TestAssignRoles(t *testing.T) {
	t.Run("exactly two mafia and one cop", func(t *testing.T) {
		for seed := int64(0); seed < 50; seed++ {
			roles, err := AssignRoles(make([]string, 7), true, rand.New(rand.NewSource(seed)))
			require.NoError(t, err)
			assert.Equal(t, 2, count(roles, RoleMafia))
			assert.Equal(t, 1, count(roles, RoleCop))
			assert.Equal(t, 4, count(roles, RoleVillager))
		}
	})

	t.Run("preferences honored", func(t *testing.T) {
		prefs := []string{PreferVillager, PreferMafia, PreferRandom, PreferCop, PreferVillager, PreferMafia}
		roles, err := AssignRoles(prefs, true, rand.New(rand.NewSource(3)))
		require.NoError(t, err)
		assert.Equal(t, RoleMafia, roles[1])
		assert.Equal(t, RoleMafia, roles[5])
		assert.Equal(t, RoleCop, roles[3])
		assert.Equal(t, RoleVillager, roles[0])
		assert.Equal(t, RoleVillager, roles[4])
	})

	t.Run("villager preferences drafted as last resort", func(t *testing.T) {
		prefs := []string{PreferVillager, PreferVillager, PreferVillager, PreferVillager, PreferVillager}
		roles, err := AssignRoles(prefs, true, rand.New(rand.NewSource(1)))
		require.NoError(t, err)
		assert.Equal(t, 2, count(roles, RoleMafia))
		assert.Equal(t, 0, count(roles, RoleCop))
	})

	t.Run("no cop when disabled", func(t *testing.T) {
		roles, err := AssignRoles(make([]string, 5), false, rand.New(rand.NewSource(1)))
		require.NoError(t, err)
		assert.Equal(t, 0, count(roles, RoleCop))
	})

	t.Run("too few players", func(t *testing.T) {
		_, err := AssignRoles(make([]string, 4), true, rand.New(rand.NewSource(1)))
		assert.Error(t, err)
	})
}

func count(roles []Role, r Role) int {
	n := 0
	for _, x := range roles {
		if x == r {
			n++
		}
	}
	return n
}
