package game

import (
	"fmt"
	"math/rand"
)

// Role preferences as written in the roster.
const (
	PreferRandom   = "random"
	PreferMafia    = "mafia"
	PreferCop      = "cop"
	PreferVillager = "villager"
)

// MinPlayers is the smallest table that seats two Mafia against a larger town.
const MinPlayers = 5

// AssignRoles assigns exactly two Mafia and, when withCop is set, one Cop.
// prefs holds one preference per seat. Mafia seats go to mafia preferences
// first, then random ones, then cop ones; villager preferences are drafted
// only when nothing else can fill the team. The Cop comes from cop
// preferences, then random ones.
func AssignRoles(prefs []string, withCop bool, rng *rand.Rand) ([]Role, error) {
	n := len(prefs)
	if n < MinPlayers {
		return nil, fmt.Errorf("need at least %d players, have %d", MinPlayers, n)
	}

	roles := make([]Role, n)
	for i := range roles {
		roles[i] = RoleVillager
	}

	byPref := make(map[string][]int)
	for i, p := range prefs {
		switch p {
		case PreferMafia, PreferCop, PreferVillager:
		default:
			p = PreferRandom
		}
		byPref[p] = append(byPref[p], i)
	}
	for _, pref := range []string{PreferMafia, PreferCop, PreferVillager, PreferRandom} {
		seats := byPref[pref]
		rng.Shuffle(len(seats), func(i, j int) { seats[i], seats[j] = seats[j], seats[i] })
	}

	taken := make([]bool, n)
	draft := func(role Role, want int, order ...string) {
		for _, pref := range order {
			for _, seat := range byPref[pref] {
				if want == 0 {
					return
				}
				if taken[seat] {
					continue
				}
				taken[seat] = true
				roles[seat] = role
				want--
			}
		}
	}

	draft(RoleMafia, MafiaCount, PreferMafia, PreferRandom, PreferCop, PreferVillager)
	if withCop {
		draft(RoleCop, 1, PreferCop, PreferRandom)
	}
	return roles, nil
}
