package game

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Group turns voter->target ballots into target->voters. Empty targets are
// dropped. Voter lists follow the order of voters.
func Group(voters []string, ballots map[string]string) map[string][]string {
	out := make(map[string][]string)
	for _, v := range voters {
		if t := ballots[v]; t != "" {
			out[t] = append(out[t], v)
		}
	}
	return out
}

// DefenseOrder orders nominees by ascending nomination count. Ties keep
// canonical roster order.
func DefenseOrder(canonical []string, counts map[string]int) []string {
	var out []string
	for _, name := range canonical {
		if counts[name] > 0 {
			out = append(out, name)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return counts[out[i]] < counts[out[j]] })
	return out
}

// ResolveTrial returns every nominee holding the maximum vote count, in
// nominee (defense) order. A tie eliminates all tied nominees. When nobody
// received a vote only a sole nominee is eliminated.
func ResolveTrial(nominees []string, votes map[string][]string) []string {
	max := 0
	for _, n := range nominees {
		if c := len(votes[n]); c > max {
			max = c
		}
	}
	if max == 0 {
		if len(nominees) == 1 {
			return []string{nominees[0]}
		}
		return nil
	}
	var out []string
	for _, n := range nominees {
		if len(votes[n]) == max {
			out = append(out, n)
		}
	}
	return out
}

// ResolveNight picks the Mafia kill target. Ties between top targets are
// broken uniformly at random; tied lists the contenders (nil without a tie).
// candidates fixes the iteration order so a seeded rng replays exactly.
func ResolveNight(candidates []string, votes map[string][]string, rng *rand.Rand) (target string, tied []string) {
	max := 0
	var top []string
	for _, c := range candidates {
		switch n := len(votes[c]); {
		case n == 0:
		case n > max:
			max = n
			top = []string{c}
		case n == max:
			top = append(top, c)
		}
	}
	switch len(top) {
	case 0:
		return "", nil
	case 1:
		return top[0], nil
	default:
		return top[rng.Intn(len(top))], top
	}
}

// FormatTally renders "A (2), B (2), C (1)": highest first, ties in the
// given order, zero counts omitted.
func FormatTally(order []string, votes map[string][]string) string {
	names := make([]string, 0, len(order))
	for _, n := range order {
		if len(votes[n]) > 0 {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "No votes"
	}
	sort.SliceStable(names, func(i, j int) bool { return len(votes[names[i]]) > len(votes[names[j]]) })
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s (%d)", n, len(votes[n]))
	}
	return strings.Join(parts, ", ")
}
