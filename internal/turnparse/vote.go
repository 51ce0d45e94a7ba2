package turnparse

import (
	"strings"
	"unicode"
)

// votePrefixes are imperative verbs agents put in front of a name.
var votePrefixes = []string{
	"vote for ", "vote ", "kill ", "investigate ", "nominate ",
	"lynch ", "eliminate ", "hang ", "target ", "check ",
}

// nullVotes are spellings of "no vote".
var nullVotes = map[string]bool{
	"": true, "null": true, "none": true, "nil": true, "skip": true,
	"abstain": true, "no one": true, "nobody": true, "n/a": true,
}

// NormalizeVote case-folds a vote, strips a leading verb, quotes, trailing
// punctuation and any parenthetical, and maps null spellings to "".
func NormalizeVote(vote string) string {
	v := strings.ToLower(strings.TrimSpace(vote))
	for _, p := range votePrefixes {
		if strings.HasPrefix(v, p) {
			v = strings.TrimSpace(v[len(p):])
			break
		}
	}
	if i := strings.Index(v, "("); i > 0 {
		v = v[:i]
	}
	v = strings.TrimFunc(v, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if nullVotes[v] {
		return ""
	}
	return v
}

// ResolveVote matches a raw vote against the candidate names and returns the
// canonical spelling. ok is false for null or unknown votes.
func ResolveVote(vote string, candidates []string) (string, bool) {
	v := NormalizeVote(vote)
	if v == "" {
		return "", false
	}
	for _, c := range candidates {
		if strings.ToLower(c) == v {
			return c, true
		}
	}
	return "", false
}
