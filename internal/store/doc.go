// Package store persists everything that outlives a single game: per-player
// long-term memory, transcripts, the sqlite game record database, and the
// optional prompt/response debug artifacts.
//
// Layout under the store directory:
//
//	memories/<player>.txt
//	transcripts/<game id>.txt
//	debug/<player>_prompt_<turn>.txt
//	debug/<player>_response_<turn>.txt
//	debug/<player>_history.txt
package store

import (
	"regexp"
	"strings"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// fileName turns a player name into a safe file stem.
func fileName(name string) string {
	s := unsafeName.ReplaceAllString(strings.TrimSpace(name), "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "unnamed"
	}
	return s
}
