package ux

import (
	"bytes"
	"strings"
	"testing"

	"aimafia/internal/game"

	"github.com/stretchr/testify/assert"
)

func entries() []struct {
	vis game.Visibility
	e   game.LogEntry
} {
	return []struct {
		vis game.Visibility
		e   game.LogEntry
	}{
		{game.Public, game.LogEntry{Phase: game.PhaseDay, Actor: game.SystemActor, Content: "Day 2"}},
		{game.Public, game.LogEntry{Phase: game.PhaseDay, Actor: "Haiku", Content: "I suspect Pro."}},
		{game.MafiaOnly, game.LogEntry{Phase: game.PhaseNight, Actor: "Pro", Content: "[Targeted Haiku] bye"}},
		{game.CopOnly, game.LogEntry{Phase: game.PhaseNight, Actor: game.SystemActor, Content: "Pro is Mafia"}},
	}
}

func render(viewer game.Role) string {
	var buf bytes.Buffer
	var lookup func() game.Role
	if viewer != "" {
		lookup = func() game.Role { return viewer }
	}
	r := NewTranscriptRenderer(&buf, DarkTheme(), lookup)
	for _, x := range entries() {
		r.OnEntry(x.vis, x.e)
	}
	return buf.String()
}

func TestTranscriptRenderer_Spectator(t *testing.T) {
	out := render("")
	assert.Contains(t, out, "Day 2")
	assert.Contains(t, out, "[Day] Haiku: I suspect Pro.")
	assert.Contains(t, out, "[MAFIA] [Night] Pro: [Targeted Haiku] bye")
	assert.Contains(t, out, "[COP] [Night] Pro is Mafia")
}

func TestTranscriptRenderer_HidesOtherSecrets(t *testing.T) {
	villager := render(game.RoleVillager)
	assert.NotContains(t, villager, "Targeted")
	assert.NotContains(t, villager, "Pro is Mafia")
	assert.Contains(t, villager, "I suspect Pro.")

	mafia := render(game.RoleMafia)
	assert.Contains(t, mafia, "Targeted")
	assert.NotContains(t, mafia, "Pro is Mafia")

	cop := render(game.RoleCop)
	assert.NotContains(t, cop, "Targeted")
	assert.Contains(t, cop, "Pro is Mafia")
}

func TestIsHeader(t *testing.T) {
	assert.True(t, isHeader("Day 1"))
	assert.True(t, isHeader("Night 12"))
	assert.False(t, isHeader("Day 1 begins"))
	assert.False(t, isHeader("Speaking order: A, B"))
}

func TestResult(t *testing.T) {
	var buf bytes.Buffer
	r := NewTranscriptRenderer(&buf, LightTheme(), nil)
	r.Result(game.WinnerTown, []game.PlayerRecord{
		{Name: "Haiku", Role: game.RoleMafia},
		{Name: "Pro", Role: game.RoleCop, Alive: true},
	})
	out := buf.String()
	assert.Contains(t, out, "GAME OVER: Town wins")
	assert.Contains(t, out, "Haiku")
	assert.Contains(t, out, "(dead)")
	assert.Contains(t, out, "(alive)")
}

func TestTable(t *testing.T) {
	tbl := NewTable("Players", "Name", "GP", "Win%")
	tbl.AddRow("Haiku", "3", "66.7%")
	tbl.AddRow("Sonnet", "12", "50.0%")

	var buf bytes.Buffer
	assert.NoError(t, tbl.Render(&buf, DarkTheme()))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "Players", lines[0])
	assert.Equal(t, "Name   | GP | Win%", lines[1])
	assert.Equal(t, "Haiku  | 3  | 66.7%", lines[3])
	assert.Equal(t, "Sonnet | 12 | 50.0%", lines[4])

	buf.Reset()
	assert.NoError(t, NewTable("", "A").Render(&buf, DarkTheme()))
	assert.Contains(t, buf.String(), "(none)")
}
