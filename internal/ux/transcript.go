package ux

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"aimafia/internal/game"

	"github.com/charmbracelet/lipgloss"
)

// TranscriptRenderer prints log entries as they are appended.
//
// Without a viewer it is a spectator and shows every log with a badge on
// secret lines. With a viewer (a human is seated) it shows the public log
// plus only the secret log the viewer's role may read. The viewer's role is
// looked up per entry because roles are dealt after the renderer is made.
type TranscriptRenderer struct {
	mu     sync.Mutex
	w      io.Writer
	viewer func() game.Role

	banner lipgloss.Style
	system lipgloss.Style
	actor  lipgloss.Style
	muted  lipgloss.Style
	mafia  lipgloss.Style
	cop    lipgloss.Style
	warn   lipgloss.Style
}

// NewTranscriptRenderer creates a renderer writing to w. viewer returns the
// human's role; nil makes a spectator.
func NewTranscriptRenderer(w io.Writer, theme Theme, viewer func() game.Role) *TranscriptRenderer {
	r := lipgloss.NewRenderer(w)
	return &TranscriptRenderer{
		w:      w,
		viewer: viewer,
		banner: r.NewStyle().Bold(true).Foreground(theme.Foreground).
			Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(theme.Muted),
		system: r.NewStyle().Foreground(theme.System),
		actor:  r.NewStyle().Bold(true).Foreground(theme.Foreground),
		muted:  r.NewStyle().Foreground(theme.Muted),
		mafia:  r.NewStyle().Bold(true).Foreground(theme.Mafia),
		cop:    r.NewStyle().Bold(true).Foreground(theme.Cop),
		warn:   r.NewStyle().Bold(true).Foreground(theme.Warning),
	}
}

// Visible reports whether an entry of the given visibility may be shown.
func (t *TranscriptRenderer) Visible(vis game.Visibility) bool {
	if vis == game.Public || t.viewer == nil {
		return true
	}
	role := t.viewer()
	switch vis {
	case game.MafiaOnly:
		return role == game.RoleMafia
	case game.CopOnly:
		return role == game.RoleCop
	}
	return false
}

// OnEntry renders one appended entry.
func (t *TranscriptRenderer) OnEntry(vis game.Visibility, e game.LogEntry) {
	if !t.Visible(vis) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, t.format(vis, e))
}

func (t *TranscriptRenderer) format(vis game.Visibility, e game.LogEntry) string {
	if e.Actor == game.SystemActor && vis == game.Public && isHeader(e.Content) {
		return "\n" + t.banner.Render(e.Content)
	}

	var b strings.Builder
	switch vis {
	case game.MafiaOnly:
		b.WriteString(t.mafia.Render("[MAFIA]") + " ")
	case game.CopOnly:
		b.WriteString(t.cop.Render("[COP]") + " ")
	}
	b.WriteString(t.muted.Render("[" + string(e.Phase) + "]"))
	b.WriteByte(' ')

	switch {
	case e.Actor == game.SystemActor && strings.HasPrefix(e.Content, "LYLO"):
		b.WriteString(t.warn.Render(e.Content))
	case e.Actor == game.SystemActor:
		b.WriteString(t.system.Render(e.Content))
	default:
		b.WriteString(t.actor.Render(e.Actor + ":"))
		b.WriteByte(' ')
		b.WriteString(e.Content)
	}
	return b.String()
}

// isHeader matches the "Day N" and "Night N" announcements.
func isHeader(s string) bool {
	var word string
	var n int
	if _, err := fmt.Sscanf(s, "%s %d", &word, &n); err != nil {
		return false
	}
	return (word == "Day" || word == "Night") && s == fmt.Sprintf("%s %d", word, n)
}

// Result prints the final outcome banner.
func (t *TranscriptRenderer) Result(winner game.Winner, players []game.PlayerRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	title := "GAME OVER: draw"
	if winner != game.WinnerNone {
		title = fmt.Sprintf("GAME OVER: %s wins", winner)
	}
	fmt.Fprintln(t.w, "\n"+t.banner.Render(title))
	for _, p := range players {
		status := "alive"
		if !p.Alive {
			status = "dead"
		}
		style := t.system
		if p.Role == game.RoleMafia {
			style = t.mafia
		} else if p.Role == game.RoleCop {
			style = t.cop
		}
		fmt.Fprintf(t.w, "  %-12s %s %s\n", p.Name, style.Render(string(p.Role)), t.muted.Render("("+status+")"))
	}
}
