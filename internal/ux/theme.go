package ux

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette used by the renderers.
type Theme struct {
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	System     lipgloss.Color
	Mafia      lipgloss.Color
	Cop        lipgloss.Color
	Town       lipgloss.Color
	Warning    lipgloss.Color
	IsDark     bool
}

// LightTheme is the default palette.
func LightTheme() Theme {
	return Theme{
		Foreground: lipgloss.Color("#101F38"),
		Muted:      lipgloss.Color("#6b7280"),
		System:     lipgloss.Color("#2196F3"),
		Mafia:      lipgloss.Color("#e53935"),
		Cop:        lipgloss.Color("#3949ab"),
		Town:       lipgloss.Color("#558b2f"),
		Warning:    lipgloss.Color("#f57f17"),
	}
}

// DarkTheme is the palette for dark terminals.
func DarkTheme() Theme {
	return Theme{
		Foreground: lipgloss.Color("#f2f2f2"),
		Muted:      lipgloss.Color("#9ca3af"),
		System:     lipgloss.Color("#64b5f6"),
		Mafia:      lipgloss.Color("#ef5350"),
		Cop:        lipgloss.Color("#7986cb"),
		Town:       lipgloss.Color("#8BC34A"),
		Warning:    lipgloss.Color("#FFC107"),
		IsDark:     true,
	}
}

// DetectTheme picks a palette from COLORFGBG ("fg;bg"), defaulting to dark.
func DetectTheme() Theme {
	parts := strings.Split(os.Getenv("COLORFGBG"), ";")
	if len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil && bg >= 7 && bg != 8 {
			return LightTheme()
		}
	}
	return DarkTheme()
}
