// Package ux renders the game for the terminal: the live transcript, the
// roster table and the statistics table. Styling uses lipgloss; output
// written to a non-terminal degrades to plain text.
package ux
