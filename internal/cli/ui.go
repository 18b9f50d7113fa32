package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Palette shared by status lines, the resolve table and the preview canvas.
var (
	colorAccent = lipgloss.Color("36")
	colorOK     = lipgloss.Color("35")
	colorWarn   = lipgloss.Color("220")
	colorFail   = lipgloss.Color("167")
	colorCmd    = lipgloss.Color("75")
	colorText   = lipgloss.Color("255")
	colorMuted  = lipgloss.Color("245")
	colorFaint  = lipgloss.Color("240")
)

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleDim       = lipgloss.NewStyle().Foreground(colorFaint)
	StyleValue     = lipgloss.NewStyle().Foreground(colorText)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorAccent)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorWarn)

	styleSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleCommand = lipgloss.NewStyle().Foreground(colorCmd)
	styleKey     = lipgloss.NewStyle().Foreground(colorMuted).Width(12)
)

// status prints human-facing progress lines. Data a command produces
// (trees, DOT, JSON) is written to stdout unstyled instead.
type status struct {
	w io.Writer
}

func statusOf(cmd *cobra.Command) status {
	return status{w: cmd.OutOrStdout()}
}

func (s status) line(icon lipgloss.Style, glyph, format string, args []any) {
	fmt.Fprintln(s.w, icon.Render(glyph)+" "+fmt.Sprintf(format, args...))
}

func (s status) ok(format string, args ...any) {
	s.line(lipgloss.NewStyle().Foreground(colorOK), "✓", format, args)
}

func (s status) fail(format string, args ...any) {
	s.line(lipgloss.NewStyle().Foreground(colorFail), "✗", format, args)
}

func (s status) info(format string, args ...any) {
	s.line(lipgloss.NewStyle().Foreground(colorMuted), "›", format, args)
}

// detail prints an indented, dimmed line below the previous message.
func (s status) detail(format string, args ...any) {
	fmt.Fprintln(s.w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func (s status) keyValue(key, value string) {
	fmt.Fprintln(s.w, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// next suggests a command to run.
func (s status) next(description, command string) {
	fmt.Fprintln(s.w, StyleDim.Render(description+":")+" "+styleCommand.Render(command))
}
