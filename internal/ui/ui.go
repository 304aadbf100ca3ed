// Package ui renders harness results for the terminal.
//
// Colour is used only when the destination is a terminal and has not been
// disabled; otherwise output is plain ASCII so it can be piped and diffed.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Palette
var (
	ColorAccent  = lipgloss.Color("#20B9B4")
	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#6C7A89")
)

// Styles are bound to one renderer so the colour decision is per writer.
type Styles struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Border  lipgloss.Style
}

// UI writes styled output to one destination.
type UI struct {
	w      io.Writer
	r      *lipgloss.Renderer
	plain  bool
	Styles Styles
}

// New creates a UI on w. Colour is disabled when noColor is set, when
// NO_COLOR is present in the environment, or when w is not a terminal.
func New(w io.Writer, noColor bool) *UI {
	r := lipgloss.NewRenderer(w)
	plain := noColor || os.Getenv("NO_COLOR") != "" || !IsTerminal(w)
	if plain {
		r.SetColorProfile(termenv.Ascii)
	}

	u := &UI{w: w, r: r, plain: plain}
	u.Styles = Styles{
		Title:   r.NewStyle().Bold(true).Foreground(ColorAccent),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(ColorMuted),
		Success: r.NewStyle().Foreground(ColorSuccess),
		Warning: r.NewStyle().Foreground(ColorWarning),
		Error:   r.NewStyle().Foreground(ColorError),
		Header:  r.NewStyle().Bold(true).Foreground(ColorAccent).Padding(0, 1),
		Cell:    r.NewStyle().Padding(0, 1),
		Border:  r.NewStyle().Foreground(ColorMuted),
	}
	return u
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Writer returns the destination.
func (u *UI) Writer() io.Writer {
	return u.w
}

// Plain reports whether colour is disabled.
func (u *UI) Plain() bool {
	return u.plain
}

// Title prints a styled heading.
func (u *UI) Title(text string) {
	fmt.Fprintln(u.w, u.Styles.Title.Render(text))
}

// Printf prints unstyled text.
func (u *UI) Printf(format string, args ...any) {
	fmt.Fprintf(u.w, format, args...)
}

// Success prints a line with a success mark.
func (u *UI) Success(format string, args ...any) {
	fmt.Fprintf(u.w, "%s %s\n", u.Styles.Success.Render(u.icon("✓", "ok")), fmt.Sprintf(format, args...))
}

// Warn prints a line with a warning mark.
func (u *UI) Warn(format string, args ...any) {
	fmt.Fprintf(u.w, "%s %s\n", u.Styles.Warning.Render(u.icon("⚠", "!!")), fmt.Sprintf(format, args...))
}

// Fail prints a line with a failure mark.
func (u *UI) Fail(format string, args ...any) {
	fmt.Fprintf(u.w, "%s %s\n", u.Styles.Error.Render(u.icon("✗", "xx")), fmt.Sprintf(format, args...))
}

func (u *UI) icon(fancy, plain string) string {
	if u.plain {
		return plain
	}
	return fancy
}

// Table renders headers and rows as a bordered table. Numeric-looking
// columns are right aligned.
func (u *UI) Table(headers []string, rows [][]string) string {
	border := lipgloss.RoundedBorder()
	if u.plain {
		border = lipgloss.ASCIIBorder()
	}

	numeric := numericColumns(headers, rows)
	t := table.New().
		Border(border).
		BorderStyle(u.Styles.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return u.Styles.Header
			}
			if col < len(numeric) && numeric[col] {
				return u.Styles.Cell.Align(lipgloss.Right)
			}
			return u.Styles.Cell
		})
	return t.Render()
}

// PrintTable writes Table(headers, rows) followed by a newline.
func (u *UI) PrintTable(headers []string, rows [][]string) {
	fmt.Fprintln(u.w, u.Table(headers, rows))
}

// numericColumns marks columns whose every non-empty cell starts with a
// digit, a sign or a decimal point.
func numericColumns(headers []string, rows [][]string) []bool {
	out := make([]bool, len(headers))
	for col := range headers {
		seen := false
		numeric := true
		for _, row := range rows {
			if col >= len(row) || row[col] == "" || row[col] == "-" {
				continue
			}
			seen = true
			if !strings.ContainsAny(row[col][:1], "0123456789+-.") {
				numeric = false
				break
			}
		}
		out[col] = seen && numeric
	}
	return out
}
