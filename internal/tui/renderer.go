package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"

	"github.com/codefionn/linechat/internal/consts"
)

const (
	promptPrefix = "> "
	ellipsis     = "..."
)

// Renderer lays out the message window and the three reserved rows below it:
// separator, scroll indicator and prompt. Geometry is fixed at construction.
type Renderer struct {
	width  int
	height int

	separatorStyle lipgloss.Style
	indicatorStyle lipgloss.Style
	promptStyle    lipgloss.Style
	lg             *lipgloss.Renderer
}

// NewRenderer creates a renderer whose styles follow out's color profile
func NewRenderer(out *termenv.Output, width, height int) *Renderer {
	lg := lipgloss.NewRenderer(out)
	lg.SetOutput(out)
	lg.SetColorProfile(out.Profile)

	return &Renderer{
		width:          max(width, 0),
		height:         max(height, 0),
		separatorStyle: lg.NewStyle().Foreground(lipgloss.Color("241")),
		indicatorStyle: lg.NewStyle().Foreground(lipgloss.Color("214")),
		promptStyle:    lg.NewStyle().Foreground(lipgloss.Color("170")).Bold(true),
		lg:             lg,
	}
}

// VisibleRows is the number of message rows above the reserved rows
func (r *Renderer) VisibleRows() int {
	return max(0, r.height-consts.ReservedRows)
}

// Frame returns every screen row, top to bottom. window holds the lines to
// show, offset is how many lines are hidden below it.
func (r *Renderer) Frame(window []string, offset int, composing string) []string {
	visible := r.VisibleRows()
	rows := make([]string, 0, visible+consts.ReservedRows)

	for _, line := range window[max(0, len(window)-visible):] {
		rows = append(rows, truncateLine(line, r.width))
	}
	for len(rows) < visible {
		rows = append(rows, "")
	}

	rows = append(rows, r.separatorStyle.Render(strings.Repeat("─", r.width)))
	rows = append(rows, r.indicator(offset))
	rows = append(rows, r.promptStyle.Render(promptPrefix)+inputTail(composing, r.width-len(promptPrefix)))
	return rows
}

// Draw paints frame on out and leaves the cursor at the end of the prompt
func (r *Renderer) Draw(out *termenv.Output, frame []string) {
	for i, row := range frame {
		out.MoveCursor(i+1, 1)
		out.ClearLine()
		out.WriteString(row)
	}
	if n := len(frame); n > 0 {
		out.MoveCursor(n, ansi.PrintableRuneWidth(frame[n-1])+1)
	}
}

func (r *Renderer) indicator(offset int) string {
	if offset <= 0 {
		return ""
	}
	text := truncateLine(fmt.Sprintf("[%d more below]", offset), r.width)
	return r.lg.PlaceHorizontal(r.width, lipgloss.Right, r.indicatorStyle.Render(text))
}

// truncateLine cuts lines wider than width to width-3 cells plus "...",
// leaving escape sequences intact.
func truncateLine(line string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.PrintableRuneWidth(line) <= width {
		return line
	}
	if width < len(ellipsis) {
		return truncate.String(line, uint(width))
	}
	return truncate.StringWithTail(line, uint(width), ellipsis)
}

// inputTail keeps the end of s that fits in width cells, so the cursor side
// of a long input stays visible.
func inputTail(s string, width int) string {
	if width <= 0 {
		return ""
	}
	overflow := runewidth.StringWidth(s) - width
	if overflow <= 0 {
		return s
	}
	return runewidth.TruncateLeft(s, overflow, "")
}
