package chatserver

import (
	"math/rand/v2"

	"github.com/fatih/color"
)

// Protocol text sent to peers
const (
	PromptNickname   = "Please enter a nickname: "
	PromptRetry      = "Invalid nickname. Please enter a valid nickname: "
	ReplyNickUsage   = "Nickname cannot be empty. Usage: /nick <new_name>"
	ReplyRateLimited = "Slow down: message dropped"

	commandQuit       = "/quit"
	commandNickPrefix = "/nick "
)

// Color tags a participant's nickname. The zero value renders plain text.
type Color struct {
	c *color.Color
}

// NewColor returns a Color that always emits escape codes, even when the
// router's own stdout is not a terminal.
func NewColor(attr color.Attribute) Color {
	c := color.New(attr)
	c.EnableColor()
	return Color{c: c}
}

// Paint wraps s in the color's start and reset codes.
func (c Color) Paint(s string) string {
	if c.c == nil {
		return s
	}
	return c.c.Sprint(s)
}

// Palette is the set of colors handed out to new sessions.
type Palette []Color

// DefaultPalette is red, green, yellow, blue, magenta and cyan.
func DefaultPalette() Palette {
	return Palette{
		NewColor(color.FgRed),
		NewColor(color.FgGreen),
		NewColor(color.FgYellow),
		NewColor(color.FgBlue),
		NewColor(color.FgMagenta),
		NewColor(color.FgCyan),
	}
}

// Pick returns a random palette entry.
func (p Palette) Pick() Color {
	if len(p) == 0 {
		return Color{}
	}
	return p[rand.IntN(len(p))]
}

func joinNotice(label string) string {
	return label + " joined the chat!"
}

func leaveNotice(label string) string {
	return label + " left the chat!"
}

func renameNotice(oldLabel, newLabel string) string {
	return oldLabel + " changed their nickname to " + newLabel
}

func renameReply(nick string) string {
	return "Successfully changed nickname to " + nick
}

func chatLine(label, text string) string {
	return label + ": " + text
}
