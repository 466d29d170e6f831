package chatclient

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/moviebox/ragchat/internal/chat"
)

var (
	assistantStyle = color.New(color.FgBlack, color.BgYellow)
	userStyle      = color.New(color.FgWhite, color.BgHiBlack)
)

// Render draws the transcript as chat bubbles: assistant messages on the
// left, user messages on the right. width is the terminal width in columns.
func Render(w io.Writer, messages []chat.Message, width int) error {
	bubble := width * 3 / 4
	if bubble < 10 {
		bubble = 10
	}

	for _, m := range messages {
		style := assistantStyle
		if m.Role == chat.RoleUser {
			style = userStyle
		}

		for _, line := range wrap(m.Content, bubble-2) {
			text := " " + line + strings.Repeat(" ", bubble-2-utf8.RuneCountInString(line)) + " "
			indent := ""
			if m.Role == chat.RoleUser && width > bubble {
				indent = strings.Repeat(" ", width-bubble)
			}
			if _, err := fmt.Fprintln(w, indent+style.Sprint(text)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// wrap breaks text into lines of at most width runes, preferring spaces.
func wrap(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			for utf8.RuneCountInString(word) > width {
				if line != "" {
					lines = append(lines, line)
					line = ""
				}
				r := []rune(word)
				lines = append(lines, string(r[:width]))
				word = string(r[width:])
			}
			switch {
			case line == "":
				line = word
			case utf8.RuneCountInString(line)+1+utf8.RuneCountInString(word) <= width:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		lines = append(lines, line)
	}
	return lines
}
