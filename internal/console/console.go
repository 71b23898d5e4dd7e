// Package console prints the coloured terminal output of the interactive agent.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Console writes coloured messages and reads prompts.
type Console struct {
	out    io.Writer
	in     *bufio.Reader
	green  *color.Color
	purple *color.Color
	blue   *color.Color
	alert  *color.Color
}

// New returns a console on the given streams. Colour is disabled when plain is true.
func New(in io.Reader, out io.Writer, plain bool) *Console {
	c := &Console{
		out:    out,
		in:     bufio.NewReader(in),
		green:  color.New(color.FgGreen),
		purple: color.New(color.FgMagenta),
		blue:   color.New(color.FgBlue),
		alert:  color.New(color.BgHiRed),
	}
	if plain {
		for _, col := range []*color.Color{c.green, c.purple, c.blue, c.alert} {
			col.DisableColor()
		}
	} else {
		for _, col := range []*color.Color{c.green, c.purple, c.blue, c.alert} {
			col.EnableColor()
		}
	}
	return c
}

// Stdio returns a console on stdin/stdout, coloured unless NO_COLOR is set or stdout is
// not a terminal.
func Stdio() *Console {
	return New(os.Stdin, color.Output, color.NoColor)
}

// Green prints a line in green.
func (c *Console) Green(format string, args ...any) {
	_, _ = c.green.Fprintln(c.out, fmt.Sprintf(format, args...))
}

// Purple prints a line in purple; used for errors surfaced to the user.
func (c *Console) Purple(format string, args ...any) {
	_, _ = c.purple.Fprintln(c.out, fmt.Sprintf(format, args...))
}

// Blue prints text in blue without a trailing newline.
func (c *Console) Blue(text string) {
	_, _ = c.blue.Fprint(c.out, text)
}

// Alert prints a line on a bright red background.
func (c *Console) Alert(format string, args ...any) {
	_, _ = c.alert.Fprintln(c.out, fmt.Sprintf(format, args...))
}

// Plain prints an uncoloured line.
func (c *Console) Plain(format string, args ...any) {
	_, _ = fmt.Fprintln(c.out, fmt.Sprintf(format, args...))
}

// Prompt prints label in green and returns the trimmed line typed by the user.
// io.EOF is returned once input is exhausted.
func (c *Console) Prompt(label string) (string, error) {
	_, _ = c.green.Fprint(c.out, label)
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
