package console

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainOutput(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader(""), &out, true)

	c.Green("Getting file with ID: %s", "file-1")
	c.Purple("Run failed: %s", "rate_limit_exceeded")
	c.Blue("token")
	c.Blue(" stream\n")
	c.Alert("Initialization failed.")
	c.Plain("Exiting...")

	assert.Equal(t, "Getting file with ID: file-1\nRun failed: rate_limit_exceeded\ntoken stream\nInitialization failed.\nExiting...\n", out.String())
}

func TestColouredOutput(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader(""), &out, false)

	c.Blue("hello")
	assert.Contains(t, out.String(), "\x1b[34m")
	assert.Contains(t, out.String(), "hello")
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("  show tents \nexit"), &out, true)

	line, err := c.Prompt("Enter your query: ")
	require.NoError(t, err)
	assert.Equal(t, "show tents", line)

	line, err = c.Prompt("Enter your query: ")
	require.NoError(t, err)
	assert.Equal(t, "exit", line)

	_, err = c.Prompt("Enter your query: ")
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, strings.Repeat("Enter your query: ", 3), out.String())
}
