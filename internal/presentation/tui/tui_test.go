package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner_Plain(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(NewOutput(&buf, false), "1.2.3")

	assert.Contains(t, buf.String(), "version 1.2.3")
	assert.NotContains(t, buf.String(), "\x1b[", "ascii profile drops escape codes")
}

func TestNewRenderer_Plain(t *testing.T) {
	render := NewRenderer(false)
	out, err := render("# Commands\n\n- `undo`: reverse the newest transaction\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Commands")
	assert.Contains(t, out, "reverse the newest transaction")
}
