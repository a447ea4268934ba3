package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"text", ModeText},
		{"JSON", ModeJSON},
		{"yml", ModeYAML},
		{"md", ModeMarkdown},
		{"markdown", ModeMarkdown},
		{"bogus", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMode(tt.in))
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	var out, errOut bytes.Buffer

	// A buffer is never a terminal.
	r := NewRenderer(&out, &errOut, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())

	r = NewRenderer(&out, &errOut, ModeJSON)
	assert.Equal(t, ModeJSON, r.EffectiveMode())

	r = NewRenderer(&out, &errOut, "")
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestRenderer_NoColorWhenPiped(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)

	r.Success("done")
	r.Error("failed")
	assert.Equal(t, "✓ done\n", out.String())
	assert.Equal(t, "✗ failed\n", errOut.String())
	assert.NotContains(t, out.String(), "\x1b[")
}

func TestRenderer_Header(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &out, ModeMarkdown)
	r.Header(2, "History")
	assert.Equal(t, "## History\n\n", out.String())

	out.Reset()
	r = NewRenderer(&out, &out, ModeText)
	r.Header(1, "History")
	assert.Equal(t, "History\n", out.String())
}

func TestRenderer_Structured(t *testing.T) {
	v := map[string]any{"expression": "1+1", "result": 2}

	var out bytes.Buffer
	r := NewRenderer(&out, &out, ModeJSON)
	ok, err := r.Structured(v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"expression":"1+1","result":2}`, out.String())

	out.Reset()
	r = NewRenderer(&out, &out, ModeYAML)
	ok, err = r.Structured(v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "expression: 1+1")
	assert.Contains(t, out.String(), "result: 2")

	out.Reset()
	r = NewRenderer(&out, &out, ModeText)
	ok, err = r.Structured(v)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, out.String())
}

func TestRenderer_Table(t *testing.T) {
	headers := []string{"Expression", "Result"}
	rows := [][]string{{"1+1", "2"}, {"2*3", "6"}}

	var out bytes.Buffer
	r := NewRenderer(&out, &out, ModeMarkdown)
	r.Table(headers, rows)
	md := out.String()
	assert.True(t, strings.HasPrefix(md, "|"), md)
	assert.Contains(t, strings.ToLower(md), "expression")
	assert.Contains(t, md, "1+1")
	assert.NotContains(t, md, "┌")

	out.Reset()
	r = NewRenderer(&out, &out, ModeText)
	r.Table(headers, rows)
	txt := out.String()
	assert.Contains(t, strings.ToLower(txt), "expression")
	assert.Contains(t, txt, "2*3")
	assert.Contains(t, txt, "┌")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Title", FormatHeader(3, "Title"))
	assert.Equal(t, "- **Count:** 3", FormatKeyValue("Count", "3"))
	assert.Equal(t, "`1+1`", FormatCode("1+1"))
}
