package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":        Info,
		"debug":   Debug,
		" WARN ":  Warn,
		"warning": Warn,
		"error":   Error,
		"bogus":   Info,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestNew_JSON_WritesFieldsAndApp(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Debug, Format: FormatJSON, App: "dog-match", Writer: &buf})

	l.With(map[string]any{"session_id": "s-1"}).Info("search applied", map[string]any{
		"seq": 3,
		"err": errors.New("boom"),
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "search applied", entry["msg"])
	assert.Equal(t, "dog-match", entry["app"])
	assert.Equal(t, "s-1", entry["session_id"])
	assert.Equal(t, float64(3), entry["seq"])
	assert.Equal(t, "boom", entry["err"])
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Warn, Format: FormatText, Writer: &buf, NoColor: true})

	l.Info("hidden", nil)
	l.Warn("visible", map[string]any{"k": "v"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "visible"))
	assert.Contains(t, out, "k=v")
}
