package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	cases := map[string]string{
		"reply: The door is stuck.":                   "The door is stuck.",
		"```yaml\nreply: Nothing happens.\n```":       "Nothing happens.",
		"```\nreply: |\n  Two lines\n  of text.\n```": "Two lines\nof text.",
		"  reply: \"Quoted: with a colon.\"  ":        "Quoted: with a colon.",
	}
	for in, want := range cases {
		got, err := parseReply(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := parseReply("reply: ''")
	assert.ErrorIs(t, err, ErrEmptyReply)
	_, err = parseReply("other: thing")
	assert.ErrorIs(t, err, ErrEmptyReply)
	_, err = parseReply("reply: [unclosed")
	assert.Error(t, err)
}

func TestRenderPrompt(t *testing.T) {
	prompt, err := renderPrompt(Scene{
		Language:    "de",
		Place:       "Hütte",
		Description: "Deine kleine Hütte.",
		Exits:       []string{"Dorf", "Hafen"},
		Command:     "tanze",
	}, []exchange{{Command: "singe", Reply: "Niemand hört zu."}})
	require.NoError(t, err)

	assert.Contains(t, prompt, "Answer in de")
	assert.Contains(t, prompt, "Current place: Hütte")
	assert.Contains(t, prompt, "Inventory: (empty)")
	assert.Contains(t, prompt, "Exits: Dorf, Hafen")
	assert.Contains(t, prompt, "Command: singe\nReply: Niemand hört zu.")
	assert.Contains(t, prompt, "Command: tanze")
}
