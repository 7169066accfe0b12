package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tatianab/storyworld/internal/config"
	"github.com/tatianab/storyworld/internal/content"
	"github.com/tatianab/storyworld/internal/engine"
)

var epoch = time.Date(2017, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T) model {
	t.Helper()
	g, err := engine.New(context.Background(), engine.Options{
		Config: &config.Config{Game: config.GameConfig{
			WorldFile: "world.yaml",
			Language:  "en",
			Player:    "Ivy",
		}},
		Content: content.FS,
		Log:     zaptest.NewLogger(t),
		Now:     epoch,
		NewGame: true,
	})
	require.NoError(t, err)
	t.Cleanup(g.Close)

	m := NewModel(g, 50*time.Millisecond)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(model)
}

func (m model) send(t *testing.T, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

func (m model) enter(t *testing.T, line string) model {
	t.Helper()
	m.textInput.SetValue(line)
	return m.send(t, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestModelPlaysScene(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, statePlaying, m.state)
	assert.Contains(t, m.gameLog, "Your small hut")
	assert.Contains(t, m.View(), "LOCATION")

	m = m.enter(t, "go to Village")
	assert.Equal(t, stateScene, m.state)
	assert.Contains(t, m.gameLog, "flooded again")
	assert.Empty(t, m.textInput.Value())

	// input is ignored while the scene plays
	m = m.enter(t, "look")
	assert.Equal(t, stateScene, m.state)

	m = m.send(t, tickMsg(epoch.Add(1200*time.Millisecond)))
	require.Equal(t, stateChoosing, m.state)
	assert.Equal(t, []string{"Can I help?", "I will see."}, m.choices)
	assert.Contains(t, m.View(), "1) Can I help?")

	// out of range keys do nothing
	m = m.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'9'}})
	assert.Equal(t, stateChoosing, m.state)

	m = m.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	assert.Equal(t, statePlaying, m.state)
	assert.Nil(t, m.choices)
	assert.Contains(t, m.gameLog, "Gerrit goes back to his newspaper.")
	assert.Contains(t, m.renderState(), "Village")
}

func TestModelGameOver(t *testing.T) {
	m := newTestModel(t)
	m.game.World.Destroy(m.game.Player())
	m = m.send(t, tickMsg(epoch.Add(time.Second)))
	assert.Equal(t, stateGameOver, m.state)
	assert.Contains(t, m.View(), "The story is over.")
}

func TestModelQuit(t *testing.T) {
	m := newTestModel(t)
	m.textInput.SetValue("/quit")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestList(t *testing.T) {
	assert.Equal(t, "(empty)\n", list(nil))
	assert.Equal(t, "- Lamp\n- Stove\n", list([]string{"Lamp", "Stove"}))
}
