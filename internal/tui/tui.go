package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/storyworld/internal/engine"
)

type sessionState int

const (
	statePlaying sessionState = iota
	stateScene
	stateChoosing
	stateGameOver
	stateError
)

type model struct {
	state     sessionState
	game      *engine.Game
	tickRate  time.Duration
	textInput textinput.Model
	viewport  viewport.Model
	err       error
	gameLog   string
	choices   []string
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			PaddingLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

func NewModel(game *engine.Game, tickRate time.Duration) model {
	ti := textinput.New()
	ti.Placeholder = "What do you do?"
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 40

	m := model{
		state:     statePlaying,
		game:      game,
		tickRate:  tickRate,
		textInput: ti,
	}
	game.Start()
	m.drain()
	return m
}

type tickMsg time.Time

func (m model) tick() tea.Cmd {
	return tea.Tick(m.tickRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyRunes:
			if m.state == stateChoosing && len(msg.Runes) == 1 {
				if n := int(msg.Runes[0] - '1'); n >= 0 && n < len(m.choices) {
					m.fail(m.game.Choose(n))
					m.drain()
					return m, nil
				}
			}

		case tea.KeyEnter:
			if m.state != statePlaying {
				return m, nil
			}
			action := m.textInput.Value()
			if action == "" {
				return m, nil
			}
			m.textInput.Reset()
			if action == "/quit" {
				return m, tea.Quit
			}

			logWidth := int(float64(m.width) * 0.75)
			m.gameLog += "\n\n" + userStyle.Width(logWidth).Render("> "+action) + "\n\n"
			m.fail(m.game.Execute(context.Background(), action))
			m.drain()
			return m, nil
		}

	case tickMsg:
		m.fail(m.game.Tick(time.Time(msg)))
		m.drain()
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.viewport.Width == 0 {
			m.viewport = viewport.New(int(float64(msg.Width)*0.75), msg.Height-6)
		}
		m.viewport.Width = int(float64(msg.Width) * 0.75)
		m.viewport.Height = msg.Height - 6
		m.viewport.SetContent(m.renderLog())
	}

	if m.state == statePlaying {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) fail(err error) {
	if err != nil {
		m.err = err
		m.state = stateError
	}
}

// drain moves the game's transcript into the log and follows the input
// surface state it reports.
func (m *model) drain() {
	logWidth := int(float64(m.width) * 0.75)
	for _, ev := range m.game.Transcript.Drain() {
		switch ev.Kind {
		case engine.EventText:
			m.gameLog += gameStyle.Width(logWidth).Render(ev.Text) + "\n\n"
			if m.state == stateChoosing {
				m.state = stateScene
				m.choices = nil
			}
		case engine.EventChoices:
			m.choices = ev.Choices
			m.state = stateChoosing
		case engine.EventInputHidden:
			if m.state == statePlaying {
				m.state = stateScene
			}
		case engine.EventInputShown:
			if m.state != stateError {
				m.state = statePlaying
				m.choices = nil
			}
		}
	}
	if m.state != stateError && !m.game.Alive() {
		m.state = stateGameOver
	}
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m model) View() string {
	var s string

	switch m.state {
	case statePlaying, stateScene, stateChoosing:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)

		var bottom string
		switch m.state {
		case statePlaying:
			bottom = "\n" + m.textInput.View() + "\n" + helpStyle.Render("Type what you want to do, or /quit.")
		case stateChoosing:
			bottom = "\n" + m.renderChoices() + "\n" + helpStyle.Render("Press a number to choose.")
		default:
			bottom = "\n" + helpStyle.Render("...")
		}
		s = lipgloss.JoinVertical(lipgloss.Left, mainView, bottom)

	case stateGameOver:
		s = m.viewport.View() + "\n\n  The story is over. Press Esc to quit."

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m model) renderChoices() string {
	var b strings.Builder
	for i, c := range m.choices {
		b.WriteString(choiceStyle.Render(fmt.Sprintf("%d) %s", i+1, c)) + "\n")
	}
	return b.String()
}

func (m model) renderState() string {
	location := titleStyle.Render("LOCATION") + "\n" + m.game.LocationName() + "\n\n"

	exitsTitle := titleStyle.Render("EXITS") + "\n"
	exits := list(m.game.Exits()) + "\n"

	invTitle := titleStyle.Render("INVENTORY") + "\n"
	inventory := list(m.game.Inventory())

	content := location + exitsTitle + exits + invTitle + inventory

	stateWidth := int(float64(m.width) * 0.23) // Leave some room for padding
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(content)
}

func list(items []string) string {
	if len(items) == 0 {
		return "(empty)\n"
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	return b.String()
}

func (m model) renderLog() string {
	return m.gameLog
}

// Run plays game in the terminal until the player quits.
func Run(game *engine.Game, tickRate time.Duration) error {
	p := tea.NewProgram(NewModel(game, tickRate), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
