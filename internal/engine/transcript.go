package engine

import (
	"go.uber.org/zap"

	"github.com/tatianab/storyworld/internal/resources"
	"github.com/tatianab/storyworld/internal/world"
)

type EventKind int

const (
	EventText EventKind = iota
	EventChoices
	EventInputHidden
	EventInputShown
)

// Event is one thing the player should see, in the order it happened.
type Event struct {
	Kind    EventKind
	Player  world.Handle
	Text    string
	Choices []string
}

// Transcript is the surface scenes and kind hooks write to. Hosts drain it
// after every command or tick. Resource references are expanded on the way in.
type Transcript struct {
	strings *resources.Table
	log     *zap.Logger
	events  []Event
}

func NewTranscript(strings *resources.Table, log *zap.Logger) *Transcript {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transcript{strings: strings, log: log}
}

func (t *Transcript) decode(text string) string {
	if t.strings == nil {
		return text
	}
	s, err := t.strings.Decode(text)
	if err != nil {
		t.log.Warn("undecodable text", zap.String("text", text), zap.Error(err))
		return text
	}
	return s
}

func (t *Transcript) ShowText(player world.Handle, text string) {
	t.events = append(t.events, Event{Kind: EventText, Player: player, Text: t.decode(text)})
}

func (t *Transcript) PresentChoices(player world.Handle, labels []string) {
	choices := make([]string, len(labels))
	for i, l := range labels {
		choices[i] = t.decode(l)
	}
	t.events = append(t.events, Event{Kind: EventChoices, Player: player, Choices: choices})
}

func (t *Transcript) PrepareInput(player world.Handle) {
	t.events = append(t.events, Event{Kind: EventInputHidden, Player: player})
}

func (t *Transcript) RestoreInput(player world.Handle) {
	t.events = append(t.events, Event{Kind: EventInputShown, Player: player})
}

// Drain returns and forgets everything recorded so far.
func (t *Transcript) Drain() []Event {
	ev := t.events
	t.events = nil
	return ev
}
