package scene

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnknownStep = errors.New("unknown scene step")
	ErrBadStep     = errors.New("malformed scene step")
)

// End marks a missing successor.
const End = -1

// Kind discriminates step variants.
type Kind int

const (
	KindPrepare Kind = iota
	KindText
	KindDelay
	KindChoice
	KindTransfer
	KindState
	KindSpawn
	KindRestore
)

var kindNames = [...]string{"prepare", "text", "delay", "choice", "transfer", "state", "spawn", "restore"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Step is a node of a compiled scene.
type Step struct {
	Kind Kind

	Text     string        // text
	Duration time.Duration // delay
	Options  []Option      // choice
	Subject  string        // transfer, state
	Target   string        // transfer, spawn
	Key      string        // state
	Value    int           // state
	Entity   string        // spawn: kind
	Name     string        // spawn: optional name

	// Next is the continue edge. Choice steps only take it when they have
	// no options.
	Next     int
	Branches map[string]int
}

// Option is one choice with its own continuation chain.
type Option struct {
	Label string
	Next  int
}

// Branch returns the successor for the named branch, if declared.
func (s *Step) Branch(name string) (int, bool) {
	n, ok := s.Branches[name]
	return n, ok
}

// Graph is a compiled scene. Steps[Entry] is the injected prepare step.
type Graph struct {
	Name  string
	Steps []Step
	Entry int
}

// Compile links the authored steps of s into a graph. Sequential siblings are
// joined by continue edges; branch sub-paths and choice options rejoin the
// continuation of the step that owns them. Nothing is evaluated.
func Compile(name string, s *Script) (*Graph, error) {
	g := &Graph{Name: name}
	restore := g.add(Step{Kind: KindRestore, Next: End})
	first, err := g.compileList(s.Steps, restore, "steps")
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	g.Entry = g.add(Step{Kind: KindPrepare, Next: first})
	return g, nil
}

func (g *Graph) add(s Step) int {
	g.Steps = append(g.Steps, s)
	return len(g.Steps) - 1
}

func keyList(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// compileList compiles descs back to front so every step already knows its
// continuation, and returns the entry of the list (cont when empty).
func (g *Graph) compileList(descs []Descriptor, cont int, path string) (int, error) {
	next := cont
	for i := len(descs) - 1; i >= 0; i-- {
		idx, err := g.compileStep(&descs[i], next, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return End, err
		}
		next = idx
	}
	return next, nil
}

func (g *Graph) compileStep(d *Descriptor, cont int, path string) (int, error) {
	if len(d.Unknown) > 0 {
		return End, fmt.Errorf("%s: %w: %s", path, ErrUnknownStep, keyList(d.Unknown))
	}

	var kinds []Kind
	if d.Text != nil {
		kinds = append(kinds, KindText)
	}
	if d.Delay != nil {
		kinds = append(kinds, KindDelay)
	}
	if d.hasChoice || len(d.Choice) > 0 {
		kinds = append(kinds, KindChoice)
	}
	if d.Transfer != nil {
		kinds = append(kinds, KindTransfer)
	}
	if d.State != nil {
		kinds = append(kinds, KindState)
	}
	if d.Spawn != nil {
		kinds = append(kinds, KindSpawn)
	}
	if len(kinds) != 1 {
		return End, fmt.Errorf("%s: %w: want exactly one step kind, got %d", path, ErrBadStep, len(kinds))
	}

	step := Step{Kind: kinds[0], Next: cont}
	var allowed []string
	switch step.Kind {
	case KindText:
		step.Text = *d.Text
	case KindDelay:
		step.Duration = time.Duration(*d.Delay)
		if step.Duration < 0 {
			return End, fmt.Errorf("%s: %w: negative delay", path, ErrBadStep)
		}
	case KindChoice:
		for i := range d.Choice {
			if len(d.Choice[i].Unknown) > 0 {
				return End, fmt.Errorf("%s.choice[%d]: %w: unknown option keys %s", path, i, ErrBadStep, keyList(d.Choice[i].Unknown))
			}
			entry, err := g.compileList(d.Choice[i].Steps, cont, fmt.Sprintf("%s.choice[%d]", path, i))
			if err != nil {
				return End, err
			}
			step.Options = append(step.Options, Option{Label: d.Choice[i].Label, Next: entry})
		}
	case KindTransfer:
		if d.Transfer.Subject == "" || d.Transfer.Target == "" {
			return End, fmt.Errorf("%s: %w: transfer needs subject and target", path, ErrBadStep)
		}
		step.Subject, step.Target = d.Transfer.Subject, d.Transfer.Target
		allowed = []string{BranchSubjectNotFound, BranchTargetNotFound, BranchTransferRefused}
	case KindState:
		if d.State.Subject == "" || d.State.Key == "" {
			return End, fmt.Errorf("%s: %w: state needs subject and key", path, ErrBadStep)
		}
		step.Subject, step.Key, step.Value = d.State.Subject, d.State.Key, d.State.Value
		allowed = []string{BranchSubjectNotFound}
	case KindSpawn:
		if d.Spawn.Kind == "" || d.Spawn.Target == "" {
			return End, fmt.Errorf("%s: %w: spawn needs kind and target", path, ErrBadStep)
		}
		step.Entity, step.Target, step.Name = d.Spawn.Kind, d.Spawn.Target, d.Spawn.Name
		allowed = []string{BranchTargetNotFound, BranchTransferRefused}
	}

	declared := map[string][]Descriptor{}
	if d.SubjectNotFound != nil {
		declared[BranchSubjectNotFound] = d.SubjectNotFound
	}
	if d.TargetNotFound != nil {
		declared[BranchTargetNotFound] = d.TargetNotFound
	}
	if d.TransferRefused != nil {
		declared[BranchTransferRefused] = d.TransferRefused
	}
	for _, name := range []string{BranchSubjectNotFound, BranchTargetNotFound, BranchTransferRefused} {
		sub, ok := declared[name]
		if !ok {
			continue
		}
		if !contains(allowed, name) {
			return End, fmt.Errorf("%s: %w: %s step has no %s branch", path, ErrBadStep, step.Kind, name)
		}
		entry, err := g.compileList(sub, cont, path+"."+name)
		if err != nil {
			return End, err
		}
		if step.Branches == nil {
			step.Branches = make(map[string]int)
		}
		step.Branches[name] = entry
	}

	return g.add(step), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
