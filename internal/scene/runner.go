package scene

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tatianab/storyworld/internal/world"
)

var (
	ErrNoPendingChoice = errors.New("no choice pending")
	ErrBadChoice       = errors.New("choice out of range")
)

// Surface is the text output a scene plays on.
type Surface interface {
	ShowText(player world.Handle, text string)
	// PresentChoices offers labels; the host reports the pick through
	// Director.Choose.
	PresentChoices(player world.Handle, labels []string)
	// PrepareInput hides the command line while a scene plays and
	// RestoreInput brings it back.
	PrepareInput(player world.Handle)
	RestoreInput(player world.Handle)
}

// State is the lifecycle of a Runner.
type State int

const (
	Running State = iota
	Waiting
	Choosing
	Finished
	Abandoned
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Choosing:
		return "choosing"
	case Finished:
		return "finished"
	case Abandoned:
		return "abandoned"
	}
	return "unknown"
}

// Runner plays one compiled scene for one player.
type Runner struct {
	ID     uuid.UUID
	graph  *Graph
	player world.Handle
	d      *Director

	cursor      int
	state       State
	wake        Token
	prepared    bool
	restored    bool
	suspensions int
	executed    int
}

func (r *Runner) Graph() *Graph        { return r.graph }
func (r *Runner) Player() world.Handle { return r.player }
func (r *Runner) State() State         { return r.state }
func (r *Runner) Cursor() int          { return r.cursor }
func (r *Runner) Suspensions() int     { return r.suspensions }
func (r *Runner) StepsExecuted() int   { return r.executed }
func (r *Runner) Done() bool           { return r.state == Finished || r.state == Abandoned }

// Choices returns the labels of the pending choice, if any.
func (r *Runner) Choices() []string {
	if r.state != Choosing {
		return nil
	}
	step := &r.graph.Steps[r.cursor]
	labels := make([]string, len(step.Options))
	for i, o := range step.Options {
		labels[i] = o.Label
	}
	return labels
}

// Choose resolves the pending choice with option i and keeps playing.
func (r *Runner) Choose(i int) error {
	if r.state != Choosing {
		return ErrNoPendingChoice
	}
	step := &r.graph.Steps[r.cursor]
	if i < 0 || i >= len(step.Options) {
		return fmt.Errorf("%w: %d of %d", ErrBadChoice, i, len(step.Options))
	}
	r.d.surface.ShowText(r.player, step.Options[i].Label)
	r.cursor = step.Options[i].Next
	r.state = Running
	return r.run()
}

// run executes steps until the runner suspends, finishes or fails.
func (r *Runner) run() error {
	for r.state == Running {
		if r.cursor == End {
			r.finish()
			return nil
		}
		step := &r.graph.Steps[r.cursor]
		r.executed++
		next, err := r.exec(step)
		if err != nil {
			r.finish()
			return fmt.Errorf("scene %s step %d (%s): %w", r.graph.Name, r.cursor, step.Kind, err)
		}
		if r.state != Running {
			return nil
		}
		r.cursor = next
	}
	return nil
}

func (r *Runner) exec(step *Step) (int, error) {
	w, out := r.d.world, r.d.surface
	switch step.Kind {
	case KindPrepare:
		out.PrepareInput(r.player)
		r.prepared = true

	case KindRestore:
		out.RestoreInput(r.player)
		r.restored = true

	case KindText:
		out.ShowText(r.player, step.Text)

	case KindDelay:
		r.suspend(Waiting)
		r.wake = r.d.sched.After(step.Duration, r.player, func() error {
			r.wake = 0
			if r.state != Waiting {
				return nil
			}
			r.cursor = step.Next
			r.state = Running
			return r.run()
		})

	case KindChoice:
		if len(step.Options) == 0 {
			break
		}
		r.suspend(Choosing)
		out.PresentChoices(r.player, r.Choices())

	case KindTransfer:
		subject, ok := r.d.find(step.Subject)
		if !ok {
			return r.branch(step, BranchSubjectNotFound), nil
		}
		var target world.Handle
		if step.Target != NullTarget {
			if target, ok = r.d.find(step.Target); !ok {
				return r.branch(step, BranchTargetNotFound), nil
			}
		}
		if !w.Transfer(subject, target) {
			return r.branch(step, BranchTransferRefused), nil
		}

	case KindState:
		subject, ok := r.d.find(step.Subject)
		if !ok {
			return r.branch(step, BranchSubjectNotFound), nil
		}
		w.SetState(subject, step.Key, step.Value)

	case KindSpawn:
		if _, ok := w.Kinds().Lookup(step.Entity); !ok {
			return End, fmt.Errorf("spawn %q: %w", step.Entity, world.ErrUnknownKind)
		}
		target, ok := r.d.find(step.Target)
		if !ok {
			return r.branch(step, BranchTargetNotFound), nil
		}
		h, err := w.CreateDetached(step.Entity)
		if err != nil {
			return End, err
		}
		if step.Name != "" {
			w.SetName(h, r.d.name(step.Name))
		}
		if !w.Transfer(h, target) {
			w.Destroy(h)
			if n, ok := step.Branch(BranchTransferRefused); ok {
				return n, nil
			}
		}
	}
	return step.Next, nil
}

// branch follows the named branch or, when the step does not declare it,
// ends the scene.
func (r *Runner) branch(step *Step, name string) int {
	if n, ok := step.Branch(name); ok {
		return n
	}
	r.d.log.Debug("scene ends on undeclared branch",
		zap.String("scene", r.graph.Name),
		zap.String("runner", r.ID.String()),
		zap.String("branch", name))
	return End
}

func (r *Runner) suspend(s State) {
	r.state = s
	r.suspensions++
	r.d.log.Debug("scene suspended",
		zap.String("scene", r.graph.Name),
		zap.String("runner", r.ID.String()),
		zap.Stringer("state", s))
}

func (r *Runner) finish() {
	if r.Done() {
		return
	}
	r.state = Finished
	if r.prepared && !r.restored {
		r.restored = true
		r.d.surface.RestoreInput(r.player)
	}
	r.d.release(r)
}

// abandon drops the runner without touching the surface; its player is gone.
func (r *Runner) abandon() {
	if r.Done() {
		return
	}
	r.state = Abandoned
	if r.wake != 0 {
		r.d.sched.Cancel(r.wake)
		r.wake = 0
	}
	r.d.release(r)
}
