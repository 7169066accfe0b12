package world

import "go.uber.org/zap"

// consent stages, reported in refusal logs
const (
	stageSubject = "subject"
	stageParent  = "parent"
	stageTarget  = "target"
	stageCycle   = "cycle"
	stageBusy    = "reentrant"
)

// Transfer moves subject under target if the subject, its current parent and
// the target all consent, in that order. A zero target drops the subject into
// the void: it is detached, announced, and then destroyed. On refusal nothing
// changes and false is returned.
func (w *World) Transfer(subject, target Handle) bool {
	if stage, ok := w.consent(subject, target); !ok {
		w.log.Debug("transfer refused",
			zap.String("subject", w.Name(subject)),
			zap.String("target", w.Name(target)),
			zap.String("stage", stage))
		return false
	}

	from := w.Parent(subject)
	w.moving[subject] = true
	w.reparent(subject, target)
	if w.IsPlace(target) && w.IsPlayer(subject) {
		v, _ := w.State(target, StateVisited)
		w.SetState(target, StateVisited, v+1)
	}

	ev := TransferEvent{Subject: subject, From: from, To: target}
	w.log.Debug("transfer",
		zap.String("subject", w.Name(subject)),
		zap.String("from", w.Name(from)),
		zap.String("to", w.Name(target)))
	w.broadcast(w.Root(), ev)
	for _, fn := range w.listeners {
		fn(ev)
	}
	delete(w.moving, subject)

	if target.IsZero() {
		w.Destroy(subject)
	}
	return true
}

func (w *World) consent(subject, target Handle) (string, bool) {
	e, ok := w.Get(subject)
	if !ok || subject == w.Root() {
		return stageSubject, false
	}
	if w.moving[subject] {
		w.log.Warn("transfer re-entered for a subject still in transit",
			zap.String("subject", e.name))
		return stageBusy, false
	}
	if !target.IsZero() && !w.Alive(target) {
		return stageTarget, false
	}

	b := w.Behavior(subject)
	if e.Immovable || (b.CanMove != nil && !b.CanMove(w, subject, target)) {
		return stageSubject, false
	}

	if parent := e.parent; !parent.IsZero() {
		release := DefaultRelease
		if pb := w.Behavior(parent); pb != nil && pb.CanRelease != nil {
			release = pb.CanRelease
		}
		if !release(w, parent, subject, target) {
			return stageParent, false
		}
	}

	if !target.IsZero() {
		if tb := w.Behavior(target); tb.CanReceive != nil && !tb.CanReceive(w, target, subject) {
			return stageTarget, false
		}
	}

	// custom release hooks may skip the default policy; the tree must stay acyclic anyway
	if w.createsCycle(subject, target) {
		return stageCycle, false
	}
	return "", true
}

// DefaultRelease is the parent-side consent used when a kind has no CanRelease
// hook. The subject must be one of parent's children and must not be moved
// into itself. When both parent and target are places the target must be
// reachable from the parent; moves into non-places skip that check.
func DefaultRelease(w *World, parent, subject, target Handle) bool {
	if !w.isChild(parent, subject) {
		return false
	}
	if w.createsCycle(subject, target) {
		return false
	}
	if w.IsPlace(parent) && w.IsPlace(target) {
		return w.Reachable(parent, target)
	}
	return true
}

func (w *World) createsCycle(subject, target Handle) bool {
	if target.IsZero() {
		return false
	}
	return target == subject || w.IsAncestor(subject, target)
}

// broadcast delivers ev to h and then to its subtree, depth-first. Children are
// read after h's hook returns, so transfers made by the hook are complete
// before the traversal moves on.
func (w *World) broadcast(h Handle, ev TransferEvent) {
	b := w.Behavior(h)
	if b == nil {
		return
	}
	if b.OnTransfer != nil {
		b.OnTransfer(w, h, ev)
	}
	for _, c := range w.Children(h) {
		w.broadcast(c, ev)
	}
}
