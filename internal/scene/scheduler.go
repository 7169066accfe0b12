package scene

import (
	"container/heap"
	"errors"
	"time"

	"github.com/tatianab/storyworld/internal/world"
)

// Token identifies a scheduled wake-up. The zero Token is never issued.
type Token uint64

type wakeItem struct {
	at    time.Time
	seq   uint64
	owner world.Handle
	token Token
	fn    func() error
	index int
}

// wakeQueue is a min-heap ordered by wake time, then scheduling order.
type wakeQueue []*wakeItem

func (q wakeQueue) Len() int { return len(q) }

func (q wakeQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q wakeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *wakeQueue) Push(x any) {
	item := x.(*wakeItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *wakeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// Scheduler is the cooperative timer queue. Nothing in it blocks: the game
// loop calls Advance with the current time and due callbacks run inline.
type Scheduler struct {
	now    time.Time
	queue  wakeQueue
	tokens map[Token]*wakeItem
	seq    uint64
}

func NewScheduler(start time.Time) *Scheduler {
	return &Scheduler{
		now:    start,
		tokens: make(map[Token]*wakeItem),
	}
}

// Now is the time of the last Advance.
func (s *Scheduler) Now() time.Time { return s.now }

// After schedules fn to run once d has elapsed. owner ties the entry to an
// entity so CancelOwner can drop it.
func (s *Scheduler) After(d time.Duration, owner world.Handle, fn func() error) Token {
	s.seq++
	item := &wakeItem{
		at:    s.now.Add(d),
		seq:   s.seq,
		owner: owner,
		token: Token(s.seq),
		fn:    fn,
	}
	heap.Push(&s.queue, item)
	s.tokens[item.token] = item
	return item.token
}

// Cancel drops a pending wake-up. It reports whether anything was pending.
func (s *Scheduler) Cancel(t Token) bool {
	item, ok := s.tokens[t]
	if !ok {
		return false
	}
	heap.Remove(&s.queue, item.index)
	delete(s.tokens, t)
	return true
}

// CancelOwner drops every pending wake-up owned by h and returns how many.
func (s *Scheduler) CancelOwner(h world.Handle) int {
	var doomed []Token
	for t, item := range s.tokens {
		if item.owner == h {
			doomed = append(doomed, t)
		}
	}
	for _, t := range doomed {
		s.Cancel(t)
	}
	return len(doomed)
}

// Advance moves the clock to now and runs every wake-up that is due, including
// ones scheduled by callbacks if they are due as well. Callback errors are
// joined and returned; later callbacks still run.
func (s *Scheduler) Advance(now time.Time) error {
	if now.After(s.now) {
		s.now = now
	}
	var errs []error
	for s.queue.Len() > 0 && !s.queue[0].at.After(s.now) {
		item := heap.Pop(&s.queue).(*wakeItem)
		delete(s.tokens, item.token)
		if err := item.fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pending is the number of scheduled wake-ups.
func (s *Scheduler) Pending() int { return s.queue.Len() }

// NextWake returns the earliest pending wake time.
func (s *Scheduler) NextWake() (time.Time, bool) {
	if s.queue.Len() == 0 {
		return time.Time{}, false
	}
	return s.queue[0].at, true
}
