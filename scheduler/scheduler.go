// Package scheduler implements the frame scheduler: a FIFO of periodic
// Tasks with precise sleep, frameskip policy, and a freewheel
// (decoupled-from-wallclock) mode used during export.
//
// Grounded on ShaderFlow's scheduler.py (SchedulerTask/Scheduler): the
// sorting rule, the next_call advance-by-whole-multiples-of-period loop,
// and the precise-sleep hybrid are all ported line for line.
package scheduler

import (
	"time"
)

// PreciseSleep sleeps close to the due time then busy-spins the remainder,
// trading a little CPU for near-perfect frame timing.
func PreciseSleep(d time.Duration) {
	start := time.Now()
	const errorMargin = time.Millisecond
	if ahead := d - errorMargin; ahead > 0 {
		time.Sleep(ahead)
	}
	for time.Since(start) < d {
	}
}

// TaskFunc is a scheduled callable. If it accepts a time.Duration argument
// the scheduler treats it as dt-aware (SchedulerTask._dt in the source);
// TaskFuncDT marks that explicitly instead of relying on reflection so Go
// callers don't need to introspect signatures.
type TaskFunc func()

// TaskFuncDT is a scheduled callable that wants the frame's dt.
type TaskFuncDT func(dt time.Duration)

// Task is a single scheduled unit of work.
type Task struct {
	fn   TaskFunc
	fnDT TaskFuncDT

	// Enabled gates whether Scheduler.Next will consider this task.
	Enabled bool
	// Once removes the task after its first call.
	Once bool
	// Frequency is calls-per-second; Period is 1/Frequency.
	Frequency float64
	// Frameskip: true allows dt to exceed the period on lag; false clamps
	// dt to the period.
	Frameskip bool
	// Freewheel tasks use a virtual clock that advances by exact periods
	// regardless of wallclock, and never sleep.
	Freewheel bool
	// Precise uses the hybrid sleep+spin wait instead of a plain sleep.
	Precise bool

	started  time.Time
	nextCall time.Time
	lastCall time.Time
	calls    int64 // whole periods nextCall lies past started
}

// Period is 1/Frequency as a time.Duration.
func (t *Task) Period() time.Duration {
	return time.Duration(float64(time.Second) / t.Frequency)
}

func (t *Task) shouldDelete() bool { return t.Once && !t.Enabled }
func (t *Task) shouldLive() bool   { return !t.shouldDelete() }

// less implements the scheduler's sort order: 'once' tasks sort before
// all others, otherwise ascending by next_call.
func less(a, b *Task) bool {
	if a.Once && !b.Once {
		return true
	}
	if !a.Once && b.Once {
		return false
	}
	return a.nextCall.Before(b.nextCall)
}

// New builds a periodic task calling fn at frequency Hz. Options configure
// freewheel/frameskip/precise/once; defaults match the source's defaults
// (frameskip=true, the rest false).
func New(fn TaskFunc, frequency float64, opts ...Option) *Task {
	t := newBase(frequency, opts...)
	t.fn = fn
	return t
}

// NewDT is like New but the callable receives the frame's dt.
func NewDT(fn TaskFuncDT, frequency float64, opts ...Option) *Task {
	t := newBase(frequency, opts...)
	t.fnDT = fn
	return t
}

func newBase(frequency float64, opts ...Option) *Task {
	t := &Task{
		Enabled:   true,
		Frameskip: true,
		Frequency: frequency,
	}
	for _, o := range opts {
		o(t)
	}
	if t.Freewheel {
		t.started = time.Time{}
	} else {
		t.started = time.Now()
	}
	t.lastCall = t.started.Add(-t.Period())
	t.nextCall = t.started
	return t
}

// Option configures a Task at construction.
type Option func(*Task)

// WithOnce marks the task to run exactly once.
func WithOnce() Option { return func(t *Task) { t.Once = true } }

// WithFreewheel enables the decoupled virtual clock.
func WithFreewheel() Option { return func(t *Task) { t.Freewheel = true } }

// WithFrameskip overrides the frameskip policy (default true).
func WithFrameskip(v bool) Option { return func(t *Task) { t.Frameskip = v } }

// WithPrecise enables hybrid precise sleeping.
func WithPrecise() Option { return func(t *Task) { t.Precise = true } }

// next runs the task if due (or unconditionally in freewheel mode),
// advances next_call by whole multiples of the period, and disables the
// task if it was a one-shot.
func (t *Task) next(block bool) {
	var now time.Time

	if !t.Freewheel {
		wait := time.Until(t.nextCall)
		if wait < 0 {
			wait = 0
		}
		if !block && wait > 0 {
			return
		}
		if t.Precise {
			PreciseSleep(wait)
		} else if wait > 0 {
			time.Sleep(wait)
		}
		now = time.Now()
	} else {
		now = t.nextCall
	}

	var dt time.Duration
	if t.fnDT != nil {
		dt = now.Sub(t.lastCall)
		if !t.Frameskip {
			if period := t.Period(); dt > period {
				dt = period
			}
		}
	}
	t.lastCall = now

	if t.fnDT != nil {
		t.fnDT(dt)
	} else if t.fn != nil {
		t.fn()
	}

	for !t.nextCall.After(now) {
		t.calls++
		t.nextCall = t.started.Add(time.Duration(float64(t.calls) * float64(time.Second) / t.Frequency))
	}

	t.Enabled = !t.Once
}

// Scheduler owns a FIFO of Tasks, sorted by the §4.5 rule: once-tasks
// before periodic ones, otherwise ascending next_call.
type Scheduler struct {
	tasks []*Task
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add appends a task, returning it for convenience chaining.
func (s *Scheduler) Add(t *Task) *Task {
	s.tasks = append(s.tasks, t)
	return t
}

// Delete removes a task from the scheduler.
func (s *Scheduler) Delete(t *Task) {
	for i, cur := range s.tasks {
		if cur == t {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return
		}
	}
}

// Clear removes all tasks.
func (s *Scheduler) Clear() { s.tasks = nil }

// nextTask returns the earliest-due enabled task, or nil.
func (s *Scheduler) nextTask() *Task {
	var best *Task
	for _, t := range s.tasks {
		if !t.Enabled {
			continue
		}
		if best == nil || less(t, best) {
			best = t
		}
	}
	return best
}

// sanitize compacts out disabled one-shot tasks in place.
func (s *Scheduler) sanitize() {
	move := 0
	for _, t := range s.tasks {
		if t.shouldLive() {
			s.tasks[move] = t
			move++
		}
	}
	s.tasks = s.tasks[:move]
}

// Next pops and runs the earliest-due enabled task. When block is false
// and that task isn't due yet, it returns without running anything.
func (s *Scheduler) Next(block bool) *Task {
	t := s.nextTask()
	if t == nil {
		return nil
	}
	t.next(block)
	if t.shouldDelete() {
		s.sanitize()
	}
	return t
}

// AllOnce runs every pending one-shot task immediately, then compacts.
func (s *Scheduler) AllOnce() {
	for _, t := range s.tasks {
		if t.Once {
			t.next(true)
		}
	}
	s.sanitize()
}

// Len reports the number of tasks currently tracked (including any pending
// deletion until the next sanitize pass).
func (s *Scheduler) Len() int { return len(s.tasks) }
