package state

import (
	"sync"
	"time"
)

// Purpose identifies a logical timer slot. Scheduling a purpose always
// cancels the previously scheduled timer for the same purpose
// (last-writer-wins), so a stale callback can never fire into a state
// the machine has since left.
type Purpose string

const (
	// PurposeBootSequence drives the authenticating/booting stages.
	PurposeBootSequence Purpose = "boot_sequence"
	// PurposeSearchHold delays submission during SystemSearching.
	PurposeSearchHold Purpose = "search_hold"
	// PurposeAutoRevert downgrades transient completion states to Idle.
	PurposeAutoRevert Purpose = "auto_revert"
	// PurposeSleepStage advances the PreSleep/Squinting/Sleeping sequence.
	PurposeSleepStage Purpose = "sleep_stage"
	// PurposeObserve triggers Observing after deep-mode inactivity.
	PurposeObserve Purpose = "observe"
	// PurposeResetClear delays log clearing after a session reset so the
	// farewell text stays visible.
	PurposeResetClear Purpose = "reset_clear"
	// PurposeLogout delays logout after a logout directive.
	PurposeLogout Purpose = "logout"
)

type scheduledTask struct {
	timer *time.Timer
	gen   uint64
}

// Scheduler owns the cancellable scheduled-task handles of one session.
// Fired callbacks are handed to the run function, which the owner uses to
// marshal them onto its event loop; a nil run function executes callbacks
// on the timer goroutine (tests).
type Scheduler struct {
	mu    sync.Mutex
	run   func(fn func())
	tasks map[Purpose]*scheduledTask
	gen   uint64
}

// NewScheduler creates a scheduler. run, when non-nil, receives every
// fired callback for execution on the owner's event loop.
func NewScheduler(run func(fn func())) *Scheduler {
	return &Scheduler{
		run:   run,
		tasks: make(map[Purpose]*scheduledTask),
	}
}

// Schedule arranges fn to run after d, cancelling any previously
// scheduled task for the same purpose. A task that has already fired but
// not yet executed is detected by generation and becomes a no-op.
func (s *Scheduler) Schedule(purpose Purpose, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.tasks[purpose]; ok {
		prev.timer.Stop()
	}

	s.gen++
	gen := s.gen
	task := &scheduledTask{gen: gen}
	task.timer = time.AfterFunc(d, func() {
		s.dispatch(purpose, gen, fn)
	})
	s.tasks[purpose] = task
}

// Cancel stops the pending task for a purpose, if any.
func (s *Scheduler) Cancel(purpose Purpose) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task, ok := s.tasks[purpose]; ok {
		task.timer.Stop()
		delete(s.tasks, purpose)
	}
}

// CancelAll stops every pending task.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for purpose, task := range s.tasks {
		task.timer.Stop()
		delete(s.tasks, purpose)
	}
}

// Pending reports whether a task is scheduled for the purpose.
func (s *Scheduler) Pending(purpose Purpose) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[purpose]
	return ok
}

func (s *Scheduler) dispatch(purpose Purpose, gen uint64, fn func()) {
	exec := func() {
		s.mu.Lock()
		task, ok := s.tasks[purpose]
		if !ok || task.gen != gen {
			// Superseded or cancelled between firing and execution.
			s.mu.Unlock()
			return
		}
		delete(s.tasks, purpose)
		s.mu.Unlock()
		fn()
	}
	if s.run != nil {
		s.run(exec)
		return
	}
	exec()
}
