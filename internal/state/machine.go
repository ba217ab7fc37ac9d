package state

import (
	"log/slog"
	"time"
)

// Delays holds every fixed delay the machine schedules. All of them are
// configurable; the defaults follow the reference interface timings.
type Delays struct {
	Authenticating time.Duration
	Boot           time.Duration
	Searching      time.Duration
	AutoRevert     time.Duration
	Alert          time.Duration
	ResetClear     time.Duration
	Logout         time.Duration
	SleepStage     time.Duration
	Observe        time.Duration
}

// DefaultDelays returns the standard interface timings.
func DefaultDelays() Delays {
	return Delays{
		Authenticating: 1500 * time.Millisecond,
		Boot:           2500 * time.Millisecond,
		Searching:      1800 * time.Millisecond,
		AutoRevert:     3 * time.Second,
		Alert:          4 * time.Second,
		ResetClear:     1500 * time.Millisecond,
		Logout:         2500 * time.Millisecond,
		SleepStage:     30 * time.Second,
		Observe:        45 * time.Second,
	}
}

// Config holds machine configuration.
type Config struct {
	Delays Delays

	// DeepThreshold is the conversation length past which inactivity
	// triggers the Observing state.
	DeepThreshold int

	// SingleUser disables authentication states: sessions start at
	// Booting, SystemAlert is time-boxed, and Logout is ignored.
	SingleUser bool
}

// DefaultConfig returns machine defaults.
func DefaultConfig() Config {
	return Config{
		Delays:        DefaultDelays(),
		DeepThreshold: 8,
	}
}

// Machine is the single source of truth for a session's interaction
// state. It is not safe for concurrent use: every method must be called
// from the owning session's event loop, which is also where the
// scheduler delivers timer callbacks.
type Machine struct {
	cfg      Config
	sched    *Scheduler
	onChange func(State)

	current  State
	focused  bool
	empty    bool
	logDepth int
}

// NewMachine creates a machine in its initial state: Unauthenticated in
// multi-user mode, Booting in single-user mode (the boot sequence still
// has to be started explicitly).
func NewMachine(cfg Config, sched *Scheduler, onChange func(State)) *Machine {
	initial := Unauthenticated
	if cfg.SingleUser {
		initial = Booting
	}
	return &Machine{
		cfg:      cfg,
		sched:    sched,
		onChange: onChange,
		current:  initial,
		empty:    true,
	}
}

// Current returns the current interaction state.
func (m *Machine) Current() State {
	return m.current
}

// Scheduler exposes the machine's timer scheduler for collaborators that
// share its purpose keys (reset clearing, logout display delay).
func (m *Machine) Scheduler() *Scheduler {
	return m.sched
}

func (m *Machine) set(s State) {
	if m.current == s {
		return
	}
	slog.Debug("interaction state change", "from", m.current.String(), "to", s.String())
	m.current = s
	if m.onChange != nil {
		m.onChange(s)
	}
}

// revertTarget is where transient states downgrade to: the focus-matching
// state when the input has focus, Idle otherwise.
func (m *Machine) revertTarget() State {
	if m.focused {
		if m.empty {
			return FocusedEmpty
		}
		return Focused
	}
	return Idle
}

// StartAuthenticating runs the login animation: a fixed delay in
// Authenticating, then Booting, then Idle. Both delays are
// non-cancellable stages; no user input is processed meanwhile.
func (m *Machine) StartAuthenticating() {
	m.sched.CancelAll()
	m.set(Authenticating)
	m.sched.Schedule(PurposeBootSequence, m.cfg.Delays.Authenticating, func() {
		if m.current != Authenticating {
			return
		}
		m.startBootStage()
	})
}

// StartBoot runs only the Booting stage, used when a persisted session
// resumes and in single-user mode.
func (m *Machine) StartBoot() {
	m.sched.CancelAll()
	m.set(Booting)
	m.sched.Schedule(PurposeBootSequence, m.cfg.Delays.Boot, func() {
		if m.current != Booting {
			return
		}
		m.set(Idle)
		m.scheduleObserve()
	})
}

func (m *Machine) startBootStage() {
	m.set(Booting)
	m.sched.Schedule(PurposeBootSequence, m.cfg.Delays.Boot, func() {
		if m.current != Booting {
			return
		}
		m.set(Idle)
		m.scheduleObserve()
	})
}

// StartLogout runs the logout animation and calls done once the machine
// reaches Unauthenticated.
func (m *Machine) StartLogout(done func()) {
	m.sched.CancelAll()
	m.set(Authenticating)
	m.sched.Schedule(PurposeBootSequence, m.cfg.Delays.Authenticating, func() {
		if m.current != Authenticating {
			return
		}
		m.set(Unauthenticated)
		if done != nil {
			done()
		}
	})
}

// Focus handles the input gaining focus.
func (m *Machine) Focus(empty bool) {
	m.focused = true
	m.empty = empty
	m.sched.Cancel(PurposeSleepStage)
	if m.current.focusable() {
		m.set(m.revertTarget())
	}
}

// Blur handles the input losing focus. Urgent states ignore blur; from a
// focus state the machine returns to Idle and, when nothing urgent is
// active, the staged sleep sequence begins.
func (m *Machine) Blur() {
	m.focused = false
	if m.current.urgent() {
		return
	}
	if m.current == Focused || m.current == FocusedEmpty {
		m.set(Idle)
	}
	if m.current.drowsy() {
		m.scheduleSleepStage(PreSleep)
	}
	m.scheduleObserve()
}

// InputChanged handles a keystroke: re-evaluates FocusedEmpty vs Focused
// and counts as activity.
func (m *Machine) InputChanged(empty bool) {
	m.empty = empty
	m.Activity()
	if m.focused && m.current.focusable() {
		m.set(m.revertTarget())
	}
}

// Activity handles any user activity (keystroke, pointer movement,
// scroll). It cancels the pending sleep sequence regardless of which
// stage is scheduled, wakes the machine from ambient states, and re-arms
// the deep-mode inactivity timer.
func (m *Machine) Activity() {
	m.sched.Cancel(PurposeSleepStage)
	switch m.current {
	case PreSleep, Squinting, Sleeping, Observing:
		m.set(m.revertTarget())
	case SystemAlert:
		// Multi-user alerts clear on the next activity; single-user
		// alerts are time-boxed instead.
		if !m.cfg.SingleUser {
			m.set(m.revertTarget())
		}
	}
	m.scheduleObserve()
}

// SetLogDepth informs the machine of the conversation log length, which
// decides deep mode.
func (m *Machine) SetLogDepth(n int) {
	m.logDepth = n
}

// BeginSearch enters SystemSearching and holds it for the fixed delay
// before calling proceed. Purely cosmetic gating.
func (m *Machine) BeginSearch(proceed func()) {
	m.sched.Cancel(PurposeSleepStage)
	m.sched.Cancel(PurposeObserve)
	m.set(SystemSearching)
	m.sched.Schedule(PurposeSearchHold, m.cfg.Delays.Searching, func() {
		if m.current != SystemSearching {
			return
		}
		if proceed != nil {
			proceed()
		}
	})
}

// BeginProcessing marks a submission in flight. Only the submission's
// completion exits this state, never a timer.
func (m *Machine) BeginProcessing() {
	m.sched.Cancel(PurposeAutoRevert)
	m.sched.Cancel(PurposeSleepStage)
	m.sched.Cancel(PurposeObserve)
	m.set(Processing)
}

// FinishActive enters the transient Active state after an ordinary reply.
func (m *Machine) FinishActive() {
	m.transient(Active, m.cfg.Delays.AutoRevert)
}

// FinishSuccess enters the transient SystemSuccess state after a reply
// that wrote memory or reset the session.
func (m *Machine) FinishSuccess() {
	m.transient(SystemSuccess, m.cfg.Delays.AutoRevert)
}

// FinishAlert enters SystemAlert. In single-user mode the alert is
// time-boxed back to Idle/Focused; in multi-user mode it stays until the
// next user activity.
func (m *Machine) FinishAlert() {
	if m.cfg.SingleUser {
		m.transient(SystemAlert, m.cfg.Delays.Alert)
		return
	}
	m.sched.Cancel(PurposeAutoRevert)
	m.set(SystemAlert)
}

// ReportAnomaly enters SystemAlert for a UI-level failure. Unlike
// transport alerts, anomalies always auto-revert.
func (m *Machine) ReportAnomaly() {
	m.transient(SystemAlert, m.cfg.Delays.Alert)
}

// EnterAwaitingPermission blocks the session on a pending user decision.
// No timer ever exits this state.
func (m *Machine) EnterAwaitingPermission() {
	m.sched.Cancel(PurposeAutoRevert)
	m.sched.Cancel(PurposeSleepStage)
	m.sched.Cancel(PurposeObserve)
	m.set(AwaitingPermission)
}

// EnterIdle forces the baseline state, used after a session reset clears
// the log.
func (m *Machine) EnterIdle() {
	m.set(Idle)
	m.scheduleObserve()
}

// SetPower applies an ambient power state. Cosmetic: only visible from
// Idle, and auto-reverts like the other transient states.
func (m *Machine) SetPower(charging bool) {
	if m.current != Idle {
		return
	}
	if charging {
		m.transient(Charging, m.cfg.Delays.AutoRevert)
		return
	}
	m.transient(OnBattery, m.cfg.Delays.AutoRevert)
}

// transient enters a state and schedules the compare-and-revert
// downgrade: the callback only acts if the live state still equals the
// one it was scheduled for.
func (m *Machine) transient(s State, d time.Duration) {
	m.set(s)
	expected := s
	m.sched.Schedule(PurposeAutoRevert, d, func() {
		if m.current != expected {
			return
		}
		m.set(m.revertTarget())
		m.scheduleObserve()
	})
}

// scheduleSleepStage arms the next stage of the sleep sequence. The
// callback re-validates the guard conditions: any activity, refocus, or
// urgent state since scheduling makes it a no-op.
func (m *Machine) scheduleSleepStage(next State) {
	m.sched.Schedule(PurposeSleepStage, m.cfg.Delays.SleepStage, func() {
		if m.focused || !m.current.drowsy() {
			return
		}
		m.set(next)
		switch next {
		case PreSleep:
			m.scheduleSleepStage(Squinting)
		case Squinting:
			m.scheduleSleepStage(Sleeping)
		}
	})
}

// scheduleObserve arms the deep-mode inactivity timer when the
// conversation is long enough and the input is not focused.
func (m *Machine) scheduleObserve() {
	if m.logDepth <= m.cfg.DeepThreshold || m.focused {
		return
	}
	m.sched.Schedule(PurposeObserve, m.cfg.Delays.Observe, func() {
		switch m.current {
		case Idle, PreSleep, Squinting, Sleeping:
			m.set(Observing)
		}
	})
}
